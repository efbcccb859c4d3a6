package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// BatchFinalizeController handles the "batch-finalize" subcommand.
type BatchFinalizeController struct {
	command commands.ChangeTracking
}

// NewBatchFinalizeController creates a new BatchFinalizeController.
func NewBatchFinalizeController(command commands.ChangeTracking) *BatchFinalizeController {
	return &BatchFinalizeController{command: command}
}

// GetBind returns the Cobra command metadata for the batch-finalize controller.
func (it *BatchFinalizeController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "batch-finalize <site> <batch-id>",
		Short: "Merge or reject the open batch",
		Long: `Close the open batch. An approved batch is merged into the stable branch with a
merge commit and tagged as complete; a rejected batch leaves the stable branch untouched
and keeps its branch for inspection.`,
		Args: cobra.ExactArgs(2),
	}
}

// AddFlags adds the batch-finalize flags to the given Cobra command.
func (it *BatchFinalizeController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("reject", false, "Reject the batch instead of merging it")
}

// Execute finalizes the batch and prints the result.
func (it *BatchFinalizeController) Execute(cmd *cobra.Command, args []string) error {
	siteID, batchID := args[0], args[1]
	reject, _ := cmd.Flags().GetBool("reject")

	result, err := it.command.FinalizeBatch(commandContext(cmd), siteID, batchID, !reject)
	if err != nil {
		return err
	}

	logger.Infof("Batch %q finalized as %s with %d change(s)", batchID, result.Status, result.ChangeCount)
	return writeJSON(cmd, result)
}
