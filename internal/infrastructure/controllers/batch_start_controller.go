package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// BatchStartController handles the "batch-start" subcommand.
type BatchStartController struct {
	command commands.ChangeTracking
}

// NewBatchStartController creates a new BatchStartController.
func NewBatchStartController(command commands.ChangeTracking) *BatchStartController {
	return &BatchStartController{command: command}
}

// GetBind returns the Cobra command metadata for the batch-start controller.
func (it *BatchStartController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "batch-start <site> <batch-id>",
		Short: "Open a change batch on its own branch",
		Long: `Open a new change batch for a site. The batch branch is created from the
stable branch, which is initialised on first use. Only one batch may be open per site.`,
		Args: cobra.ExactArgs(2),
	}
}

// AddFlags adds the batch-start flags to the given Cobra command.
func (it *BatchStartController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("description", "d", "", "Human-readable description of the batch")
}

// Execute opens the batch and prints its branch.
func (it *BatchStartController) Execute(cmd *cobra.Command, args []string) error {
	siteID, batchID := args[0], args[1]
	description, _ := cmd.Flags().GetString("description")

	branch, err := it.command.StartBatch(commandContext(cmd), siteID, batchID, description)
	if err != nil {
		return err
	}

	logger.Infof("Batch %q started on branch %q", batchID, branch)
	return writeJSON(cmd, map[string]string{
		"siteId":  siteID,
		"batchId": batchID,
		"branch":  branch,
	})
}
