package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// BatchRollbackController handles the "batch-rollback" subcommand.
type BatchRollbackController struct {
	command commands.ChangeTracking
}

// NewBatchRollbackController creates a new BatchRollbackController.
func NewBatchRollbackController(command commands.ChangeTracking) *BatchRollbackController {
	return &BatchRollbackController{command: command}
}

// GetBind returns the Cobra command metadata for the batch-rollback controller.
func (it *BatchRollbackController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "batch-rollback <site> <batch-id>",
		Short: "Revert a completed batch",
		Long: `Revert the merge of a completed batch on a rollback branch, merge that branch
into the stable branch and tag the result. History is never rewritten.`,
		Args: cobra.ExactArgs(2),
	}
}

// AddFlags has nothing to add for batch-rollback.
func (it *BatchRollbackController) AddFlags(_ *cobra.Command) {}

// Execute rolls the batch back and prints the result.
func (it *BatchRollbackController) Execute(cmd *cobra.Command, args []string) error {
	siteID, batchID := args[0], args[1]

	result, err := it.command.RollbackBatch(commandContext(cmd), siteID, batchID)
	if err != nil {
		return err
	}

	logger.Infof("Batch %q rolled back by %s", batchID, result.RevertCommit.Short())
	return writeJSON(cmd, result)
}
