package controllers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// BatchShowController handles the "batch-show" subcommand.
type BatchShowController struct {
	command commands.ChangeTracking
}

// NewBatchShowController creates a new BatchShowController.
func NewBatchShowController(command commands.ChangeTracking) *BatchShowController {
	return &BatchShowController{command: command}
}

// GetBind returns the Cobra command metadata for the batch-show controller.
func (it *BatchShowController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "batch-show <site> [batch-id]",
		Short: "Print a batch record",
		Long:  `Print the record of the given batch, or of the open batch when no id is given.`,
		Args:  cobra.RangeArgs(1, 2),
	}
}

// AddFlags has nothing to add for batch-show.
func (it *BatchShowController) AddFlags(_ *cobra.Command) {}

// Execute prints the requested batch.
func (it *BatchShowController) Execute(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	siteID := args[0]

	var (
		batch *entities.ChangeBatch
		err   error
	)
	if len(args) == 2 {
		batch, err = it.command.GetBatch(ctx, siteID, args[1])
	} else {
		batch, err = it.command.OpenBatch(ctx, siteID)
		if err == nil && batch == nil {
			err = fmt.Errorf("site %q: %w", siteID, entities.ErrNoOpenBatch)
		}
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd, batch)
}
