package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// ApplyFixesController handles the "apply-fixes" subcommand.
type ApplyFixesController struct {
	command commands.Pipeline
}

// NewApplyFixesController creates a new ApplyFixesController.
func NewApplyFixesController(command commands.Pipeline) *ApplyFixesController {
	return &ApplyFixesController{command: command}
}

// GetBind returns the Cobra command metadata for the apply-fixes controller.
func (it *ApplyFixesController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "apply-fixes <site> <fixes.json>",
		Short: "Apply a list of fixes to the open batch",
		Long: `Apply every fix of a JSON array (use "-" for stdin) to the site and commit each
one to the open batch, opening a new batch when there is none. Fixes that fail are
reported next to the applied ones; the batch is left open for batch-finalize.`,
		Args: cobra.ExactArgs(2),
	}
}

// AddFlags has nothing to add for apply-fixes.
func (it *ApplyFixesController) AddFlags(_ *cobra.Command) {}

// Execute applies the fixes and prints the implementation result.
func (it *ApplyFixesController) Execute(cmd *cobra.Command, args []string) error {
	fixes, err := readFixes(cmd, args[1])
	if err != nil {
		return err
	}

	result, err := it.command.ImplementFixes(commandContext(cmd), args[0], fixes)
	if err != nil {
		return err
	}

	logger.Infof("Applied %d fix(es), %d failed", len(result.AppliedFixes), len(result.FailedFixes))
	return writeJSON(cmd, result)
}

// RollbackFixesController handles the "rollback-fixes" subcommand.
type RollbackFixesController struct {
	command commands.Pipeline
}

// NewRollbackFixesController creates a new RollbackFixesController.
func NewRollbackFixesController(command commands.Pipeline) *RollbackFixesController {
	return &RollbackFixesController{command: command}
}

// GetBind returns the Cobra command metadata for the rollback-fixes controller.
func (it *RollbackFixesController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "rollback-fixes <site> <fixes.json>",
		Short: "Roll back the batches of previously applied fixes",
		Long: `Roll back every batch referenced by a JSON array of applied fixes (use "-" for
stdin), such as the appliedFixes printed by apply-fixes. Fixes without a commit are
skipped.`,
		Args: cobra.ExactArgs(2),
	}
}

// AddFlags has nothing to add for rollback-fixes.
func (it *RollbackFixesController) AddFlags(_ *cobra.Command) {}

// Execute rolls the fixes back and prints the rollback result.
func (it *RollbackFixesController) Execute(cmd *cobra.Command, args []string) error {
	fixes, err := readFixes(cmd, args[1])
	if err != nil {
		return err
	}

	result, err := it.command.RollbackFixes(commandContext(cmd), args[0], fixes)
	if err != nil {
		return err
	}

	if !result.Success {
		logger.Warnf("%d fix rollback(s) failed", len(result.FailedRollbacks))
	}
	return writeJSON(cmd, result)
}
