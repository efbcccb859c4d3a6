package controllers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

const defaultHistoryLimit = 20

// HistoryController handles the "history" subcommand.
type HistoryController struct {
	command commands.ChangeTracking
}

// NewHistoryController creates a new HistoryController.
func NewHistoryController(command commands.ChangeTracking) *HistoryController {
	return &HistoryController{command: command}
}

// GetBind returns the Cobra command metadata for the history controller.
func (it *HistoryController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "history <site>",
		Short: "List the latest commits of the stable branch",
		Long: `List the latest commits of the stable branch of a site, newest first, with the
change metadata embedded in each commit message decoded.`,
		Args: cobra.ExactArgs(1),
	}
}

// AddFlags adds the history flags to the given Cobra command.
func (it *HistoryController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of commits to list")
}

// Execute prints the change history.
func (it *HistoryController) Execute(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", limit)
	}

	history, err := it.command.GetChangeHistory(commandContext(cmd), args[0], limit)
	if err != nil {
		return err
	}
	return writeJSON(cmd, history)
}
