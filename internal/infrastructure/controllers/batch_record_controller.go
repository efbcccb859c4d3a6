package controllers

import (
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// BatchRecordController handles the "batch-record" subcommand.
type BatchRecordController struct {
	command commands.ChangeTracking
}

// NewBatchRecordController creates a new BatchRecordController.
func NewBatchRecordController(command commands.ChangeTracking) *BatchRecordController {
	return &BatchRecordController{command: command}
}

// GetBind returns the Cobra command metadata for the batch-record controller.
func (it *BatchRecordController) GetBind() entities.ControllerBind {
	names := make([]string, 0, len(entities.ChangeTypes()))
	for _, changeType := range entities.ChangeTypes() {
		names = append(names, string(changeType))
	}
	return entities.ControllerBind{
		Use:   "batch-record <site> <file> <change-type>",
		Short: "Commit an edited file to the open batch",
		Long: `Stage the given file of the site working directory and commit it to the open
batch, with the change type and metadata embedded in the commit message.

Change types: ` + strings.Join(names, ", "),
		Args: cobra.ExactArgs(3),
	}
}

// AddFlags adds the batch-record flags to the given Cobra command.
func (it *BatchRecordController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringToString("meta", nil, "Metadata recorded with the change (key=value, repeatable)")
}

// Execute records the change and prints the new commit.
func (it *BatchRecordController) Execute(cmd *cobra.Command, args []string) error {
	siteID, filePath := args[0], args[1]
	changeType, err := entities.ParseChangeType(args[2])
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetStringToString("meta")
	metadata := make(map[string]any, len(raw))
	for key, value := range raw {
		metadata[key] = value
	}

	ref, err := it.command.RecordChange(commandContext(cmd), siteID, filePath, changeType, metadata)
	if err != nil {
		return err
	}

	logger.Infof("Recorded %s change to %q as %s", changeType, filePath, ref.Short())
	return writeJSON(cmd, map[string]string{
		"siteId":   siteID,
		"filePath": filePath,
		"commit":   string(ref),
	})
}
