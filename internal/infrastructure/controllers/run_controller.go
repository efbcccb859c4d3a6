package controllers

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// RunController handles the "run" subcommand (full remediation pipeline).
type RunController struct {
	command commands.Pipeline
}

// NewRunController creates a new RunController.
func NewRunController(command commands.Pipeline) *RunController {
	return &RunController{command: command}
}

// GetBind returns the Cobra command metadata for the run controller.
func (it *RunController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "run <site>",
		Short: "Run the remediation pipeline for a site",
		Long: `Crawl the site, prioritise the issues found, generate fixes with the configured
generator and apply them in a new batch. An approved batch is merged, the site is verified
and the batch is rolled back when verification fails.

This is the main command intended to be used in a cronjob.`,
		Args: cobra.ExactArgs(1),
	}
}

// AddFlags adds the run-specific flags to the given Cobra command.
func (it *RunController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Crawl and generate fixes without applying them")
	cmd.Flags().String("seed", "", "Seed URL (default: the configured site URL)")
	addCrawlFlags(cmd)
}

// Execute runs the pipeline and prints the report, also when a stage failed.
func (it *RunController) Execute(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	seed, _ := cmd.Flags().GetString("seed")

	opts := entities.PipelineOptions{
		SiteID:  args[0],
		SeedURL: seed,
		DryRun:  dryRun,
		Crawl:   crawlFlagOverrides(cmd),
	}

	logger.Infof("Starting remediation run for site %q (dry-run=%t)", opts.SiteID, dryRun)
	report, runErr := it.command.Execute(commandContext(cmd), opts)
	if report != nil {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run for site %q failed: %w", opts.SiteID, runErr)
	}
	return nil
}
