package controllers

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// CrawlController handles the "crawl" subcommand.
type CrawlController struct {
	settings *entities.Settings
	command  commands.Crawl
}

// NewCrawlController creates a new CrawlController.
func NewCrawlController(settings *entities.Settings, command commands.Crawl) *CrawlController {
	return &CrawlController{settings: settings, command: command}
}

// GetBind returns the Cobra command metadata for the crawl controller.
func (it *CrawlController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "crawl <url>",
		Short: "Crawl a site and report SEO issues per page",
		Long: `Crawl a site breadth-first from the given URL, staying on its origin and
honouring robots.txt, then print one analysed page report per visited page as JSON.

Pages that fail to load are reported with an error instead of aborting the crawl.`,
		Args: cobra.ExactArgs(1),
	}
}

// AddFlags adds the crawl-specific flags to the given Cobra command.
func (it *CrawlController) AddFlags(cmd *cobra.Command) {
	addCrawlFlags(cmd)
}

// Execute runs one crawl and prints the result.
func (it *CrawlController) Execute(cmd *cobra.Command, args []string) error {
	opts := it.settings.ResolveCrawlOptions(args[0], crawlFlagOverrides(cmd))

	result, err := it.command.Execute(commandContext(cmd), opts)
	if err != nil {
		return fmt.Errorf("crawl of %q failed: %w", opts.SeedURL, err)
	}

	logger.Infof("Crawled %d page(s) from %s, average score %.1f",
		len(result.Pages), result.SeedURL, entities.AverageScore(result.Pages))
	return writeJSON(cmd, result)
}
