package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// commandContext returns the context cobra was executed with.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeJSON prints an indented JSON document to the command output.
func writeJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// readFixes decodes a JSON array of fixes from a file, or from stdin when the path is "-".
func readFixes(cmd *cobra.Command, path string) ([]entities.Fix, error) {
	var reader io.Reader
	if path == "-" {
		reader = cmd.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixes file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var fixes []entities.Fix
	if err := json.NewDecoder(reader).Decode(&fixes); err != nil {
		return nil, fmt.Errorf("failed to decode fixes from %q: %w", path, err)
	}
	return fixes, nil
}

// addCrawlFlags adds the flags overriding the configured crawl defaults.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-pages", 0, "Maximum number of pages to report (default: from config)")
	cmd.Flags().Int("max-depth", 0, "Maximum link depth from the seed (default: from config)")
	cmd.Flags().Int("concurrency", 0, "Pages visited in parallel (default: from config)")
	cmd.Flags().String("browser", "", "Browser backend: chromedp or http (default: from config)")
	cmd.Flags().Duration("timeout", 0, "Navigation timeout per page (default: from config)")
}

// crawlFlagOverrides collects every crawl flag set on the command line.
func crawlFlagOverrides(cmd *cobra.Command) entities.CrawlOverrides {
	flags := cmd.Flags()
	var overrides entities.CrawlOverrides
	overrides.MaxPages, _ = flags.GetInt("max-pages")
	if flags.Changed("max-depth") {
		depth, _ := flags.GetInt("max-depth")
		overrides.MaxDepth = &depth
	}
	overrides.Concurrency, _ = flags.GetInt("concurrency")
	overrides.Browser, _ = flags.GetString("browser")
	overrides.NavigationTimeout, _ = flags.GetDuration("timeout")
	return overrides
}
