package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rios0rios0/seoremedy/internal"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

type bootstrapFlags struct {
	configPath string
	verbose    bool
}

// parseBootstrapFlags reads the global flags needed to build the container, ignoring
// everything that belongs to the subcommands.
func parseBootstrapFlags(args []string) bootstrapFlags {
	var flags bootstrapFlags
	fs := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.StringVarP(&flags.configPath, "config", "c", "", "")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "")
	_ = fs.Parse(args)
	return flags
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "seoremedy",
		Short: "Technical SEO crawler and remediation engine",
		Long: `Crawl websites, score their technical SEO, and apply generated fixes as
version-controlled change batches that can be merged, verified and rolled back.

Every site is a working directory tracked by its own Git repository. Each change is
one commit on a batch branch; approved batches are merged into the stable branch and
tagged, and a failed verification reverts the merge without rewriting history.

Usage modes:
  seoremedy crawl https://example.com    Crawl and print page reports
  seoremedy run <site>                   Full remediation pipeline (cronjob)
  seoremedy serve                        HTTP API`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, read before the container is built
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Args:  bind.Args,
			RunE: func(command *cobra.Command, arguments []string) error {
				return ctrl.Execute(command, arguments)
			},
		}

		// Add controller-specific flags
		ctrl.AddFlags(subCmd)

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	bootstrap := parseBootstrapFlags(os.Args[1:])
	if bootstrap.verbose || os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	settings, err := entities.LoadSettings(bootstrap.configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %s", err)
	}

	// Inject controllers via DIG
	appContext, err := injectAppContext(settings)
	if err != nil {
		logger.Fatalf("Failed to build application: %s", err)
	}

	cobraRoot := buildRootCommand()
	addSubcommands(cobraRoot, appContext)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err = cobraRoot.ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatalf("Error executing 'seoremedy': %s", err)
	}
	stop()
}
