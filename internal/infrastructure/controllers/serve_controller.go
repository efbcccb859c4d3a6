package controllers

import (
	"github.com/spf13/cobra"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/api"
)

// ServeController handles the "serve" subcommand.
type ServeController struct {
	server *api.Server
}

// NewServeController creates a new ServeController.
func NewServeController(server *api.Server) *ServeController {
	return &ServeController{server: server}
}

// GetBind returns the Cobra command metadata for the serve controller.
func (it *ServeController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve crawls, batch operations, fix implementation, pipeline runs and
Prometheus metrics over HTTP until interrupted.`,
		Args: cobra.NoArgs,
	}
}

// AddFlags adds the serve flags to the given Cobra command.
func (it *ServeController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "Listen address (default: server.addr from config)")
}

// Execute serves until the command context is cancelled.
func (it *ServeController) Execute(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	return it.server.ListenAndServe(commandContext(cmd), addr)
}
