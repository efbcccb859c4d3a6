package controllers

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/api"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register the HTTP API served by the serve controller
	if err := container.Provide(api.NewServer); err != nil {
		return err
	}

	// Register controller constructors
	constructors := []any{
		NewCrawlController,
		NewBatchStartController,
		NewBatchRecordController,
		NewBatchFinalizeController,
		NewBatchRollbackController,
		NewBatchShowController,
		NewHistoryController,
		NewApplyFixesController,
		NewRollbackFixesController,
		NewRunController,
		NewServeController,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}
	if err := container.Provide(NewControllers); err != nil {
		return err
	}

	return nil
}

// ControllersIn collects every controller for NewControllers.
type ControllersIn struct {
	dig.In

	Crawl         *CrawlController
	BatchStart    *BatchStartController
	BatchRecord   *BatchRecordController
	BatchFinalize *BatchFinalizeController
	BatchRollback *BatchRollbackController
	BatchShow     *BatchShowController
	History       *HistoryController
	ApplyFixes    *ApplyFixesController
	RollbackFixes *RollbackFixesController
	Run           *RunController
	Serve         *ServeController
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(in ControllersIn) *[]entities.Controller {
	return &[]entities.Controller{
		in.Crawl,
		in.BatchStart,
		in.BatchRecord,
		in.BatchFinalize,
		in.BatchRollback,
		in.BatchShow,
		in.History,
		in.ApplyFixes,
		in.RollbackFixes,
		in.Run,
		in.Serve,
	}
}
