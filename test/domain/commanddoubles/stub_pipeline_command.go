//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// StubPipelineCommand is a stub implementation of commands.Pipeline.
type StubPipelineCommand struct {
	Implementation *entities.ImplementationResult
	ImplementErr   error
	ImplementCalls [][]entities.Fix

	Rollback      *entities.RollbackResult
	RollbackErr   error
	RollbackCalls [][]entities.Fix

	Report       *entities.PipelineReport
	ExecuteErr   error
	ExecuteCalls []entities.PipelineOptions
}

var _ commands.Pipeline = (*StubPipelineCommand)(nil)

func (s *StubPipelineCommand) ImplementFixes(
	_ context.Context,
	_ string,
	fixes []entities.Fix,
) (*entities.ImplementationResult, error) {
	s.ImplementCalls = append(s.ImplementCalls, fixes)
	if s.ImplementErr != nil {
		return nil, s.ImplementErr
	}
	if s.Implementation == nil {
		return entities.NewImplementationResult(), nil
	}
	return s.Implementation, nil
}

func (s *StubPipelineCommand) RollbackFixes(
	_ context.Context,
	_ string,
	fixes []entities.Fix,
) (*entities.RollbackResult, error) {
	s.RollbackCalls = append(s.RollbackCalls, fixes)
	if s.RollbackErr != nil {
		return nil, s.RollbackErr
	}
	if s.Rollback == nil {
		return entities.NewRollbackResult(), nil
	}
	return s.Rollback, nil
}

func (s *StubPipelineCommand) Execute(
	_ context.Context,
	opts entities.PipelineOptions,
) (*entities.PipelineReport, error) {
	s.ExecuteCalls = append(s.ExecuteCalls, opts)
	if s.Report == nil {
		return &entities.PipelineReport{SiteID: opts.SiteID}, s.ExecuteErr
	}
	return s.Report, s.ExecuteErr
}
