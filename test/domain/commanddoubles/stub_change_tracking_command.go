//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// StubChangeTrackingCommand is a stub implementation of commands.ChangeTracking.
type StubChangeTrackingCommand struct {
	mu sync.Mutex

	StartBranch string
	StartErr    error
	StartCalls  []string

	RecordRef   entities.CommitRef
	RecordErr   error
	RecordCalls []entities.Change

	// ApplyErrs fails ApplyChange for the listed fix ids.
	ApplyErrs  map[string]error
	ApplyCalls []entities.Fix

	FinalizeResult *entities.FinalizeResult
	FinalizeErr    error
	FinalizeCalls  []bool

	RollbackResult *entities.RollbackBatchResult
	// RollbackErrs fails RollbackBatch for the listed batch ids.
	RollbackErrs  map[string]error
	RollbackCalls []string

	History      []entities.HistoryEntry
	HistoryErr   error
	HistoryLimit int

	Open    *entities.ChangeBatch
	OpenErr error

	Batch    *entities.ChangeBatch
	BatchErr error
}

var _ commands.ChangeTracking = (*StubChangeTrackingCommand)(nil)

func (s *StubChangeTrackingCommand) StartBatch(_ context.Context, _, batchID, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCalls = append(s.StartCalls, batchID)
	if s.StartErr != nil {
		return "", s.StartErr
	}
	s.Open = &entities.ChangeBatch{BatchID: batchID, Status: entities.BatchStatusOpen}
	if s.StartBranch != "" {
		return s.StartBranch, nil
	}
	return "seo-batch/" + batchID, nil
}

func (s *StubChangeTrackingCommand) RecordChange(
	_ context.Context,
	_, filePath string,
	changeType entities.ChangeType,
	metadata map[string]any,
) (entities.CommitRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RecordCalls = append(s.RecordCalls, entities.Change{FilePath: filePath, ChangeType: changeType, Metadata: metadata})
	return s.RecordRef, s.RecordErr
}

func (s *StubChangeTrackingCommand) ApplyChange(
	_ context.Context,
	_ string,
	fix entities.Fix,
) (entities.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ApplyCalls = append(s.ApplyCalls, fix)
	if err, ok := s.ApplyErrs[fix.ID]; ok {
		return fix, err
	}
	if s.Open != nil {
		fix.BatchID = s.Open.BatchID
	}
	fix.CommitRef = entities.CommitRef("commit-" + fix.ID)
	return fix, nil
}

func (s *StubChangeTrackingCommand) FinalizeBatch(
	_ context.Context,
	_, batchID string,
	approved bool,
) (*entities.FinalizeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinalizeCalls = append(s.FinalizeCalls, approved)
	if s.FinalizeErr != nil {
		return nil, s.FinalizeErr
	}
	if s.FinalizeResult != nil {
		return s.FinalizeResult, nil
	}
	status := entities.BatchStatusRejected
	if approved {
		status = entities.BatchStatusCompleted
	}
	s.Open = nil
	return &entities.FinalizeResult{BatchID: batchID, Status: status}, nil
}

func (s *StubChangeTrackingCommand) RollbackBatch(
	_ context.Context,
	_, batchID string,
) (*entities.RollbackBatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RollbackCalls = append(s.RollbackCalls, batchID)
	if err, ok := s.RollbackErrs[batchID]; ok {
		return nil, err
	}
	if s.RollbackResult != nil {
		return s.RollbackResult, nil
	}
	return &entities.RollbackBatchResult{BatchID: batchID, Status: entities.BatchStatusRolledBack}, nil
}

func (s *StubChangeTrackingCommand) GetChangeHistory(
	_ context.Context,
	_ string,
	limit int,
) ([]entities.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryLimit = limit
	return s.History, s.HistoryErr
}

func (s *StubChangeTrackingCommand) OpenBatch(_ context.Context, _ string) (*entities.ChangeBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Open, s.OpenErr
}

func (s *StubChangeTrackingCommand) GetBatch(_ context.Context, _, _ string) (*entities.ChangeBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Batch, s.BatchErr
}
