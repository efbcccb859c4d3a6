package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// BatchStatus is the lifecycle state of a ChangeBatch.
type BatchStatus string

const (
	BatchStatusOpen       BatchStatus = "open"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusRejected   BatchStatus = "rejected"
	BatchStatusRolledBack BatchStatus = "rolled_back"
)

// Terminal reports whether no further change may be appended.
func (s BatchStatus) Terminal() bool {
	return s != BatchStatusOpen
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	switch s {
	case BatchStatusOpen:
		return next == BatchStatusCompleted || next == BatchStatusRejected
	case BatchStatusCompleted:
		return next == BatchStatusRolledBack
	case BatchStatusRejected, BatchStatusRolledBack:
		return false
	}
	return false
}

// ChangeBatch is an atomic, named group of changes tracked on its own branch.
// Its JSON form is the durable batch record kept in the site repository.
type ChangeBatch struct {
	BatchID      string      `json:"batchId"`
	Description  string      `json:"description"`
	SiteID       string      `json:"siteId"`
	StartTime    time.Time   `json:"startTime"`
	Changes      []Change    `json:"changes"`
	EndTime      *time.Time  `json:"endTime,omitempty"`
	Approved     *bool       `json:"approved,omitempty"`
	Status       BatchStatus `json:"status"`
	RollbackTime *time.Time  `json:"rollbackTime,omitempty"`
}

// NewChangeBatch creates an open batch with no changes.
func NewChangeBatch(siteID, batchID, description string, startTime time.Time) *ChangeBatch {
	return &ChangeBatch{
		BatchID:     batchID,
		Description: description,
		SiteID:      siteID,
		StartTime:   startTime,
		Changes:     []Change{},
		Status:      BatchStatusOpen,
	}
}

// Clone returns a deep enough copy for staged mutations: the change slice and optional
// fields are copied, metadata maps are shared because changes are append-only.
func (b *ChangeBatch) Clone() *ChangeBatch {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Changes = make([]Change, len(b.Changes))
	copy(clone.Changes, b.Changes)
	if b.EndTime != nil {
		endTime := *b.EndTime
		clone.EndTime = &endTime
	}
	if b.Approved != nil {
		approved := *b.Approved
		clone.Approved = &approved
	}
	if b.RollbackTime != nil {
		rollbackTime := *b.RollbackTime
		clone.RollbackTime = &rollbackTime
	}
	return &clone
}

// ChangeCount returns the number of recorded changes.
func (b *ChangeBatch) ChangeCount() int {
	return len(b.Changes)
}

// MarshalRecord encodes the batch as the indented JSON record written to disk.
func (b *ChangeBatch) MarshalRecord() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch record: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalBatchRecord decodes a batch record read from disk.
func UnmarshalBatchRecord(data []byte) (*ChangeBatch, error) {
	var batch ChangeBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch record: %w", err)
	}
	if batch.BatchID == "" {
		return nil, fmt.Errorf("failed to decode batch record: missing batchId")
	}
	if batch.Changes == nil {
		batch.Changes = []Change{}
	}
	return &batch, nil
}

// FinalizeResult summarises a finalized batch.
type FinalizeResult struct {
	BatchID     string      `json:"batchId"`
	Status      BatchStatus `json:"status"`
	ChangeCount int         `json:"changeCount"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     time.Time   `json:"endTime"`
	MergeCommit CommitRef   `json:"mergeCommit,omitempty"`
	Tag         string      `json:"tag,omitempty"`
}

// RollbackBatchResult summarises a rolled back batch.
type RollbackBatchResult struct {
	BatchID      string      `json:"batchId"`
	Status       BatchStatus `json:"status"`
	RollbackTime time.Time   `json:"rollbackTime"`
	RevertCommit CommitRef   `json:"revertCommit"`
	Tag          string      `json:"tag"`
}
