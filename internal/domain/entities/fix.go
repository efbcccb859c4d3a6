package entities

import "time"

// FixChanges describes a text replacement inside one file. An empty Original means the
// file is written with Modified as its whole content.
type FixChanges struct {
	Original string `json:"original"`
	Modified string `json:"modified"`
}

// Fix is a generated remediation for one issue.
type Fix struct {
	ID        string     `json:"id"`
	IssueID   string     `json:"issueId"`
	Type      ChangeType `json:"type"`
	Path      string     `json:"path"`
	Changes   FixChanges `json:"changes"`
	BatchID   string     `json:"batchId,omitempty"`
	CommitRef CommitRef  `json:"commitRef,omitempty"`
}

// Applied reports whether the fix has been committed.
func (f Fix) Applied() bool {
	return f.CommitRef != ""
}

// ChangeMetadata is the metadata recorded with the commit of this fix.
func (f Fix) ChangeMetadata() map[string]any {
	return map[string]any{
		"fixId":   f.ID,
		"issueId": f.IssueID,
		"before":  f.Changes.Original,
		"after":   f.Changes.Modified,
	}
}

// FailedFix pairs a fix with the reason it could not be applied or reverted.
type FailedFix struct {
	Fix   Fix    `json:"fix"`
	Error string `json:"error"`
}

// ImplementationResult is the partial-success outcome of applying fixes.
type ImplementationResult struct {
	BatchID      string      `json:"batchId,omitempty"`
	AppliedFixes []Fix       `json:"appliedFixes"`
	FailedFixes  []FailedFix `json:"failedFixes"`
}

// NewImplementationResult returns a result with empty, non-nil lists.
func NewImplementationResult() *ImplementationResult {
	return &ImplementationResult{AppliedFixes: []Fix{}, FailedFixes: []FailedFix{}}
}

// RollbackResult is the outcome of reverting applied fixes.
type RollbackResult struct {
	RolledBackFixes []Fix       `json:"rolledBackFixes"`
	SkippedFixes    []Fix       `json:"skippedFixes"`
	FailedRollbacks []FailedFix `json:"failedRollbacks"`
	Success         bool        `json:"success"`
	RollbackTime    time.Time   `json:"rollbackTime,omitempty"`
}

// NewRollbackResult returns a successful result with empty, non-nil lists.
func NewRollbackResult() *RollbackResult {
	return &RollbackResult{
		RolledBackFixes: []Fix{},
		SkippedFixes:    []Fix{},
		FailedRollbacks: []FailedFix{},
		Success:         true,
	}
}
