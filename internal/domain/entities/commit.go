package entities

import "time"

// CommitRef identifies a commit by its full hash.
type CommitRef string

// Short returns the abbreviated hash.
func (r CommitRef) Short() string {
	if len(r) > 7 {
		return string(r[:7])
	}
	return string(r)
}

// CommitInfo is one entry read from the repository log.
type CommitInfo struct {
	Hash    CommitRef
	Author  string
	Email   string
	Date    time.Time
	Subject string
	Body    string
	Parents int
}

// IsMerge reports whether the commit has more than one parent.
func (c CommitInfo) IsMerge() bool {
	return c.Parents > 1
}

// DiffEntry is one changed path between two refs.
type DiffEntry struct {
	Status string `json:"status"`
	File   string `json:"file"`
}

// StatusEntry is one line of working tree status.
type StatusEntry struct {
	Code string `json:"code"`
	File string `json:"file"`
}

// HistoryEntry is a commit with its human summary and structured metadata separated.
type HistoryEntry struct {
	Hash        CommitRef      `json:"hash"`
	Author      string         `json:"author"`
	Date        time.Time      `json:"date"`
	Subject     string         `json:"subject"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	IsMerge     bool           `json:"isMerge"`
}
