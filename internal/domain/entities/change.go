package entities

import (
	"fmt"
	"strings"
	"time"
)

// ChangeType is the closed set of change categories a batch may record.
type ChangeType string

const (
	ChangeTypeMetaTag           ChangeType = "meta_tag"
	ChangeTypeImageOptimization ChangeType = "image_optimization"
	ChangeTypeHeaderStructure   ChangeType = "header_structure"
	ChangeTypeSchemaMarkup      ChangeType = "schema_markup"
	ChangeTypeRobotsTxt         ChangeType = "robots_txt"
	ChangeTypePerformance       ChangeType = "performance"
	ChangeTypeSecurity          ChangeType = "security"
	ChangeTypeOther             ChangeType = "other"
)

// ChangeTypes lists every supported change type in declaration order.
func ChangeTypes() []ChangeType {
	return []ChangeType{
		ChangeTypeMetaTag,
		ChangeTypeImageOptimization,
		ChangeTypeHeaderStructure,
		ChangeTypeSchemaMarkup,
		ChangeTypeRobotsTxt,
		ChangeTypePerformance,
		ChangeTypeSecurity,
		ChangeTypeOther,
	}
}

// Valid reports whether the change type belongs to the closed set.
func (c ChangeType) Valid() bool {
	for _, known := range ChangeTypes() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseChangeType converts a raw string into a ChangeType, rejecting unknown values.
func ParseChangeType(raw string) (ChangeType, error) {
	ct := ChangeType(strings.TrimSpace(strings.ToLower(raw)))
	if !ct.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedChangeType, raw)
	}
	return ct, nil
}

// Change is one recorded file edit inside a batch. It is never mutated after being appended.
type Change struct {
	FilePath   string         `json:"filePath"`
	ChangeType ChangeType     `json:"changeType"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	CommitRef  CommitRef      `json:"-"`
}
