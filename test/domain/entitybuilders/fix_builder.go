//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// FixBuilder helps create test fixes with a fluent interface.
type FixBuilder struct {
	*testkit.BaseBuilder
	id        string
	issueID   string
	fixType   entities.ChangeType
	path      string
	original  string
	modified  string
	batchID   string
	commitRef entities.CommitRef
}

// NewFixBuilder creates a new fix builder with sensible defaults.
func NewFixBuilder() *FixBuilder {
	return &FixBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		id:          "fix-1",
		issueID:     "0-title_missing",
		fixType:     entities.ChangeTypeMetaTag,
		path:        "index.html",
		original:    "<title></title>",
		modified:    "<title>Handmade Oak Furniture</title>",
	}
}

// WithID sets the fix id.
func (b *FixBuilder) WithID(id string) *FixBuilder {
	b.id = id
	return b
}

// WithIssueID sets the issue id the fix addresses.
func (b *FixBuilder) WithIssueID(issueID string) *FixBuilder {
	b.issueID = issueID
	return b
}

// WithType sets the change type.
func (b *FixBuilder) WithType(fixType entities.ChangeType) *FixBuilder {
	b.fixType = fixType
	return b
}

// WithPath sets the file path.
func (b *FixBuilder) WithPath(path string) *FixBuilder {
	b.path = path
	return b
}

// WithChanges sets the original and modified content.
func (b *FixBuilder) WithChanges(original, modified string) *FixBuilder {
	b.original = original
	b.modified = modified
	return b
}

// WithCommit marks the fix as applied in the given batch.
func (b *FixBuilder) WithCommit(batchID string, ref entities.CommitRef) *FixBuilder {
	b.batchID = batchID
	b.commitRef = ref
	return b
}

// Build creates the fix (satisfies testkit.Builder interface).
func (b *FixBuilder) Build() interface{} {
	return b.BuildFix()
}

// BuildFix creates the fix with a concrete return type.
func (b *FixBuilder) BuildFix() entities.Fix {
	return entities.Fix{
		ID:        b.id,
		IssueID:   b.issueID,
		Type:      b.fixType,
		Path:      b.path,
		Changes:   entities.FixChanges{Original: b.original, Modified: b.modified},
		BatchID:   b.batchID,
		CommitRef: b.commitRef,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *FixBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.id = "fix-1"
	b.issueID = "0-title_missing"
	b.fixType = entities.ChangeTypeMetaTag
	b.path = "index.html"
	b.original = "<title></title>"
	b.modified = "<title>Handmade Oak Furniture</title>"
	b.batchID = ""
	b.commitRef = ""
	return b
}

// Clone creates a deep copy of the FixBuilder.
func (b *FixBuilder) Clone() testkit.Builder {
	return &FixBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		id:          b.id,
		issueID:     b.issueID,
		fixType:     b.fixType,
		path:        b.path,
		original:    b.original,
		modified:    b.modified,
		batchID:     b.batchID,
		commitRef:   b.commitRef,
	}
}
