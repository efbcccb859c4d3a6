package repositories

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// VCSRepository wraps the version-control operations needed for batch tracking on one
// repository directory. Mutating calls are serialized per directory by implementations.
// Failures of the underlying tool surface as *entities.CommandFailedError or
// *entities.TimeoutError.
type VCSRepository interface {
	// Dir returns the repository directory this instance is scoped to.
	Dir() string

	Init(ctx context.Context) error
	Clone(ctx context.Context, url string) error
	IsRepository(ctx context.Context) bool

	// WriteFile writes data to path relative to the repository root, creating parents.
	WriteFile(ctx context.Context, path string, data []byte) error

	// Stage adds the given paths; an empty list stages every change in the working tree.
	Stage(ctx context.Context, paths []string) error
	// Unstage resets the index entries of paths to HEAD, keeping the working tree.
	Unstage(ctx context.Context, paths []string) error
	// RestorePaths resets paths to HEAD in the index and the working tree. Paths absent
	// from HEAD are removed.
	RestorePaths(ctx context.Context, paths []string) error

	// Commit records the staged changes. The metadata envelope is appended to message
	// as its final line. Empty commits are allowed.
	Commit(ctx context.Context, message string, metadata map[string]any) (entities.CommitRef, error)

	// HeadCommit returns the commit HEAD points at, or "" when the repository has none.
	HeadCommit(ctx context.Context) (entities.CommitRef, error)

	// CreateBranch creates name from the given start point (HEAD when empty) and checks it out.
	CreateBranch(ctx context.Context, name, from string) error
	Checkout(ctx context.Context, branch string) error
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) (bool, error)

	// MergeNoFastForward merges branch into the current branch with an explicit merge
	// commit. The message is used verbatim. A conflicting merge is aborted.
	MergeNoFastForward(ctx context.Context, branch, message string) (entities.CommitRef, error)

	// Tag creates an annotated tag on HEAD.
	Tag(ctx context.Context, name, message string) error

	// ResolveTag returns the commit a tag points at or entities.ErrTagNotFound.
	ResolveTag(ctx context.Context, name string) (entities.CommitRef, error)

	// RevertCommit reverts ref into the index and working tree without committing.
	// Merge commits are reverted against their first parent. On conflict the conflicted
	// state is left in place for inspection and an error is returned.
	RevertCommit(ctx context.Context, ref entities.CommitRef) error

	// ResetHard discards index and working tree changes, moving the branch to ref
	// (HEAD when empty).
	ResetHard(ctx context.Context, ref string) error

	Log(ctx context.Context, limit int) ([]entities.CommitInfo, error)
	Diff(ctx context.Context, fromRef, toRef string) ([]entities.DiffEntry, error)
	Status(ctx context.Context) ([]entities.StatusEntry, error)
	HasConflicts(ctx context.Context) (bool, error)
	ConflictedFiles(ctx context.Context) ([]string, error)

	// ReadFile returns the content of path at ref without touching the working tree.
	ReadFile(ctx context.Context, ref, path string) ([]byte, error)
}

// VCSFactory opens a VCSRepository scoped to a directory.
type VCSFactory interface {
	Open(dir string) VCSRepository
}
