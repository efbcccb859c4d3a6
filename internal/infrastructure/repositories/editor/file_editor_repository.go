package editor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const (
	dirFileMode     = 0o755
	defaultFileMode = 0o644
)

// FileEditorRepository applies fixes to files on disk, confined to the site directory.
type FileEditorRepository struct{}

var _ repositories.FileEditorRepository = (*FileEditorRepository)(nil)

// NewFileEditorRepository creates a new FileEditorRepository.
func NewFileEditorRepository() *FileEditorRepository {
	return &FileEditorRepository{}
}

// Apply replaces the first occurrence of the fix's original text with its modified text.
// An empty original writes the modified text as the whole file, creating it if needed.
func (it *FileEditorRepository) Apply(ctx context.Context, dir string, fix entities.Fix) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := resolveTarget(dir, fix.Path)
	if err != nil {
		return err
	}

	mode := os.FileMode(defaultFileMode)
	current, err := os.ReadFile(target)
	switch {
	case err == nil:
		if info, statErr := os.Stat(target); statErr == nil {
			mode = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist) && fix.Changes.Original == "":
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s does not exist", entities.ErrOriginalNotFound, fix.Path)
	default:
		return fmt.Errorf("failed to read %q: %w", fix.Path, err)
	}

	next := fix.Changes.Modified
	if fix.Changes.Original != "" {
		content := string(current)
		if !strings.Contains(content, fix.Changes.Original) {
			return fmt.Errorf("%w: %s", entities.ErrOriginalNotFound, fix.Path)
		}
		next = strings.Replace(content, fix.Changes.Original, fix.Changes.Modified, 1)
	}

	if err = os.MkdirAll(filepath.Dir(target), dirFileMode); err != nil {
		return fmt.Errorf("failed to create parent of %q: %w", fix.Path, err)
	}
	if err = os.WriteFile(target, []byte(next), mode); err != nil {
		return fmt.Errorf("failed to write %q: %w", fix.Path, err)
	}
	logger.Debugf("Applied fix %s to %s", fix.ID, fix.Path)
	return nil
}

// resolveTarget joins a site-relative path to dir, refusing paths that escape it
// lexically or through a symlinked parent.
func resolveTarget(dir, rel string) (string, error) {
	cleaned, err := entities.CleanSitePath(rel)
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve site directory %q: %w", dir, err)
	}
	target := filepath.Join(root, filepath.FromSlash(cleaned))

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve site directory %q: %w", dir, err)
	}
	parent := filepath.Dir(target)
	for {
		realParent, evalErr := filepath.EvalSymlinks(parent)
		if evalErr == nil {
			if !within(realRoot, realParent) {
				return "", fmt.Errorf("%w: %q", entities.ErrPathOutsideSite, rel)
			}
			break
		}
		if !errors.Is(evalErr, fs.ErrNotExist) || parent == root {
			return "", fmt.Errorf("failed to resolve %q: %w", rel, evalErr)
		}
		parent = filepath.Dir(parent)
	}
	return target, nil
}

func within(root, candidate string) bool {
	relative, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return relative == "." || (relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)))
}
