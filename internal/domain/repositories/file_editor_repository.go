package repositories

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// FileEditorRepository applies a fix's text edit to a file below a site directory.
type FileEditorRepository interface {
	Apply(ctx context.Context, dir string, fix entities.Fix) error
}
