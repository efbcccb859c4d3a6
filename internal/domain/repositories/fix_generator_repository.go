package repositories

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// FixGeneratorRepository turns a prioritized issue list into fixes. Only fixable issues
// yield a fix; callers do not filter.
type FixGeneratorRepository interface {
	Name() string
	Generate(ctx context.Context, site entities.Site, issues []entities.SiteIssue) ([]entities.Fix, error)
}
