package repositories

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// VerifierRepository checks whether applied fixes had the intended effect.
type VerifierRepository interface {
	Name() string
	VerifySite(ctx context.Context, request entities.VerificationRequest) (*entities.VerificationResult, error)
	VerifyFix(ctx context.Context, site entities.Site, fix entities.Fix) (*entities.VerificationResult, error)
}
