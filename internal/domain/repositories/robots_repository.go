package repositories

import (
	"context"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// RobotsRepository fetches the robots policy of an origin. Implementations are best
// effort: an unreachable robots.txt yields a policy that allows everything.
type RobotsRepository interface {
	Fetch(ctx context.Context, origin string) entities.RobotsPolicy
}
