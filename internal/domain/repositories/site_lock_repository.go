package repositories

import "context"

// SiteLockRepository provides mutual exclusion per site id. Different sites never block
// each other.
type SiteLockRepository interface {
	// Lock blocks until the site lock is held or ctx is done. The returned function
	// releases it and is safe to call once.
	Lock(ctx context.Context, siteID string) (func(), error)
}
