package repositories

import (
	"context"
	"time"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

// BrowserRepository starts navigation sessions used by one crawl.
type BrowserRepository interface {
	// Name returns the backend identifier (e.g. "chromedp", "http").
	Name() string

	// Open acquires a session. The caller owns it and must Close it on every path.
	Open(ctx context.Context) (BrowserSession, error)
}

// BrowserSession renders pages. Navigate may be called concurrently.
type BrowserSession interface {
	// Navigate loads url and returns its rendered HTML, failing after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*entities.RenderedPage, error)
	Close() error
}
