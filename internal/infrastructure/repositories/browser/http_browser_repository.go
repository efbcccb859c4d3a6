package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

const maxPageBytes = 8 * 1024 * 1024

// HTTPBrowserRepository fetches raw HTML without running scripts.
type HTTPBrowserRepository struct {
	client    *http.Client
	userAgent string
}

var _ repositories.BrowserRepository = (*HTTPBrowserRepository)(nil)

// NewHTTPBrowserRepository creates a new HTTPBrowserRepository.
func NewHTTPBrowserRepository(settings entities.CrawlerSettings) repositories.BrowserRepository {
	return &HTTPBrowserRepository{
		client:    &http.Client{},
		userAgent: settings.UserAgent,
	}
}

func (it *HTTPBrowserRepository) Name() string { return entities.BrowserHTTP }

func (it *HTTPBrowserRepository) Open(_ context.Context) (repositories.BrowserSession, error) {
	return &httpSession{browser: it}, nil
}

type httpSession struct {
	browser *HTTPBrowserRepository
}

func (it *httpSession) Navigate(
	ctx context.Context,
	url string,
	timeout time.Duration,
) (*entities.RenderedPage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entities.ErrNavigation, url, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if it.browser.userAgent != "" {
		req.Header.Set("User-Agent", it.browser.userAgent)
	}

	started := time.Now()
	resp, err := it.browser.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entities.ErrNavigation, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read body: %w", entities.ErrNavigation, url, err)
	}

	return &entities.RenderedPage{
		URL:        url,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       string(body),
		LoadTime:   time.Since(started),
	}, nil
}

func (it *httpSession) Close() error {
	it.browser.client.CloseIdleConnections()
	return nil
}
