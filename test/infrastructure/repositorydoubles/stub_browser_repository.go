//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// StubBrowserRepository serves canned HTML per URL. URLs listed in Failures fail
// navigation; any other unknown URL yields a 404 page.
type StubBrowserRepository struct {
	mu sync.Mutex

	Pages    map[string]string
	Failures map[string]error
	OpenErr  error

	Navigated    []string
	Opened       int
	Closed       int
	MaxInFlight  int
	inFlight     int
	NavigateHook func(url string)
}

var _ repositories.BrowserRepository = (*StubBrowserRepository)(nil)

func (s *StubBrowserRepository) Name() string { return "stub" }

func (s *StubBrowserRepository) Open(_ context.Context) (repositories.BrowserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.Opened++
	return &stubBrowserSession{browser: s}, nil
}

// NavigatedURLs returns a copy of the navigation log.
func (s *StubBrowserRepository) NavigatedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Navigated...)
}

type stubBrowserSession struct {
	browser *StubBrowserRepository
}

func (s *stubBrowserSession) Navigate(
	ctx context.Context,
	url string,
	_ time.Duration,
) (*entities.RenderedPage, error) {
	b := s.browser
	b.mu.Lock()
	b.Navigated = append(b.Navigated, url)
	b.inFlight++
	if b.inFlight > b.MaxInFlight {
		b.MaxInFlight = b.inFlight
	}
	hook := b.NavigateHook
	failure, failed := b.Failures[url]
	html, found := b.Pages[url]
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed {
		return nil, fmt.Errorf("%w: %s: %w", entities.ErrNavigation, url, failure)
	}
	status := 200
	if !found {
		status = 404
		html = "<html><head><title>Not found</title></head><body></body></html>"
	}
	return &entities.RenderedPage{
		URL:        url,
		FinalURL:   url,
		StatusCode: status,
		HTML:       html,
		LoadTime:   10 * time.Millisecond,
	}, nil
}

func (s *stubBrowserSession) Close() error {
	s.browser.mu.Lock()
	defer s.browser.mu.Unlock()
	s.browser.Closed++
	return nil
}
