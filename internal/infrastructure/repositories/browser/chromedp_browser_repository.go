package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// ChromedpBrowserRepository renders pages in headless Chrome so script-built markup is seen.
type ChromedpBrowserRepository struct {
	userAgent string
}

var _ repositories.BrowserRepository = (*ChromedpBrowserRepository)(nil)

// NewChromedpBrowserRepository creates a new ChromedpBrowserRepository.
func NewChromedpBrowserRepository(settings entities.CrawlerSettings) repositories.BrowserRepository {
	return &ChromedpBrowserRepository{userAgent: settings.UserAgent}
}

func (it *ChromedpBrowserRepository) Name() string { return entities.BrowserChromedp }

// Open starts one Chrome process; every navigation gets its own tab.
func (it *ChromedpBrowserRepository) Open(ctx context.Context) (repositories.BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if it.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(it.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	// starts the browser so launch failures surface here rather than on the first page
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("failed to start Chrome: %w", err)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return nil, ctx.Err()
	}

	return &chromedpSession{
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

type chromedpSession struct {
	browserCtx context.Context
	cancel     func()
	closeOnce  sync.Once
}

func (it *chromedpSession) Navigate(
	ctx context.Context,
	url string,
	timeout time.Duration,
) (*entities.RenderedPage, error) {
	tabCtx, cancelTab := chromedp.NewContext(it.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, timeout)
		defer cancelTimeout()
	}

	var (
		mu         sync.Mutex
		statusCode int
		finalURL   string
	)
	chromedp.ListenTarget(tabCtx, func(event any) {
		response, ok := event.(*network.EventResponseReceived)
		if !ok || response.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if statusCode == 0 {
			statusCode = int(response.Response.Status)
		}
	})

	var html string
	started := time.Now()
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	loadTime := time.Since(started)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", entities.ErrNavigation, url, err)
	}

	mu.Lock()
	defer mu.Unlock()
	return &entities.RenderedPage{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: statusCode,
		HTML:       html,
		LoadTime:   loadTime,
	}, nil
}

func (it *chromedpSession) Close() error {
	it.closeOnce.Do(it.cancel)
	return nil
}
