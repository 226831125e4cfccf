// Package browser owns the shared headless browser used by adapters that
// scrape JavaScript-rendered sites. The underlying Chrome process is
// expensive, so one allocator is created lazily on first use and reused for
// the process lifetime.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/singleflight"
)

const navigationTimeout = 30 * time.Second

// ErrDisabled is returned when a headless fetch is requested but the pool
// was configured off. Adapters treat it as a platform-local failure.
var ErrDisabled = errors.New("headless browser is disabled")

type Pool struct {
	enabled   bool
	userAgent string

	group singleflight.Group

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewPool(enabled bool, userAgent string) *Pool {
	return &Pool{
		enabled:   enabled,
		userAgent: userAgent,
	}
}

// HTML navigates to rawURL in a fresh tab, waits for waitSelector to become
// visible, and returns the rendered document. Exceeding the navigation
// timeout is a recoverable, adapter-local failure.
func (p *Pool) HTML(ctx context.Context, rawURL, waitSelector string) (string, error) {
	if !p.enabled {
		return "", ErrDisabled
	}

	allocCtx, err := p.allocator()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	timeoutCtx, cancelTimeout := context.WithTimeout(tabCtx, navigationTimeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimeout()
		case <-timeoutCtx.Done():
		}
	}()

	actions := []chromedp.Action{
		chromedp.Navigate(rawURL),
	}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		return "", fmt.Errorf("headless navigation failed: %w", err)
	}

	return html, nil
}

// allocator lazily creates the shared browser allocator. Single-flight so
// concurrent first-callers do not race to spawn duplicate Chrome processes.
func (p *Pool) allocator() (context.Context, error) {
	p.mu.Lock()
	existing := p.allocCtx
	p.mu.Unlock()
	if existing != nil {
		return existing, nil
	}

	_, err, _ := p.group.Do("allocator", func() (interface{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.allocCtx != nil {
			return nil, nil
		}

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(p.userAgent),
			chromedp.NoSandbox,
		)
		allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

		p.allocCtx = allocCtx
		p.allocCancel = cancel

		slog.Info("Headless browser allocator created")
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocCtx, nil
}

// Shutdown terminates the shared browser process. Safe to call when the
// allocator was never created.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCtx = nil
		p.allocCancel = nil
		slog.Info("Headless browser allocator stopped")
	}
}
