package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent identifies the scraper on plain HTTP fetches.
const DefaultUserAgent = "noticias/1.0 (news listing scraper)"

// StaticLauncher creates browsers that fetch pages over plain HTTP without
// running scripts. It suits sites that render on the server.
type StaticLauncher struct {
	UserAgent string
	Timeout   time.Duration // per request, default 10 seconds
}

// Launch creates a Static browser.
func (l StaticLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userAgent := l.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(timeout)

	s := &Static{collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		s.markup = string(r.Body)
	})

	return s, nil
}

// Static is a Browser that performs one HTTP GET per navigation. The
// rendered markup is the response body.
type Static struct {
	collector *colly.Collector

	mu     sync.Mutex
	markup string
	loaded bool
	closed bool
}

// Navigate fetches url.
func (s *Static) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.markup = ""
	s.loaded = false
	if err := s.collector.Visit(url); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	s.loaded = true

	return nil
}

// WaitFor reports whether selector matches the fetched markup. Nothing
// changes after the response arrives, so it never blocks.
func (s *Static) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.loaded {
		return fmt.Errorf("%w: nothing loaded", ErrNotReady)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.markup))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: no element matches %s", ErrNotReady, selector)
	}

	return nil
}

// Markup returns the body of the last response.
func (s *Static) Markup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if !s.loaded {
		return "", fmt.Errorf("%w: nothing loaded", ErrNotReady)
	}
	return s.markup, nil
}

// Close marks the browser closed.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
