package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrFetch wraps every failure to produce a document.
	ErrFetch = errors.New("fetch failed")

	// ErrInvalidURL is returned for URLs that are not absolute.
	ErrInvalidURL = errors.New("invalid URL")
)

const (
	// DefaultNavigateTimeout bounds a single navigation.
	DefaultNavigateTimeout = 30 * time.Second

	// DefaultWaitTimeout bounds the wait for the ready marker.
	DefaultWaitTimeout = 10 * time.Second

	// DefaultSettleDelay lets client-side rendering finish after the wait
	// condition is met.
	DefaultSettleDelay = 1 * time.Second
)

// Fetcher loads pages in a Browser and returns them as documents.
type Fetcher struct {
	browser Browser

	NavigateTimeout time.Duration
	WaitTimeout     time.Duration
	SettleDelay     time.Duration

	// Sleep implements the settle delay. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher with the default wait and settle times.
func NewFetcher(b Browser) *Fetcher {
	return &Fetcher{
		browser:         b,
		NavigateTimeout: DefaultNavigateTimeout,
		WaitTimeout:     DefaultWaitTimeout,
		SettleDelay:     DefaultSettleDelay,
		Sleep:           SleepContext,
	}
}

// Fetch navigates to rawURL and waits for an element with class readyClass,
// or for the body when readyClass is empty. After the settle delay the
// rendered markup is captured and parsed. Every failure wraps ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, readyClass string) (*goquery.Document, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if err := f.navigate(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("%w: failed to navigate to %s: %w", ErrFetch, rawURL, err)
	}

	selector := "body"
	if readyClass != "" {
		selector = "." + readyClass
	}
	if err := f.browser.WaitFor(ctx, selector, f.WaitTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if f.Sleep != nil {
		if err := f.Sleep(ctx, f.SettleDelay); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
	}

	markup, err := f.browser.Markup(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to capture markup: %w", ErrFetch, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %w", ErrFetch, err)
	}

	return doc, nil
}

// navigate loads rawURL, giving up after NavigateTimeout so a page that
// never finishes loading cannot stall the caller.
func (f *Fetcher) navigate(ctx context.Context, rawURL string) error {
	if f.NavigateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.NavigateTimeout)
		defer cancel()
	}
	return f.browser.Navigate(ctx, rawURL)
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %q must use http or https scheme", ErrInvalidURL, rawURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}
	return nil
}
