// Package browser drives page loads and captures the rendered markup as a
// queryable document.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed is returned by a Browser used after Close.
	ErrClosed = errors.New("browser closed")

	// ErrNotReady is returned when a wait condition is not met in time.
	ErrNotReady = errors.New("page not ready")
)

// Browser is the narrow automation contract the fetcher depends on.
type Browser interface {
	// Navigate loads url in the browser.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until an element matching the CSS selector is present
	// or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Markup returns the currently rendered document markup.
	Markup(ctx context.Context) (string, error)

	// Close releases the browser. Calling it more than once is safe.
	Close() error
}

// Launcher starts a Browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Browser, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) {
	return f(ctx)
}

// SleepContext pauses for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
