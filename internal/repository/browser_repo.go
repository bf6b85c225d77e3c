package repository

import (
	"context"
	"time"
)

// BrowserEngine is the automation backend behind the portal session driver.
// Every call to NewPage must return an isolated browser context so that
// concurrent scrapes never share cookies or navigation state.
type BrowserEngine interface {
	// NewPage opens a fresh, isolated page.
	NewPage(ctx context.Context) (BrowserPage, error)
	// Name identifies the engine in logs and metrics.
	Name() string
	// Close releases any long-lived browser process held by the engine.
	Close() error
}

// BrowserPage is a single tab. Selectors starting with "/" are XPath
// expressions, anything else is a CSS selector.
type BrowserPage interface {
	// Navigate loads url and returns once the load event fired.
	Navigate(ctx context.Context, url string) error
	// WaitNetworkIdle blocks until no request has been in flight for quiet.
	WaitNetworkIdle(ctx context.Context, quiet time.Duration) error
	// WaitVisible blocks until selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (zero based) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	// Count returns how many elements currently match selector, without waiting.
	Count(ctx context.Context, selector string) (int, error)
	// Evaluate runs a JavaScript expression in the page and decodes its result into out.
	Evaluate(ctx context.Context, expression string, out any) error
	// HTML returns the current serialized document.
	HTML(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}
