// Package page defines the page-probing capability the engine drives.
// Implement the Session interface to plug in a browser automation driver;
// the engine never assumes a specific automation product.
package page

import (
	"context"
	"errors"
	"time"
)

// By identifies how a query pattern is interpreted.
type By string

const (
	// ByCSS matches elements with a CSS selector.
	ByCSS By = "css"
	// ByXPath matches elements with an XPath expression.
	ByXPath By = "xpath"
	// ByText matches clickable elements whose visible text contains the pattern.
	ByText By = "text"
)

// Query describes a single way of finding elements on the live page.
type Query struct {
	By      By
	Pattern string
}

// WaitState is the condition a query waits for before returning.
type WaitState string

const (
	// StatePresent waits for at least one matching element to exist.
	StatePresent WaitState = "present"
	// StateClickable waits for a matching element to be visible and enabled.
	StateClickable WaitState = "clickable"
)

// Element is a handle to a resolved page element. Text, Disabled, and
// Selected are captured at query time; Ref is driver-private and opaque to
// callers.
type Element struct {
	Ref      any
	Text     string
	Disabled bool

	// Selected reports a checked checkbox or chosen option.
	Selected bool
}

// Error sentinels for distinguishing failure reasons.
// Check with errors.Is(err, page.ErrNotFound).
var (
	// ErrNotFound indicates no element matched within the wait timeout.
	ErrNotFound = errors.New("element not found")
	// ErrNotInteractable indicates the element exists but cannot be acted on.
	ErrNotInteractable = errors.New("element not interactable")
	// ErrSessionClosed indicates the browsing session is no longer usable.
	ErrSessionClosed = errors.New("session closed")
)

// Session abstracts a single live browsing session. All methods are
// synchronous; blocking calls are bounded by the provided timeout or the
// context deadline. A Session is owned by exactly one scan cycle at a time.
type Session interface {
	// Navigate loads the given URL and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the current page URL.
	CurrentURL(ctx context.Context) (string, error)

	// Find waits up to timeout for a single element matching q in the
	// requested state. Returns ErrNotFound wrapped on timeout.
	Find(ctx context.Context, q Query, state WaitState, timeout time.Duration) (*Element, error)

	// FindAll waits up to timeout for elements matching q. A nil error with
	// an empty slice means the query ran but nothing matched.
	FindAll(ctx context.Context, q Query, timeout time.Duration) ([]*Element, error)

	// Click clicks a previously resolved element.
	Click(ctx context.Context, el *Element) error

	// SetValue replaces the value of an input element, falling back to
	// script-level injection when direct typing is rejected.
	SetValue(ctx context.Context, el *Element, value string) error

	// Evaluate runs a script in the page and unmarshals the result into out.
	// Pass a nil out to discard the result.
	Evaluate(ctx context.Context, script string, out any) error

	// HTML returns a snapshot of the current document markup.
	HTML(ctx context.Context) (string, error)

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// Screenshotter is an optional diagnostics capability a Session may provide.
// Failures are advisory; callers must never depend on screenshots.
type Screenshotter interface {
	Screenshot(ctx context.Context, label string) error
}
