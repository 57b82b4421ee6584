// Package locator resolves page elements through ordered fallback chains.
//
// The target site's markup and attribute naming are unstable, so a single
// fixed selector is brittle. A Spec lists strategies from most specific
// (test-id attributes) to most generic (free text match); resolution tries
// them in order and stops at the first success.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/pkg/page"
)

// ErrEmptySpec is returned when a Spec has no strategies.
var ErrEmptySpec = errors.New("locator spec has no strategies")

// Strategy is a single named way of finding an element.
type Strategy struct {
	Name  string
	Query page.Query
}

// CSS builds a CSS selector strategy.
func CSS(name, selector string) Strategy {
	return Strategy{Name: name, Query: page.Query{By: page.ByCSS, Pattern: selector}}
}

// XPath builds an XPath strategy.
func XPath(name, expr string) Strategy {
	return Strategy{Name: name, Query: page.Query{By: page.ByXPath, Pattern: expr}}
}

// Text builds a visible-text-contains strategy.
func Text(name, substr string) Strategy {
	return Strategy{Name: name, Query: page.Query{By: page.ByText, Pattern: substr}}
}

// Spec is a non-empty ordered list of strategies tried until one succeeds.
type Spec struct {
	Name       string
	Strategies []Strategy
}

// NewSpec creates a Spec from the given strategies.
func NewSpec(name string, strategies ...Strategy) Spec {
	return Spec{Name: name, Strategies: strategies}
}

// String returns the spec name and its strategy chain.
func (s Spec) String() string {
	names := make([]string, 0, len(s.Strategies))
	for _, st := range s.Strategies {
		names = append(names, st.Name)
	}
	return s.Name + "(" + strings.Join(names, "->") + ")"
}

// ResolutionFailure reports that every strategy in a spec failed.
// The caller decides whether that skips a combination or fails an attempt.
type ResolutionFailure struct {
	Spec    string
	Tried   []string
	LastErr error
}

func (e *ResolutionFailure) Error() string {
	return fmt.Sprintf("locator %s: all strategies failed (tried: %s): %v",
		e.Spec, strings.Join(e.Tried, ", "), e.LastErr)
}

func (e *ResolutionFailure) Unwrap() error { return e.LastErr }

// Resolver tries each strategy of a spec against a live session.
// Resolution is a read: it never mutates the page and is safe to repeat.
type Resolver struct {
	Session page.Session

	// Timeout bounds the wait for each individual strategy.
	Timeout time.Duration
}

// DefaultStrategyTimeout bounds per-strategy waits when none is configured.
const DefaultStrategyTimeout = 5 * time.Second

// NewResolver creates a resolver over the given session.
func NewResolver(s page.Session, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultStrategyTimeout
	}
	return &Resolver{Session: s, Timeout: timeout}
}

// Resolve returns the first element any strategy finds in the requested
// state. Later strategies are not attempted once one succeeds.
func (r *Resolver) Resolve(ctx context.Context, spec Spec, state page.WaitState) (*page.Element, error) {
	if len(spec.Strategies) == 0 {
		return nil, ErrEmptySpec
	}

	var lastErr error
	var tried []string

	for _, st := range spec.Strategies {
		tried = append(tried, st.Name)

		el, err := r.Session.Find(ctx, st.Query, state, r.Timeout)
		if err == nil {
			logger.Debug("locator resolved", "spec", spec.Name, "strategy", st.Name)
			return el, nil
		}
		if errors.Is(err, page.ErrSessionClosed) || ctx.Err() != nil {
			return nil, err
		}

		logger.Debug("locator strategy failed",
			"spec", spec.Name, "strategy", st.Name, "error", err)
		lastErr = err
	}

	return nil, &ResolutionFailure{Spec: spec.Name, Tried: tried, LastErr: lastErr}
}

// ResolveAll returns the matches of the first strategy that yields any.
// A clean run where no strategy matched anything is not a failure: the
// result is an empty slice and a nil error. Only when every strategy
// errors does ResolveAll report a ResolutionFailure.
func (r *Resolver) ResolveAll(ctx context.Context, spec Spec) ([]*page.Element, error) {
	if len(spec.Strategies) == 0 {
		return nil, ErrEmptySpec
	}

	var lastErr error
	var tried []string
	ranClean := false

	for _, st := range spec.Strategies {
		tried = append(tried, st.Name)

		els, err := r.Session.FindAll(ctx, st.Query, r.Timeout)
		if err != nil {
			if errors.Is(err, page.ErrSessionClosed) || ctx.Err() != nil {
				return nil, err
			}
			logger.Debug("locator strategy failed",
				"spec", spec.Name, "strategy", st.Name, "error", err)
			lastErr = err
			continue
		}

		ranClean = true
		if len(els) > 0 {
			logger.Debug("locator resolved group",
				"spec", spec.Name, "strategy", st.Name, "count", len(els))
			return els, nil
		}
	}

	if !ranClean {
		return nil, &ResolutionFailure{Spec: spec.Name, Tried: tried, LastErr: lastErr}
	}
	return nil, nil
}
