package locator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmylchreest/tablewatch/pkg/page"
)

// fakeSession answers queries from a per-pattern script and records the
// order in which patterns were tried.
type fakeSession struct {
	single map[string]*page.Element
	multi  map[string][]*page.Element
	errs   map[string]error
	tried  []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		single: map[string]*page.Element{},
		multi:  map[string][]*page.Element{},
		errs:   map[string]error{},
	}
}

func (f *fakeSession) Navigate(context.Context, string) error       { return nil }
func (f *fakeSession) CurrentURL(context.Context) (string, error)   { return "", nil }
func (f *fakeSession) Click(context.Context, *page.Element) error   { return nil }
func (f *fakeSession) SetValue(context.Context, *page.Element, string) error {
	return nil
}
func (f *fakeSession) Evaluate(context.Context, string, any) error { return nil }
func (f *fakeSession) HTML(context.Context) (string, error)        { return "", nil }
func (f *fakeSession) Close() error                                { return nil }

func (f *fakeSession) Find(_ context.Context, q page.Query, _ page.WaitState, _ time.Duration) (*page.Element, error) {
	f.tried = append(f.tried, q.Pattern)
	if err, ok := f.errs[q.Pattern]; ok {
		return nil, err
	}
	if el, ok := f.single[q.Pattern]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", page.ErrNotFound, q.Pattern)
}

func (f *fakeSession) FindAll(_ context.Context, q page.Query, _ time.Duration) ([]*page.Element, error) {
	f.tried = append(f.tried, q.Pattern)
	if err, ok := f.errs[q.Pattern]; ok {
		return nil, err
	}
	return f.multi[q.Pattern], nil
}

func spec(patterns ...string) Spec {
	strategies := make([]Strategy, 0, len(patterns))
	for _, p := range patterns {
		strategies = append(strategies, CSS(p, p))
	}
	return NewSpec("test", strategies...)
}

// --- Resolve Tests ---

func TestResolve_FirstStrategyWins(t *testing.T) {
	f := newFakeSession()
	f.single["a"] = &page.Element{Text: "hit"}
	// "b" would also succeed, but must never be consulted.
	f.single["b"] = &page.Element{Text: "never"}

	r := NewResolver(f, time.Second)
	el, err := r.Resolve(context.Background(), spec("a", "b"), page.StatePresent)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if el.Text != "hit" {
		t.Errorf("expected first strategy's element, got %q", el.Text)
	}
	if len(f.tried) != 1 || f.tried[0] != "a" {
		t.Errorf("expected short-circuit after first strategy, tried %v", f.tried)
	}
}

func TestResolve_FallsThroughToLaterStrategy(t *testing.T) {
	f := newFakeSession()
	f.single["c"] = &page.Element{Text: "late"}

	r := NewResolver(f, time.Second)
	el, err := r.Resolve(context.Background(), spec("a", "b", "c"), page.StatePresent)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if el.Text != "late" {
		t.Errorf("expected fallback element, got %q", el.Text)
	}
	if len(f.tried) != 3 {
		t.Errorf("expected 3 strategies tried, got %v", f.tried)
	}
}

func TestResolve_AllFail(t *testing.T) {
	f := newFakeSession()

	r := NewResolver(f, time.Second)
	_, err := r.Resolve(context.Background(), spec("a", "b"), page.StatePresent)

	var rf *ResolutionFailure
	if !errors.As(err, &rf) {
		t.Fatalf("expected ResolutionFailure, got %v", err)
	}
	if len(rf.Tried) != 2 {
		t.Errorf("expected 2 tried strategies recorded, got %v", rf.Tried)
	}
	if !errors.Is(err, page.ErrNotFound) {
		t.Error("expected failure to wrap the last strategy error")
	}
}

func TestResolve_EmptySpec(t *testing.T) {
	r := NewResolver(newFakeSession(), time.Second)
	_, err := r.Resolve(context.Background(), Spec{Name: "empty"}, page.StatePresent)
	if !errors.Is(err, ErrEmptySpec) {
		t.Errorf("expected ErrEmptySpec, got %v", err)
	}
}

func TestResolve_SessionClosedAborts(t *testing.T) {
	f := newFakeSession()
	f.errs["a"] = page.ErrSessionClosed
	f.single["b"] = &page.Element{Text: "unreachable"}

	r := NewResolver(f, time.Second)
	_, err := r.Resolve(context.Background(), spec("a", "b"), page.StatePresent)
	if !errors.Is(err, page.ErrSessionClosed) {
		t.Fatalf("expected session-closed to propagate, got %v", err)
	}
	if len(f.tried) != 1 {
		t.Errorf("expected no further strategies after session loss, tried %v", f.tried)
	}
}

// --- ResolveAll Tests ---

func TestResolveAll_FirstNonEmptyWins(t *testing.T) {
	f := newFakeSession()
	f.multi["b"] = []*page.Element{{Text: "12:00"}, {Text: "13:00"}}
	f.multi["c"] = []*page.Element{{Text: "never"}}

	r := NewResolver(f, time.Second)
	els, err := r.ResolveAll(context.Background(), spec("a", "b", "c"))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(els))
	}
	if len(f.tried) != 2 {
		t.Errorf("expected short-circuit after first non-empty, tried %v", f.tried)
	}
}

func TestResolveAll_AllEmptyIsNotFailure(t *testing.T) {
	f := newFakeSession()

	r := NewResolver(f, time.Second)
	els, err := r.ResolveAll(context.Background(), spec("a", "b"))
	if err != nil {
		t.Fatalf("expected clean empty result, got error %v", err)
	}
	if len(els) != 0 {
		t.Errorf("expected no elements, got %d", len(els))
	}
}

func TestResolveAll_AllErroring(t *testing.T) {
	f := newFakeSession()
	f.errs["a"] = errors.New("boom a")
	f.errs["b"] = errors.New("boom b")

	r := NewResolver(f, time.Second)
	_, err := r.ResolveAll(context.Background(), spec("a", "b"))

	var rf *ResolutionFailure
	if !errors.As(err, &rf) {
		t.Fatalf("expected ResolutionFailure when every strategy errors, got %v", err)
	}
}

// --- Spec Tests ---

func TestSpec_String(t *testing.T) {
	s := NewSpec("submit", CSS("button", "button[type=submit]"), Text("book", "Book"))
	if got := s.String(); got != "submit(button->book)" {
		t.Errorf("unexpected spec string %q", got)
	}
}
