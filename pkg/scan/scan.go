// Package scan implements the availability scan cycle: iterate configured
// dates and party sizes against the reservation page, extract qualifying
// time slots, and hand the first match to the booking machine.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/pkg/booking"
	"github.com/jmylchreest/tablewatch/pkg/locator"
	"github.com/jmylchreest/tablewatch/pkg/page"
	"github.com/jmylchreest/tablewatch/pkg/slot"
)

// Outcome is the terminal result category of one scan cycle.
type Outcome string

const (
	// OutcomeNoneFound means every date/size combination was exhausted
	// without a qualifying slot.
	OutcomeNoneFound Outcome = "none_found"
	// OutcomeFound means a qualifying slot was found but the booking
	// attempt did not confirm.
	OutcomeFound Outcome = "found"
	// OutcomeBooked means a qualifying slot was found and confirmed.
	OutcomeBooked Outcome = "booked"
)

// Config is the immutable per-cycle configuration.
type Config struct {
	URL        string
	Dates      []string
	Window     slot.Window
	PartySizes []int
	Contact    booking.Contact
	Commit     bool
}

// Failure is one per-combination diagnostic record.
type Failure struct {
	Date      string
	PartySize int
	Stage     string
	Err       error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s size=%d %s: %v", f.Date, f.PartySize, f.Stage, f.Err)
}

// Sink receives per-failure diagnostics for operator troubleshooting.
// Optional; not required for correctness.
type Sink interface {
	Record(f Failure)
}

// Result is the aggregate outcome of one full cycle. Exactly one Result is
// produced per cycle; it is not persisted across cycles.
type Result struct {
	Outcome   Outcome
	Date      string
	PartySize int
	Slot      slot.Candidate
	Attempt   *booking.Attempt
	Failures  []Failure

	// Err is set only on a cycle-level error (the probing capability
	// itself unusable), never for per-combination failures.
	Err error
}

// Booker runs a booking attempt. Satisfied by *booking.Machine.
type Booker interface {
	Run(ctx context.Context, req booking.Request) *booking.Attempt
}

// Controller drives one scan cycle over a single shared browsing session.
// The iteration is strictly sequential: concurrent manipulation of the
// same page would corrupt its state.
type Controller struct {
	Session  page.Session
	Resolver *locator.Resolver
	Booker   Booker
	Specs    Specs
	Sink     Sink

	// Settle pauses after party-size and date changes so the page can
	// re-render its slot grid.
	Settle time.Duration
}

// New creates a controller with the default locator specs.
func New(session page.Session, resolver *locator.Resolver, booker Booker) *Controller {
	return &Controller{
		Session:  session,
		Resolver: resolver,
		Booker:   booker,
		Specs:    DefaultSpecs(),
		Settle:   2 * time.Second,
	}
}

// Run executes one cycle and always returns exactly one terminal Result.
// A failure on one (date, size) combination never aborts the remaining
// combinations; only capability-level errors abort the cycle.
func (c *Controller) Run(ctx context.Context, cfg Config) *Result {
	res := &Result{Outcome: OutcomeNoneFound}

	logger.Info("scan cycle starting",
		"url", cfg.URL, "dates", len(cfg.Dates), "sizes", cfg.PartySizes,
		"window", cfg.Window.String(), "commit", cfg.Commit)

	if err := c.Session.Navigate(ctx, cfg.URL); err != nil {
		res.Err = fmt.Errorf("navigate %s: %w", cfg.URL, err)
		return res
	}

	for _, date := range cfg.Dates {
		for _, size := range cfg.PartySizes {
			done, err := c.checkCombination(ctx, cfg, date, size, res)
			if err != nil {
				// Capability-level failure: abort the rest of the cycle.
				res.Err = err
				return res
			}
			if done {
				return res
			}
		}
	}

	logger.Info("scan cycle complete", "outcome", res.Outcome,
		"failures", len(res.Failures))
	return res
}

// checkCombination evaluates one (date, size) pair. done is true when the
// whole scan should terminate (a qualifying slot was handed to booking).
// A non-nil error means the cycle itself must abort.
func (c *Controller) checkCombination(ctx context.Context, cfg Config, date string, size int, res *Result) (bool, error) {
	logger.Debug("checking combination", "date", date, "size", size)

	if err := c.setupPartySize(ctx, size); err != nil {
		return false, c.recordFailure(ctx, res, date, size, "party-size setup", err)
	}
	if err := c.setupDate(ctx, date); err != nil {
		return false, c.recordFailure(ctx, res, date, size, "date setup", err)
	}
	c.settle(ctx)

	cands, els, err := c.collectSlots(ctx)
	if err != nil {
		return false, c.recordFailure(ctx, res, date, size, "slot resolution", err)
	}

	for _, cand := range cands {
		if cand.Time == slot.NoClock {
			logger.Debug("slot text not parsable, excluded", "text", cand.RawText,
				"date", date, "size", size)
		}
	}

	qualifying := slot.FilterByWindow(slot.Dedupe(cands), cfg.Window)
	if len(qualifying) == 0 {
		logger.Debug("no qualifying slots", "date", date, "size", size,
			"raw", len(cands))
		return false, nil
	}

	chosen, ok := slot.Earliest(qualifying)
	if !ok {
		return false, nil
	}

	logger.Info("qualifying slot found",
		"date", date, "size", size, "time", chosen.Time.String(),
		"candidates", len(qualifying))

	req := booking.Request{
		Date:      date,
		PartySize: size,
		Slot:      chosen,
		Element:   matchElement(els, chosen),
		Contact:   cfg.Contact,
		Commit:    cfg.Commit,
	}

	// One attempt per cycle: the scan terminates here whether or not the
	// booking confirms.
	attempt := c.Booker.Run(ctx, req)

	res.Date = date
	res.PartySize = size
	res.Slot = chosen
	res.Attempt = attempt
	if attempt != nil && attempt.Status == booking.StatusConfirmed {
		res.Outcome = OutcomeBooked
	} else {
		res.Outcome = OutcomeFound
	}
	return true, nil
}

// recordFailure files a per-combination diagnostic, or promotes the error
// to a cycle abort when the session itself is unusable.
func (c *Controller) recordFailure(ctx context.Context, res *Result, date string, size int, stage string, err error) error {
	if errors.Is(err, page.ErrSessionClosed) || ctx.Err() != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	f := Failure{Date: date, PartySize: size, Stage: stage, Err: err}
	res.Failures = append(res.Failures, f)
	if c.Sink != nil {
		c.Sink.Record(f)
	}
	logger.Warn("combination failed, continuing",
		"date", date, "size", size, "stage", stage, "error", err)
	return nil
}

// setupPartySize opens the guest-count control and picks the option.
func (c *Controller) setupPartySize(ctx context.Context, size int) error {
	opener, err := c.Resolver.Resolve(ctx, c.Specs.GuestControl, page.StateClickable)
	if err != nil {
		return fmt.Errorf("guest control: %w", err)
	}
	if err := c.Session.Click(ctx, opener); err != nil {
		return fmt.Errorf("guest control click: %w", err)
	}
	c.settle(ctx)

	option, err := c.Resolver.Resolve(ctx, c.Specs.GuestOption(size), page.StateClickable)
	if err != nil {
		return fmt.Errorf("guest option %d: %w", size, err)
	}
	if err := c.Session.Click(ctx, option); err != nil {
		return fmt.Errorf("guest option %d click: %w", size, err)
	}
	return nil
}

// setupDate sets the target date on the date control, falling back to
// script-level value injection when standard interaction fails.
func (c *Controller) setupDate(ctx context.Context, date string) error {
	el, err := c.Resolver.Resolve(ctx, c.Specs.DateInput, page.StatePresent)
	if err == nil {
		if err := c.Session.SetValue(ctx, el, date); err == nil {
			return nil
		}
		logger.Debug("date input rejected value, trying injection", "date", date)
	}

	var injected bool
	script := dateInjectScript(date)
	if evalErr := c.Session.Evaluate(ctx, script, &injected); evalErr != nil {
		if err != nil {
			return fmt.Errorf("date control: %w", err)
		}
		return fmt.Errorf("date injection: %w", evalErr)
	}
	if !injected {
		return fmt.Errorf("date control: no date input accepted %q", date)
	}
	return nil
}

// collectSlots resolves the slot group and extracts candidates, falling
// back to a raw HTML snapshot when live nodes matched nothing.
func (c *Controller) collectSlots(ctx context.Context) ([]slot.Candidate, []*page.Element, error) {
	els, err := c.Resolver.ResolveAll(ctx, c.Specs.SlotGroup)
	if err != nil {
		return nil, nil, err
	}

	cands := slot.Extract(els)
	if len(cands) > 0 {
		return cands, els, nil
	}

	// The site sometimes renders slot text outside the nodes the queries
	// reach; a snapshot parse recovers those.
	html, err := c.Session.HTML(ctx)
	if err != nil {
		return nil, nil, err
	}
	snap, err := slot.ExtractHTML(html, c.Specs.SnapshotSelectors)
	if err != nil {
		logger.Debug("snapshot extraction failed", "error", err)
		return cands, els, nil
	}
	if len(snap) > 0 {
		logger.Debug("slots recovered from snapshot", "count", len(snap))
	}
	return snap, nil, nil
}

func (c *Controller) settle(ctx context.Context) {
	if c.Settle <= 0 {
		return
	}
	t := time.NewTimer(c.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// matchElement finds the resolved element whose text produced cand.
func matchElement(els []*page.Element, cand slot.Candidate) *page.Element {
	for _, el := range els {
		if el != nil && strings.TrimSpace(el.Text) == cand.RawText {
			return el
		}
	}
	return nil
}
