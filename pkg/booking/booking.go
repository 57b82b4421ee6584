// Package booking drives a single reservation attempt through the site's
// multi-step form flow. An attempt moves strictly forward through its
// states and terminates exactly once; it is never retried within a cycle.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/pkg/locator"
	"github.com/jmylchreest/tablewatch/pkg/page"
	"github.com/jmylchreest/tablewatch/pkg/slot"
)

// State is a step in the booking flow. Transitions only move forward.
type State string

const (
	StateSlotSelect  State = "slot_select"
	StateDetailsFill State = "details_fill"
	StateTermsAccept State = "terms_accept"
	StateSubmit      State = "submit"
	StateConfirmed   State = "confirmed"
)

// Status is the terminal outcome of an attempt.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// ReasonDryRun marks an attempt that stopped at the submit readiness
// checkpoint because committing was not enabled.
const ReasonDryRun = "dry run"

// Contact holds the details typed into the reservation form.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Request describes the slot an attempt should book.
type Request struct {
	Date      string
	PartySize int
	Slot      slot.Candidate

	// Element is the already-resolved slot element, clicked directly when
	// set. Re-resolution by slot text is the fallback.
	Element *page.Element

	Contact Contact

	// Commit enables the irreversible submit click. When false the attempt
	// verifies the submit control is actionable and stops there.
	Commit bool
}

// StepResult records the outcome of one state, in order of execution.
type StepResult struct {
	State    State
	Err      error
	Warnings []string
}

// Attempt is the record of one booking attempt.
type Attempt struct {
	Date      string
	PartySize int
	Slot      slot.Candidate
	State     State
	Status    Status
	Reason    string
	Steps     []StepResult
}

// Warnings flattens all per-step warnings, mostly partial-fill notes.
func (a *Attempt) Warnings() []string {
	var out []string
	for _, s := range a.Steps {
		out = append(out, s.Warnings...)
	}
	return out
}

// Hook is invoked on each state entry, before the state's action runs.
// Used for screenshot-style diagnostics; never required for correctness.
type Hook func(ctx context.Context, state State, a *Attempt)

// Machine executes booking attempts against a live session.
type Machine struct {
	Resolver *locator.Resolver
	Session  page.Session
	Specs    Specs
	Hook     Hook

	// ConfirmTimeout bounds the wait for the post-submit confirmation
	// indicator.
	ConfirmTimeout time.Duration
}

// NewMachine creates a booking machine with the default locator specs.
func NewMachine(r *locator.Resolver, s page.Session) *Machine {
	return &Machine{
		Resolver:       r,
		Session:        s,
		Specs:          DefaultSpecs(),
		ConfirmTimeout: 15 * time.Second,
	}
}

// Run executes the attempt. The returned Attempt always carries a terminal
// Status and the ordered per-step diagnostics; Run itself never returns an
// error because attempt failure is a modeled outcome, not an exception.
func (m *Machine) Run(ctx context.Context, req Request) *Attempt {
	a := &Attempt{
		Date:      req.Date,
		PartySize: req.PartySize,
		Slot:      req.Slot,
	}

	steps := []struct {
		state State
		run   func(ctx context.Context, req Request, step *StepResult) error
	}{
		{StateSlotSelect, m.selectSlot},
		{StateDetailsFill, m.fillDetails},
		{StateTermsAccept, m.acceptTerms},
		{StateSubmit, m.submit},
		{StateConfirmed, m.awaitConfirmation},
	}

	for _, s := range steps {
		a.State = s.state
		m.fireHook(ctx, s.state, a)

		step := StepResult{State: s.state}
		err := s.run(ctx, req, &step)
		step.Err = err
		a.Steps = append(a.Steps, step)

		if err != nil {
			a.Status = StatusFailed
			a.Reason = fmt.Sprintf("%s: %v", s.state, err)
			if errors.Is(err, errDryRun) {
				a.Reason = ReasonDryRun
			}
			logger.Info("booking attempt failed",
				"date", req.Date, "size", req.PartySize,
				"state", s.state, "reason", a.Reason)
			return a
		}
	}

	a.Status = StatusConfirmed
	logger.Info("booking attempt confirmed",
		"date", req.Date, "time", req.Slot.Time.String(), "size", req.PartySize)
	return a
}

func (m *Machine) fireHook(ctx context.Context, state State, a *Attempt) {
	if m.Hook != nil {
		m.Hook(ctx, state, a)
	}
}

// errDryRun terminates the flow at the submit readiness checkpoint.
var errDryRun = errors.New("submit verified but not clicked")

func (m *Machine) selectSlot(ctx context.Context, req Request, step *StepResult) error {
	if req.Element != nil {
		if err := m.Session.Click(ctx, req.Element); err == nil {
			return nil
		}
		// Stale handle after page churn; fall through to re-resolution.
		step.Warnings = append(step.Warnings, "direct slot click failed, re-resolving by text")
	}

	el, err := m.Resolver.Resolve(ctx, m.Specs.SlotButton(req.Slot.RawText), page.StateClickable)
	if err != nil {
		return fmt.Errorf("slot button: %w", err)
	}
	return m.Session.Click(ctx, el)
}

// fillDetails populates the contact fields. Each field is independently
// best-effort: a missing field is recorded as a warning, not a failure.
func (m *Machine) fillDetails(ctx context.Context, req Request, step *StepResult) error {
	fields := []struct {
		name  string
		spec  locator.Spec
		value string
	}{
		{"name", m.Specs.NameField, req.Contact.Name},
		{"phone", m.Specs.PhoneField, req.Contact.Phone},
		{"email", m.Specs.EmailField, req.Contact.Email},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		el, err := m.Resolver.Resolve(ctx, f.spec, page.StatePresent)
		if err != nil {
			var rf *locator.ResolutionFailure
			if errors.As(err, &rf) {
				step.Warnings = append(step.Warnings,
					fmt.Sprintf("%s field not found, continuing without it", f.name))
				logger.Warn("form field not located", "field", f.name)
				continue
			}
			return fmt.Errorf("%s field: %w", f.name, err)
		}
		if err := m.Session.SetValue(ctx, el, f.value); err != nil {
			step.Warnings = append(step.Warnings,
				fmt.Sprintf("%s field could not be set: %v", f.name, err))
			logger.Warn("form field not set", "field", f.name, "error", err)
		}
	}
	return nil
}

// acceptTerms ticks the terms checkbox when one exists. Absence of a terms
// control is not a failure, and an already-checked box is left alone so the
// click cannot untick it.
func (m *Machine) acceptTerms(ctx context.Context, _ Request, step *StepResult) error {
	el, err := m.Resolver.Resolve(ctx, m.Specs.Terms, page.StateClickable)
	if err != nil {
		var rf *locator.ResolutionFailure
		if errors.As(err, &rf) {
			step.Warnings = append(step.Warnings, "no terms control found, skipping")
			return nil
		}
		return fmt.Errorf("terms control: %w", err)
	}
	if el.Selected {
		return nil
	}
	if err := m.Session.Click(ctx, el); err != nil {
		step.Warnings = append(step.Warnings,
			fmt.Sprintf("terms control could not be clicked: %v", err))
	}
	return nil
}

// submit locates the submit control and, only when committing is enabled,
// clicks it. The dry-run posture is the default: readiness is verified and
// reported without performing the irreversible action.
func (m *Machine) submit(ctx context.Context, req Request, step *StepResult) error {
	el, err := m.Resolver.Resolve(ctx, m.Specs.Submit, page.StateClickable)
	if err != nil {
		return fmt.Errorf("submit control: %w", err)
	}

	if !req.Commit {
		step.Warnings = append(step.Warnings, "submit control verified actionable, not clicked")
		logger.Info("dry run: submit control located and actionable, not clicking")
		return errDryRun
	}

	return m.Session.Click(ctx, el)
}

func (m *Machine) awaitConfirmation(ctx context.Context, _ Request, _ *StepResult) error {
	r := *m.Resolver
	if m.ConfirmTimeout > 0 {
		r.Timeout = m.ConfirmTimeout
	}
	if _, err := r.Resolve(ctx, m.Specs.Confirmation, page.StatePresent); err != nil {
		return fmt.Errorf("confirmation indicator: %w", err)
	}
	return nil
}
