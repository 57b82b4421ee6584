package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/tablewatch/pkg/booking"
	"github.com/jmylchreest/tablewatch/pkg/scan"
	"github.com/jmylchreest/tablewatch/pkg/slot"
)

type fakeNotifier struct {
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeNotifier) Send(_ context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return f.err
}

func bookedResult() *scan.Result {
	return &scan.Result{
		Outcome:   scan.OutcomeBooked,
		Date:      "2025-05-17",
		PartySize: 4,
		Slot:      slot.Candidate{RawText: "13:00", Time: 13 * 60},
		Attempt:   &booking.Attempt{Status: booking.StatusConfirmed, State: booking.StateConfirmed},
	}
}

// --- Format Tests ---

func TestFormat_Booked(t *testing.T) {
	subject, body := Format(bookedResult())

	if !strings.Contains(subject, "booked") {
		t.Errorf("subject should announce the booking: %q", subject)
	}
	for _, want := range []string{"2025-05-17", "13:00", "Party size: 4"} {
		if !strings.Contains(subject+body, want) {
			t.Errorf("message missing %q\nsubject: %s\nbody: %s", want, subject, body)
		}
	}
}

func TestFormat_FoundIncludesAttemptDiagnostics(t *testing.T) {
	res := bookedResult()
	res.Outcome = scan.OutcomeFound
	res.Attempt = &booking.Attempt{
		Status: booking.StatusFailed,
		State:  booking.StateSubmit,
		Reason: booking.ReasonDryRun,
		Steps: []booking.StepResult{
			{State: booking.StateSubmit, Warnings: []string{"submit control verified actionable, not clicked"}},
		},
	}

	subject, body := Format(res)

	if !strings.Contains(subject, "incomplete") {
		t.Errorf("subject should flag the incomplete booking: %q", subject)
	}
	if !strings.Contains(body, booking.ReasonDryRun) {
		t.Errorf("body should carry the attempt reason: %s", body)
	}
	if !strings.Contains(body, "not clicked") {
		t.Errorf("body should carry the attempt warnings: %s", body)
	}
}

func TestFormat_NoneFoundListsFailures(t *testing.T) {
	res := &scan.Result{
		Outcome: scan.OutcomeNoneFound,
		Failures: []scan.Failure{
			{Date: "2025-05-17", PartySize: 4, Stage: "date setup", Err: errors.New("no date input")},
		},
	}

	subject, body := Format(res)

	if !strings.Contains(subject, "no slots") {
		t.Errorf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "date setup") {
		t.Errorf("body should list the combination failures: %s", body)
	}
}

func TestFormat_CycleErrorWinsOverOutcome(t *testing.T) {
	res := bookedResult()
	res.Err = errors.New("session closed")

	subject, body := Format(res)
	if !strings.Contains(subject, "error") {
		t.Errorf("cycle errors get the error subject, got %q", subject)
	}
	if !strings.Contains(body, "session closed") {
		t.Errorf("body should carry the cycle error: %s", body)
	}
}

// --- Dispatch Tests ---

func TestDispatch_SendsExactlyOneMessage(t *testing.T) {
	n := &fakeNotifier{}
	Dispatch(context.Background(), n, bookedResult())

	if len(n.subjects) != 1 {
		t.Fatalf("expected one message, got %d", len(n.subjects))
	}
}

func TestDispatch_SendErrorIsSwallowed(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp: connection refused")}
	// Must not panic or propagate.
	Dispatch(context.Background(), n, bookedResult())

	if len(n.subjects) != 1 {
		t.Fatalf("send must still be attempted once, got %d", len(n.subjects))
	}
}

func TestDispatch_NilSafe(t *testing.T) {
	Dispatch(context.Background(), nil, bookedResult())
	Dispatch(context.Background(), &fakeNotifier{}, nil)
}
