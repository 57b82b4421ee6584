// Package notify formats scan outcomes into operator messages and
// dispatches them best-effort: a failure to notify never fails the cycle.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tablewatch/internal/logger"
	"github.com/jmylchreest/tablewatch/pkg/scan"
)

// Notifier is the outbound transport. Implementations live elsewhere;
// the engine only needs send(subject, body).
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Dispatch sends exactly one message for the cycle's terminal outcome.
// Errors are logged, never propagated.
func Dispatch(ctx context.Context, n Notifier, res *scan.Result) {
	if n == nil || res == nil {
		return
	}
	subject, body := Format(res)
	if err := n.Send(ctx, subject, body); err != nil {
		logger.Error("notification send failed", "subject", subject, "error", err)
		return
	}
	logger.Info("notification sent", "subject", subject)
}

// Format renders the outcome into a subject and plain-text body. There is
// one message shape per terminal outcome category: booked, found but not
// booked, none found, and cycle error.
func Format(res *scan.Result) (subject, body string) {
	switch {
	case res.Err != nil:
		return "Table watch: cycle error", errorBody(res)
	case res.Outcome == scan.OutcomeBooked:
		return fmt.Sprintf("Table booked for %s at %s", res.Date, res.Slot.Time.String()),
			bookedBody(res)
	case res.Outcome == scan.OutcomeFound:
		return fmt.Sprintf("Table available on %s, booking incomplete", res.Date),
			foundBody(res)
	default:
		return "Table watch: no slots found", noneBody(res)
	}
}

func bookedBody(res *scan.Result) string {
	var b strings.Builder
	b.WriteString("Successfully booked a table.\n\n")
	writeSlotDetails(&b, res)
	return b.String()
}

func foundBody(res *scan.Result) string {
	var b strings.Builder
	b.WriteString("A qualifying slot was found but the booking attempt did not confirm.\n\n")
	writeSlotDetails(&b, res)

	if a := res.Attempt; a != nil {
		fmt.Fprintf(&b, "\nAttempt stopped at %s: %s\n", a.State, a.Reason)
		for _, w := range a.Warnings() {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func noneBody(res *scan.Result) string {
	var b strings.Builder
	b.WriteString("No qualifying slots on any configured date.\n")
	writeFailures(&b, res)
	return b.String()
}

func errorBody(res *scan.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The scan cycle aborted: %v\n", res.Err)
	b.WriteString("The next scheduled cycle will still run.\n")
	writeFailures(&b, res)
	return b.String()
}

func writeSlotDetails(b *strings.Builder, res *scan.Result) {
	fmt.Fprintf(b, "Date:       %s%s\n", res.Date, relativeDate(res.Date))
	fmt.Fprintf(b, "Time:       %s\n", res.Slot.Time.String())
	fmt.Fprintf(b, "Party size: %d\n", res.PartySize)
}

func writeFailures(b *strings.Builder, res *scan.Result) {
	if len(res.Failures) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%d combination(s) failed during the scan:\n", len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(b, "  - %s\n", f.String())
	}
}

// relativeDate renders " (in 3 days)" style hints next to target dates.
func relativeDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return " (" + humanize.Time(t) + ")"
}
