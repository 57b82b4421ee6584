// Package slot turns resolved page elements into normalized, filterable
// time-slot candidates. All functions are pure: no I/O, inputs untouched.
package slot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/tablewatch/pkg/page"
)

// Clock is a time of day in minutes since midnight. A negative Clock means
// the source text carried no parsable time.
type Clock int

// NoClock marks a candidate whose text could not be parsed as a time.
const NoClock Clock = -1

// String formats the clock as HH:MM.
func (c Clock) String() string {
	if c < 0 {
		return "??:??"
	}
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// clockPattern matches an H:MM or HH:MM token not embedded in a longer
// digit run, so "19:30 last table" yields 19:30 but "219:30" does not.
var clockPattern = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2}):([0-9]{2})(?:[^0-9]|$)`)

// ParseClock parses an HH:MM 24-hour time of day. Text around the token is
// tolerated: the first valid occurrence in s wins. Returns NoClock and
// false when no valid token exists.
func ParseClock(s string) (Clock, bool) {
	for _, m := range clockPattern.FindAllStringSubmatch(s, -1) {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		if h <= 23 && mins <= 59 {
			return Clock(h*60 + mins), true
		}
	}
	return NoClock, false
}

// Window is an inclusive time-of-day range.
type Window struct {
	Start Clock
	End   Clock
}

// Contains reports whether c falls inside the window, both ends inclusive.
func (w Window) Contains(c Clock) bool {
	return c >= 0 && c >= w.Start && c <= w.End
}

// String formats the window as HH:MM-HH:MM.
func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Candidate is one bookable time offering scraped from the page. Produced
// fresh per scan combination and discarded after evaluation.
type Candidate struct {
	RawText string
	Time    Clock
}

// unavailableMarkers flag slots the site renders but will not accept.
var unavailableMarkers = []string{"full", "closed", "unavailable", "sold out"}

func isUnavailableText(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range unavailableMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Extract normalizes slot elements into candidates. Disabled elements,
// empty texts, and full/closed/unavailable markers are dropped here, before
// any window filtering. Unparsable times survive with Time == NoClock so
// the caller can log them.
func Extract(els []*page.Element) []Candidate {
	var out []Candidate
	for _, el := range els {
		if el == nil || el.Disabled {
			continue
		}
		out = appendCandidate(out, el.Text)
	}
	return out
}

func appendCandidate(out []Candidate, raw string) []Candidate {
	text := strings.TrimSpace(raw)
	if text == "" || isUnavailableText(text) {
		return out
	}
	c := Candidate{RawText: text, Time: NoClock}
	if t, ok := ParseClock(text); ok {
		c.Time = t
	}
	return append(out, c)
}

// FilterByWindow keeps candidates whose parsed time falls inside w,
// preserving order. Unparsable candidates are excluded. Idempotent.
func FilterByWindow(cands []Candidate, w Window) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if w.Contains(c.Time) {
			out = append(out, c)
		}
	}
	return out
}

// Dedupe removes duplicate candidates by normalized text, first occurrence
// wins. Order-preserving and idempotent.
func Dedupe(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	var out []Candidate
	for _, c := range cands {
		key := strings.ToLower(strings.TrimSpace(c.RawText))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// Earliest returns the candidate with the smallest parsed time, ties broken
// by source order. ok is false when cands is empty or holds no parsed time.
func Earliest(cands []Candidate) (Candidate, bool) {
	best := Candidate{Time: NoClock}
	found := false
	for _, c := range cands {
		if c.Time < 0 {
			continue
		}
		if !found || c.Time < best.Time {
			best = c
			found = true
		}
	}
	return best, found
}
