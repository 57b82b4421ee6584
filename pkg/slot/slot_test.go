package slot

import (
	"testing"

	"github.com/jmylchreest/tablewatch/pkg/page"
)

// --- ParseClock Tests ---

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
		ok   bool
	}{
		{"12:00", 12 * 60, true},
		{"00:00", 0, true},
		{"23:59", 23*60 + 59, true},
		{"9:15", 9*60 + 15, true},
		{"19:30 last table", 19*60 + 30, true},
		{"Lunch 11:45", 11*60 + 45, true},
		{"24:00", NoClock, false},
		{"12:60", NoClock, false},
		{"noon", NoClock, false},
		{"", NoClock, false},
		{"12.30", NoClock, false},
	}

	for _, tt := range tests {
		got, ok := ParseClock(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseClock(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClock_String(t *testing.T) {
	if got := Clock(12*60 + 5).String(); got != "12:05" {
		t.Errorf("expected 12:05, got %q", got)
	}
	if got := NoClock.String(); got != "??:??" {
		t.Errorf("expected ??:?? for NoClock, got %q", got)
	}
}

// --- Extract Tests ---

func mkElements(texts ...string) []*page.Element {
	els := make([]*page.Element, 0, len(texts))
	for _, s := range texts {
		els = append(els, &page.Element{Text: s})
	}
	return els
}

func TestExtract_DropsFullMarker(t *testing.T) {
	// A full slot must be excluded regardless of any time window.
	els := mkElements("FULL 19:00", "18:00")

	got := Extract(els)
	if len(got) != 1 || got[0].RawText != "18:00" {
		t.Fatalf("expected only 18:00 to survive, got %+v", got)
	}
}

func TestExtract_DropsDisabledAndEmpty(t *testing.T) {
	els := []*page.Element{
		{Text: "12:00", Disabled: true},
		{Text: "   "},
		nil,
		{Text: "13:00"},
		{Text: "CLOSED"},
		{Text: "Sold Out 14:00"},
	}

	got := Extract(els)
	if len(got) != 1 || got[0].RawText != "13:00" {
		t.Fatalf("expected only 13:00, got %+v", got)
	}
}

func TestExtract_KeepsUnparsableWithNoClock(t *testing.T) {
	got := Extract(mkElements("evening seating"))
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	if got[0].Time != NoClock {
		t.Errorf("expected NoClock for unparsable text, got %v", got[0].Time)
	}
}

// --- FilterByWindow Tests ---

func mkCandidates(texts ...string) []Candidate {
	var out []Candidate
	for _, s := range texts {
		c := Candidate{RawText: s, Time: NoClock}
		if t, ok := ParseClock(s); ok {
			c.Time = t
		}
		out = append(out, c)
	}
	return out
}

func window(start, end string) Window {
	s, _ := ParseClock(start)
	e, _ := ParseClock(end)
	return Window{Start: s, End: e}
}

func TestFilterByWindow_InclusiveBothEnds(t *testing.T) {
	cands := mkCandidates("11:30", "12:00", "18:45", "21:00", "21:15")

	got := FilterByWindow(cands, window("12:00", "21:00"))

	want := []string{"12:00", "18:45", "21:00"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].RawText != w {
			t.Errorf("position %d: expected %s, got %s", i, w, got[i].RawText)
		}
	}
}

func TestFilterByWindow_DropsUnparsable(t *testing.T) {
	cands := mkCandidates("12:00", "ask staff")

	got := FilterByWindow(cands, window("00:00", "23:59"))
	if len(got) != 1 || got[0].RawText != "12:00" {
		t.Fatalf("unparsable candidate should be excluded, got %+v", got)
	}
}

func TestFilterByWindow_Idempotent(t *testing.T) {
	w := window("12:00", "21:00")
	once := FilterByWindow(mkCandidates("11:00", "13:00", "20:00", "22:00"), w)
	twice := FilterByWindow(once, w)

	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("position %d differs after refiltering", i)
		}
	}
}

// --- Dedupe Tests ---

func TestDedupe_FirstOccurrenceWins(t *testing.T) {
	cands := mkCandidates("12:00", "13:00", "12:00", "  13:00  ")

	got := Dedupe(cands)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].RawText != "12:00" || got[1].RawText != "13:00" {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	once := Dedupe(mkCandidates("12:00", "12:00", "14:00"))
	twice := Dedupe(once)

	if len(once) != len(twice) {
		t.Fatalf("dedupe not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("position %d differs after re-dedupe", i)
		}
	}
}

// --- Earliest Tests ---

func TestEarliest(t *testing.T) {
	cands := mkCandidates("18:45", "12:30", "20:00")

	got, ok := Earliest(cands)
	if !ok || got.RawText != "12:30" {
		t.Fatalf("expected 12:30, got %+v ok=%v", got, ok)
	}
}

func TestEarliest_TiesBrokenBySourceOrder(t *testing.T) {
	cands := []Candidate{
		{RawText: "12:30 terrace", Time: 12*60 + 30},
		{RawText: "12:30 indoor", Time: 12*60 + 30},
	}

	got, ok := Earliest(cands)
	if !ok || got.RawText != "12:30 terrace" {
		t.Fatalf("expected first of tied candidates, got %+v", got)
	}
}

func TestEarliest_Empty(t *testing.T) {
	if _, ok := Earliest(nil); ok {
		t.Error("expected ok=false for empty input")
	}
	if _, ok := Earliest(mkCandidates("ask staff")); ok {
		t.Error("expected ok=false when no candidate has a parsed time")
	}
}

// --- Window Tests ---

func TestWindow_Contains(t *testing.T) {
	w := window("12:00", "21:00")

	if w.Contains(NoClock) {
		t.Error("window must never contain NoClock")
	}
	if !w.Contains(12 * 60) {
		t.Error("start is inclusive")
	}
	if !w.Contains(21 * 60) {
		t.Error("end is inclusive")
	}
	if w.Contains(21*60 + 1) {
		t.Error("21:01 is outside the window")
	}
}
