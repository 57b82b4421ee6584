package scan

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/tablewatch/pkg/locator"
)

// Specs holds the locator chains for page setup and slot discovery.
type Specs struct {
	// GuestControl opens the party-size picker.
	GuestControl locator.Spec

	// GuestOption builds the chain for picking a specific party size.
	GuestOption func(size int) locator.Spec

	// DateInput finds the date control.
	DateInput locator.Spec

	// SlotGroup finds the available-slot elements, most specific first.
	SlotGroup locator.Spec

	// SnapshotSelectors are CSS selectors for the HTML-snapshot fallback
	// extraction, tried in order.
	SnapshotSelectors []string
}

// DefaultSpecs returns the chains observed to work against the target
// site's shifting markup, test-id attributes first.
func DefaultSpecs() Specs {
	return Specs{
		GuestControl: locator.NewSpec("guest-control",
			locator.CSS("testid", "[data-testid='guest-count-button']"),
			locator.CSS("class", ".guest-count-button"),
			locator.CSS("adults-select", "select[name='adults'], #adults"),
			locator.XPath("text-match", "//button[contains(., 'Guest') or contains(., 'People') or contains(., 'Adult')]"),
		),
		GuestOption: func(size int) locator.Spec {
			return locator.NewSpec("guest-option",
				locator.CSS("data-value", fmt.Sprintf("[data-value='%d']", size)),
				locator.XPath("exact-text", fmt.Sprintf("//button[text()='%d'] | //option[text()='%d'] | //div[text()='%d']", size, size, size)),
			)
		},
		DateInput: locator.NewSpec("date-input",
			locator.CSS("testid", "[data-testid='date-picker-input']"),
			locator.CSS("date-type", "input[type='date']"),
			locator.CSS("class", "input.date-input"),
			locator.CSS("placeholder", "input[placeholder*='date' i]"),
		),
		SlotGroup: locator.NewSpec("slot-group",
			locator.CSS("testid-button", "[data-testid='time-slot-button']"),
			locator.CSS("testid", "[data-testid='time-slot']:not([disabled])"),
			locator.CSS("class", ".time-slot:not(.disabled)"),
			locator.CSS("available", ".available-time, button.available"),
			locator.CSS("generic", "a.time-slot, div.time-slot"),
		),
		SnapshotSelectors: []string{
			"[data-testid='time-slot-button']",
			"[data-testid='time-slot']",
			".time-slot",
			".available-time",
		},
	}
}

// dateInjectScript sets the date directly on any date-ish input and fires
// the framework change events. Last resort when normal typing is ignored.
func dateInjectScript(date string) string {
	escaped := strings.ReplaceAll(date, "'", "\\'")
	return fmt.Sprintf(`(function() {
	var inputs = document.querySelectorAll('input[type="date"], [data-testid*="date"], .date-picker input, input.date-input');
	if (inputs.length === 0) { return false; }
	inputs.forEach(function(el) {
		el.value = '%s';
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	});
	return true;
})()`, escaped)
}
