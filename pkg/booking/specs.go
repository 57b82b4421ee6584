package booking

import (
	"fmt"

	"github.com/jmylchreest/tablewatch/pkg/locator"
)

// Specs holds the per-state locator chains. The defaults cover the
// attribute-name variants the target site has been seen to use; operators
// embedding the engine can swap in their own.
type Specs struct {
	// SlotButton builds the chain for clicking a slot with the given text.
	SlotButton func(timeText string) locator.Spec

	NameField    locator.Spec
	PhoneField   locator.Spec
	EmailField   locator.Spec
	Terms        locator.Spec
	Submit       locator.Spec
	Confirmation locator.Spec
}

// DefaultSpecs returns the locator chains for the booking flow, ordered
// most-specific first with a free-text match as the last resort.
func DefaultSpecs() Specs {
	return Specs{
		SlotButton: func(timeText string) locator.Spec {
			return locator.NewSpec("slot-button",
				locator.XPath("button-text", fmt.Sprintf("//button[contains(text(), '%s')]", timeText)),
				locator.XPath("slot-class-text", fmt.Sprintf("//button[contains(@class, 'time-slot') and contains(text(), '%s')]", timeText)),
				locator.CSS("first-available", ".time-slot:not(.disabled), [data-testid='time-slot']:not([disabled]), .available-time"),
			)
		},
		NameField: locator.NewSpec("name-field",
			locator.CSS("by-name", "input[name='firstName']"),
			locator.CSS("testid", "[data-testid='first-name-input']"),
			locator.CSS("placeholder", "input[placeholder*='name' i]"),
			locator.CSS("id-contains", "input[id*='name' i]"),
			locator.CSS("name-contains", "input[name*='name' i]"),
		),
		PhoneField: locator.NewSpec("phone-field",
			locator.CSS("by-name", "input[name='phone']"),
			locator.CSS("testid", "[data-testid='phone-input']"),
			locator.CSS("placeholder", "input[placeholder*='phone' i]"),
			locator.CSS("id-contains", "input[id*='phone' i]"),
			locator.CSS("name-contains", "input[name*='phone' i]"),
			locator.CSS("tel-type", "input[type='tel']"),
		),
		EmailField: locator.NewSpec("email-field",
			locator.CSS("by-name", "input[name='email']"),
			locator.CSS("testid", "[data-testid='email-input']"),
			locator.CSS("placeholder", "input[placeholder*='email' i]"),
			locator.CSS("id-contains", "input[id*='email' i]"),
			locator.CSS("name-contains", "input[name*='email' i]"),
			locator.CSS("email-type", "input[type='email']"),
		),
		Terms: locator.NewSpec("terms",
			locator.CSS("testid", "[data-testid='terms-checkbox']"),
			locator.CSS("class", ".terms-checkbox"),
			locator.CSS("id-contains", "input[id*='terms' i]"),
			locator.CSS("name-contains", "input[name*='terms' i]"),
			locator.CSS("any-checkbox", "input[type='checkbox']"),
		),
		Submit: locator.NewSpec("submit",
			locator.CSS("submit-button", "button[type='submit']"),
			locator.CSS("testid", "[data-testid='submit-button']"),
			locator.CSS("class", ".submit-button, button.primary, button.submit"),
			locator.CSS("submit-input", "input[type='submit']"),
			locator.Text("book-text", "Book"),
			locator.Text("reserve-text", "Reserve"),
			locator.Text("confirm-text", "Confirm"),
		),
		Confirmation: locator.NewSpec("confirmation",
			locator.CSS("message-class", ".confirmation-message"),
			locator.CSS("testid", "[data-testid='booking-confirmation']"),
			locator.CSS("id-contains", "[id*='confirmation' i]"),
			locator.Text("confirmed-text", "confirmed"),
		),
	}
}
