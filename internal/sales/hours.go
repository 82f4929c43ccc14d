package sales

import (
	"fmt"
	"slices"
)

// StoreHours are the trading hours used to lay out entry grids and templates.
type StoreHours struct {
	Open        string `json:"open"`
	Close       string `json:"close"`
	SlotMinutes int    `json:"slotMinutes"`
	// Days lists the trading weekdays, Mon..Sun.
	Days []string `json:"days"`
}

// Weekdays in store-hours order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DefaultStoreHours is 10:00 to 21:00 in hourly slots.
func DefaultStoreHours() StoreHours {
	return StoreHours{Open: "10:00", Close: "21:00", SlotMinutes: 60, Days: slices.Clone(Weekdays)}
}

// MinSlotMinutes is the smallest supported slot size.
const MinSlotMinutes = 30

// Validate checks that both times parse and that close is after open.
func (h StoreHours) Validate() error {
	open, err := ParseClock(h.Open)
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrInvalidStoreHours, err)
	}

	closing, err := ParseClock(h.Close)
	if err != nil {
		return fmt.Errorf("%w: close: %w", ErrInvalidStoreHours, err)
	}

	if closing <= open {
		return fmt.Errorf("%w: close %s must be after open %s", ErrInvalidStoreHours, h.Close, h.Open)
	}

	if h.SlotMinutes != 0 && h.SlotMinutes < MinSlotMinutes {
		return fmt.Errorf("%w: slot must be at least %d minutes", ErrInvalidStoreHours, MinSlotMinutes)
	}

	for _, d := range h.Days {
		if !slices.Contains(Weekdays, d) {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidStoreHours, d)
		}
	}

	return nil
}

// Slots returns the time labels from open to close inclusive.
func (h StoreHours) Slots() ([]string, error) {
	err := h.Validate()
	if err != nil {
		return nil, err
	}

	step := h.SlotMinutes
	if step == 0 {
		step = 60
	}

	open, _ := ParseClock(h.Open)
	closing, _ := ParseClock(h.Close)

	var out []string

	for m := open; m <= closing; m += step {
		out = append(out, ClockLabel(m))
	}

	return out, nil
}
