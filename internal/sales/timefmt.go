package sales

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeFormat controls how time labels are displayed.
type TimeFormat string

// Time formats.
const (
	Format24h TimeFormat = "24hr"
	Format12h TimeFormat = "12hr"
)

// ParseTimeFormat accepts "12hr"/"24hr" and the short forms "12"/"24".
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "12", "12h", "12hr":
		return Format12h, nil
	case "24", "24h", "24hr":
		return Format24h, nil
	default:
		return "", fmt.Errorf("%w: time format %q (want 12hr or 24hr)", ErrInvalidTimeLabel, s)
	}
}

// LeadingHour parses the hour in front of the first ':' of a label such as
// "13:00" or "9:30 AM". Labels with AM/PM are converted to 24h.
func LeadingHour(label string) (int, bool) {
	minutes, err := ParseClock(label)
	if err != nil {
		return 0, false
	}

	return minutes / 60, true
}

// ParseClock parses "HH:MM", "H:MM AM" or a bare hour into minutes after
// midnight.
func ParseClock(label string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(label))

	suffix := ""

	for _, sfx := range []string{"AM", "PM"} {
		if strings.HasSuffix(s, sfx) {
			suffix = sfx
			s = strings.TrimSpace(strings.TrimSuffix(s, sfx))
		}
	}

	hourPart, minPart, hasMinutes := strings.Cut(s, ":")

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
	}

	minute := 0

	if hasMinutes {
		minute, err = strconv.Atoi(minPart)
		if err != nil || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
		}
	}

	switch suffix {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
		}

		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
		}

		if hour != 12 {
			hour += 12
		}
	}

	if hour < 0 || hour > 24 || (hour == 24 && minute > 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeLabel, label)
	}

	return hour*60 + minute, nil
}

// ClockLabel renders minutes after midnight as "HH:MM".
func ClockLabel(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatTimeLabel renders label in the given format. Labels that do not
// parse as a clock time are returned unchanged.
func FormatTimeLabel(label string, format TimeFormat) string {
	minutes, err := ParseClock(label)
	if err != nil {
		return label
	}

	if format != Format12h {
		return ClockLabel(minutes)
	}

	hour, minute := (minutes/60)%24, minutes%60

	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}

	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}

	return fmt.Sprintf("%d:%02d %s", h12, minute, suffix)
}
