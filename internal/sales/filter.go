package sales

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterSpec selects an inclusive index window and a minimum transaction count.
type FilterSpec struct {
	StartIdx int `json:"startIdx"`
	EndIdx   int `json:"endIdx"`
	MinTxn   int `json:"minTxn"`
}

// FullWindow is the filter covering all n rows.
func FullWindow(n int) FilterSpec {
	return FilterSpec{StartIdx: 0, EndIdx: max(n-1, 0)}
}

// Clamp bounds the indices to [0, n-1] and forces EndIdx >= StartIdx.
// Clamping an already clamped spec returns it unchanged.
func (f FilterSpec) Clamp(n int) FilterSpec {
	last := max(n-1, 0)

	f.StartIdx = min(max(f.StartIdx, 0), last)
	f.EndIdx = min(max(f.EndIdx, 0), last)

	if f.EndIdx < f.StartIdx {
		f.EndIdx = f.StartIdx
	}

	if f.MinTxn < 0 {
		f.MinTxn = 0
	}

	return f
}

// Filter returns the rows of records inside the clamped window that meet
// MinTxn. Rows whose txns are absent are always kept. The result is a new
// slice in the original order; records is not modified.
func Filter(records []HourlyRecord, spec FilterSpec) []HourlyRecord {
	if len(records) == 0 {
		return []HourlyRecord{}
	}

	spec = spec.Clamp(len(records))
	window := records[spec.StartIdx : spec.EndIdx+1]

	out := make([]HourlyRecord, 0, len(window))

	for _, r := range window {
		if t, ok := r.Txns.Get(); ok && t < float64(spec.MinTxn) {
			continue
		}

		out = append(out, r)
	}

	return out
}

// Period names a part of the trading day.
type Period string

// Periods.
const (
	PeriodAll     Period = "all"
	PeriodMorning Period = "morning"
	PeriodNoon    Period = "noon"
	PeriodEvening Period = "evening"
)

var periodHours = map[Period][2]int{
	PeriodMorning: {6, 12},
	PeriodNoon:    {12, 15},
	PeriodEvening: {15, 24},
}

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if p == PeriodAll {
		return p, nil
	}

	if _, ok := periodHours[p]; ok {
		return p, nil
	}

	return "", fmt.Errorf("%w: %q (want all, morning, noon, or evening)", ErrUnknownPeriod, s)
}

// PeriodWindow returns the index window covering period. The window starts
// at the first row whose hour is at or after the period start and ends
// just before the first row at or after the period end; each side falls back
// to the dataset boundary when no row qualifies.
func PeriodWindow(records []HourlyRecord, period Period, minTxn int) FilterSpec {
	n := len(records)
	spec := FullWindow(n)
	spec.MinTxn = minTxn

	hours, ok := periodHours[period]
	if !ok || n == 0 {
		return spec
	}

	if i := firstHourAtOrAfter(records, hours[0]); i >= 0 {
		spec.StartIdx = i
	}

	if i := firstHourAtOrAfter(records, hours[1]); i >= 0 {
		spec.EndIdx = max(0, i-1)
	}

	return spec.Clamp(n)
}

// IndexOf resolves a filter bound given either as a row index or as a time
// label ("13:00"). Labels are matched exactly first, then by leading hour.
func IndexOf(records []HourlyRecord, ref string) (int, error) {
	ref = strings.TrimSpace(ref)

	if idx, err := strconv.Atoi(ref); err == nil {
		return idx, nil
	}

	for i, r := range records {
		if r.Time == ref {
			return i, nil
		}
	}

	h, ok := LeadingHour(ref)
	if ok {
		for i, r := range records {
			if rh, ok := LeadingHour(r.Time); ok && rh == h {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: %q matches no row", ErrInvalidTimeLabel, ref)
}

func firstHourAtOrAfter(records []HourlyRecord, hour int) int {
	for i, r := range records {
		if h, ok := LeadingHour(r.Time); ok && h >= hour {
			return i
		}
	}

	return -1
}
