// Package library keeps saved trading days, one per calendar date, with
// Month → Week → Day navigation. Past days lock at the end of their date.
package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calvinalkan/salesdash/internal/kv"
	"github.com/calvinalkan/salesdash/internal/sales"
)

// DateLayout is the ISO calendar date used for entry dates.
const DateLayout = "2006-01-02"

// Storage keys.
const (
	KeyIndex      = "lib:index"
	KeyItemPrefix = "lib:item:"
)

// Rejection reasons returned in Result.Reason.
const (
	ReasonDuplicate = "duplicate"
	ReasonMissing   = "missing"
	ReasonLocked    = "locked"
)

// Error variables for library operations.
var (
	ErrNothingToSave = errors.New("nothing to save yet")
	ErrInvalidDate   = errors.New("invalid date")
	ErrDuplicate     = errors.New("an entry already exists for that date")
	ErrLocked        = errors.New("entry is locked")
	ErrEntryNotFound = errors.New("entry not found")
)

// Clock supplies the current time. Lock state is derived from it on every read.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Entry is one saved day as listed in the index.
type Entry struct {
	Key       string `json:"key"`
	Date      string `json:"date"`
	Label     string `json:"label"`
	Timestamp int64  `json:"ts"`
	Rows      int    `json:"rows"`
	// Locked is recomputed on every read and never stored.
	Locked bool `json:"-"`
}

// Result reports the outcome of SaveNew and Delete. A rejected operation
// has OK false and a Reason; nothing was written.
type Result struct {
	OK     bool   `json:"ok"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Err maps a rejection reason to its sentinel error, or nil when OK.
func (r Result) Err() error {
	switch {
	case r.OK:
		return nil
	case r.Reason == ReasonDuplicate:
		return ErrDuplicate
	case r.Reason == ReasonLocked:
		return ErrLocked
	case r.Reason == ReasonMissing:
		return ErrEntryNotFound
	default:
		return fmt.Errorf("rejected: %s", r.Reason)
	}
}

// Library stores entries in a kv.Store.
type Library struct {
	store kv.Store
	clock Clock
}

// New returns a library over store. A nil clock uses the wall clock.
func New(store kv.Store, clock Clock) *Library {
	if clock == nil {
		clock = SystemClock{}
	}

	return &Library{store: store, clock: clock}
}

// IsLocked reports whether now is past the last second (23:59:59) of date
// in now's location. Unparseable dates are treated as locked.
func IsLocked(date string, now time.Time) bool {
	day, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return true
	}

	y, m, d := day.Date()
	endOfDay := time.Date(y, m, d, 23, 59, 59, 0, now.Location())

	return now.After(endOfDay)
}

// Today is the current date in the clock's location.
func (l *Library) Today() string {
	return l.clock.Now().Format(DateLayout)
}

// DefaultLabel is the display label for date, such as "Monday, Jan 15".
func DefaultLabel(date string) string {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}

	return day.Format("Monday, Jan 2")
}

// SaveNew stores ds under date. An empty date means today and an empty label
// means DefaultLabel(date). A date that already has an entry is rejected
// with ReasonDuplicate; entries are never overwritten.
func (l *Library) SaveNew(ctx context.Context, ds sales.Dataset, date, label string) (Result, error) {
	if ds.Empty() {
		return Result{}, ErrNothingToSave
	}

	if date == "" {
		date = l.Today()
	}

	_, err := time.Parse(DateLayout, date)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, date)
	}

	if label == "" {
		label = DefaultLabel(date)
	}

	var res Result

	err = l.store.Update(ctx, func(tx kv.Tx) error {
		idx, err := readIndex(tx)
		if err != nil {
			return err
		}

		for _, e := range idx {
			if e.Date == date {
				res = Result{Reason: ReasonDuplicate}

				return nil
			}
		}

		item := ds.Clone()
		item.Meta["date"] = date

		data, err := sales.EncodeDataset(item)
		if err != nil {
			return err
		}

		key := uuid.NewString()

		err = tx.Put(KeyItemPrefix+key, data)
		if err != nil {
			return err
		}

		idx = append(idx, Entry{
			Key:       key,
			Date:      date,
			Label:     label,
			Timestamp: l.clock.Now().UnixMilli(),
			Rows:      len(ds.Hourly),
		})

		res = Result{OK: true, Key: key}

		return kv.PutJSON(tx, KeyIndex, idx)
	})
	if err != nil {
		return Result{}, fmt.Errorf("save entry: %w", err)
	}

	return res, nil
}

// Delete removes the entry with key unless it is missing or locked.
func (l *Library) Delete(ctx context.Context, key string) (Result, error) {
	var res Result

	err := l.store.Update(ctx, func(tx kv.Tx) error {
		idx, err := readIndex(tx)
		if err != nil {
			return err
		}

		pos := -1

		for i, e := range idx {
			if e.Key == key {
				pos = i

				break
			}
		}

		if pos < 0 {
			res = Result{Reason: ReasonMissing}

			return nil
		}

		if IsLocked(idx[pos].Date, l.clock.Now()) {
			res = Result{Reason: ReasonLocked}

			return nil
		}

		err = tx.Delete(KeyItemPrefix + key)
		if err != nil {
			return err
		}

		res = Result{OK: true, Key: key}

		return kv.PutJSON(tx, KeyIndex, append(idx[:pos], idx[pos+1:]...))
	})
	if err != nil {
		return Result{}, fmt.Errorf("delete entry: %w", err)
	}

	return res, nil
}

// Load returns the saved dataset and its index entry.
func (l *Library) Load(ctx context.Context, key string) (sales.Dataset, Entry, error) {
	var (
		ds    sales.Dataset
		entry Entry
	)

	err := l.store.View(ctx, func(tx kv.Tx) error {
		idx, err := readIndex(tx)
		if err != nil {
			return err
		}

		found := false

		for _, e := range idx {
			if e.Key == key {
				entry, found = e, true

				break
			}
		}

		if !found {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, key)
		}

		data, err := tx.Get(KeyItemPrefix + key)
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("%w: %s has no dataset", ErrEntryNotFound, key)
		}

		if err != nil {
			return err
		}

		ds, err = sales.DecodeDataset(data)

		return err
	})
	if err != nil {
		return sales.Dataset{}, Entry{}, err
	}

	entry.Locked = IsLocked(entry.Date, l.clock.Now())

	return ds, entry, nil
}

// Resolve finds an entry by key, key prefix, or date.
func (l *Library) Resolve(ctx context.Context, ref string) (Entry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return Entry{}, err
	}

	var matches []Entry

	for _, e := range entries {
		if e.Key == ref || e.Date == ref {
			return e, nil
		}

		if strings.HasPrefix(e.Key, ref) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, fmt.Errorf("%w: %q matches %d entries", ErrEntryNotFound, ref, len(matches))
	}
}

// Entries lists every entry, newest save first.
func (l *Library) Entries(ctx context.Context) ([]Entry, error) {
	var idx []Entry

	err := l.store.View(ctx, func(tx kv.Tx) error {
		var err error

		idx, err = readIndex(tx)

		return err
	})
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	for i := range idx {
		idx[i].Locked = IsLocked(idx[i].Date, now)
	}

	sort.SliceStable(idx, func(i, j int) bool { return idx[i].Timestamp > idx[j].Timestamp })

	return idx, nil
}

// MonthKeys lists the distinct YYYY-MM months with entries, newest first.
func (l *Library) MonthKeys(ctx context.Context) ([]string, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}
	for _, e := range entries {
		set[monthKey(e.Date)] = true
	}

	out := keysOf(set)
	sort.Sort(sort.Reverse(sort.StringSlice(out)))

	return out, nil
}

// WeeksInMonth lists the ISO weeks (YYYY-Www) that have entries dated in
// month, oldest first.
func (l *Library) WeeksInMonth(ctx context.Context, month string) ([]string, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}

	for _, e := range entries {
		if monthKey(e.Date) != month {
			continue
		}

		if w, err := ISOWeek(e.Date); err == nil {
			set[w] = true
		}
	}

	out := keysOf(set)
	sort.Strings(out)

	return out, nil
}

// EntriesByWeek lists the entries whose date falls in ISO week, by date.
func (l *Library) EntriesByWeek(ctx context.Context, week string) ([]Entry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var out []Entry

	for _, e := range entries {
		if w, err := ISOWeek(e.Date); err == nil && w == week {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out, nil
}

// ISOWeek returns the ISO 8601 week of date as "YYYY-Www".
func ISOWeek(date string) (string, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	year, week := day.ISOWeek()

	return fmt.Sprintf("%d-W%02d", year, week), nil
}

func monthKey(date string) string {
	if len(date) < 7 {
		return date
	}

	return date[:7]
}

func readIndex(tx kv.Tx) ([]Entry, error) {
	var idx []Entry

	err := kv.GetJSON(tx, KeyIndex, &idx)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read library index: %w", err)
	}

	return idx, nil
}

func keysOf(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}

	return out
}
