// Package app wires configuration, persistence, and the dashboard state into
// a session that commands run against.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calvinalkan/salesdash/internal/dashboard"
	"github.com/calvinalkan/salesdash/internal/kv"
	"github.com/calvinalkan/salesdash/internal/library"
	"github.com/calvinalkan/salesdash/internal/prefs"
	"github.com/calvinalkan/salesdash/internal/sales"
)

// Keys holding the working dataset and its filter.
const (
	KeyDataset = "dataset:current"
	KeyFilter  = "filter:current"
)

// Options customise Open. The zero value is valid.
type Options struct {
	Logger *slog.Logger
	Clock  library.Clock
	// Store replaces the configured backend when set. The session closes it.
	Store kv.Store
}

// Session is one command's view of the persisted dashboard.
type Session struct {
	Config    Config
	Records   *sales.Store
	State     *dashboard.State
	Scheduler *dashboard.Scheduler
	Library   *library.Library
	Prefs     *prefs.Prefs
	// Warnings are problems found while restoring state that did not stop
	// the session from opening.
	Warnings []string

	kv  kv.Store
	log *slog.Logger
}

// Open opens the backend and restores the working dataset, filter, overlays,
// and time format.
func Open(ctx context.Context, cfg Config, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	store := opts.Store
	if store == nil {
		var err error

		store, err = kv.Open(ctx, cfg.Backend, cfg.DataDirAbs)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
		}
	}

	records := sales.NewStore()

	s := &Session{
		Config:    cfg,
		Records:   records,
		State:     dashboard.NewState(records),
		Scheduler: dashboard.NewScheduler(log),
		Library:   library.New(store, opts.Clock),
		Prefs:     prefs.New(store),
		kv:        store,
		log:       log.With(slog.String("component", "session")),
	}

	s.State.Format = sales.NewFormatter(cfg.Locale)

	err := s.restore(ctx)
	if err != nil {
		_ = store.Close()

		return nil, err
	}

	s.Scheduler.Watch(records)
	s.Scheduler.Notify("open")

	return s, nil
}

func (s *Session) restore(ctx context.Context) error {
	var (
		rawDataset []byte
		filter     sales.FilterSpec
		hasFilter  bool
	)

	err := s.kv.View(ctx, func(tx kv.Tx) error {
		data, err := tx.Get(KeyDataset)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return err
		}

		rawDataset = data

		err = kv.GetJSON(tx, KeyFilter, &filter)

		switch {
		case err == nil:
			hasFilter = true
		case errors.Is(err, kv.ErrNotFound):
		default:
			s.Warnings = append(s.Warnings, fmt.Sprintf("saved filter unreadable, using full window: %v", err))
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	if rawDataset != nil {
		ds, err := sales.DecodeDataset(rawDataset)
		if err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("saved dataset ignored: %v", err))
			s.log.Warn("saved dataset rejected", slog.Any("error", err))
		} else {
			s.Records.Replace(ds)
		}
	}

	s.State.Filter = sales.FullWindow(s.Records.Len())
	if hasFilter {
		s.State.Filter = filter.Clamp(s.Records.Len())
	}

	ov, err := s.Prefs.Overlays(ctx)
	if err != nil {
		s.Warnings = append(s.Warnings, err.Error())
	}

	s.State.Overlays = ov

	ts, err := s.Prefs.TimeSettings(ctx)
	if err != nil {
		s.Warnings = append(s.Warnings, err.Error())
	}

	s.State.TimeFormat = ts.Format

	s.log.Debug("session restored",
		slog.String("backend", s.Config.Backend),
		slog.Int("rows", s.Records.Len()),
		slog.Any("filter", s.State.Filter),
	)

	return nil
}

// KV returns the backing key-value store.
func (s *Session) KV() kv.Store { return s.kv }

// Loaded reports whether a dataset with rows is in the store.
func (s *Session) Loaded() bool {
	return s.State.Mode() == sales.Loaded
}

// Dataset returns a snapshot of the working dataset.
func (s *Session) Dataset() sales.Dataset {
	return s.Records.Snapshot()
}

// LoadDataset persists ds as the working dataset with a full-window filter,
// then replaces the in-memory store. Nothing changes if persisting fails.
func (s *Session) LoadDataset(ctx context.Context, ds sales.Dataset) error {
	data, err := sales.EncodeDataset(ds)
	if err != nil {
		return err
	}

	filter := sales.FullWindow(len(ds.Hourly))

	err = s.kv.Update(ctx, func(tx kv.Tx) error {
		err := tx.Put(KeyDataset, data)
		if err != nil {
			return err
		}

		return kv.PutJSON(tx, KeyFilter, filter)
	})
	if err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}

	s.State.Filter = filter
	s.Records.Replace(ds)

	s.log.Info("dataset loaded", slog.Int("rows", len(ds.Hourly)), slog.Any("source", ds.Meta["source"]))

	return nil
}

// SetFilter clamps spec to the loaded rows, persists it, and schedules a
// render.
func (s *Session) SetFilter(ctx context.Context, spec sales.FilterSpec) (sales.FilterSpec, error) {
	spec = spec.Clamp(s.Records.Len())

	err := kv.WriteJSON(ctx, s.kv, KeyFilter, spec)
	if err != nil {
		return sales.FilterSpec{}, fmt.Errorf("persist filter: %w", err)
	}

	s.State.Filter = spec
	s.Scheduler.Notify("filter")

	return spec, nil
}

// SetOverlays persists the comparison toggles and schedules a render.
func (s *Session) SetOverlays(ctx context.Context, ov sales.Overlays) error {
	err := s.Prefs.SetOverlays(ctx, ov)
	if err != nil {
		return err
	}

	s.State.Overlays = ov
	s.Scheduler.Notify("overlays")

	return nil
}

// Reset clears the working dataset and filter. Library entries and
// preferences are kept.
func (s *Session) Reset(ctx context.Context) error {
	err := kv.Delete(ctx, s.kv, KeyDataset, KeyFilter)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	s.State.Filter = sales.FullWindow(0)
	s.Records.Reset()

	s.log.Info("dataset reset")

	return nil
}

// Render runs the pending render pass, if any.
func (s *Session) Render(ctx context.Context) error {
	return s.Scheduler.Flush(ctx, s.State)
}

// Close closes the backend.
func (s *Session) Close() error {
	return s.kv.Close()
}
