package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// Scheduler coalesces change notifications into render passes. Notify only
// marks the dashboard dirty; Flush runs at most one pass over every
// subscribed renderer no matter how many notifications arrived.
type Scheduler struct {
	mu        sync.Mutex
	renderers []Renderer
	reasons   []string
	dirty     bool
	passes    int
	log       *slog.Logger
}

// NewScheduler returns a scheduler. A nil logger discards.
func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Scheduler{log: log.With(slog.String("component", "scheduler"))}
}

// Subscribe adds r to every future render pass.
func (s *Scheduler) Subscribe(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.renderers = append(s.renderers, r)
}

// Notify records that something the renderers depend on changed.
func (s *Scheduler) Notify(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	s.reasons = append(s.reasons, reason)
}

// Watch forwards every store mutation to Notify.
func (s *Scheduler) Watch(store *sales.Store) {
	store.Subscribe(func(c sales.Change) {
		s.Notify("store:" + string(c.Kind))
	})
}

// Pending reports whether a render pass is due.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dirty
}

// Passes returns how many render passes have run.
func (s *Scheduler) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.passes
}

// Flush runs one render pass if anything changed since the last one.
// Every renderer runs even when an earlier one fails; the errors are joined.
func (s *Scheduler) Flush(ctx context.Context, st *State) error {
	s.mu.Lock()

	if !s.dirty {
		s.mu.Unlock()

		return nil
	}

	renderers := append([]Renderer(nil), s.renderers...)
	reasons := s.reasons
	s.dirty = false
	s.reasons = nil
	s.passes++
	s.mu.Unlock()

	s.log.Debug("render pass", slog.Any("reasons", reasons), slog.Int("renderers", len(renderers)))

	var errs []error

	for _, r := range renderers {
		err := ctx.Err()
		if err != nil {
			return err
		}

		err = r.Render(ctx, st)
		if err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", r.Name(), err))
		}
	}

	return errors.Join(errs...)
}
