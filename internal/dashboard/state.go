// Package dashboard turns the record store and the active filter into the
// table, KPI strip, and chart surfaces.
package dashboard

import (
	"context"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// State is everything a render pass reads. It is owned by the caller and
// handed to each renderer; renderers never keep derived values between calls.
type State struct {
	Store      *sales.Store
	Filter     sales.FilterSpec
	Overlays   sales.Overlays
	TimeFormat sales.TimeFormat
	Format     sales.Formatter
}

// NewState returns a state over store with default overlays and formatting.
func NewState(store *sales.Store) *State {
	return &State{
		Store:      store,
		Filter:     sales.FullWindow(store.Len()),
		Overlays:   sales.DefaultOverlays(),
		TimeFormat: sales.Format24h,
		Format:     sales.NewFormatter("en-US"),
	}
}

// Mode is Empty until a dataset with rows has been loaded.
func (s *State) Mode() sales.State {
	if s.Store.State() == sales.Loaded && s.Store.Len() > 0 {
		return sales.Loaded
	}

	return sales.Empty
}

// Window runs the filter over the current records.
func (s *State) Window() []sales.HourlyRecord {
	return sales.Filter(s.Store.Records(), s.Filter)
}

// Renderer is one dashboard surface.
type Renderer interface {
	Name() string
	Render(ctx context.Context, st *State) error
}
