// Package prefs persists dashboard preferences: panel layout, time display,
// comparison overlays, store hours, and the authorized users list.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/calvinalkan/salesdash/internal/kv"
)

// Panel heights in pixels.
const (
	MinHeight     = 260
	MaxHeight     = 820
	DefaultHeight = 380
)

// Sidebar width bounds in pixels.
const (
	MinSidebarWidth = 200
	MaxSidebarWidth = 640
)

// Layout keys.
const (
	KeyPlotsOrder = "plots:order"
	KeyTileOrder  = "tileOrder:v1"
	KeySidebarW   = "sidebarW"
	viewPrefix    = "view:"
	sizePrefix    = "size:"
	widePrefix    = "wide:"
)

// Error variables for preference updates.
var (
	ErrUnknownPanel = errors.New("unknown panel")
	ErrInvalidValue = errors.New("invalid value")
)

// Panel is one dashboard card.
type Panel struct {
	ID      string // short name used on the command line
	Wrap    string // card id; keys view:, wide:, and plots:order use it
	SizeKey string // key suffix for size:
}

// Panels in their default order.
var Panels = []Panel{
	{ID: "tu", Wrap: "wrap-tu", SizeKey: "plot-tu"},
	{ID: "hourly", Wrap: "wrap-hourly", SizeKey: "plot-hourly"},
	{ID: "eff", Wrap: "wrap-eff", SizeKey: "plot-eff"},
	{ID: "cume", Wrap: "wrap-cume", SizeKey: "plot-cume"},
	{ID: "table", Wrap: "wrap-table", SizeKey: "panel-table"},
	{ID: "week", Wrap: "wrap-week", SizeKey: "panel-week"},
}

// LookupPanel finds a panel by short id or card id.
func LookupPanel(name string) (Panel, error) {
	for _, p := range Panels {
		if p.ID == name || p.Wrap == name {
			return p, nil
		}
	}

	return Panel{}, fmt.Errorf("%w: %q", ErrUnknownPanel, name)
}

// PanelLayout is the stored state of one panel.
type PanelLayout struct {
	Panel   Panel
	Visible bool
	Height  int
	Wide    bool
}

// Layout is the full stored layout, panels listed in display order.
type Layout struct {
	Panels       []PanelLayout
	SidebarWidth string
	TileOrder    []string
}

// LayoutKeys lists every key ResetLayout removes.
func LayoutKeys() []string {
	keys := []string{KeyPlotsOrder, KeySidebarW, KeyTileOrder}

	for _, p := range Panels {
		keys = append(keys, sizePrefix+p.SizeKey, widePrefix+p.Wrap, viewPrefix+p.Wrap)
	}

	return keys
}

// ClampHeight bounds h to [MinHeight, MaxHeight].
func ClampHeight(h int) int {
	return min(max(h, MinHeight), MaxHeight)
}

// Prefs reads and writes preferences in a kv.Store.
type Prefs struct {
	store kv.Store
}

// New returns preferences backed by store.
func New(store kv.Store) *Prefs {
	return &Prefs{store: store}
}

// Layout reads the current layout, filling defaults for unset keys.
func (p *Prefs) Layout(ctx context.Context) (Layout, error) {
	var out Layout

	err := p.store.View(ctx, func(tx kv.Tx) error {
		order, err := readOrder(tx)
		if err != nil {
			return err
		}

		for _, panel := range order {
			pl := PanelLayout{Panel: panel, Visible: true, Height: DefaultHeight}

			if v, err := getString(tx, viewPrefix+panel.Wrap); err == nil {
				pl.Visible = v != "0"
			}

			if v, err := getString(tx, widePrefix+panel.Wrap); err == nil {
				pl.Wide = v == "1"
			}

			var size struct {
				H int `json:"h"`
			}

			if err := kv.GetJSON(tx, sizePrefix+panel.SizeKey, &size); err == nil && size.H > 0 {
				pl.Height = ClampHeight(size.H)
			}

			out.Panels = append(out.Panels, pl)
		}

		if v, err := getString(tx, KeySidebarW); err == nil {
			out.SidebarWidth = v
		}

		err = kv.GetJSON(tx, KeyTileOrder, &out.TileOrder)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return err
		}

		return nil
	})

	return out, err
}

// SetVisible shows or hides a panel.
func (p *Prefs) SetVisible(ctx context.Context, panel string, visible bool) error {
	pl, err := LookupPanel(panel)
	if err != nil {
		return err
	}

	return kv.Put(ctx, p.store, viewPrefix+pl.Wrap, []byte(flag(visible)))
}

// SetWide toggles the full-width flag of a panel.
func (p *Prefs) SetWide(ctx context.Context, panel string, wide bool) error {
	pl, err := LookupPanel(panel)
	if err != nil {
		return err
	}

	return kv.Put(ctx, p.store, widePrefix+pl.Wrap, []byte(flag(wide)))
}

// SetHeight stores a panel height, clamped to the allowed range. It returns
// the stored value.
func (p *Prefs) SetHeight(ctx context.Context, panel string, height int) (int, error) {
	pl, err := LookupPanel(panel)
	if err != nil {
		return 0, err
	}

	h := ClampHeight(height)

	return h, kv.WriteJSON(ctx, p.store, sizePrefix+pl.SizeKey, map[string]int{"h": h})
}

// SetOrder stores the panel order. Panels not named keep their default
// relative order after the named ones.
func (p *Prefs) SetOrder(ctx context.Context, names []string) error {
	var wraps []string

	for _, n := range names {
		pl, err := LookupPanel(n)
		if err != nil {
			return err
		}

		if slices.Contains(wraps, pl.Wrap) {
			return fmt.Errorf("%w: panel %q listed twice", ErrInvalidValue, n)
		}

		wraps = append(wraps, pl.Wrap)
	}

	for _, pl := range Panels {
		if !slices.Contains(wraps, pl.Wrap) {
			wraps = append(wraps, pl.Wrap)
		}
	}

	return kv.Put(ctx, p.store, KeyPlotsOrder, []byte(strings.Join(wraps, ",")))
}

// SetSidebarWidth stores the sidebar width in pixels.
func (p *Prefs) SetSidebarWidth(ctx context.Context, px int) (int, error) {
	w := min(max(px, MinSidebarWidth), MaxSidebarWidth)

	return w, kv.Put(ctx, p.store, KeySidebarW, []byte(strconv.Itoa(w)+"px"))
}

// SetTileOrder stores the sidebar tile order.
func (p *Prefs) SetTileOrder(ctx context.Context, tiles []string) error {
	return kv.WriteJSON(ctx, p.store, KeyTileOrder, tiles)
}

// ResetLayout removes every layout key and nothing else.
func (p *Prefs) ResetLayout(ctx context.Context) error {
	return kv.Delete(ctx, p.store, LayoutKeys()...)
}

func readOrder(tx kv.Tx) ([]Panel, error) {
	raw, err := getString(tx, KeyPlotsOrder)
	if errors.Is(err, kv.ErrNotFound) {
		return slices.Clone(Panels), nil
	}

	if err != nil {
		return nil, err
	}

	var out []Panel

	for _, name := range strings.Split(raw, ",") {
		pl, err := LookupPanel(strings.TrimSpace(name))
		if err != nil || slices.Contains(out, pl) {
			continue
		}

		out = append(out, pl)
	}

	for _, pl := range Panels {
		if !slices.Contains(out, pl) {
			out = append(out, pl)
		}
	}

	return out, nil
}

func getString(tx kv.Tx, key string) (string, error) {
	data, err := tx.Get(key)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func flag(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

// ParseBool accepts on/off style switches.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes", "show":
		return true, nil
	case "0", "off", "false", "no", "hide":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q (want on or off)", ErrInvalidValue, s)
	}
}
