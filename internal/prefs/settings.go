package prefs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/calvinalkan/salesdash/internal/kv"
	"github.com/calvinalkan/salesdash/internal/sales"
)

// Setting keys. None of them is touched by ResetLayout.
const (
	KeyTimeSettings = "timeSettings"
	KeyOverlays     = "overlays"
	KeyStoreHours   = "storeHours:config"
	KeyUsers        = "authorizedUsers:list"
)

// Error variables for user list updates.
var (
	ErrDuplicateUser = errors.New("user already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrLastUser      = errors.New("cannot remove the last user")
	ErrEmptyName     = errors.New("user name is required")
)

// TimeSettings controls how time labels are displayed.
type TimeSettings struct {
	Format   sales.TimeFormat `json:"format"`
	Timezone string           `json:"timezone"`
}

// DefaultTimeSettings is 12-hour display in local time.
func DefaultTimeSettings() TimeSettings {
	return TimeSettings{Format: sales.Format12h, Timezone: "local"}
}

// TimeSettings returns the stored time settings or the defaults.
func (p *Prefs) TimeSettings(ctx context.Context) (TimeSettings, error) {
	ts := DefaultTimeSettings()

	err := readOr(ctx, p.store, KeyTimeSettings, &ts)
	if err != nil {
		return DefaultTimeSettings(), err
	}

	if _, err := sales.ParseTimeFormat(string(ts.Format)); err != nil {
		ts.Format = sales.Format12h
	}

	return ts, nil
}

// SetTimeFormat stores the display format, keeping the other time settings.
func (p *Prefs) SetTimeFormat(ctx context.Context, format sales.TimeFormat) error {
	tf, err := sales.ParseTimeFormat(string(format))
	if err != nil {
		return err
	}

	return p.store.Update(ctx, func(tx kv.Tx) error {
		ts := DefaultTimeSettings()

		err := kv.GetJSON(tx, KeyTimeSettings, &ts)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return err
		}

		ts.Format = tf

		return kv.PutJSON(tx, KeyTimeSettings, ts)
	})
}

// Overlays returns the stored comparison toggles or the defaults.
func (p *Prefs) Overlays(ctx context.Context) (sales.Overlays, error) {
	ov := sales.DefaultOverlays()

	err := readOr(ctx, p.store, KeyOverlays, &ov)
	if err != nil {
		return sales.DefaultOverlays(), err
	}

	return ov, nil
}

// SetOverlays stores the comparison toggles.
func (p *Prefs) SetOverlays(ctx context.Context, ov sales.Overlays) error {
	return kv.WriteJSON(ctx, p.store, KeyOverlays, ov)
}

// StoreHours returns the stored trading hours or the defaults.
func (p *Prefs) StoreHours(ctx context.Context) (sales.StoreHours, error) {
	h := sales.DefaultStoreHours()

	err := readOr(ctx, p.store, KeyStoreHours, &h)
	if err != nil {
		return sales.DefaultStoreHours(), err
	}

	if h.SlotMinutes == 0 {
		h.SlotMinutes = 60
	}

	return h, nil
}

// SetStoreHours validates and stores trading hours.
func (p *Prefs) SetStoreHours(ctx context.Context, h sales.StoreHours) error {
	err := h.Validate()
	if err != nil {
		return err
	}

	return kv.WriteJSON(ctx, p.store, KeyStoreHours, h)
}

// User is an entry in the authorized users list. The list only labels
// who entered data; it grants nothing.
type User struct {
	Name string `json:"name"`
	Role string `json:"role"`
	ID   string `json:"id"`
}

// DefaultUsers is the list used before any user is added.
func DefaultUsers() []User {
	return []User{
		{Name: "Store Manager", Role: "Manager", ID: "001"},
		{Name: "Assistant Manager", Role: "Assistant Manager", ID: "002"},
	}
}

// Users returns the stored users or the defaults.
func (p *Prefs) Users(ctx context.Context) ([]User, error) {
	var users []User

	err := p.store.View(ctx, func(tx kv.Tx) error {
		var err error

		users, err = readUsers(tx)

		return err
	})

	return users, err
}

// AddUser appends a user. Names are compared case-insensitively.
func (p *Prefs) AddUser(ctx context.Context, name, role string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, ErrEmptyName
	}

	u := User{Name: name, Role: strings.TrimSpace(role), ID: uuid.NewString()}

	err := p.store.Update(ctx, func(tx kv.Tx) error {
		users, err := readUsers(tx)
		if err != nil {
			return err
		}

		for _, existing := range users {
			if strings.EqualFold(existing.Name, name) {
				return fmt.Errorf("%w: %s", ErrDuplicateUser, existing.Name)
			}
		}

		return kv.PutJSON(tx, KeyUsers, append(users, u))
	})
	if err != nil {
		return User{}, err
	}

	return u, nil
}

// RemoveUser deletes the user whose id or name matches ref.
func (p *Prefs) RemoveUser(ctx context.Context, ref string) (User, error) {
	var removed User

	err := p.store.Update(ctx, func(tx kv.Tx) error {
		users, err := readUsers(tx)
		if err != nil {
			return err
		}

		pos := slices.IndexFunc(users, func(u User) bool {
			return u.ID == ref || strings.EqualFold(u.Name, ref)
		})
		if pos < 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, ref)
		}

		if len(users) == 1 {
			return ErrLastUser
		}

		removed = users[pos]

		return kv.PutJSON(tx, KeyUsers, slices.Delete(users, pos, pos+1))
	})

	return removed, err
}

func readUsers(tx kv.Tx) ([]User, error) {
	var users []User

	err := kv.GetJSON(tx, KeyUsers, &users)
	if errors.Is(err, kv.ErrNotFound) || (err == nil && len(users) == 0) {
		return DefaultUsers(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}

	return users, nil
}

// readOr decodes key into v, leaving v untouched when the key is unset.
func readOr(ctx context.Context, s kv.Store, key string, v any) error {
	err := kv.ReadJSON(ctx, s, key, v)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	return nil
}
