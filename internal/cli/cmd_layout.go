package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/salesdash/internal/app"
	"github.com/calvinalkan/salesdash/internal/prefs"
	"github.com/calvinalkan/salesdash/internal/sales"
)

// LayoutCmd returns the layout command group.
func LayoutCmd(rt *runtime) *Command {
	return Group("layout", "Show or change the panel layout",
		layoutShowCmd(rt),
		layoutSetCmd(rt),
		layoutOrderCmd(rt),
		layoutSidebarCmd(rt),
		layoutTilesCmd(rt),
		layoutTimeFormatCmd(rt),
		layoutResetCmd(rt),
	)
}

func layoutShowCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "layout show",
		Short: "Print panels in display order",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			layout, err := s.Prefs.Layout(ctx)
			if err != nil {
				return err
			}

			for _, p := range layout.Panels {
				visible := "shown"
				if !p.Visible {
					visible = "hidden"
				}

				line := fmt.Sprintf("%-7s %-6s %dpx", p.Panel.ID, visible, p.Height)
				if p.Wide {
					line += " wide"
				}

				o.Println(line)
			}

			ts, err := s.Prefs.TimeSettings(ctx)
			if err != nil {
				return err
			}

			o.Println()
			o.Println("sidebar:", orDefault(layout.SidebarWidth))
			o.Println("tiles:", orDefault(strings.Join(layout.TileOrder, ",")))
			o.Println("time-format:", ts.Format)

			return nil
		},
	}
}

func orDefault(s string) string {
	if s == "" {
		return "default"
	}

	return s
}

func layoutSetCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("set", flag.ContinueOnError)
	visible := flags.String("visible", "", "Show or hide the panel (on|off)")
	height := flags.Int("height", 0, "Panel height in pixels (260-820)")
	wide := flags.String("wide", "", "Span the full width (on|off)")

	return &Command{
		Flags: flags,
		Usage: "layout set <panel> [--visible on|off] [--height px] [--wide on|off]",
		Short: "Change one panel",
		Long: `Change the visibility, height, or width of one panel.

Panels: tu, hourly, eff, cume, table, week. Heights outside 260-820 are
clamped.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: panel", errArgRequired)
			}

			panel, err := prefs.LookupPanel(args[0])
			if err != nil {
				return err
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			if flags.Changed("visible") {
				on, err := prefs.ParseBool(*visible)
				if err != nil {
					return err
				}

				err = s.Prefs.SetVisible(ctx, panel.ID, on)
				if err != nil {
					return err
				}
			}

			if flags.Changed("wide") {
				on, err := prefs.ParseBool(*wide)
				if err != nil {
					return err
				}

				err = s.Prefs.SetWide(ctx, panel.ID, on)
				if err != nil {
					return err
				}
			}

			if flags.Changed("height") {
				h, err := s.Prefs.SetHeight(ctx, panel.ID, *height)
				if err != nil {
					return err
				}

				if h != *height {
					o.Printf("Height clamped to %dpx\n", h)
				}
			}

			o.Println("Updated", panel.ID)

			return nil
		},
	}
}

func layoutOrderCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("order", flag.ContinueOnError),
		Usage: "layout order <panel>...",
		Short: "Set the panel display order",
		Long:  "Set the panel display order. Panels not named follow in their default order.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: panel", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			err = s.Prefs.SetOrder(ctx, splitArgs(args))
			if err != nil {
				return err
			}

			o.Println("Order updated.")

			return nil
		},
	}
}

func layoutSidebarCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("sidebar", flag.ContinueOnError),
		Usage: "layout sidebar <px>",
		Short: "Set the sidebar width",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: width", errArgRequired)
			}

			px, err := strconv.Atoi(strings.TrimSuffix(args[0], "px"))
			if err != nil {
				return fmt.Errorf("%w: width %q", prefs.ErrInvalidValue, args[0])
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			w, err := s.Prefs.SetSidebarWidth(ctx, px)
			if err != nil {
				return err
			}

			o.Printf("Sidebar width %dpx\n", w)

			return nil
		},
	}
}

func layoutTilesCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("tiles", flag.ContinueOnError),
		Usage: "layout tiles <tile>...",
		Short: "Set the sidebar tile order",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			tiles := splitArgs(args)
			if len(tiles) == 0 {
				return fmt.Errorf("%w: tile", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			err = s.Prefs.SetTileOrder(ctx, tiles)
			if err != nil {
				return err
			}

			o.Println("Tile order updated.")

			return nil
		},
	}
}

func layoutTimeFormatCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("time-format", flag.ContinueOnError),
		Usage: "layout time-format <12hr|24hr>",
		Short: "Choose how time labels are shown",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: format", errArgRequired)
			}

			tf, err := sales.ParseTimeFormat(args[0])
			if err != nil {
				return err
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			err = s.Prefs.SetTimeFormat(ctx, tf)
			if err != nil {
				return err
			}

			o.Println("Time format", tf)

			return nil
		},
	}
}

func layoutResetCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("reset", flag.ContinueOnError),
		Usage: "layout reset",
		Short: "Restore the default layout",
		Long:  "Restore the default layout. Data, saved days, store hours, users, and time settings are kept.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			err = s.Prefs.ResetLayout(ctx)
			if err != nil {
				return err
			}

			o.Println("Layout restored to defaults.")

			return nil
		},
	}
}

// splitArgs accepts both "a b c" and "a,b,c".
func splitArgs(args []string) []string {
	var out []string

	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// HoursCmd returns the hours command group.
func HoursCmd(rt *runtime) *Command {
	return Group("hours", "Show or change the store hours", hoursShowCmd(rt), hoursSetCmd(rt))
}

func hoursShowCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "hours show",
		Short: "Print the store hours and time slots",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			h, err := s.Prefs.StoreHours(ctx)
			if err != nil {
				return err
			}

			slots, err := h.Slots()
			if err != nil {
				return err
			}

			o.Println("open:", h.Open)
			o.Println("close:", h.Close)
			o.Printf("slot: %d min\n", h.SlotMinutes)
			o.Println("days:", strings.Join(h.Days, ","))
			o.Println("slots:", strings.Join(slots, " "))

			return nil
		},
	}
}

func hoursSetCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("set", flag.ContinueOnError)
	open := flags.String("open", "", "Opening time (HH:MM)")
	closing := flags.String("close", "", "Closing time (HH:MM)")
	slot := flags.Int("slot", 0, "Slot length in minutes (at least 30)")
	days := flags.StringSlice("days", nil, "Trading days (Mon,Tue,...)")

	return &Command{
		Flags: flags,
		Usage: "hours set [--open t] [--close t] [--slot min] [--days d1,d2]",
		Short: "Change the store hours",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			h, err := s.Prefs.StoreHours(ctx)
			if err != nil {
				return err
			}

			if flags.Changed("open") {
				h.Open = *open
			}

			if flags.Changed("close") {
				h.Close = *closing
			}

			if flags.Changed("slot") {
				h.SlotMinutes = *slot
			}

			if flags.Changed("days") {
				h.Days = splitArgs(*days)
			}

			err = s.Prefs.SetStoreHours(ctx, h)
			if err != nil {
				return err
			}

			o.Printf("Store hours %s-%s\n", h.Open, h.Close)

			return nil
		},
	}
}

// UsersCmd returns the users command group.
func UsersCmd(rt *runtime) *Command {
	return Group("users", "Manage the authorized users list", usersLsCmd(rt), usersAddCmd(rt), usersRmCmd(rt))
}

func usersLsCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("ls", flag.ContinueOnError),
		Usage: "users ls",
		Short: "List authorized users",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			users, err := s.Prefs.Users(ctx)
			if err != nil {
				return err
			}

			for _, u := range users {
				o.Printf("%-8s  %-20s  %s\n", shortKey(u.ID), u.Name, u.Role)
			}

			return nil
		},
	}
}

func usersAddCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	role := flags.StringP("role", "r", "Staff", "Role label")

	return &Command{
		Flags: flags,
		Usage: "users add <name> [--role r]",
		Short: "Add an authorized user",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: name", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			u, err := s.Prefs.AddUser(ctx, strings.Join(args, " "), *role)
			if err != nil {
				return err
			}

			o.Println("Added", u.Name)

			return nil
		},
	}
}

func usersRmCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "users rm <name|id>",
		Short: "Remove an authorized user",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: name or id", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			u, err := s.Prefs.RemoveUser(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			o.Println("Removed", u.Name)

			return nil
		},
	}
}

// findUser matches an authorized user by id or case-insensitive name.
func findUser(ctx context.Context, s *app.Session, ref string) (prefs.User, error) {
	users, err := s.Prefs.Users(ctx)
	if err != nil {
		return prefs.User{}, err
	}

	for _, u := range users {
		if u.ID == ref || strings.EqualFold(u.Name, ref) {
			return u, nil
		}
	}

	return prefs.User{}, fmt.Errorf("%w: %q", prefs.ErrUserNotFound, ref)
}
