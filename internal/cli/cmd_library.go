package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/salesdash/internal/app"
	"github.com/calvinalkan/salesdash/internal/library"
)

const shortKeyLen = 8

// LibraryCmd returns the library command group.
func LibraryCmd(rt *runtime) *Command {
	return Group("library", "Save, browse, and reload past days",
		librarySaveCmd(rt),
		libraryLsCmd(rt),
		libraryLoadCmd(rt),
		libraryRmCmd(rt),
		libraryMonthsCmd(rt),
		libraryWeeksCmd(rt),
		libraryWeekCmd(rt),
	)
}

func librarySaveCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("save", flag.ContinueOnError)
	date := flags.StringP("date", "d", "", "Calendar date YYYY-MM-DD (default: today)")
	label := flags.StringP("label", "l", "", "Display label (default: weekday and date)")

	return &Command{
		Flags: flags,
		Usage: "library save [--date d] [--label l]",
		Short: "Save the working dataset as a day",
		Long: `Save the working dataset under a calendar date.

Each date holds one day. Saving a date that already exists is refused;
remove the old entry first. Days lock at the end of their date and can no
longer be removed.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			res, err := s.Library.SaveNew(ctx, s.Dataset(), *date, *label)
			if err != nil {
				return err
			}

			if !res.OK {
				return fmt.Errorf("%w: %s", res.Err(), dateOrToday(s, *date))
			}

			o.Println("Saved", dateOrToday(s, *date), shortKey(res.Key))

			return nil
		},
	}
}

func libraryLsCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("ls", flag.ContinueOnError),
		Usage: "library ls",
		Short: "List saved days, newest first",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			entries, err := s.Library.Entries(ctx)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				o.Println("No saved days.")

				return nil
			}

			for _, e := range entries {
				o.Println(formatEntry(e))
			}

			return nil
		},
	}
}

func libraryLoadCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("load", flag.ContinueOnError),
		Usage: "library load <date|key>",
		Short: "Make a saved day the working dataset",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: date or key", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			entry, err := s.Library.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			ds, entry, err := s.Library.Load(ctx, entry.Key)
			if err != nil {
				return err
			}

			return replaceAndSummarize(ctx, rt, o, ds, "Loaded "+entry.Date+" "+entry.Label)
		},
	}
}

func libraryRmCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "library rm <date|key>",
		Short: "Remove an unlocked saved day",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: date or key", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			entry, err := s.Library.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			res, err := s.Library.Delete(ctx, entry.Key)
			if err != nil {
				return err
			}

			if !res.OK {
				return fmt.Errorf("%w: %s", res.Err(), entry.Date)
			}

			o.Println("Removed", entry.Date)

			return nil
		},
	}
}

func libraryMonthsCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("months", flag.ContinueOnError),
		Usage: "library months",
		Short: "List months with saved days",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			months, err := s.Library.MonthKeys(ctx)
			if err != nil {
				return err
			}

			for _, m := range months {
				o.Println(m)
			}

			return nil
		},
	}
}

func libraryWeeksCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("weeks", flag.ContinueOnError),
		Usage: "library weeks <YYYY-MM>",
		Short: "List ISO weeks with saved days in a month",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: month", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			weeks, err := s.Library.WeeksInMonth(ctx, args[0])
			if err != nil {
				return err
			}

			for _, w := range weeks {
				o.Println(w)
			}

			return nil
		},
	}
}

func libraryWeekCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("week", flag.ContinueOnError),
		Usage: "library week <YYYY-Www>",
		Short: "List the saved days of an ISO week",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: week", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			entries, err := s.Library.EntriesByWeek(ctx, args[0])
			if err != nil {
				return err
			}

			for _, e := range entries {
				o.Println(formatEntry(e))
			}

			return nil
		},
	}
}

// formatEntry renders one library line: date, short key, lock state, label.
func formatEntry(e library.Entry) string {
	state := "open"
	if e.Locked {
		state = "locked"
	}

	return fmt.Sprintf("%s  %-8s  %-6s  %s (%d rows)", e.Date, shortKey(e.Key), state, e.Label, e.Rows)
}

func shortKey(key string) string {
	if len(key) > shortKeyLen {
		return key[:shortKeyLen]
	}

	return key
}

func dateOrToday(s *app.Session, date string) string {
	if date == "" {
		return s.Library.Today()
	}

	return date
}
