package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/salesdash/internal/app"
	"github.com/calvinalkan/salesdash/internal/dashboard"
	"github.com/calvinalkan/salesdash/internal/ingest"
	"github.com/calvinalkan/salesdash/internal/sales"
)

// LoadCmd returns the load command.
func LoadCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("load", flag.ContinueOnError),
		Usage: "load <file>",
		Short: "Load a day from .xlsx, .xls, .csv or .json",
		Long: `Read an hourly sales sheet and make it the working dataset.

The first sheet is used. Columns are matched by header name (Time, Sales,
Txns, Units, Hour Target, LY, Traffic, TTD Target and common aliases).
Blank cells and cells that are not numbers are kept as missing values.
On any error the working dataset is left unchanged.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: file", errArgRequired)
			}

			ds, err := ingest.ParseFile(rt.abs(args[0]))
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("Loaded %d rows from %s", len(ds.Hourly), args[0])
			if n := ingest.InvalidCells(ds); n > 0 {
				summary += fmt.Sprintf(" (%d non-numeric cells left blank)", n)
			}

			return replaceAndSummarize(ctx, rt, o, ds, summary)
		},
	}
}

// DemoCmd returns the demo command.
func DemoCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("demo", flag.ContinueOnError)
	useHours := flags.Bool("store-hours", false, "Use the configured store hours instead of 10:00-19:00")

	return &Command{
		Flags: flags,
		Usage: "demo [--store-hours]",
		Short: "Load a generated demo day",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			var times []string

			if *useHours {
				s, err := rt.open(ctx)
				if err != nil {
					return err
				}

				times, err = storeSlots(ctx, s)
				if err != nil {
					return err
				}
			}

			ds := sales.DemoDataset(times)

			return replaceAndSummarize(ctx, rt, o, ds, fmt.Sprintf("Loaded demo day with %d rows", len(ds.Hourly)))
		},
	}
}

// EntryCmd returns the entry command.
func EntryCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("entry", flag.ContinueOnError)
	fields := flags.StringSlice("fields", nil, "Fields to ask for (sales,txns,units,hTarget,ly,traffic,tTarget)")
	user := flags.StringP("user", "u", "", "Record who entered the data (must be an authorized user)")

	return &Command{
		Flags: flags,
		Usage: "entry [--fields f1,f2] [--user name]",
		Short: "Type in a day hour by hour",
		Long: `Prompt for each store-hours time slot and field.

Leave an answer blank to keep it missing, type q to abort without
changing anything. Ending input early keeps the rows entered so far.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			times, err := storeSlots(ctx, s)
			if err != nil {
				return err
			}

			enteredBy := ""

			if *user != "" {
				u, err := findUser(ctx, s, *user)
				if err != nil {
					return err
				}

				enteredBy = u.Name
			}

			prompter, release := newPrompter(rt.in, o.ErrWriter())
			defer release()

			ds, err := ingest.EntryGrid{
				Prompter:  prompter,
				Out:       o.ErrWriter(),
				Times:     times,
				Fields:    parseFieldList(*fields),
				EnteredBy: enteredBy,
			}.Run()
			if err != nil {
				return err
			}

			if ds.Empty() {
				return fmt.Errorf("%w: no rows entered", ingest.ErrIngest)
			}

			return replaceAndSummarize(ctx, rt, o, ds, fmt.Sprintf("Entered %d rows", len(ds.Hourly)))
		},
	}
}

// ResetCmd returns the reset command.
func ResetCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("reset", flag.ContinueOnError)
	layout := flags.Bool("layout", false, "Also restore the default panel layout")

	return &Command{
		Flags: flags,
		Usage: "reset [--layout]",
		Short: "Clear the working dataset and filter",
		Long:  "Clear the working dataset and filter. Saved library entries, store hours, users, and time settings are kept.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			err = s.Reset(ctx)
			if err != nil {
				return err
			}

			o.Println("Dataset cleared.")

			if *layout {
				err = s.Prefs.ResetLayout(ctx)
				if err != nil {
					return err
				}

				o.Println("Layout restored to defaults.")
			}

			return nil
		},
	}
}

// ExportCmd returns the export command.
func ExportCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("export", flag.ContinueOnError),
		Usage: "export <file.json>",
		Short: "Write the working dataset as JSON",
		Long:  "Write the working dataset, including wtd and meta, as JSON. The file can be loaded again with load.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: file", errArgRequired)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			if !s.Loaded() {
				return app.ErrNoData
			}

			data, err := sales.EncodeDataset(s.Dataset())
			if err != nil {
				return err
			}

			path := rt.abs(args[0])

			err = atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
			if err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			o.Println("Wrote", args[0])

			return nil
		},
	}
}

// TemplateCmd returns the template command.
func TemplateCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("template", flag.ContinueOnError)
	times := flags.StringSlice("times", nil, "Time slots to use instead of the store hours")

	return &Command{
		Flags: flags,
		Usage: "template <file.xlsx> [--times t1,t2]",
		Short: "Write a blank Excel template",
		Long:  "Write an .xlsx with the expected headers and one row per store-hours slot.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: file", errArgRequired)
			}

			slots := *times

			if len(slots) == 0 {
				s, err := rt.open(ctx)
				if err != nil {
					return err
				}

				slots, err = storeSlots(ctx, s)
				if err != nil {
					return err
				}
			}

			err := ingest.WriteTemplate(rt.abs(args[0]), slots)
			if err != nil {
				return err
			}

			o.Printf("Wrote %s (%d time slots)\n", args[0], len(slots))

			return nil
		},
	}
}

// replaceAndSummarize makes ds the working dataset and prints the KPI strip.
func replaceAndSummarize(ctx context.Context, rt *runtime, o *IO, ds sales.Dataset, summary string) error {
	s, err := rt.open(ctx)
	if err != nil {
		return err
	}

	err = s.LoadDataset(ctx, ds)
	if err != nil {
		return err
	}

	o.Println(summary)
	o.Println()

	return render(ctx, s, dashboard.KPIRenderer{W: o})
}

func render(ctx context.Context, s *app.Session, renderers ...dashboard.Renderer) error {
	for _, r := range renderers {
		s.Scheduler.Subscribe(r)
	}

	return s.Render(ctx)
}

func storeSlots(ctx context.Context, s *app.Session) ([]string, error) {
	hours, err := s.Prefs.StoreHours(ctx)
	if err != nil {
		return nil, err
	}

	return hours.Slots()
}

func (rt *runtime) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(rt.cfg.EffectiveCwd, path)
}

func parseFieldList(list []string) []string {
	var out []string

	for _, f := range list {
		f = strings.TrimSpace(f)
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}

	return out
}
