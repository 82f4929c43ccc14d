package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/salesdash/internal/app"
	"github.com/calvinalkan/salesdash/internal/dashboard"
	"github.com/calvinalkan/salesdash/internal/library"
	"github.com/calvinalkan/salesdash/internal/prefs"
	"github.com/calvinalkan/salesdash/internal/sales"
)

var errFilterConflict = errors.New("--period cannot be combined with --start or --end")

// FilterCmd returns the filter command.
func FilterCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("filter", flag.ContinueOnError)
	start := flags.String("start", "", "First row, as index or time label (e.g. 13:00)")
	end := flags.String("end", "", "Last row, as index or time label")
	minTxn := flags.Int("min-txn", 0, "Hide rows with fewer transactions")
	period := flags.String("period", "", "Select all, morning, noon, or evening")
	target := flags.String("target", "", "Show target overlays (on|off)")
	ly := flags.String("ly", "", "Show last-year overlays (on|off)")
	clearWindow := flags.Bool("clear", false, "Reset the window to all rows")

	return &Command{
		Flags: flags,
		Usage: "filter [flags]",
		Short: "Set or show the time window and overlays",
		Long: `Narrow the dashboard to a window of rows.

Bounds are inclusive and clamped to the loaded rows. The filter is kept
until the next load, reset, or filter change. Without flags the current
window is printed.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			if flags.Changed("target") || flags.Changed("ly") {
				ov := s.State.Overlays

				err = toggle(&ov.ShowTarget, *target, flags.Changed("target"))
				if err != nil {
					return err
				}

				err = toggle(&ov.ShowLastYear, *ly, flags.Changed("ly"))
				if err != nil {
					return err
				}

				err = s.SetOverlays(ctx, ov)
				if err != nil {
					return err
				}
			}

			windowChanged := *clearWindow || flags.Changed("start") || flags.Changed("end") ||
				flags.Changed("min-txn") || flags.Changed("period")

			if windowChanged {
				if !s.Loaded() {
					return app.ErrNoData
				}

				spec, err := filterFromFlags(s, *clearWindow, *start, *end, *period, *minTxn, flags)
				if err != nil {
					return err
				}

				_, err = s.SetFilter(ctx, spec)
				if err != nil {
					return err
				}
			}

			printWindow(o, s)

			return nil
		},
	}
}

func filterFromFlags(s *app.Session, full bool, start, end, period string, minTxn int, flags *flag.FlagSet) (sales.FilterSpec, error) {
	records := s.Records.Records()

	if full {
		spec := sales.FullWindow(len(records))
		spec.MinTxn = minTxn

		return spec, nil
	}

	spec := s.State.Filter
	if !flags.Changed("min-txn") {
		minTxn = spec.MinTxn
	}

	spec.MinTxn = minTxn

	if flags.Changed("period") {
		if flags.Changed("start") || flags.Changed("end") {
			return sales.FilterSpec{}, errFilterConflict
		}

		p, err := sales.ParsePeriod(period)
		if err != nil {
			return sales.FilterSpec{}, err
		}

		return sales.PeriodWindow(records, p, minTxn), nil
	}

	if flags.Changed("start") {
		idx, err := sales.IndexOf(records, start)
		if err != nil {
			return sales.FilterSpec{}, err
		}

		spec.StartIdx = idx
	}

	if flags.Changed("end") {
		idx, err := sales.IndexOf(records, end)
		if err != nil {
			return sales.FilterSpec{}, err
		}

		spec.EndIdx = idx
	}

	return spec, nil
}

func toggle(dst *bool, value string, changed bool) error {
	if !changed {
		return nil
	}

	on, err := prefs.ParseBool(value)
	if err != nil {
		return err
	}

	*dst = on

	return nil
}

func printWindow(o *IO, s *app.Session) {
	st := s.State

	if st.Mode() == sales.Empty {
		o.Println(dashboard.MsgNoData)

		return
	}

	records := s.Records.Records()
	f := st.Filter

	o.Printf("window:   %s - %s (rows %d-%d of %d)\n",
		sales.FormatTimeLabel(records[f.StartIdx].Time, st.TimeFormat),
		sales.FormatTimeLabel(records[f.EndIdx].Time, st.TimeFormat),
		f.StartIdx, f.EndIdx, len(records))
	o.Printf("min-txn:  %d\n", f.MinTxn)
	o.Printf("matching: %d\n", len(st.Window()))
	o.Printf("target:   %s\n", onOff(st.Overlays.ShowTarget))
	o.Printf("ly:       %s\n", onOff(st.Overlays.ShowLastYear))
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}

// TableCmd returns the table command.
func TableCmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("table", flag.ContinueOnError),
		Usage: "table",
		Short: "Print the hourly detail table",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			return render(ctx, s, dashboard.TableRenderer{W: o})
		},
	}
}

// KPICmd returns the kpi command.
func KPICmd(rt *runtime) *Command {
	return &Command{
		Flags: flag.NewFlagSet("kpi", flag.ContinueOnError),
		Usage: "kpi",
		Short: "Print the KPI strip",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			return render(ctx, s, dashboard.KPIRenderer{W: o})
		},
	}
}

// ChartCmd returns the chart command.
func ChartCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("chart", flag.ContinueOnError)
	out := flags.StringP("out", "o", "charts", "Directory to write images into")
	format := flags.String("format", dashboard.FormatPNG, "Image format: png or svg")
	asJSON := flags.Bool("json", false, "Print chart data as JSON instead of drawing")
	width := flags.Int("width", 0, "Image width in pixels")
	height := flags.Int("height", 0, "Image height in pixels (default: the panel height)")
	panels := flags.StringSlice("panel", nil, "Only these panels (hourly,cume,tu,eff)")
	combined := flags.Bool("combined", false, "Stack the visible charts into one dashboard image (png, jpeg or svg)")

	return &Command{
		Flags: flags,
		Usage: "chart [--out dir] [--format png|svg|jpeg] [--combined] [--json]",
		Short: "Draw the chart panels",
		Long: `Draw the hourly, cumulative, transactions/units, and efficiency charts.

Missing values are drawn as gaps. Panels with nothing to draw are skipped.
With --combined the visible chart panels are stacked in layout order into
one dashboard image. With --json the chart data is printed instead,
missing points as null.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			if !s.Loaded() {
				return app.ErrNoData
			}

			for _, id := range *panels {
				if !isChartPanel(id) {
					return fmt.Errorf("%w: %q (want hourly, cume, tu, or eff)", prefs.ErrUnknownPanel, id)
				}
			}

			if *asJSON {
				return dashboard.WriteChartJSON(o, dashboard.BuildCharts(s.State))
			}

			switch {
			case *format == dashboard.FormatPNG || *format == dashboard.FormatSVG:
			case *format == dashboard.FormatJPEG && *combined:
			default:
				return fmt.Errorf("%w: %q (want png or svg, or jpeg with --combined)", errUnknownFormat, *format)
			}

			h := *height
			if h == 0 {
				h, err = defaultChartHeight(ctx, s)
				if err != nil {
					return err
				}
			}

			r := chartRenderer(rt.abs(*out), *format, *width, h, *panels, o)

			if *combined {
				r.Combined = true

				if len(r.Panels) == 0 {
					r.Panels, err = visibleChartPanels(ctx, s)
					if err != nil {
						return err
					}

					if len(r.Panels) == 0 {
						return fmt.Errorf("%w: no visible chart panels", dashboard.ErrNoChartData)
					}
				}
			}

			return render(ctx, s, r)
		},
	}
}

var errUnknownFormat = errors.New("unknown format")

func chartRenderer(dir, format string, width, height int, panels []string, o *IO) dashboard.ChartRenderer {
	return dashboard.ChartRenderer{
		Dir:     dir,
		Format:  format,
		Width:   width,
		Height:  height,
		Panels:  panels,
		Written: func(path string) { o.Println("Wrote", filepath.Base(path)) },
	}
}

// defaultChartHeight is the tallest stored height among the chart panels.
func defaultChartHeight(ctx context.Context, s *app.Session) (int, error) {
	layout, err := s.Prefs.Layout(ctx)
	if err != nil {
		return 0, err
	}

	h := prefs.DefaultHeight

	for _, p := range layout.Panels {
		if isChartPanel(p.Panel.ID) {
			h = max(h, p.Height)
		}
	}

	return h, nil
}

// visibleChartPanels lists the visible chart panels in layout order.
func visibleChartPanels(ctx context.Context, s *app.Session) ([]string, error) {
	layout, err := s.Prefs.Layout(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string

	for _, p := range layout.Panels {
		if p.Visible && isChartPanel(p.Panel.ID) {
			ids = append(ids, p.Panel.ID)
		}
	}

	return ids, nil
}

func isChartPanel(id string) bool {
	switch id {
	case dashboard.ChartHourly, dashboard.ChartCumulative, dashboard.ChartTxnsUnits, dashboard.ChartEfficiency:
		return true
	default:
		return false
	}
}

// DashboardCmd returns the dashboard command.
func DashboardCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	charts := flags.String("charts", "", "Also draw the visible chart panels into this directory")
	format := flags.String("format", dashboard.FormatPNG, "Chart image format: png or svg")

	return &Command{
		Flags: flags,
		Usage: "dashboard [--charts dir]",
		Short: "Print the KPI strip and the visible panels",
		Long: `Print the KPI strip followed by the visible panels in layout order.

All surfaces are drawn in one render pass. Hidden panels (see layout set)
are left out.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			layout, err := s.Prefs.Layout(ctx)
			if err != nil {
				return err
			}

			renderers := []dashboard.Renderer{dashboard.KPIRenderer{W: o}}

			var chartPanels []string

			height := 0

			for _, p := range layout.Panels {
				if !p.Visible {
					continue
				}

				switch {
				case p.Panel.ID == "table":
					renderers = append(renderers, spacer{o}, dashboard.TableRenderer{W: o})
				case p.Panel.ID == "week":
					renderers = append(renderers, spacer{o}, weekRenderer{o: o, session: s})
				case isChartPanel(p.Panel.ID):
					chartPanels = append(chartPanels, p.Panel.ID)
					height = max(height, p.Height)
				}
			}

			if *charts != "" && len(chartPanels) > 0 {
				renderers = append(renderers, chartRenderer(rt.abs(*charts), *format, 0, height, chartPanels, o))
			}

			return render(ctx, s, renderers...)
		},
	}
}

// spacer prints a blank line between surfaces.
type spacer struct{ o *IO }

func (spacer) Name() string { return "spacer" }

func (s spacer) Render(context.Context, *dashboard.State) error {
	s.o.Println()

	return nil
}

// weekRenderer lists the saved days of the current ISO week.
type weekRenderer struct {
	o       *IO
	session *app.Session
}

func (weekRenderer) Name() string { return "week" }

func (r weekRenderer) Render(ctx context.Context, _ *dashboard.State) error {
	lib := r.session.Library

	week, err := library.ISOWeek(lib.Today())
	if err != nil {
		return err
	}

	entries, err := lib.EntriesByWeek(ctx, week)
	if err != nil {
		return err
	}

	r.o.Printf("Week %s\n", week)

	if len(entries) == 0 {
		r.o.Println("No saved days this week.")

		return nil
	}

	for _, e := range entries {
		r.o.Println(formatEntry(e))
	}

	return nil
}

// ForecastCmd returns the forecast command.
func ForecastCmd(rt *runtime) *Command {
	flags := flag.NewFlagSet("forecast", flag.ContinueOnError)
	periods := flags.IntP("periods", "n", 3, "Hours to project past the last row")

	return &Command{
		Flags: flags,
		Usage: "forecast [--periods n]",
		Short: "Project sales with a straight-line fit",
		Long: `Fit a straight line through hourly sales in the current window and
project the next hours. Missing sales count as zero. This is a rough
guide only.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *periods < 1 {
				return fmt.Errorf("%w: --periods must be at least 1", prefs.ErrInvalidValue)
			}

			s, err := rt.open(ctx)
			if err != nil {
				return err
			}

			if !s.Loaded() {
				return app.ErrNoData
			}

			fc, err := sales.LinearForecast(s.State.Window(), *periods)
			if err != nil {
				return err
			}

			f := s.State.Format

			o.Printf("trend: %s per hour\n", f.SignedMoney(sales.N(fc.Slope)))

			for i, label := range fc.Labels {
				o.Printf("%-8s %s\n", sales.FormatTimeLabel(label, s.State.TimeFormat), f.Money(sales.N(fc.Values[i])))
			}

			return nil
		},
	}
}
