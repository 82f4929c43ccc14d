package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// Series is one named line. A nil point is a gap.
type Series struct {
	Name   string     `json:"name"`
	Color  string     `json:"color"`
	Points []*float64 `json:"points"`
}

// ChartSpec is the data behind one chart panel.
type ChartSpec struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Chart panel ids.
const (
	ChartHourly     = "hourly"
	ChartCumulative = "cume"
	ChartTxnsUnits  = "tu"
	ChartEfficiency = "eff"
)

// ErrNoChartData is returned when a chart has no finite point to draw.
var ErrNoChartData = errors.New("no chart data")

// BuildCharts derives the four chart panels from the current window.
func BuildCharts(st *State) []ChartSpec {
	rows := st.Window()
	cum := sales.Cumulate(rows, st.Overlays)

	n := len(rows)
	labels := make([]string, n)
	rowMetrics := make([]sales.RowMetrics, n)

	for i, r := range rows {
		labels[i] = sales.FormatTimeLabel(r.Time, st.TimeFormat)
		rowMetrics[i] = sales.DeriveRow(r, st.Overlays)
	}

	col := func(fn func(i int) sales.Num) []*float64 {
		out := make([]*float64, n)
		for i := range n {
			out[i] = fn(i).Ptr()
		}

		return out
	}

	hourly := ChartSpec{ID: ChartHourly, Title: "Hourly Sales", Labels: labels, Series: []Series{
		{Name: "Sales", Color: "2563eb", Points: col(func(i int) sales.Num { return rows[i].Sales })},
	}}

	cume := ChartSpec{ID: ChartCumulative, Title: "Cumulative Sales", Labels: labels, Series: []Series{
		{Name: "Cumulative Sales", Color: "2563eb", Points: numPtrs(cum.Sales)},
	}}

	if st.Overlays.ShowTarget {
		hourly.Series = append(hourly.Series, Series{
			Name: "Hour Target", Color: "f59e0b", Points: col(func(i int) sales.Num { return rows[i].HourTarget }),
		})
		cume.Series = append(cume.Series, Series{Name: "Cumulative Target", Color: "f59e0b", Points: numPtrs(cum.Target)})
	}

	if st.Overlays.ShowLastYear {
		hourly.Series = append(hourly.Series, Series{
			Name: "Last Year", Color: "9ca3af", Points: col(func(i int) sales.Num { return rows[i].LastYear }),
		})
		cume.Series = append(cume.Series, Series{Name: "Cumulative LY", Color: "9ca3af", Points: numPtrs(cum.LastYear)})
	}

	tu := ChartSpec{ID: ChartTxnsUnits, Title: "Transactions & Units", Labels: labels, Series: []Series{
		{Name: "Transactions", Color: "10b981", Points: col(func(i int) sales.Num { return rows[i].Txns })},
		{Name: "Units", Color: "8b5cf6", Points: col(func(i int) sales.Num { return rows[i].Units })},
	}}

	eff := ChartSpec{ID: ChartEfficiency, Title: "Efficiency", Labels: labels, Series: []Series{
		{Name: "ADS", Color: "2563eb", Points: col(func(i int) sales.Num { return rowMetrics[i].ADS })},
		{Name: "UPT", Color: "10b981", Points: col(func(i int) sales.Num { return rowMetrics[i].UPT })},
		{Name: "Conversion %", Color: "ef4444", Points: col(func(i int) sales.Num {
			v, ok := rowMetrics[i].Conversion.Get()
			if !ok {
				return sales.Absent
			}

			return sales.N(v * 100)
		})},
	}}

	return []ChartSpec{hourly, cume, tu, eff}
}

func numPtrs(nums []sales.Num) []*float64 {
	out := make([]*float64, len(nums))
	for i, n := range nums {
		out[i] = n.Ptr()
	}

	return out
}

// WriteChartJSON writes specs with absent points as null.
func WriteChartJSON(w io.Writer, specs []ChartSpec) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(specs)
}

// Chart image formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// ChartRenderer draws every chart panel into Dir as <id>.<format>, or all
// of them into one dashboard.<ext> when Combined is set.
type ChartRenderer struct {
	Dir    string
	Format string
	Width  int
	Height int
	// Panels limits output to these chart ids, in this order. Empty means
	// all.
	Panels   []string
	Combined bool
	// Written receives the path of every file written.
	Written func(path string)
}

// Name implements Renderer.
func (ChartRenderer) Name() string { return "charts" }

// Render implements Renderer. Panels without any finite point are skipped.
func (r ChartRenderer) Render(_ context.Context, st *State) error {
	if st.Mode() == sales.Empty {
		return nil
	}

	err := os.MkdirAll(r.Dir, 0o750)
	if err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}

	specs := selectCharts(BuildCharts(st), r.Panels)

	if r.Combined {
		var buf bytes.Buffer

		err := RenderCombined(&buf, specs, r.Format, r.Width, r.Height)
		if errors.Is(err, ErrNoChartData) {
			return nil
		}

		if err != nil {
			return err
		}

		return r.write(filepath.Join(r.Dir, CombinedName+"."+CombinedExt(r.Format)), &buf)
	}

	for _, spec := range specs {
		var buf bytes.Buffer

		err := RenderChart(&buf, spec, r.Format, r.Width, r.Height)
		if errors.Is(err, ErrNoChartData) {
			continue
		}

		if err != nil {
			return fmt.Errorf("chart %s: %w", spec.ID, err)
		}

		err = r.write(filepath.Join(r.Dir, spec.ID+"."+r.Format), &buf)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r ChartRenderer) write(path string, buf *bytes.Buffer) error {
	err := atomic.WriteFile(path, buf)
	if err != nil {
		return fmt.Errorf("write chart %s: %w", path, err)
	}

	if r.Written != nil {
		r.Written(path)
	}

	return nil
}

// selectCharts keeps the specs named in ids, in the order of ids.
func selectCharts(specs []ChartSpec, ids []string) []ChartSpec {
	if len(ids) == 0 {
		return specs
	}

	var out []ChartSpec

	for _, id := range ids {
		i := slices.IndexFunc(specs, func(s ChartSpec) bool { return s.ID == id })
		if i >= 0 {
			out = append(out, specs[i])
		}
	}

	return out
}

// RenderChart draws spec to w. Each run of consecutive present points becomes
// its own line segment so that absent values show as gaps, never as zeros.
func RenderChart(w io.Writer, spec ChartSpec, format string, width, height int) error {
	var provider chart.RendererProvider

	switch format {
	case FormatPNG, "":
		provider = chart.PNG
	case FormatSVG:
		provider = chart.SVG
	default:
		return fmt.Errorf("unknown chart format %q (want png or svg)", format)
	}

	var series []chart.Series

	for _, s := range spec.Series {
		series = append(series, segments(s)...)
	}

	if len(series) == 0 {
		return ErrNoChartData
	}

	ticks := make([]chart.Tick, len(spec.Labels))
	for i, l := range spec.Labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	ch := chart.Chart{
		Title:      spec.Title,
		Width:      orDefault(width, 960),
		Height:     orDefault(height, 380),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks},
		Series:     series,
	}

	if lo, hi, ok := bounds(spec); ok && lo == hi {
		ch.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	err := ch.Render(provider, w)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	return nil
}

func segments(s Series) []chart.Series {
	style := chart.Style{StrokeWidth: 2, DotWidth: 3}

	// Series without a usable color fall back to the default palette.
	if hex, ok := hexColor(s.Color); ok {
		style.StrokeColor = drawing.ColorFromHex(hex)
		style.DotColor = drawing.ColorFromHex(hex)
	}

	var (
		out    []chart.Series
		xs, ys []float64
	)

	flush := func() {
		if len(xs) == 0 {
			return
		}

		name := ""
		if len(out) == 0 {
			name = s.Name
		}

		// A lone point still needs two x values to draw.
		if len(xs) == 1 {
			xs = append(xs, xs[0]+0.01)
			ys = append(ys, ys[0])
		}

		out = append(out, chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: style})
		xs, ys = nil, nil
	}

	for i, p := range s.Points {
		if p == nil {
			flush()

			continue
		}

		xs = append(xs, float64(i))
		ys = append(ys, *p)
	}

	flush()

	return out
}

// hexColor reports whether c is a 3 or 6 digit hex color, with or without #.
func hexColor(c string) (string, bool) {
	c = strings.TrimPrefix(c, "#")
	if len(c) != 3 && len(c) != 6 {
		return "", false
	}

	for _, r := range c {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", false
		}
	}

	return c, true
}

func bounds(spec ChartSpec) (float64, float64, bool) {
	var (
		lo, hi float64
		seen   bool
	)

	for _, s := range spec.Series {
		for _, p := range s.Points {
			if p == nil {
				continue
			}

			if !seen {
				lo, hi, seen = *p, *p, true

				continue
			}

			lo, hi = min(lo, *p), max(hi, *p)
		}
	}

	return lo, hi, seen
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}
