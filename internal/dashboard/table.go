package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// Messages shown instead of a table.
const (
	MsgNoData    = "No data loaded."
	MsgNoMatches = "No rows match the current filter."
)

// Table is the rendered detail table before layout.
type Table struct {
	Headers []string
	Rows    [][]string
}

type column struct {
	header  string
	overlay func(sales.Overlays) bool
	cell    func(i int, r sales.HourlyRecord) string
}

// BuildTable derives the detail table for the current window.
func BuildTable(st *State) Table {
	rows := st.Window()
	f := st.Format
	cum := sales.Cumulate(rows, st.Overlays)

	target := func(o sales.Overlays) bool { return o.ShowTarget }
	lastYear := func(o sales.Overlays) bool { return o.ShowLastYear }

	cols := []column{
		{header: "Time", cell: func(_ int, r sales.HourlyRecord) string { return sales.FormatTimeLabel(r.Time, st.TimeFormat) }},
		{header: "Sales", cell: func(_ int, r sales.HourlyRecord) string { return f.Money(r.Sales) }},
		{header: "Target", overlay: target, cell: func(_ int, r sales.HourlyRecord) string { return f.Money(r.HourTarget) }},
		{header: "±Hr", overlay: target, cell: func(_ int, r sales.HourlyRecord) string {
			return f.SignedMoney(sales.DeriveRow(r, st.Overlays).HourlyVariance)
		}},
		{header: "Txns", cell: func(_ int, r sales.HourlyRecord) string { return f.Count(r.Txns) }},
		{header: "Units", cell: func(_ int, r sales.HourlyRecord) string { return f.Count(r.Units) }},
		{header: "ADS", cell: func(_ int, r sales.HourlyRecord) string { return f.Money(sales.DeriveRow(r, st.Overlays).ADS) }},
		{header: "UPT", cell: func(_ int, r sales.HourlyRecord) string { return f.Ratio(sales.DeriveRow(r, st.Overlays).UPT) }},
		{header: "Conv", cell: func(_ int, r sales.HourlyRecord) string {
			return f.Percent(sales.DeriveRow(r, st.Overlays).Conversion)
		}},
		{header: "TTD", overlay: target, cell: func(_ int, r sales.HourlyRecord) string { return f.Money(r.DayTarget) }},
		{header: "Cum Sales", cell: func(i int, _ sales.HourlyRecord) string { return f.Money(cum.Sales[i]) }},
		{header: "Cum Target", overlay: target, cell: func(i int, _ sales.HourlyRecord) string { return f.Money(cum.Target[i]) }},
		{header: "±Cum", overlay: target, cell: func(i int, _ sales.HourlyRecord) string { return f.SignedMoney(cum.Variance[i]) }},
		{header: "LY", overlay: lastYear, cell: func(_ int, r sales.HourlyRecord) string { return f.Money(r.LastYear) }},
	}

	var active []column

	for _, c := range cols {
		if c.overlay == nil || c.overlay(st.Overlays) {
			active = append(active, c)
		}
	}

	t := Table{Headers: make([]string, len(active))}
	for i, c := range active {
		t.Headers[i] = c.header
	}

	for i, r := range rows {
		line := make([]string, len(active))
		for j, c := range active {
			line[j] = c.cell(i, r)
		}

		t.Rows = append(t.Rows, line)
	}

	return t
}

// TableRenderer writes the detail table as aligned text.
type TableRenderer struct {
	W io.Writer
}

// Name implements Renderer.
func (TableRenderer) Name() string { return "table" }

// Render implements Renderer.
func (r TableRenderer) Render(_ context.Context, st *State) error {
	if st.Mode() == sales.Empty {
		_, err := fmt.Fprintln(r.W, MsgNoData)

		return err
	}

	t := BuildTable(st)
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(r.W, MsgNoMatches)

		return err
	}

	_, err := io.WriteString(r.W, t.Format())

	return err
}

// Format lays the table out in columns. The time column is left aligned,
// numbers are right aligned.
func (t Table) Format() string {
	widths := make([]int, len(t.Headers))

	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}

	for _, row := range t.Rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder

	writeLine := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}

			if i == 0 {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			} else {
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
			}
		}

		b.WriteString("\n")
	}

	writeLine(t.Headers)

	for _, row := range t.Rows {
		writeLine(row)
	}

	return b.String()
}
