package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// Tile is one KPI in the strip.
type Tile struct {
	Label  string
	Value  string
	Detail string
}

// KPI tile labels, in display order.
const (
	KPIDaySales   = "Day Sales"
	KPIDayTarget  = "Day Target"
	KPIVsLastYear = "vs LY"
	KPIADS        = "ADS"
	KPIUPT        = "UPT"
	KPIConversion = "Conversion"
	KPIEfficiency = "Efficiency"
)

var kpiLabels = []string{
	KPIDaySales, KPIDayTarget, KPIVsLastYear, KPIADS, KPIUPT, KPIConversion, KPIEfficiency,
}

// BuildKPIs derives the KPI strip. With nothing loaded or an empty window
// every value is the placeholder.
func BuildKPIs(st *State) []Tile {
	rows := st.Window()

	if st.Mode() == sales.Empty || len(rows) == 0 {
		tiles := make([]Tile, len(kpiLabels))
		for i, l := range kpiLabels {
			tiles[i] = Tile{Label: l, Value: sales.Placeholder}
		}

		return tiles
	}

	f := st.Format
	tot := sales.Aggregate(rows, st.Overlays)

	daySales := Tile{Label: KPIDaySales, Value: f.Money(sales.N(tot.Sales)), Detail: "No target set"}
	if tot.VsTarget.Valid() {
		daySales.Detail = fmt.Sprintf("%s (%s) vs target", f.SignedMoney(tot.VsTarget), f.SignedPercent(tot.VsTargetPct))
	}

	dayTarget := Tile{Label: KPIDayTarget, Value: f.Money(tot.DayTarget)}
	if tot.TargetCoverage.Valid() {
		dayTarget.Detail = f.Percent(tot.TargetCoverage) + " achieved"
	}

	vsLY := Tile{Label: KPIVsLastYear, Value: f.SignedMoney(tot.VsLastYear)}
	if tot.LYGrowth.Valid() {
		vsLY.Detail = f.SignedPercent(tot.LYGrowth) + " YoY"
	}

	conv := Tile{Label: KPIConversion, Value: f.Percent(tot.Conversion)}
	if tot.Traffic > 0 {
		conv.Detail = fmt.Sprintf("%s of %s visitors", f.Count(sales.N(tot.Txns)), f.Count(sales.N(tot.Traffic)))
	} else {
		conv.Detail = f.Count(sales.N(tot.Txns)) + " transactions"
	}

	eff := Tile{Label: KPIEfficiency, Value: sales.Placeholder}
	if band, ok := sales.EfficiencyBand(tot.ADS, tot.UPT); ok {
		eff.Value = band
		eff.Detail = "score " + f.Ratio(sales.N(tot.ADS.Float()/100*tot.UPT.Float()))
	}

	return []Tile{
		daySales,
		dayTarget,
		vsLY,
		{Label: KPIADS, Value: f.Money(tot.ADS), Detail: f.Count(sales.N(tot.Txns)) + " transactions"},
		{Label: KPIUPT, Value: f.Ratio(tot.UPT), Detail: f.Count(sales.N(tot.Units)) + " units"},
		conv,
		eff,
	}
}

// KPIRenderer writes the KPI strip, one tile per line.
type KPIRenderer struct {
	W io.Writer
}

// Name implements Renderer.
func (KPIRenderer) Name() string { return "kpi" }

// Render implements Renderer.
func (r KPIRenderer) Render(_ context.Context, st *State) error {
	_, err := io.WriteString(r.W, FormatKPIs(BuildKPIs(st)))

	return err
}

// FormatKPIs aligns tiles into label, value, and detail columns.
func FormatKPIs(tiles []Tile) string {
	labelW, valueW := 0, 0

	for _, t := range tiles {
		labelW = max(labelW, runewidth.StringWidth(t.Label))
		valueW = max(valueW, runewidth.StringWidth(t.Value))
	}

	var b strings.Builder

	for _, t := range tiles {
		line := runewidth.FillRight(t.Label, labelW) + "  " + runewidth.FillRight(t.Value, valueW)
		if t.Detail != "" {
			line += "  " + t.Detail
		}

		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	return b.String()
}
