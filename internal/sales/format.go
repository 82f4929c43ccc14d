package sales

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown for absent values in tables and KPI tiles.
const Placeholder = "—"

// Formatter renders numbers using a locale's digit grouping.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a formatter for a BCP-47 locale tag such as "en-US".
// Unknown tags fall back to English.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}

	return Formatter{p: message.NewPrinter(tag)}
}

func (f Formatter) printer() *message.Printer {
	if f.p == nil {
		return message.NewPrinter(language.English)
	}

	return f.p
}

// Money renders a whole-dollar amount.
func (f Formatter) Money(n Num) string {
	v, ok := n.Get()
	if !ok {
		return Placeholder
	}

	v = math.Round(v)
	if v < 0 {
		return "-$" + f.printer().Sprintf("%.0f", -v)
	}

	return "$" + f.printer().Sprintf("%.0f", v)
}

// SignedMoney is Money with an explicit "+" for values >= 0.
func (f Formatter) SignedMoney(n Num) string {
	v, ok := n.Get()
	if !ok {
		return Placeholder
	}

	if math.Round(v) >= 0 {
		return "+" + f.Money(n)
	}

	return f.Money(n)
}

// Percent renders a ratio as a percentage with one decimal place.
func (f Formatter) Percent(n Num) string {
	v, ok := n.Get()
	if !ok {
		return Placeholder
	}

	return f.printer().Sprintf("%.1f%%", v*100)
}

// SignedPercent is Percent with an explicit "+" for values >= 0.
func (f Formatter) SignedPercent(n Num) string {
	v, ok := n.Get()
	if !ok {
		return Placeholder
	}

	if v >= 0 {
		return "+" + f.Percent(n)
	}

	return f.Percent(n)
}

// Ratio renders a value with two decimal places.
func (f Formatter) Ratio(n Num) string {
	v, ok := n.Get()
	if !ok {
		return Placeholder
	}

	return f.printer().Sprintf("%.2f", v)
}

// Count renders a whole number with grouping.
func (f Formatter) Count(n Num) string {
	v, ok := n.Get()
	if !ok {
		return Placeholder
	}

	return f.printer().Sprintf("%.0f", math.Round(v))
}
