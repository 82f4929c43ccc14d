package sales

// Overlays toggles the target and last-year comparisons. When a toggle is
// off every value derived from that comparison is absent.
type Overlays struct {
	ShowTarget   bool `json:"showTarget"`
	ShowLastYear bool `json:"showLY"`
}

// DefaultOverlays shows both comparisons.
func DefaultOverlays() Overlays {
	return Overlays{ShowTarget: true, ShowLastYear: true}
}

// RowMetrics are the per-row derived values.
type RowMetrics struct {
	ADS            Num
	UPT            Num
	Conversion     Num
	HourlyVariance Num
}

// DeriveRow computes the ratios and hourly variance for one record.
func DeriveRow(r HourlyRecord, ov Overlays) RowMetrics {
	m := RowMetrics{
		ADS:        safeDiv(r.Sales, r.Txns),
		UPT:        safeDiv(r.Units, r.Txns),
		Conversion: safeDiv(r.Txns, r.Traffic),
	}

	if ov.ShowTarget {
		m.HourlyVariance = sub(r.Sales, r.HourTarget)
	}

	return m
}

// Totals are the window aggregates shown in the KPI strip.
type Totals struct {
	Rows     int
	Sales    float64
	Txns     float64
	Units    float64
	Traffic  float64
	LastYear Num

	DayTarget      Num
	VsTarget       Num
	VsTargetPct    Num
	TargetCoverage Num
	VsLastYear     Num
	LYGrowth       Num

	ADS        Num
	UPT        Num
	Conversion Num
}

// Aggregate totals rows. Absent values count as zero in the sums; ratio
// aggregates are absent when their denominator is not positive.
func Aggregate(rows []HourlyRecord, ov Overlays) Totals {
	t := Totals{Rows: len(rows)}

	var (
		target, ly       float64
		hasTarget, hasLY bool
	)

	for _, r := range rows {
		t.Sales += r.Sales.Or(0)
		t.Txns += r.Txns.Or(0)
		t.Units += r.Units.Or(0)
		t.Traffic += r.Traffic.Or(0)

		if v, ok := r.HourTarget.Get(); ok {
			target += v
			hasTarget = true
		}

		if v, ok := r.LastYear.Get(); ok {
			ly += v
			hasLY = true
		}
	}

	t.ADS = safeDiv(N(t.Sales), N(t.Txns))
	t.UPT = safeDiv(N(t.Units), N(t.Txns))
	t.Conversion = safeDiv(N(t.Txns), N(t.Traffic))

	if hasTarget && ov.ShowTarget {
		t.DayTarget = N(target)
		t.VsTarget = N(t.Sales - target)
		t.VsTargetPct = safeDiv(t.VsTarget, t.DayTarget)
		t.TargetCoverage = safeDiv(N(t.Sales), t.DayTarget)
	}

	if hasLY && ov.ShowLastYear {
		t.LastYear = N(ly)
		t.VsLastYear = N(t.Sales - ly)
		t.LYGrowth = safeDiv(t.VsLastYear, t.LastYear)
	}

	return t
}

// Efficiency band labels.
const (
	BandHigh  = "High efficiency"
	BandGood  = "Good efficiency"
	BandNeeds = "Needs improvement"
)

// EfficiencyBand scores a basket as ads/100*upt and labels it. The second
// return value is false when either input is absent.
func EfficiencyBand(ads, upt Num) (string, bool) {
	a, okA := ads.Get()
	u, okU := upt.Get()

	if !okA || !okU {
		return "", false
	}

	score := a / 100 * u

	switch {
	case score > 2:
		return BandHigh, true
	case score > 1:
		return BandGood, true
	default:
		return BandNeeds, true
	}
}

// Cumulative is the running-total view of a window.
type Cumulative struct {
	Sales    []Num
	Target   []Num
	LastYear []Num
	Variance []Num
	// UsesDayTarget is true when Target was taken from the rows' own
	// day-to-date target column.
	UsesDayTarget bool
}

// Cumulate computes running totals over rows.
//
// A position whose input is absent yields an absent running value; the
// accumulator skips it and keeps summing later finite inputs. The last
// present cumulative sales value therefore equals Aggregate's Sales total.
//
// The cumulative target comes from the rows' DayTarget column when any row
// in the window has one; otherwise it is the running sum of HourTarget.
func Cumulate(rows []HourlyRecord, ov Overlays) Cumulative {
	n := len(rows)
	c := Cumulative{
		Sales:    runningSum(rows, func(r HourlyRecord) Num { return r.Sales }),
		Target:   make([]Num, n),
		LastYear: make([]Num, n),
		Variance: make([]Num, n),
	}

	if ov.ShowTarget {
		for _, r := range rows {
			if r.DayTarget.Valid() {
				c.UsesDayTarget = true

				break
			}
		}

		if c.UsesDayTarget {
			for i, r := range rows {
				c.Target[i] = r.DayTarget
			}
		} else {
			c.Target = runningSum(rows, func(r HourlyRecord) Num { return r.HourTarget })
		}

		for i := range rows {
			c.Variance[i] = sub(c.Sales[i], c.Target[i])
		}
	}

	if ov.ShowLastYear {
		c.LastYear = runningSum(rows, func(r HourlyRecord) Num { return r.LastYear })
	}

	return c
}

func runningSum(rows []HourlyRecord, field func(HourlyRecord) Num) []Num {
	out := make([]Num, len(rows))

	acc := 0.0

	for i, r := range rows {
		v, ok := field(r).Get()
		if !ok {
			continue
		}

		acc += v
		out[i] = N(acc)
	}

	return out
}

func safeDiv(num, den Num) Num {
	n, okN := num.Get()
	d, okD := den.Get()

	if !okN || !okD || d <= 0 {
		return Absent
	}

	return N(n / d)
}

func sub(a, b Num) Num {
	x, okA := a.Get()
	y, okB := b.Get()

	if !okA || !okB {
		return Absent
	}

	return N(x - y)
}
