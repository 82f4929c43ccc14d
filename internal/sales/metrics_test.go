package sales_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// rec builds a record; NaN arguments become absent cells.
func rec(label string, s, txns, hTarget float64) sales.HourlyRecord {
	return sales.HourlyRecord{
		Time:       label,
		Sales:      sales.N(s),
		Txns:       sales.N(txns),
		HourTarget: sales.N(hTarget),
	}
}

var nan = math.NaN()

func Test_Aggregate_Reports_Day_Totals_When_Targets_Present(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{
		rec("10:00", 1200, 8, 1000),
		rec("11:00", 1600, 9, 1200),
	}

	tot := sales.Aggregate(rows, sales.DefaultOverlays())

	if got, want := tot.Sales, 2800.0; got != want {
		t.Errorf("Sales=%v, want=%v", got, want)
	}

	if got, want := tot.DayTarget, sales.N(2200); !got.Equal(want) {
		t.Errorf("DayTarget=%v, want=%v", got, want)
	}

	if got, want := tot.VsTarget, sales.N(600); !got.Equal(want) {
		t.Errorf("VsTarget=%v, want=%v", got, want)
	}

	if got, want := sales.NewFormatter("en-US").SignedMoney(tot.VsTarget), "+$600"; got != want {
		t.Errorf("formatted VsTarget=%q, want=%q", got, want)
	}

	if got, want := sales.DeriveRow(rows[0], sales.DefaultOverlays()).ADS, sales.N(150); !got.Equal(want) {
		t.Errorf("row 0 ADS=%v, want=%v", got, want)
	}
}

func Test_DeriveRow_Returns_Absent_ADS_When_Txns_Zero(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{rec("10:00", 500, 0, nan)}

	m := sales.DeriveRow(rows[0], sales.DefaultOverlays())
	if m.ADS.Valid() {
		t.Errorf("ADS=%v, want absent", m.ADS)
	}

	tot := sales.Aggregate(rows, sales.DefaultOverlays())
	if got, want := tot.Sales, 500.0; got != want {
		t.Errorf("Sales=%v, want=%v", got, want)
	}

	if tot.ADS.Valid() {
		t.Errorf("aggregate ADS=%v, want absent", tot.ADS)
	}
}

func Test_DeriveRow_Ratios(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name     string
		row      sales.HourlyRecord
		wantADS  sales.Num
		wantUPT  sales.Num
		wantConv sales.Num
	}{
		{
			name: "AllPresent",
			row: sales.HourlyRecord{
				Sales: sales.N(300), Txns: sales.N(6), Units: sales.N(9), Traffic: sales.N(24),
			},
			wantADS:  sales.N(50),
			wantUPT:  sales.N(1.5),
			wantConv: sales.N(0.25),
		},
		{
			name:     "TxnsAbsent",
			row:      sales.HourlyRecord{Sales: sales.N(300), Units: sales.N(9), Traffic: sales.N(24)},
			wantADS:  sales.Absent,
			wantUPT:  sales.Absent,
			wantConv: sales.Absent,
		},
		{
			name:     "TxnsInfinite",
			row:      sales.HourlyRecord{Sales: sales.N(300), Txns: sales.N(math.Inf(1)), Units: sales.N(9)},
			wantADS:  sales.Absent,
			wantUPT:  sales.Absent,
			wantConv: sales.Absent,
		},
		{
			name:     "UnitsAbsent",
			row:      sales.HourlyRecord{Sales: sales.N(300), Txns: sales.N(6)},
			wantADS:  sales.N(50),
			wantUPT:  sales.Absent,
			wantConv: sales.Absent,
		},
		{
			name:     "TrafficZero",
			row:      sales.HourlyRecord{Sales: sales.N(300), Txns: sales.N(6), Traffic: sales.N(0)},
			wantADS:  sales.N(50),
			wantUPT:  sales.Absent,
			wantConv: sales.Absent,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := sales.DeriveRow(tt.row, sales.DefaultOverlays())

			if !m.ADS.Equal(tt.wantADS) {
				t.Errorf("ADS=%v, want=%v", m.ADS, tt.wantADS)
			}

			if !m.UPT.Equal(tt.wantUPT) {
				t.Errorf("UPT=%v, want=%v", m.UPT, tt.wantUPT)
			}

			if !m.Conversion.Equal(tt.wantConv) {
				t.Errorf("Conversion=%v, want=%v", m.Conversion, tt.wantConv)
			}
		})
	}
}

func Test_Aggregate_DayTarget_Absent_When_No_Row_Has_Target(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{rec("10:00", 100, 2, nan), rec("11:00", 200, 3, nan)}

	tot := sales.Aggregate(rows, sales.DefaultOverlays())

	if tot.DayTarget.Valid() {
		t.Fatalf("DayTarget=%v, want absent", tot.DayTarget)
	}

	if tot.VsTarget.Valid() || tot.VsTargetPct.Valid() || tot.TargetCoverage.Valid() {
		t.Errorf("target-derived values present without target: %+v", tot)
	}
}

func Test_Aggregate_DayTarget_Ignores_Absent_Targets(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{
		rec("10:00", 100, 2, 150),
		rec("11:00", 200, 3, nan),
		rec("12:00", 300, 4, 250),
	}

	tot := sales.Aggregate(rows, sales.DefaultOverlays())

	if got, want := tot.DayTarget, sales.N(400); !got.Equal(want) {
		t.Errorf("DayTarget=%v, want=%v", got, want)
	}

	if got, want := tot.TargetCoverage, sales.N(1.5); !got.Equal(want) {
		t.Errorf("TargetCoverage=%v, want=%v", got, want)
	}
}

func Test_Aggregate_LastYear(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{
		{Time: "10:00", Sales: sales.N(110), LastYear: sales.N(100)},
		{Time: "11:00", Sales: sales.N(110)},
	}

	tot := sales.Aggregate(rows, sales.DefaultOverlays())

	if got, want := tot.VsLastYear, sales.N(120); !got.Equal(want) {
		t.Errorf("VsLastYear=%v, want=%v", got, want)
	}

	if got, want := tot.LYGrowth, sales.N(1.2); !got.Equal(want) {
		t.Errorf("LYGrowth=%v, want=%v", got, want)
	}

	noLY := sales.Aggregate(rows[1:], sales.DefaultOverlays())
	if noLY.VsLastYear.Valid() {
		t.Errorf("VsLastYear=%v without any LY, want absent", noLY.VsLastYear)
	}
}

func Test_Aggregate_Hides_Comparisons_When_Overlays_Off(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{
		{Time: "10:00", Sales: sales.N(110), HourTarget: sales.N(100), LastYear: sales.N(90)},
	}

	tot := sales.Aggregate(rows, sales.Overlays{})

	if tot.DayTarget.Valid() || tot.VsLastYear.Valid() {
		t.Errorf("comparisons present with overlays off: %+v", tot)
	}

	if got := sales.DeriveRow(rows[0], sales.Overlays{}).HourlyVariance; got.Valid() {
		t.Errorf("HourlyVariance=%v, want absent", got)
	}

	c := sales.Cumulate(rows, sales.Overlays{})
	if c.Target[0].Valid() || c.LastYear[0].Valid() {
		t.Errorf("cumulative comparisons present with overlays off: %+v", c)
	}
}

func Test_EfficiencyBand(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		ads, upt float64
		want     string
	}{
		{ads: 150, upt: 1.5, want: sales.BandHigh},
		{ads: 80, upt: 1.5, want: sales.BandGood},
		{ads: 50, upt: 1.5, want: sales.BandNeeds},
	} {
		got, ok := sales.EfficiencyBand(sales.N(tt.ads), sales.N(tt.upt))
		if !ok || got != tt.want {
			t.Errorf("EfficiencyBand(%v, %v)=%q,%v want=%q", tt.ads, tt.upt, got, ok, tt.want)
		}
	}

	if _, ok := sales.EfficiencyBand(sales.Absent, sales.N(1)); ok {
		t.Error("EfficiencyBand with absent ADS reported ok")
	}
}

// The running total leaves a gap at an absent input and keeps accumulating
// afterwards, so the last cumulative value matches the aggregate total.
func Test_Cumulate_Skips_Absent_Sales_Without_Poisoning_Later_Values(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{
		rec("10:00", 100, 1, 90),
		rec("11:00", nan, 1, 90),
		rec("12:00", 300, 1, 90),
	}

	c := sales.Cumulate(rows, sales.DefaultOverlays())

	want := []sales.Num{sales.N(100), sales.Absent, sales.N(400)}
	if diff := cmp.Diff(want, c.Sales); diff != "" {
		t.Errorf("Sales mismatch (-want +got):\n%s", diff)
	}

	tot := sales.Aggregate(rows, sales.DefaultOverlays())
	if got := c.Sales[len(c.Sales)-1].Float(); got != tot.Sales {
		t.Errorf("last cumulative=%v, aggregate=%v", got, tot.Sales)
	}

	wantVar := []sales.Num{sales.N(10), sales.Absent, sales.N(130)}
	if diff := cmp.Diff(wantVar, c.Variance); diff != "" {
		t.Errorf("Variance mismatch (-want +got):\n%s", diff)
	}
}

func Test_Cumulate_Sales_Equals_Prefix_Sum(t *testing.T) {
	t.Parallel()

	rows := sales.DemoDataset(nil).Hourly
	c := sales.Cumulate(rows, sales.DefaultOverlays())

	sum := 0.0

	for i, r := range rows {
		sum += r.Sales.Or(0)

		if got := c.Sales[i]; !got.Equal(sales.N(sum)) {
			t.Fatalf("Sales[%d]=%v, want=%v", i, got, sum)
		}
	}
}

func Test_Cumulate_Uses_Row_DayTarget_When_Any_Row_Has_One(t *testing.T) {
	t.Parallel()

	rows := []sales.HourlyRecord{
		rec("10:00", 100, 1, 50),
		rec("11:00", 100, 1, 50),
		rec("12:00", 100, 1, 50),
	}
	rows[1].DayTarget = sales.N(500)

	c := sales.Cumulate(rows, sales.DefaultOverlays())

	if !c.UsesDayTarget {
		t.Fatal("UsesDayTarget=false, want true")
	}

	want := []sales.Num{sales.Absent, sales.N(500), sales.Absent}
	if diff := cmp.Diff(want, c.Target); diff != "" {
		t.Errorf("Target mismatch (-want +got):\n%s", diff)
	}

	hourly := sales.Cumulate(append(rows[:1:1], rows[2]), sales.DefaultOverlays())
	if hourly.UsesDayTarget {
		t.Fatal("UsesDayTarget=true for window without day targets")
	}

	wantHourly := []sales.Num{sales.N(50), sales.N(100)}
	if diff := cmp.Diff(wantHourly, hourly.Target); diff != "" {
		t.Errorf("hourly Target mismatch (-want +got):\n%s", diff)
	}
}

func Test_Pipeline_Does_Not_Panic_On_Empty_Input(t *testing.T) {
	t.Parallel()

	rows := sales.Filter(nil, sales.FilterSpec{StartIdx: 3, EndIdx: 9, MinTxn: 4})
	tot := sales.Aggregate(rows, sales.DefaultOverlays())
	c := sales.Cumulate(rows, sales.DefaultOverlays())

	if tot.Rows != 0 || len(c.Sales) != 0 {
		t.Errorf("got %d rows, %d cumulative, want 0", tot.Rows, len(c.Sales))
	}

	if tot.ADS.Valid() || tot.DayTarget.Valid() {
		t.Errorf("empty totals carry values: %+v", tot)
	}
}
