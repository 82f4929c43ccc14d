package dashboard_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/salesdash/internal/dashboard"
	"github.com/calvinalkan/salesdash/internal/sales"
)

type countingRenderer struct {
	name  string
	calls int
	err   error
}

func (r *countingRenderer) Name() string { return r.name }

func (r *countingRenderer) Render(context.Context, *dashboard.State) error {
	r.calls++

	return r.err
}

func loadedState(t *testing.T, rows ...sales.HourlyRecord) *dashboard.State {
	t.Helper()

	store := sales.NewStore()
	store.Replace(sales.Dataset{Hourly: rows})

	return dashboard.NewState(store)
}

func Test_Scheduler_Coalesces_Notifications_Into_One_Pass(t *testing.T) {
	t.Parallel()

	store := sales.NewStore()
	st := dashboard.NewState(store)

	sched := dashboard.NewScheduler(nil)
	sched.Watch(store)

	a := &countingRenderer{name: "a"}
	b := &countingRenderer{name: "b"}
	sched.Subscribe(a)
	sched.Subscribe(b)

	store.Replace(sales.DemoDataset(nil))
	sched.Notify("filter")
	sched.Notify("overlays")

	require.True(t, sched.Pending())
	require.NoError(t, sched.Flush(context.Background(), st))

	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls a=%d b=%d, want 1 each", a.calls, b.calls)
	}

	require.NoError(t, sched.Flush(context.Background(), st))

	if got, want := sched.Passes(), 1; got != want {
		t.Errorf("Passes=%d, want=%d", got, want)
	}
}

func Test_Scheduler_Runs_All_Renderers_And_Joins_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &countingRenderer{name: "failing", err: boom}
	after := &countingRenderer{name: "after"}

	sched := dashboard.NewScheduler(nil)
	sched.Subscribe(failing)
	sched.Subscribe(after)
	sched.Notify("test")

	err := sched.Flush(context.Background(), dashboard.NewState(sales.NewStore()))
	require.ErrorIs(t, err, boom)

	if after.calls != 1 {
		t.Errorf("renderer after failure ran %d times, want 1", after.calls)
	}
}

func Test_KPIs_Render_Placeholders_When_Empty(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		st   *dashboard.State
	}{
		{name: "EmptyStore", st: dashboard.NewState(sales.NewStore())},
		{name: "EmptyHourly", st: loadedState(t)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.st.Filter = sales.FilterSpec{StartIdx: 4, EndIdx: 1, MinTxn: 99}

			for _, tile := range dashboard.BuildKPIs(tt.st) {
				if tile.Value != sales.Placeholder {
					t.Errorf("%s=%q, want placeholder", tile.Label, tile.Value)
				}
			}
		})
	}
}

func Test_KPIs_Report_Day_Totals(t *testing.T) {
	t.Parallel()

	st := loadedState(t,
		sales.HourlyRecord{Time: "10:00", Sales: sales.N(1200), Txns: sales.N(8), Units: sales.N(12), HourTarget: sales.N(1000), Traffic: sales.N(40)},
		sales.HourlyRecord{Time: "11:00", Sales: sales.N(1600), Txns: sales.N(9), Units: sales.N(14), HourTarget: sales.N(1200), Traffic: sales.N(45)},
	)
	st.Filter = sales.FullWindow(2)

	got := map[string]dashboard.Tile{}
	for _, tile := range dashboard.BuildKPIs(st) {
		got[tile.Label] = tile
	}

	want := map[string]dashboard.Tile{
		dashboard.KPIDaySales:   {Label: dashboard.KPIDaySales, Value: "$2,800", Detail: "+$600 (+27.3%) vs target"},
		dashboard.KPIDayTarget:  {Label: dashboard.KPIDayTarget, Value: "$2,200", Detail: "127.3% achieved"},
		dashboard.KPIVsLastYear: {Label: dashboard.KPIVsLastYear, Value: sales.Placeholder},
		dashboard.KPIADS:        {Label: dashboard.KPIADS, Value: "$165", Detail: "17 transactions"},
		dashboard.KPIUPT:        {Label: dashboard.KPIUPT, Value: "1.53", Detail: "26 units"},
		dashboard.KPIConversion: {Label: dashboard.KPIConversion, Value: "20.0%", Detail: "17 of 85 visitors"},
		dashboard.KPIEfficiency: {Label: dashboard.KPIEfficiency, Value: sales.BandHigh, Detail: "score 2.52"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("KPI mismatch (-want +got):\n%s", diff)
	}
}

func Test_Table_Renders_Placeholders_For_Absent_Cells(t *testing.T) {
	t.Parallel()

	st := loadedState(t,
		sales.HourlyRecord{Time: "10:00", Sales: sales.N(500), Txns: sales.N(0), HourTarget: sales.N(400)},
		sales.HourlyRecord{Time: "11:00", Sales: sales.N(300), Txns: sales.N(3), Units: sales.N(6)},
	)
	st.Filter = sales.FullWindow(2)

	table := dashboard.BuildTable(st)

	wantHeaders := []string{"Time", "Sales", "Target", "±Hr", "Txns", "Units", "ADS", "UPT", "Conv", "TTD", "Cum Sales", "Cum Target", "±Cum", "LY"}
	if diff := cmp.Diff(wantHeaders, table.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}

	want := [][]string{
		{"10:00", "$500", "$400", "+$100", "0", "—", "—", "—", "—", "—", "$500", "$400", "+$100", "—"},
		{"11:00", "$300", "—", "—", "3", "6", "$100", "2.00", "—", "—", "$800", "—", "—", "—"},
	}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func Test_Table_Shows_Day_Target_Column(t *testing.T) {
	t.Parallel()

	st := loadedState(t,
		sales.HourlyRecord{Time: "10:00", Sales: sales.N(500), HourTarget: sales.N(400), DayTarget: sales.N(450)},
		sales.HourlyRecord{Time: "11:00", Sales: sales.N(300), HourTarget: sales.N(400)},
	)
	st.Filter = sales.FullWindow(2)

	table := dashboard.BuildTable(st)

	col := slices.Index(table.Headers, "TTD")
	require.GreaterOrEqual(t, col, 0, "headers=%v", table.Headers)

	got := []string{table.Rows[0][col], table.Rows[1][col]}
	if diff := cmp.Diff([]string{"$450", "—"}, got); diff != "" {
		t.Errorf("TTD column mismatch (-want +got):\n%s", diff)
	}

	st.Overlays.ShowTarget = false

	if slices.Contains(dashboard.BuildTable(st).Headers, "TTD") {
		t.Error("TTD column shown with the target overlay off")
	}
}

func Test_Table_Drops_Overlay_Columns_When_Hidden(t *testing.T) {
	t.Parallel()

	st := loadedState(t, sales.HourlyRecord{Time: "13:00", Sales: sales.N(1)})
	st.Overlays = sales.Overlays{}
	st.TimeFormat = sales.Format12h

	table := dashboard.BuildTable(st)

	wantHeaders := []string{"Time", "Sales", "Txns", "Units", "ADS", "UPT", "Conv", "Cum Sales"}
	if diff := cmp.Diff(wantHeaders, table.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	if got, want := table.Rows[0][0], "1:00 PM"; got != want {
		t.Errorf("time=%q, want=%q", got, want)
	}
}

func Test_TableRenderer_Messages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	r := dashboard.TableRenderer{W: &buf}

	require.NoError(t, r.Render(context.Background(), dashboard.NewState(sales.NewStore())))

	if got := buf.String(); !strings.Contains(got, dashboard.MsgNoData) {
		t.Errorf("empty output=%q, want %q", got, dashboard.MsgNoData)
	}

	buf.Reset()

	st := loadedState(t, sales.HourlyRecord{Time: "10:00", Txns: sales.N(1)})
	st.Filter.MinTxn = 5

	require.NoError(t, r.Render(context.Background(), st))

	if got := buf.String(); !strings.Contains(got, dashboard.MsgNoMatches) {
		t.Errorf("filtered output=%q, want %q", got, dashboard.MsgNoMatches)
	}
}

func Test_Table_Format_Aligns_Columns(t *testing.T) {
	t.Parallel()

	out := dashboard.Table{
		Headers: []string{"Time", "Sales"},
		Rows:    [][]string{{"10:00", "$1,200"}, {"11:00", "—"}},
	}.Format()

	want := "Time    Sales\n10:00  $1,200\n11:00       —\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func Test_Charts_Null_Absent_Points(t *testing.T) {
	t.Parallel()

	st := loadedState(t,
		sales.HourlyRecord{Time: "10:00", Sales: sales.N(100), Txns: sales.N(2)},
		sales.HourlyRecord{Time: "11:00", Txns: sales.N(2)},
		sales.HourlyRecord{Time: "12:00", Sales: sales.N(300), Txns: sales.N(3)},
	)
	st.Filter = sales.FullWindow(3)

	specs := dashboard.BuildCharts(st)
	hourly := specs[0]

	require.Equal(t, dashboard.ChartHourly, hourly.ID)

	sales0 := hourly.Series[0].Points
	if sales0[1] != nil {
		t.Errorf("absent sales point=%v, want nil", *sales0[1])
	}

	if sales0[0] == nil || *sales0[0] != 100 {
		t.Errorf("first point=%v, want 100", sales0[0])
	}

	var buf bytes.Buffer

	require.NoError(t, dashboard.WriteChartJSON(&buf, specs[:1]))

	if !strings.Contains(buf.String(), "null") {
		t.Errorf("chart JSON has no null gap:\n%s", buf.String())
	}
}

func Test_RenderChart_Writes_Image_Formats(t *testing.T) {
	t.Parallel()

	st := dashboard.NewState(sales.NewStore())
	st.Store.Replace(sales.DemoDataset(nil))
	st.Filter = sales.FullWindow(st.Store.Len())

	spec := dashboard.BuildCharts(st)[0]

	var png bytes.Buffer

	require.NoError(t, dashboard.RenderChart(&png, spec, dashboard.FormatPNG, 640, 320))

	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Errorf("png output has no PNG signature")
	}

	var svg bytes.Buffer

	require.NoError(t, dashboard.RenderChart(&svg, spec, dashboard.FormatSVG, 640, 320))

	if !strings.Contains(svg.String(), "<svg") {
		t.Errorf("svg output has no <svg element")
	}

	err := dashboard.RenderChart(&svg, dashboard.ChartSpec{ID: "x", Series: []dashboard.Series{{Points: []*float64{nil}}}}, dashboard.FormatPNG, 0, 0)
	require.ErrorIs(t, err, dashboard.ErrNoChartData)
}

func Test_RenderChart_Falls_Back_To_Default_Colors(t *testing.T) {
	t.Parallel()

	one, two := 1.0, 2.0

	for _, color := range []string{"", "blue", "#12", "zzzzzz", "#2563eb", "f00"} {
		spec := dashboard.ChartSpec{
			ID:     "x",
			Labels: []string{"10:00", "11:00"},
			Series: []dashboard.Series{{Name: "Sales", Color: color, Points: []*float64{&one, &two}}},
		}

		var buf bytes.Buffer

		require.NoError(t, dashboard.RenderChart(&buf, spec, dashboard.FormatSVG, 320, 200), "color %q", color)
	}

	empty := dashboard.ChartSpec{ID: "x", Series: []dashboard.Series{{Name: "Sales", Points: []*float64{nil, nil}}}}

	err := dashboard.RenderChart(&bytes.Buffer{}, empty, dashboard.FormatPNG, 0, 0)
	require.ErrorIs(t, err, dashboard.ErrNoChartData)
}

func Test_RenderCombined_Stacks_Drawable_Charts(t *testing.T) {
	t.Parallel()

	one, two := 1.0, 2.0
	points := []*float64{&one, &two}

	specs := []dashboard.ChartSpec{
		{ID: "a", Series: []dashboard.Series{{Name: "A", Points: points}}},
		{ID: "empty", Series: []dashboard.Series{{Name: "E", Points: []*float64{nil}}}},
		{ID: "b", Series: []dashboard.Series{{Name: "B", Points: points}}},
	}

	var buf bytes.Buffer

	require.NoError(t, dashboard.RenderCombined(&buf, specs, dashboard.FormatPNG, 320, 200))

	img, err := png.Decode(&buf)
	require.NoError(t, err)

	if got, want := img.Bounds().Size(), image.Pt(320, 200+30+200); got != want {
		t.Errorf("size=%v, want=%v", got, want)
	}

	var svg bytes.Buffer

	require.NoError(t, dashboard.RenderCombined(&svg, specs, dashboard.FormatSVG, 320, 200))

	if !strings.Contains(svg.String(), "data:image/png;base64,") {
		t.Errorf("svg does not embed the stacked image")
	}

	err = dashboard.RenderCombined(&bytes.Buffer{}, specs[1:2], dashboard.FormatPNG, 0, 0)
	require.ErrorIs(t, err, dashboard.ErrNoChartData)
}

func Test_ChartRenderer_Combined_Writes_One_File(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "charts")

	st := dashboard.NewState(sales.NewStore())
	st.Store.Replace(sales.DemoDataset(nil))
	st.Filter = sales.FullWindow(st.Store.Len())

	var written []string

	r := dashboard.ChartRenderer{
		Dir: dir, Format: dashboard.FormatJPEG, Panels: []string{"cume", "hourly"}, Combined: true,
		Written: func(p string) { written = append(written, filepath.Base(p)) },
	}
	require.NoError(t, r.Render(context.Background(), st))

	if diff := cmp.Diff([]string{"dashboard.jpg"}, written); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}
}

func Test_ChartRenderer_Writes_One_File_Per_Panel(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "charts")

	st := dashboard.NewState(sales.NewStore())
	st.Store.Replace(sales.DemoDataset(nil))
	st.Filter = sales.FullWindow(st.Store.Len())

	var written []string

	r := dashboard.ChartRenderer{Dir: dir, Format: dashboard.FormatSVG, Written: func(p string) { written = append(written, p) }}
	require.NoError(t, r.Render(context.Background(), st))

	for _, id := range []string{"hourly", "cume", "tu", "eff"} {
		_, err := os.Stat(filepath.Join(dir, id+".svg"))
		require.NoError(t, err, "chart %s", id)
	}

	if got, want := len(written), 4; got != want {
		t.Errorf("written=%d, want=%d", got, want)
	}
}
