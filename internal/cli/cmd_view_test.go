package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/salesdash/internal/cli"
)

func Test_Filter_Window_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	stdout := c.MustRun("filter", "--start", "11:00", "--end", "12:00")
	cli.AssertContains(t, stdout, "window:   11:00 AM - 12:00 PM (rows 1-2 of 4)")
	cli.AssertContains(t, stdout, "matching: 2")

	table := c.MustRun("table")
	cli.AssertContains(t, table, "11:00 AM")
	cli.AssertNotContains(t, table, "10:00 AM")
	cli.AssertNotContains(t, table, "1:00 PM")

	// Later invocations keep the window; only the threshold changes.
	stdout = c.MustRun("filter", "--min-txn", "4")
	cli.AssertContains(t, stdout, "rows 1-2 of 4")
	cli.AssertContains(t, stdout, "matching: 1")

	stdout = c.MustRun("filter", "--clear")
	cli.AssertContains(t, stdout, "rows 0-3 of 4")
	cli.AssertContains(t, stdout, "min-txn:  0")
}

func Test_Filter_Clamps_And_Orders_Bounds_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	stdout := c.MustRun("filter", "--start", "3", "--end", "99")
	cli.AssertContains(t, stdout, "rows 3-3 of 4")

	stdout = c.MustRun("filter", "--start", "2", "--end", "0")
	cli.AssertContains(t, stdout, "rows 2-2 of 4")
}

func Test_Filter_Period_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	stdout := c.MustRun("filter", "--period", "noon")
	cli.AssertContains(t, stdout, "rows 2-3 of 4")

	stderr := c.MustFail("filter", "--period", "brunch")
	cli.AssertContains(t, stderr, "brunch")

	stderr = c.MustFail("filter", "--period", "morning", "--start", "10:00")
	cli.AssertContains(t, stderr, "--period cannot be combined")
}

func Test_Filter_Overlay_Toggles_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	stdout := c.MustRun("filter", "--target", "off", "--ly", "off")
	cli.AssertContains(t, stdout, "target:   off")
	cli.AssertContains(t, stdout, "ly:       off")

	table := c.MustRun("table")
	cli.AssertNotContains(t, table, "Cum Target")
	cli.AssertNotContains(t, table, "LY")

	c.MustRun("filter", "--target", "on")

	table = c.MustRun("table")
	cli.AssertContains(t, table, "Cum Target")

	stderr := c.MustFail("filter", "--ly", "maybe")
	cli.AssertContains(t, stderr, "invalid value")
}

func Test_Filter_Without_Data_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got, want := c.MustRun("filter"), "No data loaded."; got != want {
		t.Errorf("filter=%q, want=%q", got, want)
	}

	stderr := c.MustFail("filter", "--start", "1")
	cli.AssertContains(t, stderr, "no data loaded")
}

func Test_Table_Empty_Window_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	c.MustRun("filter", "--min-txn", "100")

	if got, want := c.MustRun("table"), "No rows match the current filter."; got != want {
		t.Errorf("table=%q, want=%q", got, want)
	}

	cli.AssertContains(t, c.MustRun("kpi"), "—")
}

func Test_Table_Time_Format_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	c.MustRun("layout", "time-format", "24hr")

	table := c.MustRun("table")
	cli.AssertContains(t, table, "13:00")
	cli.AssertNotContains(t, table, "PM")
}

func Test_Chart_JSON_Keeps_Gaps_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	stdout := c.MustRun("chart", "--json")
	cli.AssertContains(t, stdout, `"id": "hourly"`)
	cli.AssertContains(t, stdout, `"id": "cume"`)
	cli.AssertContains(t, stdout, "null")
}

func Test_Chart_Images_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)

	stdout := c.MustRun("chart", "--out", "img", "--format", "svg", "--panel", "hourly,cume")
	cli.AssertContains(t, stdout, "Wrote hourly.svg")
	cli.AssertContains(t, stdout, "Wrote cume.svg")
	cli.AssertNotContains(t, stdout, "tu.svg")

	data, err := os.ReadFile(filepath.Join(c.Dir, "img", "hourly.svg"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "<svg"))
}

func Test_Chart_Combined_Image_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)
	c.MustRun("layout", "set", "eff", "--visible", "off")

	stdout := c.MustRun("chart", "--combined", "--format", "jpeg", "--out", "img")
	cli.AssertContains(t, stdout, "Wrote dashboard.jpg")
	cli.AssertNotContains(t, stdout, "hourly.jpeg")

	data, err := os.ReadFile(filepath.Join(c.Dir, "img", "dashboard.jpg"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "\xff\xd8"), "not a JPEG")

	stderr := c.MustFail("chart", "--format", "jpeg")
	cli.AssertContains(t, stderr, "unknown format")
}

func Test_Chart_Errors_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("chart")
	cli.AssertContains(t, stderr, "no data loaded")

	loadDay(t, c)

	stderr = c.MustFail("chart", "--format", "gif")
	cli.AssertContains(t, stderr, "unknown format")

	stderr = c.MustFail("chart", "--panel", "table")
	cli.AssertContains(t, stderr, "unknown panel")
}

func Test_Dashboard_Follows_Layout_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env[cli.EnvNow] = "2024-01-17T12:00:00Z"
	loadDay(t, c)
	c.MustRun("library", "save", "--date", "2024-01-15")

	stdout := c.MustRun("dashboard")
	cli.AssertContains(t, stdout, "Day Sales")
	cli.AssertContains(t, stdout, "Cum Sales")
	cli.AssertContains(t, stdout, "Week 2024-W03")
	cli.AssertContains(t, stdout, "2024-01-15")

	c.MustRun("layout", "set", "table", "--visible", "off")
	c.MustRun("layout", "set", "week", "--visible", "off")

	stdout = c.MustRun("dashboard")
	cli.AssertContains(t, stdout, "Day Sales")
	cli.AssertNotContains(t, stdout, "Cum Sales")
	cli.AssertNotContains(t, stdout, "Week")
}

func Test_Dashboard_Charts_Skip_Hidden_Panels_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	loadDay(t, c)
	c.MustRun("layout", "set", "eff", "--visible", "off")

	stdout := c.MustRun("dashboard", "--charts", "out")
	cli.AssertContains(t, stdout, "Wrote hourly.png")
	cli.AssertNotContains(t, stdout, "eff.png")

	_, err := os.Stat(filepath.Join(c.Dir, "out", "eff.png"))
	require.True(t, os.IsNotExist(err))
}

func Test_Forecast_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("demo")

	stdout := c.MustRun("forecast", "--periods", "2")
	cli.AssertContains(t, stdout, "trend:")
	cli.AssertContains(t, stdout, "8:00 PM")
	cli.AssertContains(t, stdout, "9:00 PM")

	c.MustRun("filter", "--start", "10:00", "--end", "10:00")

	stderr := c.MustFail("forecast")
	cli.AssertContains(t, stderr, "at least 2 rows")
}
