package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/salesdash/internal/app"
	"github.com/calvinalkan/salesdash/internal/dashboard"
	"github.com/calvinalkan/salesdash/internal/kv"
	"github.com/calvinalkan/salesdash/internal/sales"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func Test_LoadConfig_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")

	writeFile(t, filepath.Join(xdg, "salesdash", "config.json"), `{"data_dir": "global-data", "locale": "de-DE"}`)
	writeFile(t, filepath.Join(dir, app.ConfigFileName), `{
		// project wins over global
		"data_dir": "project-data",
		"backend": "sqlite",
	}`)

	cfg, err := app.LoadConfig(app.LoadConfigInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)

	if got, want := cfg.DataDirAbs, filepath.Join(dir, "project-data"); got != want {
		t.Errorf("DataDirAbs=%q, want=%q", got, want)
	}

	if got, want := cfg.Backend, kv.BackendSQLite; got != want {
		t.Errorf("Backend=%q, want=%q", got, want)
	}

	if got, want := cfg.Locale, "de-DE"; got != want {
		t.Errorf("Locale=%q, want=%q", got, want)
	}

	want := app.ConfigSources{
		Global:  filepath.Join(xdg, "salesdash", "config.json"),
		Project: filepath.Join(dir, app.ConfigFileName),
	}
	if diff := cmp.Diff(want, cfg.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}

	cfg, err = app.LoadConfig(app.LoadConfigInput{
		WorkDirOverride: dir,
		DataDirOverride: "/abs/data",
		BackendOverride: kv.BackendDir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)
	require.Equal(t, "/abs/data", cfg.DataDirAbs)
	require.Equal(t, kv.BackendDir, cfg.Backend)
}

func Test_LoadConfig_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty.json"), `{"data_dir": ""}`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{nope}`)
	writeFile(t, filepath.Join(dir, "redis.json"), `{"backend": "redis"}`)

	for _, tt := range []struct {
		path string
		want error
	}{
		{path: "missing.json", want: app.ErrConfigFileNotFound},
		{path: "empty.json", want: app.ErrDataDirEmpty},
		{path: "broken.json", want: app.ErrConfigInvalid},
		{path: "redis.json", want: app.ErrBackendInvalid},
	} {
		_, err := app.LoadConfig(app.LoadConfigInput{WorkDirOverride: dir, ConfigPath: tt.path, Env: map[string]string{}})
		require.ErrorIs(t, err, tt.want, tt.path)
	}
}

func openSession(t *testing.T, store kv.Store) *app.Session {
	t.Helper()

	s, err := app.Open(context.Background(), app.DefaultConfig(), app.Options{Store: store})
	require.NoError(t, err)

	return s
}

func Test_Session_Persists_Dataset_And_Filter_Across_Opens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()

	first := openSession(t, store)
	require.False(t, first.Loaded())

	ds := sales.DemoDataset(nil)
	require.NoError(t, first.LoadDataset(ctx, ds))
	require.True(t, first.Loaded())

	if got, want := first.State.Filter, sales.FullWindow(len(ds.Hourly)); got != want {
		t.Errorf("Filter after load=%+v, want=%+v", got, want)
	}

	got, err := first.SetFilter(ctx, sales.FilterSpec{StartIdx: 2, EndIdx: 99, MinTxn: 3})
	require.NoError(t, err)
	require.Equal(t, sales.FilterSpec{StartIdx: 2, EndIdx: len(ds.Hourly) - 1, MinTxn: 3}, got)

	require.NoError(t, first.SetOverlays(ctx, sales.Overlays{ShowTarget: true}))

	second := openSession(t, store)
	require.Empty(t, second.Warnings)
	require.True(t, second.Loaded())
	require.Equal(t, got, second.State.Filter)
	require.Equal(t, sales.Overlays{ShowTarget: true}, second.State.Overlays)

	if diff := cmp.Diff(ds.Hourly, second.Dataset().Hourly); diff != "" {
		t.Errorf("restored hourly mismatch (-want +got):\n%s", diff)
	}
}

func Test_Session_Reset_Keeps_Library_And_Prefs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()
	s := openSession(t, store)

	require.NoError(t, s.LoadDataset(ctx, sales.DemoDataset(nil)))

	res, err := s.Library.SaveNew(ctx, s.Dataset(), "2024-01-15", "")
	require.NoError(t, err)
	require.True(t, res.OK)

	require.NoError(t, s.Prefs.SetVisible(ctx, "hourly", false))
	require.NoError(t, s.Reset(ctx))
	require.False(t, s.Loaded())

	keys, err := kv.Keys(ctx, store, "")
	require.NoError(t, err)
	require.NotContains(t, keys, app.KeyDataset)
	require.NotContains(t, keys, app.KeyFilter)
	require.Contains(t, keys, "view:wrap-hourly")
	require.Contains(t, keys, "lib:index")
}

func Test_Session_Ignores_Malformed_Saved_Dataset_With_Warning(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, kv.Put(ctx, store, app.KeyDataset, []byte(`[1,2,3]`)))

	s := openSession(t, store)
	require.False(t, s.Loaded())
	require.Len(t, s.Warnings, 1)
}

type countingRenderer struct{ calls int }

func (*countingRenderer) Name() string { return "counting" }

func (r *countingRenderer) Render(context.Context, *dashboard.State) error {
	r.calls++

	return nil
}

func Test_Session_Coalesces_Changes_Into_One_Render(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openSession(t, kv.NewMemory())

	r := &countingRenderer{}
	s.Scheduler.Subscribe(r)

	require.NoError(t, s.LoadDataset(ctx, sales.DemoDataset(nil)))
	_, err := s.SetFilter(ctx, sales.FilterSpec{StartIdx: 1, EndIdx: 5})
	require.NoError(t, err)
	require.NoError(t, s.SetOverlays(ctx, sales.DefaultOverlays()))

	require.NoError(t, s.Render(ctx))
	require.NoError(t, s.Render(ctx))

	if got, want := r.calls, 1; got != want {
		t.Errorf("render calls=%d, want=%d", got, want)
	}
}
