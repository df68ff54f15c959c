package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clkit/internal/cl"
	"github.com/cwbudde/clkit/internal/cl/clfake"
	"github.com/cwbudde/clkit/internal/config"
	"github.com/cwbudde/clkit/internal/devsel"
	"github.com/cwbudde/clkit/internal/errs"
	"github.com/cwbudde/clkit/internal/ocl"
	"github.com/cwbudde/clkit/internal/server"
	"github.com/cwbudde/clkit/internal/store"
)

// setup points the commands at the fake backend and a temporary profile
// directory, and resets command flags afterwards.
func setup(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	prev := cfg
	c := config.Default()
	c.Backend = config.BackendFake
	c.Profiles.Dir = t.TempDir()
	cfg = &c

	t.Cleanup(func() {
		cfg = prev
		filterTerms, saveAs, fromProfile = nil, "", ""
		devicesJSON = false
		keepLast, olderThanDays, forceClean = 0, 0, false
	})

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(""))
	return cmd, &out
}

func TestDevicesTable(t *testing.T) {
	cmd, out := setup(t)

	require.NoError(t, runDevices(cmd, nil))
	assert.Contains(t, out.String(), "clkit GPU device")
	assert.Contains(t, out.String(), "clkit CPU device #2")
	assert.Contains(t, out.String(), "0. clkit test platform #0")
	assert.Contains(t, out.String(), "1.0 GiB")
	assert.Contains(t, out.String(), "8.0 GiB")
	assert.Contains(t, out.String(), "MEMORY")
}

func TestDevicesJSON(t *testing.T) {
	cmd, out := setup(t)
	devicesJSON = true

	require.NoError(t, runDevices(cmd, nil))
	var infos []devsel.DeviceInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
	require.Len(t, infos, 4)
	assert.Equal(t, "clkit Accelerator device", infos[2].Name)
	assert.Equal(t, "Accelerator", infos[2].Type)
}

func TestDevicesTableUnknownValues(t *testing.T) {
	table := devicesTable([]devsel.DeviceInfo{{Index: 0, Name: "bare", Type: "GPU", Platform: "p"}})
	assert.Contains(t, table, "bare")
	assert.Contains(t, table, "-")
}

func TestSelect(t *testing.T) {
	cmd, out := setup(t)
	filterTerms = []string{"cpu"}

	require.NoError(t, runSelect(cmd, nil))
	assert.Contains(t, out.String(), "Platform: clkit test platform #0\n")
	assert.Contains(t, out.String(), "  1. clkit CPU device (CPU, FakenMC)\n")
	assert.NotContains(t, out.String(), "#2")
}

func TestSelectSaveAndReuse(t *testing.T) {
	cmd, out := setup(t)
	filterTerms = []string{"accel"}
	saveAs = "acc"

	require.NoError(t, runSelect(cmd, nil))
	assert.Contains(t, out.String(), `Saved profile "acc" (accel)`)

	st, err := store.NewFSStore(cfg.Profiles.Dir)
	require.NoError(t, err)
	p, err := st.Load("acc")
	require.NoError(t, err)
	assert.Equal(t, []string{"accel"}, p.Filters)
	assert.Equal(t, "clkit Accelerator device", p.Devices[0].Name)
	assert.Equal(t, "clkit test platform #1", p.Devices[0].Platform)

	out.Reset()
	filterTerms, saveAs, fromProfile = nil, "", "acc"
	require.NoError(t, runSelect(cmd, nil))
	assert.Contains(t, out.String(), "2. clkit Accelerator device")

	fromProfile = "missing"
	assert.True(t, store.IsNotFound(runSelect(cmd, nil)))
}

func TestSelectConfigFilters(t *testing.T) {
	cmd, out := setup(t)
	cfg.Select.Filters = []string{"menu=3"}

	require.NoError(t, runSelect(cmd, nil))
	assert.Contains(t, out.String(), "3. clkit CPU device #2 (CPU, OtherVendor)")
}

func TestSelectErrors(t *testing.T) {
	cmd, _ := setup(t)

	filterTerms = []string{"type=custom"}
	err := runSelect(cmd, nil)
	assert.True(t, errs.Is(err, errs.DeviceNotFound))
	assert.Equal(t, 5, exitCode(err))

	filterTerms = []string{"nonsense"}
	err = runSelect(cmd, nil)
	assert.True(t, errs.Is(err, errs.Args))
	assert.Equal(t, 2, exitCode(err))

	filterTerms = []string{"gpu"}
	saveAs = "../bad"
	assert.Error(t, runSelect(cmd, nil))
}

func TestInfo(t *testing.T) {
	cmd, out := setup(t)

	require.NoError(t, runInfo(cmd, []string{"0", "name", "type", "compute-units", "global-mem", "max-work-group"}))
	assert.Contains(t, out.String(), "name:           clkit GPU device\n")
	assert.Contains(t, out.String(), "type:           GPU\n")
	assert.Contains(t, out.String(), "compute-units:  16\n")
	assert.Contains(t, out.String(), "1.0 GiB (1073741824 bytes)")
	assert.Contains(t, out.String(), "max-work-group: 512\n")
}

func TestInfoErrors(t *testing.T) {
	cmd, _ := setup(t)

	assert.True(t, errs.Is(runInfo(cmd, []string{"x", "name"}), errs.Args))
	assert.True(t, errs.Is(runInfo(cmd, []string{"0", "colour"}), errs.Args))
	assert.True(t, errs.Is(runInfo(cmd, []string{"9", "name"}), errs.DeviceNotFound))
}

func TestInfoParamNames(t *testing.T) {
	names := infoParamNames()
	assert.Contains(t, names, "driver-version")
	assert.IsIncreasing(t, names)
	assert.Contains(t, infoCmd.Long, "global-mem")
}

func saveProfile(t *testing.T, name string, age time.Duration) {
	t.Helper()
	st, err := store.NewFSStore(cfg.Profiles.Dir)
	require.NoError(t, err)
	p := store.NewProfile(name, []string{"gpu"}, nil)
	p.Timestamp = time.Now().Add(-age)
	require.NoError(t, st.Save(p))
}

func TestProfilesCommands(t *testing.T) {
	cmd, out := setup(t)

	require.NoError(t, runListProfiles(cmd, nil))
	assert.Contains(t, out.String(), "No profiles found.")

	saveProfile(t, "fast", time.Hour)
	saveProfile(t, "slow", 0)

	out.Reset()
	require.NoError(t, runListProfiles(cmd, nil))
	assert.Contains(t, out.String(), "fast")
	assert.Contains(t, out.String(), "1 hour ago")
	assert.Contains(t, out.String(), "Total profiles: 2")

	out.Reset()
	require.NoError(t, runShowProfile(cmd, []string{"fast"}))
	var p store.Profile
	require.NoError(t, json.Unmarshal(out.Bytes(), &p))
	assert.Equal(t, "fast", p.Name)

	out.Reset()
	require.NoError(t, runDeleteProfiles(cmd, []string{"fast", "slow"}))
	assert.Contains(t, out.String(), `Deleted profile "slow"`)
	assert.True(t, store.IsNotFound(runDeleteProfiles(cmd, []string{"fast"})))
	assert.True(t, store.IsNotFound(runShowProfile(cmd, []string{"fast"})))
}

func TestSelectProfilesForDeletion(t *testing.T) {
	now := time.Now()
	infos := []store.ProfileInfo{
		{Name: "p1", Timestamp: now.AddDate(0, 0, -10)},
		{Name: "p2", Timestamp: now.AddDate(0, 0, -5)},
		{Name: "p3", Timestamp: now.AddDate(0, 0, -1)},
		{Name: "p4", Timestamp: now.AddDate(0, 0, -30)},
	}
	names := func(in []store.ProfileInfo) []string {
		out := make([]string, len(in))
		for i, p := range in {
			out[i] = p.Name
		}
		return out
	}

	tests := []struct {
		name      string
		keepLast  int
		olderThan int
		want      []string
	}{
		{"by age", 0, 7, []string{"p4", "p1"}},
		{"by count", 2, 0, []string{"p4", "p1"}},
		{"combined", 3, 3, []string{"p4", "p1", "p2"}},
		{"keep all", 10, 0, nil},
		{"nothing old enough", 0, 60, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectProfilesForDeletion(infos, tt.keepLast, tt.olderThan, now)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestCleanProfiles(t *testing.T) {
	cmd, out := setup(t)
	assert.Error(t, runCleanProfiles(cmd, nil), "a retention policy is required")

	saveProfile(t, "old", 30*24*time.Hour)
	saveProfile(t, "new", 0)
	olderThanDays = 7

	cmd.SetIn(strings.NewReader("n\n"))
	require.NoError(t, runCleanProfiles(cmd, nil))
	assert.Contains(t, out.String(), "Aborted.")

	st, err := store.NewFSStore(cfg.Profiles.Dir)
	require.NoError(t, err)
	_, err = st.Load("old")
	require.NoError(t, err)

	out.Reset()
	cmd.SetIn(strings.NewReader("y\n"))
	require.NoError(t, runCleanProfiles(cmd, nil))
	assert.Contains(t, out.String(), "Deleted 1 profile(s), 0 failed.")
	_, err = st.Load("old")
	assert.True(t, store.IsNotFound(err))
	_, err = st.Load("new")
	assert.NoError(t, err)

	forceClean = true
	keepLast, olderThanDays = 1, 0
	out.Reset()
	require.NoError(t, runCleanProfiles(cmd, nil))
	assert.Contains(t, out.String(), "No profiles match deletion criteria.")
}

func TestStatus(t *testing.T) {
	cmd, out := setup(t)

	session := ocl.NewSession(clfake.NewDefault())
	srv := server.NewServer(":0", session)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		assert.NoError(t, srv.Selections().ReleaseAll())
		assert.NoError(t, session.Close())
	})
	prev := serverURL
	serverURL = ts.URL
	t.Cleanup(func() { serverURL = prev })

	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, out.String(), "Registry: 0 live wrapper(s)")
	assert.Contains(t, out.String(), "No selections held")

	resp, err := http.Post(ts.URL+"/api/v1/selections", "application/json", strings.NewReader(`{"filters":["gpu"]}`))
	require.NoError(t, err)
	var sel server.Selection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sel))
	resp.Body.Close()

	out.Reset()
	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, out.String(), "Registry: 2 live wrapper(s)")
	assert.Contains(t, out.String(), "  Device: 1\n  Platform: 1\n")
	assert.Contains(t, out.String(), "Found 1 selection(s)")
	assert.Contains(t, out.String(), "0. clkit GPU device (GPU, 1.0 GiB)")

	out.Reset()
	require.NoError(t, runStatus(cmd, []string{sel.ID}))
	assert.Contains(t, out.String(), "Selection: "+sel.ID)

	err = runStatus(cmd, []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selection_not_found")
}

func TestOpenAPI(t *testing.T) {
	api, err := openAPI(config.BackendFake)
	require.NoError(t, err)
	assert.IsType(t, &clfake.API{}, api)

	_, err = openAPI("cuda")
	assert.Error(t, err)

	if _, openErr := cl.Open(); errors.Is(openErr, cl.ErrNotBuilt) {
		api, err = openAPI(config.BackendAuto)
		require.NoError(t, err)
		assert.IsType(t, &clfake.API{}, api)

		_, err = openAPI(config.BackendOpenCL)
		assert.ErrorIs(t, err, cl.ErrNotBuilt)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json")
	l.Info("hidden")
	l.Warn("shown", "key", "value")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "value", rec["key"])

	buf.Reset()
	l = newLogger(&buf, "debug", "text")
	l.Debug("details", "n", 3)
	assert.Contains(t, buf.String(), "details")
	assert.Contains(t, buf.String(), "n=3")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, int(errs.DeviceNotFound), exitCode(errs.New(errs.DeviceNotFound, "select", "none")))
	assert.Equal(t, int(errs.Other), exitCode(errors.New("plain")))
}

func TestRootCommandLoadsConfig(t *testing.T) {
	prevCfg, prevLogger := cfg, slog.Default()
	t.Cleanup(func() {
		cfg = prevCfg
		slog.SetDefault(prevLogger)
	})

	path := filepath.Join(t.TempDir(), "clkit.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = \"fake\"\n[log]\nlevel = \"debug\"\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--config", path, "--log-format", "json", "version"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "clkit version "+version)
	require.NotNil(t, cfg)
	assert.Equal(t, config.BackendFake, cfg.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}
