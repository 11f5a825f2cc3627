package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/export"
	"github.com/printobs/printobs/internal/frost"
	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/obs"
	"github.com/printobs/printobs/internal/reconcile"
	"github.com/printobs/printobs/internal/timerange"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLIENT_ID", "FROST_V0_URL", "FROST_V1_URL", "FROST_API_VERSION", "FROST_REQUEST_TIMEOUT",
		"PRINTOBS_VARIABLES", "PRINTOBS_STATIONS", "CATALOG_DATABASE_URL", "LOG_LEVEL",
		"PRINTOBS_COMMAND", "PRINTOBS_FORMAT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-s", "draugen", "-d", "24", "--sd", "20220401", "-v", "v0", "--show", "level"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "draugen", opts.station)
	assert.Equal(t, 24, opts.delta)
	assert.Equal(t, "20220401", opts.start)
	assert.Equal(t, "v0", opts.version)
	assert.Equal(t, "level", opts.show)

	_, err = parseFlags([]string{"--nope"}, &bytes.Buffer{})
	var uerr *usageError
	assert.True(t, errors.As(err, &uerr))

	_, err = parseFlags([]string{"-d", "-3"}, &bytes.Buffer{})
	assert.True(t, errors.As(err, &uerr))

	_, err = parseFlags([]string{"draugen"}, &bytes.Buffer{})
	assert.True(t, errors.As(err, &uerr))

	_, err = parseFlags([]string{"--help"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestParseFlagsSingleDashDates(t *testing.T) {
	opts, err := parseFlags([]string{"-s", "draugen", "-sd", "20220401", "-ed=2022-04-04"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "draugen", opts.station)
	assert.Equal(t, "20220401", opts.start)
	assert.Equal(t, "2022-04-04", opts.end)

	assert.Equal(t, []string{"--sd", "x", "--", "-ed"}, legacyArgs([]string{"-sd", "x", "--", "-ed"}))
	assert.Equal(t, []string{"-s", "sdx"}, legacyArgs([]string{"-s", "sdx"}))
}

func TestRunListsStations(t *testing.T) {
	isolateEnv(t)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), nil, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "available locations")
	assert.Contains(t, stdout.String(), " 4 draugen\n")
}

func TestRunShortcuts(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PRINTOBS_COMMAND", "/opt/printobs")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--shortcuts"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "alias drg='/opt/printobs -s draugen'\n")
}

func TestRunFetchPrintExport(t *testing.T) {
	isolateEnv(t)
	body, err := os.ReadFile(filepath.Join("testdata", "v1_hs_two_sensors.json"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2022-04-01T00:00:00.000Z/2022-04-01T12:00:00.000Z", r.URL.Query().Get("time"))
		w.Write(body)
	}))
	defer srv.Close()
	t.Setenv("FROST_V1_URL", srv.URL)
	t.Setenv("CLIENT_ID", "test")
	t.Setenv("PRINTOBS_STATIONS", filepath.Join("testdata", "stations.yaml"))

	out := filepath.Join(t.TempDir(), "draugen.csv")
	var stdout bytes.Buffer
	err = run(context.Background(), []string{
		"-s", "draugen", "--start-date", "20220401", "--end-date", "2022-04-01-12", "-o", out,
	}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Hs_0 Hs_1")
	assert.Equal(t, lines[0], lines[4])
	assert.True(t, strings.HasSuffix(lines[3], "NaN"))
	assert.Equal(t, "--> draugen <--", lines[5])

	table, err := export.Read(out, "csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hs_0", "Hs_1"}, table.Keys())
}

func TestRunEmbeddedStationNeedsID(t *testing.T) {
	isolateEnv(t)
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()
	t.Setenv("FROST_V1_URL", srv.URL)

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-s", "draugen"}, &stdout, &bytes.Buffer{})
	assert.ErrorIs(t, err, catalog.ErrStationIDNotConfigured)
	assert.Contains(t, describe(err), "PRINTOBS_STATIONS")
	assert.Empty(t, stdout.String())
	assert.Zero(t, calls)
}

func TestRunUnknownStation(t *testing.T) {
	isolateEnv(t)

	err := run(context.Background(), []string{"-s", "atlantis"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, catalog.ErrStationNotFound)
	assert.Contains(t, describe(err), "without -s")
}

func TestExportTarget(t *testing.T) {
	res := &obs.Result{
		Station: models.StationSpec{Alias: "ula"},
		Interval: timerange.Interval{
			Start: time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2022, 4, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	_, _, ok := exportTarget(options{}, "", res)
	assert.False(t, ok)

	path, format, ok := exportTarget(options{format: "nc"}, "", res)
	assert.True(t, ok)
	assert.Equal(t, "ula_20220401T0000_20220401T1200.nc", path)
	assert.Equal(t, "nc", format)

	path, format, _ = exportTarget(options{output: "/tmp/x.parquet"}, "", res)
	assert.Equal(t, "/tmp/x.parquet", path)
	assert.Equal(t, "parquet", format)

	_, format, _ = exportTarget(options{output: "/tmp/x.dat"}, "p", res)
	assert.Equal(t, "p", format)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "frost request failed with status 401: Unauthorized",
		describe(&frost.FetchError{StatusCode: 401, Message: "Unauthorized"}))
	assert.Equal(t, "no observations returned for station ula in the requested period",
		describe(&reconcile.EmptyResultError{Station: "ula"}))
	assert.Contains(t, describe(&export.UnsupportedFormatError{Format: "xls"}), "report printed")
	assert.Equal(t, "boom", describe(errors.New("boom")))
}
