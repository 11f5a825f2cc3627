package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/catalog"
	shared "github.com/printobs/printobs/internal/config"
	"github.com/printobs/printobs/internal/frost"
	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/obs"
	"github.com/printobs/printobs/services/api/config"
)

type testEnv struct {
	server   *Server
	frost    *httptest.Server
	requests int
}

func newTestEnv(t *testing.T, token string, frostHandler http.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{}

	env.frost = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.requests++
		frostHandler(w, r)
	}))
	t.Cleanup(env.frost.Close)

	vars, err := catalog.DefaultVariables()
	require.NoError(t, err)
	stations, err := catalog.NewStations([]models.StationSpec{
		{Alias: "draugen", StationID: "76925", Abbrev: "drg"},
		{Alias: "ula", StationID: "76926"},
	})
	require.NoError(t, err)

	cfg := config.Config{
		Config: shared.Config{
			FrostV1URL:     env.frost.URL,
			ClientID:       "test",
			APIVersion:     frost.V1,
			RequestTimeout: 5 * time.Second,
		},
		Port:               8080,
		BearerToken:        token,
		ObservationTimeout: 5 * time.Second,
	}
	svc := obs.New(obs.NewFrostClient(cfg.Config, zap.NewNop()), vars, stations, cfg.RequestTimeout, zap.NewNop())
	env.server = New(cfg, svc, zap.NewNop())
	env.server.now = func() time.Time { return time.Date(2022, 4, 1, 9, 0, 0, 0, time.UTC) }
	return env
}

func serveFixture(t *testing.T) http.HandlerFunc {
	body, err := os.ReadFile(filepath.Join("testdata", "v1_hs_two_sensors.json"))
	require.NoError(t, err)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}
}

func (e *testEnv) get(path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, "", serveFixture(t))
	rec := env.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = env.get("/healthz", "X-Request-ID", "abc")
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestListStations(t *testing.T) {
	env := newTestEnv(t, "", serveFixture(t))
	rec := env.get("/api/v1/core/stations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	body := decode(t, rec)
	assert.Equal(t, 2.0, body["meta"].(map[string]any)["count"])
	first := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "draugen", first["alias"])
	assert.Equal(t, "22", first["typeids"])
}

func TestGetStation(t *testing.T) {
	env := newTestEnv(t, "", serveFixture(t))

	rec := env.get("/api/v1/core/stations/ula")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "76926", decode(t, rec)["data"].(map[string]any)["station_id"])

	rec = env.get("/api/v1/core/stations/atlantis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"station not found"}`, rec.Body.String())
}

func TestListVariables(t *testing.T) {
	env := newTestEnv(t, "", serveFixture(t))
	rec := env.get("/api/v1/core/variables")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6.0, decode(t, rec)["meta"].(map[string]any)["count"])
}

func TestObservationsJSON(t *testing.T) {
	env := newTestEnv(t, "", serveFixture(t))
	rec := env.get("/api/v1/observations/draugen?start=20220401&end=2022-04-01-12")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.requests)

	body := decode(t, rec)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, 3.0, meta["rows"])
	assert.Equal(t, []any{"Hs_0", "Hs_1"}, meta["columns"])
	assert.Equal(t, "2022-04-01T00:00:00Z", meta["start"])

	table := body["data"].(map[string]any)["table"].(map[string]any)
	cols := table["columns"].([]any)
	hs1 := cols[1].(map[string]any)
	assert.Equal(t, "Hs_1", hs1["key"])
	assert.Equal(t, []any{1.1, 1.25, nil}, hs1["values"])
}

func TestObservationsText(t *testing.T) {
	env := newTestEnv(t, "", serveFixture(t))
	rec := env.get("/api/v1/observations/draugen?start=20220401&end=2022-04-01-12&format=text&show=sensor")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasSuffix(lines[1], "0    1"), lines[1])
	assert.Equal(t, "--> draugen <--", lines[6])
}

func TestObservationsErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		frost  http.HandlerFunc
		status int
	}{
		{"unknown station", "/api/v1/observations/atlantis", nil, http.StatusNotFound},
		{"bad date", "/api/v1/observations/draugen?start=someday", nil, http.StatusBadRequest},
		{"inverted range", "/api/v1/observations/draugen?start=20220402&end=20220401", nil, http.StatusBadRequest},
		{"bad delta", "/api/v1/observations/draugen?delta=-2", nil, http.StatusBadRequest},
		{"bad version", "/api/v1/observations/draugen?version=v7", nil, http.StatusBadRequest},
		{"bad format", "/api/v1/observations/draugen?format=xml", nil, http.StatusBadRequest},
		{"bad show", "/api/v1/observations/draugen?show=color", nil, http.StatusBadRequest},
		{"empty result", "/api/v1/observations/draugen", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {"tseries": []}}`))
		}, http.StatusNotFound},
		{"remote rejects", "/api/v1/observations/draugen", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "Unauthorized", "reason": "Invalid client id"}}`))
		}, http.StatusBadGateway},
		{"malformed", "/api/v1/observations/draugen", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {}}`))
		}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.frost
			if handler == nil {
				handler = func(w http.ResponseWriter, r *http.Request) {
					t.Errorf("unexpected frost request %s", r.URL)
				}
			}
			env := newTestEnv(t, "", handler)
			rec := env.get(tt.path)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestBearerAuth(t *testing.T) {
	env := newTestEnv(t, "s3cret", serveFixture(t))

	assert.Equal(t, http.StatusUnauthorized, env.get("/api/v1/core/stations").Code)
	assert.Equal(t, http.StatusUnauthorized, env.get("/api/v1/core/stations", "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/v1/core/stations", "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, env.get("/healthz").Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, "s3cret", serveFixture(t))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/core/stations", nil)
	rec := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
