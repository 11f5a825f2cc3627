package frost

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("V1")
	require.NoError(t, err)
	assert.Equal(t, V1, v)

	_, err = ParseVersion("v2")
	assert.True(t, errors.Is(err, ErrUnknownVersion))
}

func TestV1Parser(t *testing.T) {
	series, err := v1Parser{}.Parse(readFixture(t, "v1_hs_two_sensors.json"))
	require.NoError(t, err)
	require.Len(t, series, 2)

	s0, s1 := series[0], series[1]
	assert.Equal(t, "sea_surface_wave_significant_height", s0.Variable)
	assert.Equal(t, 0, s0.SensorID)
	assert.Equal(t, 1, s1.SensorID)
	assert.Equal(t, 301, s1.ParameterID)

	require.Len(t, s0.Samples, 3)
	assert.True(t, time.Date(2022, 4, 1, 0, 20, 0, 0, time.UTC).Equal(s0.Samples[1].Time))
	require.NotNil(t, s0.Samples[0].Value)
	assert.Equal(t, 1.2, *s0.Samples[0].Value)

	require.NotNil(t, s1.Samples[1].Value)
	assert.Equal(t, 1.25, *s1.Samples[1].Value)
	// the sentinel is passed through; the reconciler owns the missing-value rule
	require.NotNil(t, s1.Samples[2].Value)
	assert.Equal(t, -999.0, *s1.Samples[2].Value)
}

func TestV1ParserMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":       `<html>`,
		"no data":        `{"foo": 1}`,
		"no tseries":     `{"data": {}}`,
		"no element id":  `{"data": {"tseries": [{"header": {}, "observations": []}]}}`,
		"bad time stamp": `{"data": {"tseries": [{"header": {"extra": {"element": {"id": "x"}}}, "observations": [{"time": "noon"}]}]}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v1Parser{}.Parse([]byte(body))
			var merr *MalformedResponseError
			require.True(t, errors.As(err, &merr), "got %v", err)
			assert.Equal(t, V1, merr.Version)
		})
	}
}

func TestV1ParserEmptySeries(t *testing.T) {
	series, err := v1Parser{}.Parse([]byte(`{"data": {"tseries": []}}`))
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestV1ParserMissingValues(t *testing.T) {
	body := `{"data": {"tseries": [{
		"header": {"id": {"sensor": 2, "level": 10, "parameterid": 81}, "extra": {"element": {"id": "wind_speed"}}},
		"observations": [
			{"time": "2022-04-01T00:00:00Z", "body": {"data": null}},
			{"time": "2022-04-01T00:10:00Z", "body": {"data": ""}},
			{"time": "2022-04-01T00:20:00Z", "body": {}},
			{"time": "2022-04-01T00:30:00Z", "body": {"data": "4.5"}}
		]}]}}`
	series, err := v1Parser{}.Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, series, 1)

	s := series[0]
	assert.Equal(t, 2, s.SensorID)
	assert.Equal(t, 10.0, s.Level)
	assert.Nil(t, s.Samples[0].Value)
	assert.Nil(t, s.Samples[1].Value)
	assert.Nil(t, s.Samples[2].Value)
	require.NotNil(t, s.Samples[3].Value)
	assert.Equal(t, 4.5, *s.Samples[3].Value)
}

func TestV0Parser(t *testing.T) {
	series, err := v0Parser{}.Parse(readFixture(t, "v0_basic.json"))
	require.NoError(t, err)
	require.Len(t, series, 3)

	ta := series[0]
	assert.Equal(t, "air_temperature", ta.Variable)
	assert.Equal(t, 2.0, ta.Level)
	require.Len(t, ta.Samples, 2)
	assert.Equal(t, 7.1, *ta.Samples[1].Value)

	ff0 := series[1]
	assert.Equal(t, "wind_speed", ff0.Variable)
	assert.Equal(t, 0, ff0.SensorID)
	require.Len(t, ff0.Samples, 2)
	assert.Nil(t, ff0.Samples[1].Value)

	ff1 := series[2]
	assert.Equal(t, 1, ff1.SensorID)
	require.Len(t, ff1.Samples, 1)
}

func TestV0ParserMalformed(t *testing.T) {
	_, err := v0Parser{}.Parse([]byte(`{"data": null}`))
	var merr *MalformedResponseError
	require.True(t, errors.As(err, &merr))

	_, err = v0Parser{}.Parse([]byte(`{"data": [{"referenceTime": "later"}]}`))
	assert.True(t, errors.As(err, &merr))
}

func TestSensorFromSource(t *testing.T) {
	assert.Equal(t, 0, sensorFromSource("SN76925"))
	assert.Equal(t, 3, sensorFromSource("SN76925:3"))
	assert.Equal(t, 0, sensorFromSource("SN76925:x"))
}

func TestResponseSeriesDispatchesOnVersion(t *testing.T) {
	r := &Response{Version: V0, Body: readFixture(t, "v0_basic.json")}
	series, err := r.Series()
	require.NoError(t, err)
	assert.Len(t, series, 3)

	r = &Response{Version: "v9"}
	_, err = r.Series()
	assert.True(t, errors.Is(err, ErrUnknownVersion))
}
