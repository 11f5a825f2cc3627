package frost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/printobs/printobs/internal/models"
)

// Version tags the response schema of the observation API.
type Version string

const (
	V0 Version = "v0"
	V1 Version = "v1"
)

// ParseVersion validates a version tag.
func ParseVersion(s string) (Version, error) {
	switch v := Version(strings.ToLower(strings.TrimSpace(s))); v {
	case V0, V1:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
}

// Parser flattens a raw payload into one series per reported
// (variable, sensor, parameter id, level), in payload order.
type Parser interface {
	Parse(body []byte) ([]models.Series, error)
}

// ParserFor returns the parser for a response schema version.
func ParserFor(v Version) (Parser, error) {
	switch v {
	case V0:
		return v0Parser{}, nil
	case V1:
		return v1Parser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, v)
	}
}

// flexValue accepts numbers, numeric strings and null. Anything else is missing.
type flexValue struct {
	v *float64
}

func (f *flexValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if x, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.v = &x
		}
		return nil
	}
	var x float64
	if err := json.Unmarshal(b, &x); err != nil {
		return nil
	}
	f.v = &x
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type v1Document struct {
	Data *struct {
		TSeries *[]v1Series `json:"tseries"`
	} `json:"data"`
}

type v1Series struct {
	Header struct {
		ID struct {
			Sensor      int     `json:"sensor"`
			Level       float64 `json:"level"`
			ParameterID int     `json:"parameterid"`
		} `json:"id"`
		Extra struct {
			Element struct {
				ID string `json:"id"`
			} `json:"element"`
		} `json:"extra"`
	} `json:"header"`
	Observations []struct {
		Time string `json:"time"`
		Body struct {
			Data flexValue `json:"data"`
		} `json:"body"`
	} `json:"observations"`
}

type v1Parser struct{}

func (v1Parser) Parse(body []byte) ([]models.Series, error) {
	var doc v1Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &MalformedResponseError{Version: V1, Reason: "invalid JSON", Err: err}
	}
	if doc.Data == nil {
		return nil, &MalformedResponseError{Version: V1, Reason: `missing "data"`}
	}
	if doc.Data.TSeries == nil {
		return nil, &MalformedResponseError{Version: V1, Reason: `missing "data.tseries"`}
	}

	raw := *doc.Data.TSeries
	out := make([]models.Series, 0, len(raw))
	for i, ts := range raw {
		element := ts.Header.Extra.Element.ID
		if element == "" {
			return nil, &MalformedResponseError{Version: V1, Reason: fmt.Sprintf("tseries[%d] has no element id", i)}
		}

		s := models.Series{
			Variable:    element,
			SensorID:    ts.Header.ID.Sensor,
			ParameterID: ts.Header.ID.ParameterID,
			Level:       ts.Header.ID.Level,
			Samples:     make([]models.Sample, 0, len(ts.Observations)),
		}
		for j, obs := range ts.Observations {
			t, err := parseTime(obs.Time)
			if err != nil {
				return nil, &MalformedResponseError{
					Version: V1,
					Reason:  fmt.Sprintf("tseries[%d].observations[%d] has a bad time", i, j),
					Err:     err,
				}
			}
			s.Samples = append(s.Samples, models.Sample{Time: t, Value: obs.Body.Data.v})
		}
		out = append(out, s)
	}
	return out, nil
}

type v0Document struct {
	Data *[]struct {
		SourceID      string `json:"sourceId"`
		ReferenceTime string `json:"referenceTime"`
		Observations  []struct {
			ElementID string    `json:"elementId"`
			Value     flexValue `json:"value"`
			Level     *struct {
				Value float64 `json:"value"`
			} `json:"level"`
		} `json:"observations"`
	} `json:"data"`
}

type v0Parser struct{}

type v0Key struct {
	element string
	sensor  int
	level   float64
}

func (v0Parser) Parse(body []byte) ([]models.Series, error) {
	var doc v0Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &MalformedResponseError{Version: V0, Reason: "invalid JSON", Err: err}
	}
	if doc.Data == nil {
		return nil, &MalformedResponseError{Version: V0, Reason: `missing "data"`}
	}

	index := make(map[v0Key]int)
	var out []models.Series
	for i, item := range *doc.Data {
		t, err := parseTime(item.ReferenceTime)
		if err != nil {
			return nil, &MalformedResponseError{
				Version: V0,
				Reason:  fmt.Sprintf("data[%d] has a bad referenceTime", i),
				Err:     err,
			}
		}
		sensor := sensorFromSource(item.SourceID)

		for _, obs := range item.Observations {
			if obs.ElementID == "" {
				return nil, &MalformedResponseError{Version: V0, Reason: fmt.Sprintf("data[%d] has an observation without elementId", i)}
			}
			key := v0Key{element: obs.ElementID, sensor: sensor}
			if obs.Level != nil {
				key.level = obs.Level.Value
			}

			idx, ok := index[key]
			if !ok {
				idx = len(out)
				index[key] = idx
				out = append(out, models.Series{
					Variable: key.element,
					SensorID: key.sensor,
					Level:    key.level,
				})
			}
			out[idx].Samples = append(out[idx].Samples, models.Sample{Time: t, Value: obs.Value.v})
		}
	}
	return out, nil
}

// sensorFromSource reads the sensor index from a v0 source id such as "SN76920:1".
func sensorFromSource(sourceID string) int {
	_, suffix, ok := strings.Cut(sourceID, ":")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0
	}
	return n
}
