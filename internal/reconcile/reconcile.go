// Package reconcile turns flattened observation series into one aligned table,
// keeping exactly one series per (variable, sensor).
package reconcile

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/frost"
	"github.com/printobs/printobs/internal/models"
)

// timeIndexWindow is how many leading series are considered when choosing the time index.
const timeIndexWindow = 4

// EmptyResultError is returned when the payload holds no series at all.
type EmptyResultError struct {
	Station string
}

func (e *EmptyResultError) Error() string {
	if e.Station == "" {
		return "no observations returned"
	}
	return fmt.Sprintf("no observations returned for station %s", e.Station)
}

// Reconciler builds tables against a fixed variable catalog.
type Reconciler struct {
	vars   *catalog.Variables
	logger *zap.Logger
}

// New creates a Reconciler.
func New(vars *catalog.Variables, logger *zap.Logger) *Reconciler {
	return &Reconciler{vars: vars, logger: logger}
}

// ColumnKey names the column for a variable alias and sensor.
func ColumnKey(alias string, sensorID int) string {
	return alias + "_" + strconv.Itoa(sensorID)
}

// ReconcileResponse flattens resp with its versioned parser and reconciles the result.
func (r *Reconciler) ReconcileResponse(station string, resp *frost.Response) (*models.Table, error) {
	series, err := resp.Series()
	if err != nil {
		return nil, err
	}
	t, err := r.Reconcile(series)
	if err != nil {
		var empty *EmptyResultError
		if errors.As(err, &empty) {
			empty.Station = station
		}
		return nil, err
	}
	return t, nil
}

// Reconcile assembles the table. Series for variables outside the catalog are ignored.
func (r *Reconciler) Reconcile(series []models.Series) (*models.Table, error) {
	if len(series) == 0 {
		return nil, &EmptyResultError{}
	}

	index := timeIndex(series)
	t := &models.Table{
		Time: index,
		Meta: make(map[string]models.ColumnMeta),
	}

	byVariable := make(map[string][]models.Series)
	for _, s := range series {
		if _, ok := r.vars.Lookup(s.Variable); !ok {
			r.logger.Debug("ignoring variable outside catalog", zap.String("variable", s.Variable))
			continue
		}
		byVariable[s.Variable] = append(byVariable[s.Variable], s)
	}

	for _, spec := range r.vars.All() {
		candidates := byVariable[spec.Name]
		if len(candidates) == 0 {
			continue
		}

		for _, s := range r.disambiguate(spec, candidates) {
			key := ColumnKey(spec.Alias, s.SensorID)
			if _, exists := t.Meta[key]; exists {
				r.logger.Warn("duplicate column after reconciliation, keeping first",
					zap.String("column", key))
				continue
			}

			t.Columns = append(t.Columns, models.Column{Key: key, Values: align(s.Samples, len(index))})

			level := s.Level
			if level == 0 {
				level = spec.DefaultLevel
			}
			t.Meta[key] = models.ColumnMeta{SensorID: s.SensorID, Level: level, ParameterID: s.ParameterID}
		}
	}

	return t, nil
}

// timeIndex adopts the time sequence of the longest of the first few series.
func timeIndex(series []models.Series) []time.Time {
	n := len(series)
	if n > timeIndexWindow {
		n = timeIndexWindow
	}

	best := 0
	for i := 1; i < n; i++ {
		if len(series[i].Samples) > len(series[best].Samples) {
			best = i
		}
	}

	index := make([]time.Time, 0, len(series[best].Samples))
	for _, s := range series[best].Samples {
		index = append(index, s.Time)
	}
	return index
}

// align places samples on the time index by position. Negative values are the
// source's no-data sentinel and become nil, as do positions past the end of samples.
func align(samples []models.Sample, n int) []*float64 {
	values := make([]*float64, n)
	for i := 0; i < n && i < len(samples); i++ {
		v := samples[i].Value
		if v == nil || *v < 0 {
			continue
		}
		values[i] = models.Float(*v)
	}
	return values
}

// disambiguate reduces candidates to at most one series per sensor id.
// Sensors whose duplicates cannot be resolved are dropped.
func (r *Reconciler) disambiguate(spec models.VariableSpec, candidates []models.Series) []models.Series {
	var order []int
	groups := make(map[int][]models.Series)
	params := make(map[int]struct{})
	levels := make(map[float64]struct{})
	for _, s := range candidates {
		if _, seen := groups[s.SensorID]; !seen {
			order = append(order, s.SensorID)
		}
		groups[s.SensorID] = append(groups[s.SensorID], s)
		params[s.ParameterID] = struct{}{}
		levels[s.Level] = struct{}{}
	}
	if len(order) == len(candidates) {
		return candidates
	}

	var (
		prefer func(models.Series) bool
		by     string
	)
	switch {
	case len(params) > 1:
		by = "parameterid"
		prefer = func(s models.Series) bool { return s.ParameterID == spec.PrimeParameterID }
	case len(levels) > 1:
		by = "level"
		prefer = func(s models.Series) bool { return s.Level == spec.PrimeLevel }
	}

	out := make([]models.Series, 0, len(order))
	for _, sensor := range order {
		group := groups[sensor]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}

		fields := []zap.Field{
			zap.String("variable", spec.Name),
			zap.Int("sensor", sensor),
			zap.Int("candidates", len(group)),
		}
		if prefer == nil {
			r.logger.Warn("dropping sensor: duplicate series share parameterid and level", fields...)
			continue
		}

		var matches []models.Series
		for _, s := range group {
			if prefer(s) {
				matches = append(matches, s)
			}
		}
		switch len(matches) {
		case 0:
			r.logger.Warn("dropping sensor: no series matches the preferred "+by, fields...)
		case 1:
			out = append(out, matches[0])
		default:
			r.logger.Warn("several series match the preferred "+by+", keeping the first", fields...)
			out = append(out, matches[0])
		}
	}
	return out
}
