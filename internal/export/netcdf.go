package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/table"
)

// Every column is a double variable on the time dimension. Column order is kept
// in the "columns" global attribute.
const (
	ncTimeVar    = "time"
	ncTimeUnits  = "seconds since 1970-01-01 00:00:00"
	ncColumns    = "columns"
	ncFillDouble = 9.9692099683868690e+36
)

var errNetCDFEmpty = errors.New("netCDF export needs at least one time step")

// WriteNetCDF writes t as a classic netCDF file at path. Missing cells hold the
// default double fill value; column metadata becomes variable attributes.
func WriteNetCDF(path string, t *models.Table) (err error) {
	if table.Rows(t) == 0 {
		return errNetCDFEmpty
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cw.Close(); err == nil {
			err = cerr
		}
	}()

	globalKeys := []string{"Conventions", "source"}
	globalVals := map[string]interface{}{"Conventions": "CF-1.6", "source": "printobs"}
	if len(t.Columns) > 0 {
		globalKeys = append(globalKeys, ncColumns)
		globalVals[ncColumns] = strings.Join(t.Keys(), " ")
	}
	global, err := util.NewOrderedMap(globalKeys, globalVals)
	if err != nil {
		return err
	}
	if err := cw.AddGlobalAttrs(global); err != nil {
		return err
	}

	times := make([]float64, len(t.Time))
	for i, ts := range t.Time {
		times[i] = float64(ts.UnixMilli()) / 1000
	}
	timeAttrs, err := util.NewOrderedMap(
		[]string{"standard_name", "units"},
		map[string]interface{}{"standard_name": "time", "units": ncTimeUnits})
	if err != nil {
		return err
	}
	if err := cw.AddVar(ncTimeVar, api.Variable{
		Values:     times,
		Dimensions: []string{ncTimeVar},
		Attributes: timeAttrs,
	}); err != nil {
		return fmt.Errorf("variable %s: %w", ncTimeVar, err)
	}

	for _, c := range t.Columns {
		data := make([]float64, len(t.Time))
		for i := range data {
			data[i] = ncFillDouble
			if v := table.Value(c, i); v != nil {
				data[i] = *v
			}
		}

		keys := []string{"_FillValue"}
		vals := map[string]interface{}{"_FillValue": ncFillDouble}
		if m, ok := t.Meta[c.Key]; ok {
			keys = append(keys, "sensor", "level", "parameterid")
			vals["sensor"] = int32(m.SensorID)
			vals["level"] = m.Level
			vals["parameterid"] = int32(m.ParameterID)
		}
		attrs, err := util.NewOrderedMap(keys, vals)
		if err != nil {
			return err
		}
		if err := cw.AddVar(c.Key, api.Variable{
			Values:     data,
			Dimensions: []string{ncTimeVar},
			Attributes: attrs,
		}); err != nil {
			return fmt.Errorf("variable %s: %w", c.Key, err)
		}
	}
	return nil
}

// ReadNetCDF loads a file written by WriteNetCDF.
func ReadNetCDF(path string) (*models.Table, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	tv, err := nc.GetVariable(ncTimeVar)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", ncTimeVar, err)
	}
	secs, ok := tv.Values.([]float64)
	if !ok {
		return nil, fmt.Errorf("variable %s: unexpected type %T", ncTimeVar, tv.Values)
	}

	t := &models.Table{
		Time: make([]time.Time, len(secs)),
		Meta: make(map[string]models.ColumnMeta),
	}
	for i, s := range secs {
		t.Time[i] = time.UnixMilli(int64(math.Round(s * 1000))).UTC()
	}

	for _, key := range ncColumnKeys(nc) {
		v, err := nc.GetVariable(key)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", key, err)
		}
		data, ok := v.Values.([]float64)
		if !ok {
			return nil, fmt.Errorf("variable %s: unexpected type %T", key, v.Values)
		}

		values := make([]*float64, len(t.Time))
		for i := 0; i < len(values) && i < len(data); i++ {
			if data[i] == ncFillDouble || math.IsNaN(data[i]) {
				continue
			}
			values[i] = models.Float(data[i])
		}
		t.Columns = append(t.Columns, models.Column{Key: key, Values: values})

		sensor, hasSensor := ncAttrFloat(v.Attributes, "sensor")
		level, _ := ncAttrFloat(v.Attributes, "level")
		param, _ := ncAttrFloat(v.Attributes, "parameterid")
		if hasSensor {
			t.Meta[key] = models.ColumnMeta{SensorID: int(sensor), Level: level, ParameterID: int(param)}
		}
	}
	return t, nil
}

// ncColumnKeys prefers the recorded column order over the file's variable order.
func ncColumnKeys(nc api.Group) []string {
	if attrs := nc.Attributes(); attrs != nil {
		if v, ok := attrs.Get(ncColumns); ok {
			if s, ok := v.(string); ok {
				return strings.Fields(s)
			}
		}
	}
	var keys []string
	for _, name := range nc.ListVariables() {
		if name != ncTimeVar {
			keys = append(keys, name)
		}
	}
	return keys
}

func ncAttrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case []int8:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	}
	return 0, false
}
