package models

import "time"

// VariableSpec describes one catalog variable and how duplicate sensors are told apart.
type VariableSpec struct {
	Name             string  `json:"name" yaml:"-"`
	Alias            string  `json:"alias" yaml:"alias"`
	PrimeParameterID int     `json:"prime_parameterid" yaml:"prime_parameterid"`
	PrimeLevel       float64 `json:"prime_level" yaml:"prime_level"`
	DefaultLevel     float64 `json:"default_level" yaml:"default_level"`
	Decimals         *int    `json:"decimals,omitempty" yaml:"decimals,omitempty"`
}

// StationSpec is one entry of the station catalog.
type StationSpec struct {
	Alias     string `json:"alias"`
	StationID string `json:"station_id"`
	TypeIDs   string `json:"typeids,omitempty"`
	Abbrev    string `json:"abbrev,omitempty"`
}

// Sample is a single observation tick. Value is nil when the source reported no data.
type Sample struct {
	Time  time.Time
	Value *float64
}

// Series is one sensor's observation sequence for one variable, in payload order.
type Series struct {
	Variable    string
	SensorID    int
	ParameterID int
	Level       float64
	Samples     []Sample
}

// ColumnMeta captures where a reconciled column came from.
type ColumnMeta struct {
	SensorID    int     `json:"sensor"`
	Level       float64 `json:"level"`
	ParameterID int     `json:"parameterid"`
}

// Column is one reconciled value sequence, aligned by position with Table.Time.
type Column struct {
	Key    string     `json:"key"`
	Values []*float64 `json:"values"`
}

// Table is the reconciled observation table.
type Table struct {
	Time    []time.Time           `json:"time"`
	Columns []Column              `json:"columns"`
	Meta    map[string]ColumnMeta `json:"meta,omitempty"`
}

// Column returns the column with the given key.
func (t *Table) Column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Keys lists column keys in table order, without the time column.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		keys = append(keys, c.Key)
	}
	return keys
}

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 {
	return &v
}
