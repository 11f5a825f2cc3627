// Package table orders reconciled columns for display and export.
package table

import (
	"sort"
	"strings"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/models"
)

// Order returns the display order of keys: for each variable in catalog order, the
// keys containing its alias, sorted as strings. A key is listed once, under the
// first alias that matches it. Keys matching no alias are left out.
func Order(keys []string, vars *catalog.Variables) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, alias := range vars.Aliases() {
		var group []string
		for _, k := range keys {
			if strings.Contains(k, alias) {
				group = append(group, k)
			}
		}
		// string order on purpose: Hs_1 < Hs_10 < Hs_2
		sort.Strings(group)
		for _, k := range group {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Sort returns a copy of t with its columns in Order. The time index and the
// value slices are shared with t.
func Sort(t *models.Table, vars *catalog.Variables) *models.Table {
	byKey := make(map[string]models.Column, len(t.Columns))
	for _, c := range t.Columns {
		if _, dup := byKey[c.Key]; !dup {
			byKey[c.Key] = c
		}
	}

	out := &models.Table{
		Time: t.Time,
		Meta: make(map[string]models.ColumnMeta, len(t.Meta)),
	}
	for _, k := range Order(t.Keys(), vars) {
		out.Columns = append(out.Columns, byKey[k])
		if m, ok := t.Meta[k]; ok {
			out.Meta[k] = m
		}
	}
	return out
}

// Rows is the number of rows in t.
func Rows(t *models.Table) int {
	return len(t.Time)
}

// Value returns the cell at row i of column c, or nil when it is missing.
func Value(c models.Column, i int) *float64 {
	if i < 0 || i >= len(c.Values) {
		return nil
	}
	return c.Values[i]
}
