// Package report renders reconciled tables and catalog listings as plain text.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/table"
)

const (
	TimeLayout = "2006-01-02 15:04 UTC"
	Missing    = "NaN"

	defaultDecimals = 1
)

// Metadata attributes that can be shown under the header.
const (
	AttrSensor      = "sensor"
	AttrLevel       = "level"
	AttrParameterID = "parameterid"
)

var ErrUnknownAttribute = errors.New("unknown metadata attribute")

// precision is used for catalog variables that do not set decimals.
var precision = map[string]int{
	"Hs":   1,
	"Tm02": 1,
	"Tp":   1,
	"FF":   1,
	"Ta":   1,
	"DD":   0,
}

// ParseShow splits a comma separated attribute list such as "level,sensor".
func ParseShow(s string) ([]string, error) {
	var attrs []string
	for _, part := range strings.Split(s, ",") {
		a := strings.ToLower(strings.TrimSpace(part))
		switch a {
		case "":
			continue
		case AttrSensor, AttrLevel, AttrParameterID:
			attrs = append(attrs, a)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, part)
		}
	}
	return attrs, nil
}

// Formatter renders tables using the decimals of a variable catalog.
type Formatter struct {
	vars *catalog.Variables
}

func New(vars *catalog.Variables) *Formatter {
	return &Formatter{vars: vars}
}

// Decimals returns the number of decimals used for a column key like "Hs_0".
func (f *Formatter) Decimals(key string) int {
	alias := key
	if i := strings.LastIndex(key, "_"); i > 0 {
		alias = key[:i]
	}
	if f.vars != nil {
		if spec, ok := f.vars.ByAlias(alias); ok && spec.Decimals != nil {
			return *spec.Decimals
		}
	}
	if p, ok := precision[alias]; ok {
		return p
	}
	return defaultDecimals
}

// Write prints t as a right-aligned grid. The header is repeated below the body
// and the station name closes the report. Each attribute in show adds an
// annotation line under the top header.
func (f *Formatter) Write(w io.Writer, t *models.Table, station string, show []string) error {
	rows := table.Rows(t)
	cols := len(t.Columns) + 1

	// cells[0] is the time column
	headers := make([]string, cols)
	cells := make([][]string, cols)
	cells[0] = make([]string, rows)
	for i, ts := range t.Time {
		cells[0][i] = ts.UTC().Format(TimeLayout)
	}
	for j, c := range t.Columns {
		headers[j+1] = c.Key
		decimals := f.Decimals(c.Key)
		col := make([]string, rows)
		for i := range col {
			if v := table.Value(c, i); v != nil {
				col[i] = strconv.FormatFloat(*v, 'f', decimals, 64)
			} else {
				col[i] = Missing
			}
		}
		cells[j+1] = col
	}

	annotations := make([][]string, len(show))
	for a, attr := range show {
		line := make([]string, cols)
		line[0] = attr
		for j, c := range t.Columns {
			if m, ok := t.Meta[c.Key]; ok {
				line[j+1] = metaValue(m, attr)
			}
		}
		annotations[a] = line
	}

	widths := make([]int, cols)
	for j := range widths {
		widths[j] = len(headers[j])
		for _, s := range cells[j] {
			widths[j] = max(widths[j], len(s))
		}
		for _, line := range annotations {
			widths[j] = max(widths[j], len(line[j]))
		}
	}

	ew := &errWriter{w: w}
	header := joinRow(headers, widths)
	ew.line(header)
	for _, line := range annotations {
		ew.line(joinRow(line, widths))
	}
	row := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := range row {
			row[j] = cells[j][i]
		}
		ew.line(joinRow(row, widths))
	}
	ew.line(header)
	ew.line("--> " + station + " <--")
	return ew.err
}

func metaValue(m models.ColumnMeta, attr string) string {
	switch attr {
	case AttrSensor:
		return strconv.Itoa(m.SensorID)
	case AttrLevel:
		return strconv.FormatFloat(m.Level, 'f', 0, 64)
	case AttrParameterID:
		return strconv.Itoa(m.ParameterID)
	}
	return ""
}

func joinRow(cells []string, widths []int) string {
	var b strings.Builder
	for j, s := range cells {
		if j > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.Repeat(" ", widths[j]-len(s)))
		b.WriteString(s)
	}
	return b.String()
}

const rule = "----------------------"

// WriteStations prints the numbered listing of station aliases.
func WriteStations(w io.Writer, stations *catalog.Stations) error {
	all := stations.All()
	n := len(strconv.Itoa(len(all)))

	ew := &errWriter{w: w}
	ew.line(rule)
	ew.line(strings.Repeat(" ", n) + " available locations")
	ew.line(rule)
	for i, s := range all {
		ew.line(fmt.Sprintf("%*d %s", n, i+1, s.Alias))
	}
	ew.line(rule)
	ew.line("Info:")
	ew.line("above shown location aliases can be customized in insitu_locations.yaml")
	ew.line(rule)
	return ew.err
}

// WriteShortcuts prints one shell alias per station that has an abbreviation.
func WriteShortcuts(w io.Writer, stations *catalog.Stations, command string) error {
	ew := &errWriter{w: w}
	for _, s := range stations.All() {
		if s.Abbrev == "" {
			continue
		}
		ew.line(fmt.Sprintf("alias %s='%s -s %s'", s.Abbrev, command, s.Alias))
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) line(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s+"\n")
}
