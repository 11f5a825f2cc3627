package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/table"
)

const csvTimeHeader = "time"

// WriteCSV writes one header line ("time" then the column keys) and one line per
// row. Times are RFC 3339 in UTC; missing cells are empty.
func WriteCSV(w io.Writer, t *models.Table) error {
	cw := gocsv.DefaultCSVWriter(w)

	header := append([]string{csvTimeHeader}, t.Keys()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, ts := range t.Time {
		record[0] = ts.UTC().Format(time.RFC3339)
		for j, c := range t.Columns {
			record[j+1] = ""
			if v := table.Value(c, i); v != nil {
				record[j+1] = strconv.FormatFloat(*v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (*models.Table, error) {
	cr := gocsv.DefaultCSVReader(r)
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("read csv: missing header")
	}

	header := records[0]
	if len(header) == 0 || header[0] != csvTimeHeader {
		return nil, fmt.Errorf("read csv: first column must be %q", csvTimeHeader)
	}

	rows := records[1:]
	t := &models.Table{Time: make([]time.Time, 0, len(rows))}
	for _, key := range header[1:] {
		t.Columns = append(t.Columns, models.Column{Key: key, Values: make([]*float64, len(rows))})
	}

	for i, rec := range rows {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("read csv: line %d has %d fields, want %d", i+2, len(rec), len(header))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("read csv: line %d: %w", i+2, err)
		}
		t.Time = append(t.Time, ts.UTC())

		for j, cell := range rec[1:] {
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("read csv: line %d column %s: %w", i+2, header[j+1], err)
			}
			t.Columns[j].Values[i] = models.Float(v)
		}
	}
	return t, nil
}
