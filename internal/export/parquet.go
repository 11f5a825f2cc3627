package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/table"
)

// parquetRow is one cell in long form. A table without columns is stored as
// one row per time step with an empty Column so the time index survives.
type parquetRow struct {
	TimeMS int64    `parquet:"time_ms"`
	Column string   `parquet:"column"`
	Value  *float64 `parquet:"value"`
}

// WriteParquet writes t as (time, column, value) rows in time-major order.
func WriteParquet(w io.Writer, t *models.Table) error {
	rows := make([]parquetRow, 0, table.Rows(t)*max(len(t.Columns), 1))
	for i, ts := range t.Time {
		ms := ts.UnixMilli()
		if len(t.Columns) == 0 {
			rows = append(rows, parquetRow{TimeMS: ms})
			continue
		}
		for _, c := range t.Columns {
			rows = append(rows, parquetRow{TimeMS: ms, Column: c.Key, Value: table.Value(c, i)})
		}
	}

	pw := parquet.NewGenericWriter[parquetRow](w)
	if _, err := pw.Write(rows); err != nil {
		return err
	}
	return pw.Close()
}

// ReadParquet rebuilds a table written by WriteParquet.
func ReadParquet(r io.ReaderAt) (*models.Table, error) {
	pr := parquet.NewGenericReader[parquetRow](r)
	defer pr.Close()

	t := &models.Table{}
	timeIndex := make(map[int64]int)
	colIndex := make(map[string]int)

	buf := make([]parquetRow, 256)
	for {
		n, err := pr.Read(buf)
		for _, row := range buf[:n] {
			i, ok := timeIndex[row.TimeMS]
			if !ok {
				i = len(t.Time)
				timeIndex[row.TimeMS] = i
				t.Time = append(t.Time, time.UnixMilli(row.TimeMS).UTC())
				for j := range t.Columns {
					t.Columns[j].Values = append(t.Columns[j].Values, nil)
				}
			}
			if row.Column == "" {
				continue
			}

			j, ok := colIndex[row.Column]
			if !ok {
				j = len(t.Columns)
				colIndex[row.Column] = j
				t.Columns = append(t.Columns, models.Column{Key: row.Column, Values: make([]*float64, len(t.Time))})
			}
			if row.Value != nil {
				t.Columns[j].Values[i] = models.Float(*row.Value)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
	}
	return t, nil
}
