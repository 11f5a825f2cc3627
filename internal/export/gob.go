package export

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/printobs/printobs/internal/models"
)

// gob cannot carry nil pointers inside slices, so missing cells travel as NaN.
type gobTable struct {
	Time   []time.Time
	Keys   []string
	Values [][]float64
	Meta   map[string]models.ColumnMeta
}

// WriteGob encodes t with encoding/gob.
func WriteGob(w io.Writer, t *models.Table) error {
	g := gobTable{Time: t.Time, Meta: t.Meta}
	for _, c := range t.Columns {
		g.Keys = append(g.Keys, c.Key)
		g.Values = append(g.Values, toNaN(c.Values))
	}
	return gob.NewEncoder(w).Encode(g)
}

// ReadGob decodes a table written by WriteGob.
func ReadGob(r io.Reader) (*models.Table, error) {
	var g gobTable
	if err := gob.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	if len(g.Keys) != len(g.Values) {
		return nil, fmt.Errorf("decode gob: %d keys for %d columns", len(g.Keys), len(g.Values))
	}

	t := &models.Table{Time: g.Time, Meta: g.Meta}
	for i, k := range g.Keys {
		t.Columns = append(t.Columns, models.Column{Key: k, Values: fromNaN(g.Values[i])})
	}
	return t, nil
}

func toNaN(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

func fromNaN(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			out[i] = models.Float(v)
		}
	}
	return out
}
