package types

import (
	"strconv"
	"strings"
)

// Table is a rectangular dataset: every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// NumericFeatures selects the columns usable as model features: a column
// qualifies when every non-empty cell parses as a float and at least one cell
// is non-empty. Empty cells are imputed with the column mean. The returned
// matrix is row-major with one entry per table row.
func (t *Table) NumericFeatures() ([]string, [][]float64) {
	var names []string
	var columns [][]float64

	for c, name := range t.Columns {
		values, ok := t.numericColumn(c)
		if !ok {
			continue
		}
		names = append(names, name)
		columns = append(columns, values)
	}

	data := make([][]float64, len(t.Rows))
	for r := range t.Rows {
		row := make([]float64, len(columns))
		for c := range columns {
			row[c] = columns[c][r]
		}
		data[r] = row
	}

	return names, data
}

func (t *Table) numericColumn(c int) ([]float64, bool) {
	values := make([]float64, len(t.Rows))
	missing := make([]bool, len(t.Rows))

	var sum float64
	var present int
	for r, row := range t.Rows {
		cell := strings.TrimSpace(row[c])
		if cell == "" {
			missing[r] = true
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		values[r] = v
		sum += v
		present++
	}

	if present == 0 {
		return nil, false
	}

	mean := sum / float64(present)
	for r := range values {
		if missing[r] {
			values[r] = mean
		}
	}
	return values, true
}
