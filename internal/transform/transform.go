package transform

import (
	"strings"

	"github.com/dbsmedya/statsync/internal/config"
	"github.com/dbsmedya/statsync/internal/logger"
	"github.com/dbsmedya/statsync/internal/pxweb"
)

// MissingValue is the source's encoding for an absent datapoint.
const MissingValue = ".."

// Frame is the normalized result of a table download: typed rows under
// normalized column names, with the inferred primary key columns.
type Frame struct {
	Columns    []string        // normalized names in declared order
	KeyColumns []string        // all non-value columns, declared order
	Rows       [][]interface{} // cells are nil, float64, time.Time or string
}

// Empty reports whether the frame carries no columns at all (the result of
// transforming zero payloads).
func (f *Frame) Empty() bool {
	return len(f.Columns) == 0
}

// Transformer converts raw payload chunks into a Frame.
type Transformer struct {
	isText func(string) bool
	logger *logger.Logger
}

// New creates a Transformer. Columns whose normalized name is configured as
// a text column are exempt from numeric coercion.
func New(cfg *config.APIConfig, log *logger.Logger) *Transformer {
	return &Transformer{
		isText: cfg.IsTextColumn,
		logger: log,
	}
}

// Transform flattens the payload sequence into one Frame.
//
// Column metadata is taken from the first payload: the primary key is every
// column not tagged as a value column, in declared order. Each row is the
// concatenation of its key tuple and value tuple. Cell normalization is
// best-effort and never fails; rows whose width does not match the column
// count are dropped with a warning.
func (t *Transformer) Transform(payloads []*pxweb.TableData) (*Frame, error) {
	if len(payloads) == 0 {
		return &Frame{}, nil
	}

	first := payloads[0]
	frame := &Frame{}
	coercers := make([]Coercer, len(first.Columns))

	for i, col := range first.Columns {
		name := NormalizeColumnName(col.Text)
		frame.Columns = append(frame.Columns, name)
		if col.Type != pxweb.ColumnTypeContent {
			frame.KeyColumns = append(frame.KeyColumns, name)
		}
		coercers[i] = coercerFor(col, name, t.isText)
	}

	skipped := 0
	for _, payload := range payloads {
		for _, dp := range payload.Data {
			if len(dp.Key)+len(dp.Values) != len(frame.Columns) {
				skipped++
				continue
			}

			row := make([]interface{}, 0, len(frame.Columns))
			for _, cell := range dp.Key {
				row = append(row, coerceCell(cell, coercers[len(row)]))
			}
			for _, cell := range dp.Values {
				row = append(row, coerceCell(cell, coercers[len(row)]))
			}
			frame.Rows = append(frame.Rows, row)
		}
	}

	if skipped > 0 {
		t.logger.Warnf("Dropped %d malformed rows not matching %d declared columns",
			skipped, len(frame.Columns))
	}

	return frame, nil
}

// coerceCell applies missing-value handling before the column's coercer.
func coerceCell(raw string, c Coercer) interface{} {
	if raw == MissingValue {
		return nil
	}
	return c.Coerce(raw)
}

var columnNameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	".", "_",
	",", "_",
)

// NormalizeColumnName lowercases a declared column name and replaces
// separator characters with underscores so it is usable as an identifier.
func NormalizeColumnName(name string) string {
	return columnNameReplacer.Replace(strings.ToLower(name))
}
