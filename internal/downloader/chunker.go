// Package downloader fetches full table contents under a per-request row budget.
package downloader

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/statsync/internal/pxweb"
)

// DefaultRowBudget is the maximum number of datapoints one query may return.
const DefaultRowBudget = 70000

// Plan describes how a table's Cartesian product is partitioned into
// budget-sized queries. The dimension with the highest cardinality is
// chunked; all other dimensions are queried in full on every request.
type Plan struct {
	Variables  []pxweb.Variable // table dimensions in declared order
	ChunkIndex int              // index of the chunked dimension in Variables
	Chunks     [][]string       // contiguous partition of the chunk dimension's values
	FixedRows  int              // datapoints per single chunk-dimension value
	Clamped    bool             // fixed dimensions alone exceed the budget
}

// PlanChunks computes the chunk plan for a table under the given row budget.
//
// The chunk size n is the largest count of chunk-dimension values for which
// n * FixedRows stays within the budget. When FixedRows alone exceeds the
// budget, n clamps to 1 and Clamped is set: each query will exceed the
// budget, which is accepted rather than failing the table.
func PlanChunks(meta *pxweb.TableMeta, rowBudget int) (*Plan, error) {
	if rowBudget <= 0 {
		rowBudget = DefaultRowBudget
	}
	if meta == nil || len(meta.Variables) == 0 {
		return nil, fmt.Errorf("table has no dimensions to query")
	}

	// Highest cardinality dimension wins; first one on ties.
	chunkIdx := 0
	for i, v := range meta.Variables {
		if len(v.ValueTexts) > len(meta.Variables[chunkIdx].ValueTexts) {
			chunkIdx = i
		}
	}

	cardValues := meta.Variables[chunkIdx].ValueTexts
	if len(cardValues) == 0 {
		return nil, fmt.Errorf("dimension %q has no values", meta.Variables[chunkIdx].Code)
	}

	fixedRows := 1
	for i, v := range meta.Variables {
		if i != chunkIdx {
			fixedRows *= len(v.ValueTexts)
		}
	}

	n := 0
	clamped := false
	if fixedRows > 0 {
		n = rowBudget / fixedRows
	}
	if n == 0 {
		n = 1
		clamped = true
	}

	var chunks [][]string
	for start := 0; start < len(cardValues); start += n {
		end := start + n
		if end > len(cardValues) {
			end = len(cardValues)
		}
		chunks = append(chunks, cardValues[start:end])
	}

	return &Plan{
		Variables:  meta.Variables,
		ChunkIndex: chunkIdx,
		Chunks:     chunks,
		FixedRows:  fixedRows,
		Clamped:    clamped,
	}, nil
}

// ChunkDim returns the chunked dimension.
func (p *Plan) ChunkDim() pxweb.Variable {
	return p.Variables[p.ChunkIndex]
}

// RowsPerQuery returns the datapoint count of a full-sized query.
func (p *Plan) RowsPerQuery() int {
	if len(p.Chunks) == 0 {
		return 0
	}
	return p.FixedRows * len(p.Chunks[0])
}

// Selection builds the query selection for one chunk, keeping every
// dimension in its declared order with the chunk dimension narrowed to the
// chunk's values.
func (p *Plan) Selection(chunk []string) *pxweb.Selection {
	sel := orderedmap.NewOrderedMap[string, []string]()
	for i, v := range p.Variables {
		if i == p.ChunkIndex {
			sel.Set(v.Code, chunk)
		} else {
			sel.Set(v.Code, v.ValueTexts)
		}
	}
	return sel
}
