package downloader

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/statsync/internal/pxweb"
)

func values(n int, prefix string) []string {
	vals := make([]string, n)
	for i := range vals {
		vals[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return vals
}

func metaWith(cards ...int) *pxweb.TableMeta {
	meta := &pxweb.TableMeta{}
	for i, c := range cards {
		code := fmt.Sprintf("Dim%d", i)
		meta.Variables = append(meta.Variables, pxweb.Variable{
			Code:       code,
			Text:       code,
			ValueTexts: values(c, code+"_"),
		})
	}
	return meta
}

func TestPlanChunksPicksHighestCardinality(t *testing.T) {
	meta := metaWith(5, 300, 12)

	plan, err := PlanChunks(meta, 70000)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.ChunkIndex)
	assert.Equal(t, "Dim1", plan.ChunkDim().Code)
	assert.Equal(t, 5*12, plan.FixedRows)
	assert.False(t, plan.Clamped)
}

func TestPlanChunksPartitionIsExact(t *testing.T) {
	tests := []struct {
		name      string
		cards     []int
		rowBudget int
	}{
		{"even split", []int{10, 100}, 200},
		{"uneven tail", []int{7, 103}, 150},
		{"single chunk", []int{3, 50}, 70000},
		{"chunk size one", []int{9, 41}, 9},
		{"single dimension", []int{250}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := metaWith(tt.cards...)
			plan, err := PlanChunks(meta, tt.rowBudget)
			require.NoError(t, err)

			// Chunks are pairwise disjoint and their concatenation equals
			// the chunk dimension's full value set, in order.
			var joined []string
			seen := map[string]bool{}
			for _, chunk := range plan.Chunks {
				require.NotEmpty(t, chunk)
				for _, v := range chunk {
					require.False(t, seen[v], "value %s appears in two chunks", v)
					seen[v] = true
				}
				joined = append(joined, chunk...)
			}
			assert.Equal(t, plan.ChunkDim().ValueTexts, joined)

			// Every chunk except possibly the last fits the budget.
			for i, chunk := range plan.Chunks[:len(plan.Chunks)-1] {
				if !plan.Clamped {
					assert.LessOrEqual(t, len(chunk)*plan.FixedRows, tt.rowBudget,
						"chunk %d exceeds budget", i)
				}
			}
		})
	}
}

func TestPlanChunksClampsWhenFixedDimsExceedBudget(t *testing.T) {
	// Fixed product 40*30 = 1200 > budget 1000: one value per query.
	meta := metaWith(40, 50, 30)

	plan, err := PlanChunks(meta, 1000)
	require.NoError(t, err)

	assert.True(t, plan.Clamped)
	assert.Equal(t, 1, plan.ChunkIndex)
	assert.Len(t, plan.Chunks, 50)
	for _, chunk := range plan.Chunks {
		assert.Len(t, chunk, 1)
	}
}

func TestPlanChunksNoDimensions(t *testing.T) {
	_, err := PlanChunks(&pxweb.TableMeta{}, 70000)
	assert.Error(t, err)

	_, err = PlanChunks(nil, 70000)
	assert.Error(t, err)
}

func TestPlanChunksEmptyChunkDimension(t *testing.T) {
	meta := &pxweb.TableMeta{Variables: []pxweb.Variable{
		{Code: "Dim0", ValueTexts: nil},
	}}

	_, err := PlanChunks(meta, 70000)
	assert.Error(t, err)
}

func TestSelectionKeepsDeclaredOrder(t *testing.T) {
	meta := metaWith(2, 6, 3)
	plan, err := PlanChunks(meta, 70000)
	require.NoError(t, err)

	sel := plan.Selection([]string{"Dim1_0", "Dim1_1"})

	var keys []string
	for el := sel.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	assert.Equal(t, []string{"Dim0", "Dim1", "Dim2"}, keys)

	chunkVals, ok := sel.Get("Dim1")
	require.True(t, ok)
	assert.Equal(t, []string{"Dim1_0", "Dim1_1"}, chunkVals)

	fixedVals, ok := sel.Get("Dim2")
	require.True(t, ok)
	assert.Len(t, fixedVals, 3)
}

func TestRowsPerQuery(t *testing.T) {
	meta := metaWith(10, 100)
	plan, err := PlanChunks(meta, 200)
	require.NoError(t, err)

	// n = 200/10 = 20 values per chunk, 10 fixed rows each.
	assert.Equal(t, 200, plan.RowsPerQuery())
}
