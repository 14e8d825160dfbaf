package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/memprovider"
)

func seedColumns() []reportql.ColumnMeta {
	return []reportql.ColumnMeta{
		{Name: "year", Type: reportql.ColumnTypeNumber},
		{Name: "region", Type: reportql.ColumnTypeString},
		{Name: "amount", Type: reportql.ColumnTypeCurrency},
	}
}

func seedRows() []map[string]any {
	return []map[string]any{
		{"year": 2023.0, "region": "N", "amount": 100.0},
		{"year": 2023.0, "region": "S", "amount": 150.0},
		{"year": 2024.0, "region": "N", "amount": 120.0},
		{"year": 2024.0, "region": "S", "amount": 170.0},
	}
}

func newProvider() reportql.Provider {
	return memprovider.New("sales", "Sales", seedColumns(), seedRows(), nil)
}

func TestShape_Flat(t *testing.T) {
	p := newProvider()
	req := Request{Columns: []string{"year", "region", "amount"}}
	shaped, err := Shape(context.Background(), p, req, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "region", "amount"}, shaped.Headers)
	assert.Len(t, shaped.Rows, 4)
}

func TestShape_Pivot_HeaderFormat(t *testing.T) {
	p := newProvider()
	req := Request{
		Pivot:       true,
		GroupByRows: []string{"year"},
		GroupByCols: []string{"region"},
		Values:      []reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}},
	}
	shaped, err := Shape(context.Background(), p, req, nil)
	require.NoError(t, err)
	assert.Contains(t, shaped.Headers, "year")
	assert.Contains(t, shaped.Headers, "N (sum)")
	assert.Contains(t, shaped.Headers, "S (sum)")
	for _, row := range shaped.Rows {
		if row["year"] == 2023.0 {
			assert.Equal(t, 100.0, row["N (sum)"])
			assert.Equal(t, 150.0, row["S (sum)"])
		}
	}
}

func TestWriteCSV(t *testing.T) {
	shaped := &Shaped{
		Headers: []string{"region", "amount"},
		Rows: []map[string]any{
			{"region": "N", "amount": 100.0},
			{"region": nil, "amount": nil},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, shaped))
	out := buf.String()
	assert.Contains(t, out, "region,amount")
	assert.Contains(t, out, "N,100")
}

func TestWriteXLSX_ProducesNonEmptyZip(t *testing.T) {
	shaped := &Shaped{
		Headers: []string{"region", "amount"},
		Rows:    []map[string]any{{"region": "N", "amount": 100.0}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, shaped))
	assert.True(t, buf.Len() > 0)
	// A valid zip always starts with the "PK" local file header signature.
	assert.Equal(t, byte('P'), buf.Bytes()[0])
	assert.Equal(t, byte('K'), buf.Bytes()[1])
}

func TestRender_UnsupportedFormat(t *testing.T) {
	shaped := &Shaped{Headers: []string{"a"}, Rows: []map[string]any{{"a": 1}}}
	_, _, err := Render(shaped, Format("pdf"))
	require.Error(t, err)
}
