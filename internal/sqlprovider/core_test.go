package sqlprovider

import (
	"testing"

	"github.com/arborfold/reportql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopDialect struct{ reportql.NumberedDialect }

func (noopDialect) CastNumeric(expr string) string { return expr }
func (noopDialect) CastBool(expr string) string    { return expr }

func newCore(t *testing.T, columns ...string) *Core {
	t.Helper()
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	return &Core{
		Dialect:    noopDialect{},
		Selectable: Selectable{Expr: "sales_facts"},
		Columns:    known,
	}
}

func TestCore_FlatStatement_NoSortNoOffset(t *testing.T) {
	c := newCore(t, "region", "amount")
	filter := &reportql.FilterGroup{Conditions: []reportql.FilterCondition{{Column: "region", Operator: reportql.OpEQ, Value: "N"}}}
	sql, args, err := c.FlatStatement([]string{"region", "amount"}, filter, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT region, amount FROM sales_facts WHERE region = $1 LIMIT 10", sql)
	assert.Equal(t, []any{"N"}, args)
}

func TestCore_FlatStatement_FallbackOrderWhenOffsetWithoutSort(t *testing.T) {
	c := newCore(t, "region", "amount")
	sql, _, err := c.FlatStatement([]string{"region", "amount"}, nil, nil, 10, 5)
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY region, amount ASC")
	assert.Contains(t, sql, "OFFSET 5")
}

func TestCore_SimpleAggregateStatement(t *testing.T) {
	c := newCore(t, "region", "amount")
	values := []reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}
	sql, _, err := c.SimpleAggregateStatement([]string{"region"}, values, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT region, SUM(amount) AS amount_sum FROM sales_facts WHERE TRUE GROUP BY region", sql)
}

func TestCore_SimpleAggregateCountStatement_NoGroupColsIsOne(t *testing.T) {
	c := newCore(t, "region", "amount")
	sql, args, err := c.SimpleAggregateCountStatement(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
	assert.Empty(t, args)
}

func TestCore_ComboDiscoveryStatement(t *testing.T) {
	c := newCore(t, "region", "product")
	sql, _, err := c.ComboDiscoveryStatement([]string{"region", "product"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT region, product FROM sales_facts WHERE TRUE ORDER BY region, product", sql)
}

func TestCore_PivotExpansionStatement(t *testing.T) {
	c := newCore(t, "year", "region", "amount")
	combos := []PivotCombo{{Values: []any{"N"}, Labels: []string{"N"}}}
	values := []reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}
	sql, args, err := c.PivotExpansionStatement([]string{"year"}, []string{"region"}, combos, values, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, sql, "CASE WHEN region = $1 THEN amount END")
	assert.Contains(t, sql, "AS N_sum_amount")
	assert.Contains(t, sql, "GROUP BY year")
	assert.Equal(t, []any{"N"}, args)
}

func TestCore_PivotExpansionStatement_SortLimitOffset(t *testing.T) {
	c := newCore(t, "year", "region", "amount")
	combos := []PivotCombo{{Values: []any{"N"}, Labels: []string{"N"}}}
	values := []reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}
	sort := []reportql.SortSpec{{Column: "year", Direction: reportql.SortDesc}}
	sql, _, err := c.PivotExpansionStatement([]string{"year"}, []string{"region"}, combos, values, nil, sort, 10, 5)
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY year DESC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 5")
}

func TestAggExpr_FirstLastApproximatedByMinMax(t *testing.T) {
	d := noopDialect{}
	assert.Equal(t, "MIN(amount)", aggExpr(d, reportql.AggFirst, "amount"))
	assert.Equal(t, "MAX(amount)", aggExpr(d, reportql.AggLast, "amount"))
	assert.Equal(t, "COUNT(DISTINCT amount)", aggExpr(d, reportql.AggDistinctCount, "amount"))
}
