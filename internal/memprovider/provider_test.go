package memprovider

import (
	"context"
	"testing"

	"github.com/arborfold/reportql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedColumns() []reportql.ColumnMeta {
	return []reportql.ColumnMeta{
		{Name: "year", Label: "Year", Type: reportql.ColumnTypeNumber, Operators: reportql.NumberOperators},
		{Name: "region", Label: "Region", Type: reportql.ColumnTypeString, Operators: reportql.TextOperators},
		{Name: "product", Label: "Product", Type: reportql.ColumnTypeString, Operators: reportql.TextOperators},
		{Name: "amount", Label: "Amount", Type: reportql.ColumnTypeCurrency, Operators: reportql.NumberOperators,
			Pivot: &reportql.ColumnPivotOptions{Role: reportql.PivotRoleMeasure, AllowedAggs: reportql.DefaultPivotAggs}},
		{Name: "quantity", Label: "Quantity", Type: reportql.ColumnTypeNumber, Operators: reportql.NumberOperators,
			Pivot: &reportql.ColumnPivotOptions{Role: reportql.PivotRoleMeasure, AllowedAggs: reportql.DefaultPivotAggs}},
	}
}

// seedRows reproduces the eight-row seed data: year×region×product with
// amounts {100,200,150,250,120,220,170,270} and quantities {10,5,8,12,11,6,9,14}.
func seedRows() []map[string]any {
	type r struct {
		year              float64
		region, product   string
		amount, quantity float64
	}
	data := []r{
		{2023, "N", "W", 100, 10},
		{2023, "N", "G", 200, 5},
		{2023, "S", "W", 150, 8},
		{2023, "S", "G", 250, 12},
		{2024, "N", "W", 120, 11},
		{2024, "N", "G", 220, 6},
		{2024, "S", "W", 170, 9},
		{2024, "S", "G", 270, 14},
	}
	rows := make([]map[string]any, len(data))
	for i, d := range data {
		rows[i] = map[string]any{
			"year": d.year, "region": d.region, "product": d.product,
			"amount": d.amount, "quantity": d.quantity,
		}
	}
	return rows
}

func newSeedProvider() *Provider {
	return New("sales", "Sales", seedColumns(), seedRows(), nil)
}

func TestProvider_Query_FlatWithFilter(t *testing.T) {
	p := newSeedProvider()
	filter := &reportql.FilterGroup{
		Combinator: reportql.CombinatorAnd,
		Conditions: []reportql.FilterCondition{{Column: "region", Operator: reportql.OpEQ, Value: "N"}},
	}
	res, err := p.Query(context.Background(), []string{"year", "product", "amount"}, filter, nil, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Len(t, res.Rows, 4)
	for _, row := range res.Rows {
		assert.Contains(t, row, "amount")
		assert.NotContains(t, row, "region")
	}
}

func TestProvider_Query_UnknownColumn(t *testing.T) {
	p := newSeedProvider()
	_, err := p.Query(context.Background(), []string{"nope"}, nil, nil, 0, 0, nil)
	require.Error(t, err)
	var rerr *reportql.ReportError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, reportql.ErrorTypeColumnNotFound, rerr.Type)
}

func TestProvider_Query_Pagination(t *testing.T) {
	p := newSeedProvider()
	res, err := p.Query(context.Background(), []string{"year", "region", "product"}, nil,
		[]reportql.SortSpec{{Column: "amount", Direction: reportql.SortAsc}}, 3, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Total)
	assert.Len(t, res.Rows, 3)
}

func TestProvider_Aggregate_SimpleByRegion(t *testing.T) {
	p := newSeedProvider()
	res, err := p.Aggregate(context.Background(), []string{"region"}, nil,
		[]reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}, nil, nil, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	byRegion := map[string]float64{}
	for _, row := range res.Rows {
		byRegion[row["region"].(string)] = row["amount_sum"].(float64)
	}
	assert.Equal(t, 100.0+200.0+120.0+220.0, byRegion["N"])
	assert.Equal(t, 150.0+250.0+170.0+270.0, byRegion["S"])
}

func TestProvider_Aggregate_PivotByRegionAndProduct(t *testing.T) {
	p := newSeedProvider()
	res, err := p.Aggregate(context.Background(), []string{"year"}, []string{"region"},
		[]reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}, nil, nil, 0, 0, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2) // one per year

	var found2023 bool
	for _, row := range res.Rows {
		if row["year"] == 2023.0 {
			found2023 = true
			assert.Equal(t, 100.0+200.0, row["N_sum_amount"])
			assert.Equal(t, 150.0+250.0, row["S_sum_amount"])
		}
	}
	assert.True(t, found2023)
}

func TestProvider_Aggregate_RejectsPivotWhenUnsupported(t *testing.T) {
	caps := reportql.DatasetCapabilities{Pivot: false}
	p := New("sales", "Sales", seedColumns(), seedRows(), &caps)
	_, err := p.Aggregate(context.Background(), []string{"year"}, []string{"region"},
		[]reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}, nil, nil, 0, 0, nil)
	require.Error(t, err)
	var rerr *reportql.ReportError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, reportql.ErrorTypeAggregationUnsupported, rerr.Type)
}

func TestComputeAgg_CountIncludesNulls(t *testing.T) {
	rows := []map[string]any{{"amount": 10.0}, {"amount": nil}, {"amount": 20.0}}
	assert.Equal(t, 3, computeAgg(rows, "amount", reportql.AggCount))
	assert.Equal(t, 30.0, computeAgg(rows, "amount", reportql.AggSum))
	assert.Equal(t, 15.0, computeAgg(rows, "amount", reportql.AggAvg))
}

func TestComputeAgg_DistinctCountIncludesNullAsOneBucket(t *testing.T) {
	rows := []map[string]any{{"region": "N"}, {"region": nil}, {"region": "S"}, {"region": "N"}, {"region": nil}}
	assert.Equal(t, 3, computeAgg(rows, "region", reportql.AggDistinctCount))
}

func TestComputeAgg_EmptyNumericReturnsNil(t *testing.T) {
	rows := []map[string]any{{"amount": nil}}
	assert.Nil(t, computeAgg(rows, "amount", reportql.AggSum))
	assert.Nil(t, computeAgg(rows, "amount", reportql.AggMin))
}

func TestComputeAgg_FirstLast(t *testing.T) {
	rows := []map[string]any{{"region": "N"}, {"region": nil}, {"region": "S"}}
	assert.Equal(t, "N", computeAgg(rows, "region", reportql.AggFirst))
	assert.Equal(t, "S", computeAgg(rows, "region", reportql.AggLast))
}
