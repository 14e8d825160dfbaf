package pgprovider

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/sqlprovider"
)

func testColumns() []reportql.ColumnMeta {
	return []reportql.ColumnMeta{
		{Name: "region", Type: reportql.ColumnTypeString},
		{Name: "amount", Type: reportql.ColumnTypeCurrency},
	}
}

// newMockProvider wires a Provider to a pgxmock pool so tests can
// assert exact rendered SQL and bound args without a live database,
// matching this module's pgxmock-based provider test style.
func newMockProvider(t *testing.T) (*Provider, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	known := map[string]struct{}{"region": {}, "amount": {}}
	p := &Provider{
		pool:         mock,
		key:          "sales",
		label:        "Sales",
		capabilities: reportql.DatasetCapabilities{Pivot: true},
		columns:      testColumns(),
		core: &sqlprovider.Core{
			Dialect:    pgDialect{},
			Selectable: sqlprovider.Selectable{Expr: "sales_facts"},
			Columns:    known,
		},
	}
	return p, mock
}

func TestPlaceholder(t *testing.T) {
	d := pgDialect{}
	assert.Equal(t, "$3", d.Placeholder(3))
}

func TestQuery_RejectsUnknownColumn(t *testing.T) {
	p, _ := newMockProvider(t)
	_, err := p.Query(context.Background(), []string{"nope"}, nil, nil, 0, 0, nil)
	require.Error(t, err)
	var rerr *reportql.ReportError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, reportql.ErrorTypeColumnNotFound, rerr.Type)
}

func TestQuery_ExecutesCountThenData(t *testing.T) {
	p, mock := newMockProvider(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sales_facts WHERE region = \$1`).
		WithArgs("N").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	mock.ExpectQuery(`SELECT region, amount FROM sales_facts WHERE region = \$1 LIMIT 10`).
		WithArgs("N").
		WillReturnRows(pgxmock.NewRows([]string{"region", "amount"}).
			AddRow("N", 100.0).
			AddRow("N", 200.0))

	filter := &reportql.FilterGroup{Conditions: []reportql.FilterCondition{{Column: "region", Operator: reportql.OpEQ, Value: "N"}}}
	res, err := p.Query(context.Background(), []string{"region", "amount"}, filter, nil, 10, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregate_RejectsPivotWhenUnsupported(t *testing.T) {
	p, _ := newMockProvider(t)
	p.capabilities = reportql.DatasetCapabilities{Pivot: false}

	_, err := p.Aggregate(context.Background(), []string{"region"}, []string{"amount"},
		[]reportql.ValueSpec{{Column: "amount", Agg: reportql.AggSum}}, nil, nil, 0, 0, nil)
	require.Error(t, err)
	var rerr *reportql.ReportError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, reportql.ErrorTypeAggregationUnsupported, rerr.Type)
}
