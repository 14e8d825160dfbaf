// Package pgprovider realises reportql.Provider against a Postgres
// connection pool (C10), the default provider for durable,
// multi-tenant report datasets (e.g. a sales-facts table). It shares
// the sqlprovider.Core predicate/pivot compiler with duckprovider and
// differs in placeholder style, value casts (none here) and the
// connection it is given.
package pgprovider

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/sqlprovider"
)

// pgDialect renders $n placeholders; Postgres does its own numeric
// coercion so the casts are no-ops.
type pgDialect struct{}

func (pgDialect) Placeholder(n int) string      { return fmt.Sprintf("$%d", n) }
func (pgDialect) CastNumeric(expr string) string { return expr }
func (pgDialect) CastBool(expr string) string    { return expr }

// pgxQuerier is the narrow slice of *pgxpool.Pool this provider
// exercises; depending on the interface (rather than the concrete
// pool type) lets tests inject pgxmock in its place.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Provider queries a table or view through a pgxQuerier, normally a
// *pgxpool.Pool.
type Provider struct {
	pool         pgxQuerier
	key          string
	label        string
	description  string
	capabilities reportql.DatasetCapabilities
	columns      []reportql.ColumnMeta
	core         *sqlprovider.Core
}

// New builds a Postgres-backed provider over selectable (a bare table
// name, or a parenthesized+aliased subquery if the dataset is itself a
// SELECT). columns describes every selectable result column; it is not
// re-inferred from the database on each call.
func New(pool *pgxpool.Pool, key, label, selectable string, columns []reportql.ColumnMeta, capabilities reportql.DatasetCapabilities) *Provider {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c.Name] = struct{}{}
	}
	return &Provider{
		pool:         pool,
		key:          key,
		label:        label,
		capabilities: capabilities,
		columns:      columns,
		core: &sqlprovider.Core{
			Dialect:    pgDialect{},
			Selectable: sqlprovider.Selectable{Expr: selectable},
			Columns:    known,
		},
	}
}

func (p *Provider) Key() string                              { return p.key }
func (p *Provider) Label() string                             { return p.label }
func (p *Provider) Description() string                       { return p.description }
func (p *Provider) Capabilities() reportql.DatasetCapabilities { return p.capabilities }

func (p *Provider) GetColumns(ctx context.Context) ([]reportql.ColumnMeta, error) {
	out := make([]reportql.ColumnMeta, len(p.columns))
	copy(out, p.columns)
	return out, nil
}

func (p *Provider) Query(ctx context.Context, selectedColumns []string, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int, rc *reportql.RequestContext) (*reportql.TabularResult, error) {
	if len(selectedColumns) == 0 {
		return nil, reportql.NewFilterValidationError("selected_columns must be non-empty")
	}
	for _, c := range selectedColumns {
		if _, ok := p.core.Columns[c]; !ok {
			return nil, reportql.NewColumnNotFoundError(p.key, c)
		}
	}
	if err := p.validateSort(sort); err != nil {
		return nil, err
	}

	countSQL, countArgs, err := p.core.CountStatement(filter)
	if err != nil {
		return nil, err
	}
	var total int
	if err := p.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, reportql.NewBackendError("count query failed", err)
	}

	dataSQL, dataArgs, err := p.core.FlatStatement(selectedColumns, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, reportql.NewBackendError("data query failed", err)
	}
	defer rows.Close()

	out, err := scanRows(rows, selectedColumns)
	if err != nil {
		return nil, err
	}

	return &reportql.TabularResult{Columns: selectedColumns, Rows: out, Total: total}, nil
}

func (p *Provider) Aggregate(ctx context.Context, groupByRows, groupByCols []string, values []reportql.ValueSpec, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int, rc *reportql.RequestContext) (*reportql.AggregateResult, error) {
	if len(groupByCols) > 0 && !p.capabilities.Pivot {
		return nil, reportql.NewAggregationNotSupportedError(p.key, "dataset does not support pivot")
	}
	for _, c := range append(append([]string{}, groupByRows...), groupByCols...) {
		if _, ok := p.core.Columns[c]; !ok {
			return nil, reportql.NewColumnNotFoundError(p.key, c)
		}
	}
	for _, v := range values {
		if _, ok := p.core.Columns[v.Column]; !ok {
			return nil, reportql.NewColumnNotFoundError(p.key, v.Column)
		}
	}
	if err := p.validateSort(sort); err != nil {
		return nil, err
	}

	if len(groupByCols) == 0 {
		return p.simpleAggregate(ctx, groupByRows, values, filter, sort, limit, offset)
	}
	return p.pivotAggregate(ctx, groupByRows, groupByCols, values, filter, sort, limit, offset)
}

// validateSort rejects a sort list referencing a column outside the
// selectable's known set, the same guard Query/Aggregate already apply
// to selected/group columns — sort columns are interpolated straight
// into ORDER BY and must never carry unvalidated client input.
func (p *Provider) validateSort(sort []reportql.SortSpec) error {
	for _, s := range sort {
		if _, ok := p.core.Columns[s.Column]; !ok {
			return reportql.NewColumnNotFoundError(p.key, s.Column)
		}
	}
	return nil
}

func (p *Provider) simpleAggregate(ctx context.Context, groupCols []string, values []reportql.ValueSpec, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int) (*reportql.AggregateResult, error) {
	countSQL, countArgs, err := p.core.SimpleAggregateCountStatement(groupCols, filter)
	if err != nil {
		return nil, err
	}
	var total int
	if err := p.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, reportql.NewBackendError("aggregate count query failed", err)
	}

	sql, args, err := p.core.SimpleAggregateStatement(groupCols, values, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, reportql.NewBackendError("aggregate query failed", err)
	}
	defer rows.Close()

	columns := make([]reportql.AggregateColumn, 0, len(groupCols)+len(values))
	for _, c := range groupCols {
		columns = append(columns, reportql.AggregateColumn{Key: c, Header: c})
	}
	for _, v := range values {
		key := v.Column + "_" + string(v.Agg)
		header := v.Label
		if header == "" {
			header = key
		}
		columns = append(columns, reportql.AggregateColumn{Key: key, Header: header, Measure: v.Column, Agg: v.Agg})
	}

	keys := make([]string, 0, len(columns))
	for _, c := range columns {
		keys = append(keys, c.Key)
	}
	outRows, err := scanRows(rows, keys)
	if err != nil {
		return nil, err
	}

	return &reportql.AggregateResult{Columns: columns, Rows: outRows, Total: total}, nil
}

func (p *Provider) pivotAggregate(ctx context.Context, rowCols, pivotCols []string, values []reportql.ValueSpec, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int) (*reportql.AggregateResult, error) {
	comboSQL, comboArgs, err := p.core.ComboDiscoveryStatement(pivotCols, filter)
	if err != nil {
		return nil, err
	}
	comboRows, err := p.pool.Query(ctx, comboSQL, comboArgs...)
	if err != nil {
		return nil, reportql.NewBackendError("pivot combo discovery failed", err)
	}
	var combos []sqlprovider.PivotCombo
	for comboRows.Next() {
		vals, err := comboRows.Values()
		if err != nil {
			comboRows.Close()
			return nil, reportql.NewBackendError("pivot combo scan failed", err)
		}
		labels := make([]string, len(vals))
		for i, v := range vals {
			labels[i] = fmt.Sprint(v)
		}
		combos = append(combos, sqlprovider.PivotCombo{Values: vals, Labels: labels})
	}
	comboRows.Close()
	if err := comboRows.Err(); err != nil {
		return nil, reportql.NewBackendError("pivot combo iteration failed", err)
	}

	columns := make([]reportql.AggregateColumn, 0, len(rowCols)+len(combos)*len(values))
	for _, c := range rowCols {
		columns = append(columns, reportql.AggregateColumn{Key: c, Header: c})
	}
	for _, combo := range combos {
		for _, v := range values {
			keyParts := append(append([]string{}, combo.Labels...), string(v.Agg), v.Column)
			key := joinUnderscore(keyParts)
			header := joinSep(combo.Labels, " › ") + " (" + string(v.Agg) + ")"
			columns = append(columns, reportql.AggregateColumn{Key: key, Header: header, PivotKeys: combo.Labels, Measure: v.Column, Agg: v.Agg})
		}
	}

	countSQL, countArgs, err := p.core.SimpleAggregateCountStatement(rowCols, filter)
	if err != nil {
		return nil, err
	}
	var total int
	if err := p.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, reportql.NewBackendError("pivot row-group count failed", err)
	}

	sql, args, err := p.core.PivotExpansionStatement(rowCols, pivotCols, combos, values, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, reportql.NewBackendError("pivot expansion query failed", err)
	}
	defer rows.Close()

	keys := make([]string, 0, len(columns))
	for _, c := range columns {
		keys = append(keys, c.Key)
	}
	outRows, err := scanRows(rows, keys)
	if err != nil {
		return nil, err
	}

	return &reportql.AggregateResult{Columns: columns, Rows: outRows, Total: total}, nil
}

func scanRows(rows pgx.Rows, keys []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			zap.S().Errorw("pgprovider row scan failed", "error", err)
			return nil, reportql.NewBackendError("row scan failed", err)
		}
		row := make(map[string]any, len(keys))
		for i, k := range keys {
			if i < len(vals) {
				row[k] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, reportql.NewBackendError("row iteration failed", err)
	}
	return out, nil
}

func joinUnderscore(parts []string) string { return joinSep(parts, "_") }

func joinSep(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
