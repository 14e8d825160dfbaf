// Package duckprovider realises reportql.Provider over an embedded
// DuckDB connection (C11), used for datasets materialised from an
// uploaded CSV/export — an analytical, single-process, embedded
// workload. It shares sqlprovider.Core with pgprovider and differs
// in placeholder style (positional "?"), explicit DOUBLE/BOOLEAN casts
// and the *sql.DB it runs against, mirroring the teacher's duckdb_conn/duckdb_sql_generator
// pairing repointed at plain named columns instead of EAV attribute
// lookups.
package duckprovider

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/sqlprovider"
)

type duckDialect struct{}

func (duckDialect) Placeholder(int) string        { return "?" }
func (duckDialect) CastNumeric(expr string) string { return fmt.Sprintf("CAST(%s AS DOUBLE)", expr) }
func (duckDialect) CastBool(expr string) string    { return fmt.Sprintf("CAST(%s AS BOOLEAN)", expr) }

// Provider queries a DuckDB table/view through a *sql.DB opened with
// the "duckdb" driver.
type Provider struct {
	db           *sql.DB
	key          string
	label        string
	description  string
	capabilities reportql.DatasetCapabilities
	columns      []reportql.ColumnMeta
	core         *sqlprovider.Core
}

// Open opens a DuckDB database at path (":memory:" for an ephemeral
// store) and returns the underlying *sql.DB for callers that need to
// load data (e.g. via DuckDB's own CSV reader) before wrapping it with
// New.
func Open(path string, maxOpenConns int) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	return db, nil
}

// New builds a DuckDB-backed provider over selectable.
func New(db *sql.DB, key, label, selectable string, columns []reportql.ColumnMeta, capabilities reportql.DatasetCapabilities) *Provider {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c.Name] = struct{}{}
	}
	return &Provider{
		db:           db,
		key:          key,
		label:        label,
		capabilities: capabilities,
		columns:      columns,
		core: &sqlprovider.Core{
			Dialect:    duckDialect{},
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
	if err := p.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, reportql.NewBackendError("count query failed", err)
	}

	dataSQL, dataArgs, err := p.core.FlatStatement(selectedColumns, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, dataSQL, dataArgs...)
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
	if err := p.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, reportql.NewBackendError("aggregate count query failed", err)
	}

	sqlText, args, err := p.core.SimpleAggregateStatement(groupCols, values, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, sqlText, args...)
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
	comboRows, err := p.db.QueryContext(ctx, comboSQL, comboArgs...)
	if err != nil {
		return nil, reportql.NewBackendError("pivot combo discovery failed", err)
	}
	combos, err := scanCombos(comboRows, len(pivotCols))
	if err != nil {
		return nil, err
	}

	columns := make([]reportql.AggregateColumn, 0, len(rowCols)+len(combos)*len(values))
	for _, c := range rowCols {
		columns = append(columns, reportql.AggregateColumn{Key: c, Header: c})
	}
	for _, combo := range combos {
		for _, v := range values {
			keyParts := append(append([]string{}, combo.Labels...), string(v.Agg), v.Column)
			key := joinSep(keyParts, "_")
			header := joinSep(combo.Labels, " › ") + " (" + string(v.Agg) + ")"
			columns = append(columns, reportql.AggregateColumn{Key: key, Header: header, PivotKeys: combo.Labels, Measure: v.Column, Agg: v.Agg})
		}
	}

	countSQL, countArgs, err := p.core.SimpleAggregateCountStatement(rowCols, filter)
	if err != nil {
		return nil, err
	}
	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, reportql.NewBackendError("pivot row-group count failed", err)
	}

	sqlText, args, err := p.core.PivotExpansionStatement(rowCols, pivotCols, combos, values, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, sqlText, args...)
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

func scanRows(rows *sql.Rows, keys []string) ([]map[string]any, error) {
	out := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(keys))
		ptrs := make([]any, len(keys))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, reportql.NewBackendError("row scan failed", err)
		}
		row := make(map[string]any, len(keys))
		for i, k := range keys {
			row[k] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, reportql.NewBackendError("row iteration failed", err)
	}
	return out, nil
}

func scanCombos(rows *sql.Rows, width int) ([]sqlprovider.PivotCombo, error) {
	defer rows.Close()
	var combos []sqlprovider.PivotCombo
	for rows.Next() {
		vals := make([]any, width)
		ptrs := make([]any, width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, reportql.NewBackendError("pivot combo scan failed", err)
		}
		labels := make([]string, width)
		for i, v := range vals {
			labels[i] = fmt.Sprint(v)
		}
		combos = append(combos, sqlprovider.PivotCombo{Values: vals, Labels: labels})
	}
	if err := rows.Err(); err != nil {
		return nil, reportql.NewBackendError("pivot combo iteration failed", err)
	}
	return combos, nil
}

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
