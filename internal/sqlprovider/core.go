// Package sqlprovider holds the SQL-builder core shared by the
// Postgres and DuckDB providers (C5): one predicate/pivot compiler,
// two placeholder dialects. Neither concrete provider branches on
// database identity — only this package's Dialect value does, via
// Placeholder/CastNumeric/CastBool.
package sqlprovider

import (
	"fmt"
	"strings"

	"github.com/arborfold/reportql"
)

// Dialect extends reportql.Dialect with the casts a pivot CASE
// expression needs. Postgres leaves the expression unchanged; DuckDB
// wraps it in CAST(... AS DOUBLE) / CAST(... AS BOOLEAN).
type Dialect interface {
	reportql.Dialect
	CastNumeric(expr string) string
	CastBool(expr string) string
}

// Selectable names the FROM target a provider queries against: either
// a bare table name or a parenthesized, aliased subquery.
type Selectable struct {
	Expr string
}

// Core builds the SQL text for the flat/simple-aggregate/pivot-aggregate
// paths against one Selectable. It never talks to a connection; the
// concrete providers own execution and row scanning.
type Core struct {
	Dialect    Dialect
	Selectable Selectable
	Columns    map[string]struct{}
}

func (c *Core) compile(filter *reportql.FilterGroup) (string, []any, error) {
	return reportql.Compile(filter, c.Dialect, c.Columns)
}

// CountStatement builds a row-count query over the selectable with the
// given filter applied.
func (c *Core) CountStatement(filter *reportql.FilterGroup) (string, []any, error) {
	whereSQL, args, err := c.compile(filter)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.Selectable.Expr, whereSQL)
	return sql, args, nil
}

// FlatStatement builds the data-select half of Query: project columns,
// filter, sort, limit/offset. When no sort is given but offset > 0, it
// falls back to ordering by every selected column ascending so
// pagination stays well-defined (§4.4 fallback decision).
func (c *Core) FlatStatement(columns []string, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int) (string, []any, error) {
	whereSQL, args, err := c.compile(filter)
	if err != nil {
		return "", nil, err
	}
	orderBy := c.orderByClause(sort, columns, offset)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s%s", strings.Join(columns, ", "), c.Selectable.Expr, whereSQL, orderBy)
	sql += c.limitOffsetClause(limit, offset)
	return sql, args, nil
}

func (c *Core) orderByClause(sort []reportql.SortSpec, fallbackColumns []string, offset int) string {
	if len(sort) == 0 {
		if offset > 0 {
			return " ORDER BY " + strings.Join(fallbackColumns, ", ") + " ASC"
		}
		return ""
	}
	parts := make([]string, len(sort))
	for i, s := range sort {
		dir := "ASC"
		if s.Direction == reportql.SortDesc {
			dir = "DESC"
		}
		parts[i] = s.Column + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (c *Core) limitOffsetClause(limit, offset int) string {
	var sb strings.Builder
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", offset)
	}
	return sb.String()
}

// SimpleAggregateStatement groups by groupCols, one output column per
// ValueSpec, matching §4.4's "simple aggregation" shape.
func (c *Core) SimpleAggregateStatement(groupCols []string, values []reportql.ValueSpec, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int) (string, []any, error) {
	whereSQL, args, err := c.compile(filter)
	if err != nil {
		return "", nil, err
	}
	selectParts := append([]string{}, groupCols...)
	for _, v := range values {
		key := v.Column + "_" + string(v.Agg)
		selectParts = append(selectParts, fmt.Sprintf("%s AS %s", aggExpr(c.Dialect, v.Agg, v.Column), key))
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(selectParts, ", "), c.Selectable.Expr, whereSQL)
	if len(groupCols) > 0 {
		sql += " GROUP BY " + strings.Join(groupCols, ", ")
	}
	sql += c.orderByClause(sort, groupCols, offset)
	sql += c.limitOffsetClause(limit, offset)
	return sql, args, nil
}

// SimpleAggregateCountStatement counts the distinct groupCols buckets,
// matching §4.4's nested-subquery count shape.
func (c *Core) SimpleAggregateCountStatement(groupCols []string, filter *reportql.FilterGroup) (string, []any, error) {
	whereSQL, args, err := c.compile(filter)
	if err != nil {
		return "", nil, err
	}
	if len(groupCols) == 0 {
		// No row dimensions: SimpleAggregateStatement's ungrouped
		// aggregate always returns exactly one row, matching or not.
		return "SELECT 1", nil, nil
	}
	inner := fmt.Sprintf("SELECT %s FROM %s WHERE %s GROUP BY %s", strings.Join(groupCols, ", "), c.Selectable.Expr, whereSQL, strings.Join(groupCols, ", "))
	sql := fmt.Sprintf("SELECT COUNT(*) FROM (%s) sub", inner)
	return sql, args, nil
}

// ComboDiscoveryStatement is pass 1 of the two-pass pivot: the
// distinct pivot-column tuples present after filtering, in a
// deterministic order.
func (c *Core) ComboDiscoveryStatement(pivotCols []string, filter *reportql.FilterGroup) (string, []any, error) {
	whereSQL, args, err := c.compile(filter)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s ORDER BY %s",
		strings.Join(pivotCols, ", "), c.Selectable.Expr, whereSQL, strings.Join(pivotCols, ", "))
	return sql, args, nil
}

// PivotCombo is one discovered tuple of pivot-column values from pass 1.
type PivotCombo struct {
	Values []any
	Labels []string // stringified Values, used to build column keys/headers
}

// PivotExpansionStatement is pass 2: one CASE-WHEN-wrapped aggregate
// expression per (combo × ValueSpec), grouped by the row dimensions,
// sorted/limited/offset over the row-group buckets.
func (c *Core) PivotExpansionStatement(rowCols, pivotCols []string, combos []PivotCombo, values []reportql.ValueSpec, filter *reportql.FilterGroup, sort []reportql.SortSpec, limit, offset int) (string, []any, error) {
	whereSQL, args, err := c.compile(filter)
	if err != nil {
		return "", nil, err
	}
	selectParts := append([]string{}, rowCols...)
	paramIndex := len(args)
	for _, combo := range combos {
		var conds []string
		for i, pc := range pivotCols {
			paramIndex++
			conds = append(conds, fmt.Sprintf("%s = %s", pc, c.Dialect.Placeholder(paramIndex)))
			args = append(args, combo.Values[i])
		}
		whenClause := strings.Join(conds, " AND ")
		for _, v := range values {
			keyParts := append(append([]string{}, combo.Labels...), string(v.Agg), v.Column)
			key := strings.Join(keyParts, "_")
			caseExpr := fmt.Sprintf("CASE WHEN %s THEN %s END", whenClause, v.Column)
			selectParts = append(selectParts, fmt.Sprintf("%s AS %s", aggExpr(c.Dialect, v.Agg, caseExpr), key))
		}
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(selectParts, ", "), c.Selectable.Expr, whereSQL)
	if len(rowCols) > 0 {
		sql += " GROUP BY " + strings.Join(rowCols, ", ")
	}
	sql += c.orderByClause(sort, rowCols, offset)
	sql += c.limitOffsetClause(limit, offset)
	return sql, args, nil
}

// aggExpr maps an AggFunc to a SQL aggregate expression over expr.
// FIRST/LAST are approximated by MIN/MAX respectively (§4.4 documented
// approximation — no cross-dialect FIRST_VALUE window emission).
func aggExpr(d Dialect, agg reportql.AggFunc, expr string) string {
	switch agg {
	case reportql.AggSum:
		return fmt.Sprintf("SUM(%s)", d.CastNumeric(expr))
	case reportql.AggAvg:
		return fmt.Sprintf("AVG(%s)", d.CastNumeric(expr))
	case reportql.AggMin, reportql.AggFirst:
		return fmt.Sprintf("MIN(%s)", expr)
	case reportql.AggMax, reportql.AggLast:
		return fmt.Sprintf("MAX(%s)", expr)
	case reportql.AggCount:
		return fmt.Sprintf("COUNT(%s)", expr)
	case reportql.AggDistinctCount:
		return fmt.Sprintf("COUNT(DISTINCT %s)", expr)
	default:
		return fmt.Sprintf("COUNT(%s)", expr)
	}
}
