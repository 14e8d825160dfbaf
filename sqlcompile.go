package reportql

import (
	"fmt"
	"strings"
)

// Dialect supplies the parameter-placeholder rendering a SQL provider
// needs; the predicate compiler below never branches on database
// identity, only on what a Dialect returns. Postgres uses numbered
// placeholders ($1, $2, ...); DuckDB (driven through database/sql)
// uses positional ones (?).
type Dialect interface {
	// Placeholder returns the token to bind the n-th parameter
	// (1-indexed) of the statement currently being built.
	Placeholder(n int) string
}

// NumberedDialect renders Postgres-style $1, $2, ... placeholders.
type NumberedDialect struct{}

func (NumberedDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// PositionalDialect renders DuckDB/database-sql-style ? placeholders.
type PositionalDialect struct{}

func (PositionalDialect) Placeholder(int) string { return "?" }

// sqlBuilder accumulates bound arguments while walking a filter tree.
type sqlBuilder struct {
	dialect    Dialect
	knownCols  map[string]struct{}
	args       []any
	paramIndex int
}

func (b *sqlBuilder) bind(v any) string {
	b.paramIndex++
	b.args = append(b.args, v)
	return b.dialect.Placeholder(b.paramIndex)
}

// Compile renders a FilterGroup into a parameterised WHERE-clause
// fragment (without the "WHERE" keyword) plus its bound argument
// list. columns is the selectable's known column set; a condition
// referencing a name outside it fails with a FilterValidationError
// before any SQL is built. A nil or empty group compiles to the
// literal "TRUE" per §4.1.
func Compile(group *FilterGroup, dialect Dialect, columns map[string]struct{}) (string, []any, error) {
	b := &sqlBuilder{dialect: dialect, knownCols: columns}
	sql, err := b.compileGroup(group)
	if err != nil {
		return "", nil, err
	}
	if sql == "" {
		sql = "TRUE"
	}
	return sql, b.args, nil
}

func (b *sqlBuilder) compileGroup(g *FilterGroup) (string, error) {
	if g == nil {
		return "", nil
	}
	var parts []string
	for _, c := range g.Conditions {
		frag, err := b.compileCondition(&c)
		if err != nil {
			return "", err
		}
		if frag != "" {
			parts = append(parts, frag)
		}
	}
	for _, sub := range g.Groups {
		frag, err := b.compileGroup(&sub)
		if err != nil {
			return "", err
		}
		if frag != "" && frag != "TRUE" {
			parts = append(parts, frag)
		}
	}
	if len(parts) == 0 {
		if g.Negate {
			return "FALSE", nil
		}
		return "", nil
	}
	joiner := " AND "
	if g.Combinator == CombinatorOr {
		joiner = " OR "
	}
	var sql string
	if len(parts) == 1 {
		sql = parts[0]
	} else {
		sql = "(" + strings.Join(parts, joiner) + ")"
	}
	if g.Negate {
		sql = "NOT (" + sql + ")"
	}
	return sql, nil
}

// escapeLike backslash-escapes the LIKE metacharacters (%, _, and the
// escape character itself) in v so Contains/StartsWith/EndsWith match
// v as a literal substring, the same semantics filter.go's
// strings.Contains/HasPrefix/HasSuffix already give the in-memory
// provider. Paired with the ESCAPE '\' clause at each call site.
func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

func (b *sqlBuilder) compileCondition(c *FilterCondition) (string, error) {
	if _, ok := b.knownCols[c.Column]; !ok {
		return "", NewFilterValidationError(fmt.Sprintf("unknown column %q in filter", c.Column))
	}
	col := c.Column
	var sql string
	switch c.Operator {
	case OpEQ:
		sql = fmt.Sprintf("%s = %s", col, b.bind(c.Value))
	case OpNEQ:
		sql = fmt.Sprintf("%s != %s", col, b.bind(c.Value))
	case OpGT:
		sql = fmt.Sprintf("%s > %s", col, b.bind(c.Value))
	case OpLT:
		sql = fmt.Sprintf("%s < %s", col, b.bind(c.Value))
	case OpGTE:
		sql = fmt.Sprintf("%s >= %s", col, b.bind(c.Value))
	case OpLTE:
		sql = fmt.Sprintf("%s <= %s", col, b.bind(c.Value))
	case OpContains:
		sql = fmt.Sprintf("%s LIKE %s ESCAPE '\\'", col, b.bind("%"+escapeLike(fmt.Sprint(c.Value))+"%"))
	case OpStartsWith:
		sql = fmt.Sprintf("%s LIKE %s ESCAPE '\\'", col, b.bind(escapeLike(fmt.Sprint(c.Value))+"%"))
	case OpEndsWith:
		sql = fmt.Sprintf("%s LIKE %s ESCAPE '\\'", col, b.bind("%"+escapeLike(fmt.Sprint(c.Value))))
	case OpIsNull:
		sql = fmt.Sprintf("%s IS NULL", col)
	case OpIsNotNull:
		sql = fmt.Sprintf("%s IS NOT NULL", col)
	case OpBetween:
		pair, ok := asSlice(c.Value)
		if !ok || len(pair) != 2 {
			return "", NewFilterValidationError(fmt.Sprintf("between requires a 2-element value for column %q", col))
		}
		sql = fmt.Sprintf("%s BETWEEN %s AND %s", col, b.bind(pair[0]), b.bind(pair[1]))
	case OpIn:
		items, ok := asSlice(c.Value)
		if !ok || len(items) == 0 {
			// Empty/malformed IN matches nothing.
			return "FALSE", nil
		}
		placeholders := make([]string, len(items))
		for i, item := range items {
			placeholders[i] = b.bind(item)
		}
		sql = fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", "))
	default:
		// Unknown operator: defensive fallback, per §4.1.
		return "TRUE", nil
	}
	if c.Negate {
		sql = "NOT (" + sql + ")"
	}
	return sql, nil
}
