// Package memprovider is the in-memory reference Provider (C4):
// a plain slice of row maps behind the reportql.Provider interface.
// Its control flow mirrors the original sanjaya_core mock provider
// almost line for line — bucket by the tuple of group dimensions,
// dispatch to a simple or a pivot aggregate, then re-sort/paginate.
package memprovider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/arborfold/reportql"
)

// Provider holds a fixed column list and row set in memory.
type Provider struct {
	key          string
	label        string
	description  string
	capabilities reportql.DatasetCapabilities
	columns      []reportql.ColumnMeta
	rows         []map[string]any
}

// New builds an in-memory provider. capabilities defaults to
// {Pivot: true} when nil, matching MockDataProvider's default.
func New(key, label string, columns []reportql.ColumnMeta, rows []map[string]any, capabilities *reportql.DatasetCapabilities) *Provider {
	caps := reportql.DatasetCapabilities{Pivot: true}
	if capabilities != nil {
		caps = *capabilities
	}
	return &Provider{key: key, label: label, capabilities: caps, columns: columns, rows: rows}
}

func (p *Provider) Key() string         { return p.key }
func (p *Provider) Label() string        { return p.label }
func (p *Provider) Description() string  { return p.description }
func (p *Provider) Capabilities() reportql.DatasetCapabilities { return p.capabilities }

func (p *Provider) GetColumns(ctx context.Context) ([]reportql.ColumnMeta, error) {
	out := make([]reportql.ColumnMeta, len(p.columns))
	copy(out, p.columns)
	return out, nil
}

// Query implements the flat path: filter, sort, paginate, project.
func (p *Provider) Query(ctx context.Context, selectedColumns []string, filter *reportql.FilterGroup, sort_ []reportql.SortSpec, limit, offset int, rc *reportql.RequestContext) (*reportql.TabularResult, error) {
	if len(selectedColumns) == 0 {
		return nil, reportql.NewFilterValidationError("selected_columns must be non-empty")
	}
	known := p.columnSet()
	for _, c := range selectedColumns {
		if _, ok := known[c]; !ok {
			return nil, reportql.NewColumnNotFoundError(p.key, c)
		}
	}

	filtered := applyFilter(p.rows, filter)
	total := len(filtered)
	sorted := applySort(filtered, sort_)

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	if offset > end {
		offset = end
	}
	page := sorted[offset:end]

	rows := make([]map[string]any, len(page))
	for i, r := range page {
		rows[i] = project(r, selectedColumns)
	}

	return &reportql.TabularResult{Columns: append([]string{}, selectedColumns...), Rows: rows, Total: total}, nil
}

// Aggregate implements the simple-GROUP-BY / pivot dual path.
func (p *Provider) Aggregate(ctx context.Context, groupByRows, groupByCols []string, values []reportql.ValueSpec, filter *reportql.FilterGroup, sort_ []reportql.SortSpec, limit int, offset int, rc *reportql.RequestContext) (*reportql.AggregateResult, error) {
	if len(groupByCols) > 0 && !p.capabilities.Pivot {
		return nil, reportql.NewAggregationNotSupportedError(p.key, "dataset does not support pivot")
	}
	known := p.columnSet()
	for _, c := range append(append([]string{}, groupByRows...), groupByCols...) {
		if _, ok := known[c]; !ok {
			return nil, reportql.NewColumnNotFoundError(p.key, c)
		}
	}

	filtered := applyFilter(p.rows, filter)

	allGroupKeys := append(append([]string{}, groupByRows...), groupByCols...)
	order := make([]string, 0)
	buckets := make(map[string]*bucket)
	for _, r := range filtered {
		key := make([]any, len(allGroupKeys))
		for i, c := range allGroupKeys {
			key[i] = r[c]
		}
		sk := stringifyKey(key)
		b, ok := buckets[sk]
		if !ok {
			b = &bucket{key: key}
			buckets[sk] = b
			order = append(order, sk)
		}
		b.rows = append(b.rows, r)
	}

	if len(groupByCols) > 0 {
		return pivotAggregate(buckets, order, groupByRows, groupByCols, values, sort_, limit, offset)
	}
	return simpleAggregate(buckets, order, groupByRows, values, sort_, limit, offset)
}

func (p *Provider) columnSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.columns))
	for _, c := range p.columns {
		set[c.Name] = struct{}{}
	}
	return set
}

func applyFilter(rows []map[string]any, fg *reportql.FilterGroup) []map[string]any {
	if fg == nil {
		out := make([]map[string]any, len(rows))
		copy(out, rows)
		return out
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if fg.Evaluate(r) {
			out = append(out, r)
		}
	}
	return out
}

func project(r map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

func stringifyKey(key []any) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return strings.Join(parts, "\x1f")
}

// applySort applies a stable sort in reverse SortSpec order so the
// first spec ends up as the primary key; null-last ascending,
// null-first descending.
func applySort(rows []map[string]any, specs []reportql.SortSpec) []map[string]any {
	if len(specs) == 0 {
		return rows
	}
	out := make([]map[string]any, len(rows))
	copy(out, rows)
	for i := len(specs) - 1; i >= 0; i-- {
		spec := specs[i]
		sort.SliceStable(out, func(a, b int) bool {
			return lessForSort(out[a][spec.Column], out[b][spec.Column], spec.Direction)
		})
	}
	return out
}

func lessForSort(a, b any, dir reportql.SortDirection) bool {
	aNull, bNull := a == nil, b == nil
	if aNull || bNull {
		if aNull == bNull {
			return false
		}
		// Null last for ASC, null first for DESC.
		if dir == reportql.SortDesc {
			return aNull
		}
		return bNull
	}
	less := compareAny(a, b) < 0
	if dir == reportql.SortDesc {
		return !less && compareAny(a, b) != 0
	}
	return less
}

func compareAny(a, b any) int {
	if af, ok := toFloatLocal(a); ok {
		if bf, ok2 := toFloatLocal(b); ok2 {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	return strings.Compare(as, bs)
}

func toFloatLocal(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
