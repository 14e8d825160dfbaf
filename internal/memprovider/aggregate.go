package memprovider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arborfold/reportql"
)

type bucket struct {
	key  []any
	rows []map[string]any
}

// simpleAggregate computes one output row per bucket, no pivot
// columns: just groupByRows dimensions plus one column per ValueSpec.
func simpleAggregate(buckets map[string]*bucket, order []string, groupByRows []string, values []reportql.ValueSpec, sortSpecs []reportql.SortSpec, limit, offset int) (*reportql.AggregateResult, error) {
	columns := make([]reportql.AggregateColumn, 0, len(groupByRows)+len(values))
	for _, c := range groupByRows {
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

	rows := make([]map[string]any, 0, len(order))
	for _, sk := range order {
		b := buckets[sk]
		row := make(map[string]any, len(columns))
		for i, c := range groupByRows {
			row[c] = b.key[i]
		}
		for _, v := range values {
			row[v.Column+"_"+string(v.Agg)] = computeAgg(b.rows, v.Column, v.Agg)
		}
		rows = append(rows, row)
	}

	total := len(rows)
	rows = applySort(rows, sortSpecs)
	rows = paginate(rows, limit, offset)

	return &reportql.AggregateResult{Columns: columns, Rows: rows, Total: total}, nil
}

// pivotAggregate discovers the distinct groupByCols combinations
// present in the filtered rows, then emits one column per
// (combo × ValueSpec), mirroring the two-pass SQL pivot compiler.
func pivotAggregate(buckets map[string]*bucket, order []string, groupByRows, groupByCols []string, values []reportql.ValueSpec, sortSpecs []reportql.SortSpec, limit, offset int) (*reportql.AggregateResult, error) {
	rowKeyOf := func(b *bucket) []any { return b.key[:len(groupByRows)] }
	colKeyOf := func(b *bucket) []any { return b.key[len(groupByRows):] }

	rowOrder := make([]string, 0)
	rowGroups := make(map[string][]any)
	rowBuckets := make(map[string][]*bucket)
	comboSeen := make(map[string][]any)
	comboOrder := make([]string, 0)

	for _, sk := range order {
		b := buckets[sk]
		rk := stringifyKey(rowKeyOf(b))
		if _, ok := rowGroups[rk]; !ok {
			rowGroups[rk] = rowKeyOf(b)
			rowOrder = append(rowOrder, rk)
		}
		rowBuckets[rk] = append(rowBuckets[rk], b)

		ck := stringifyKey(colKeyOf(b))
		if _, ok := comboSeen[ck]; !ok {
			comboSeen[ck] = colKeyOf(b)
			comboOrder = append(comboOrder, ck)
		}
	}

	sort.Strings(comboOrder)

	columns := make([]reportql.AggregateColumn, 0, len(groupByRows)+len(comboOrder)*len(values))
	for _, c := range groupByRows {
		columns = append(columns, reportql.AggregateColumn{Key: c, Header: c})
	}
	for _, ck := range comboOrder {
		comboVals := comboSeen[ck]
		parts := make([]string, 0, len(comboVals))
		for _, v := range comboVals {
			parts = append(parts, asStringKey(v))
		}
		for _, v := range values {
			keyParts := append(append([]string{}, parts...), string(v.Agg), v.Column)
			key := strings.Join(keyParts, "_")
			header := strings.Join(parts, " › ") + " (" + string(v.Agg) + ")"
			columns = append(columns, reportql.AggregateColumn{
				Key: key, Header: header, PivotKeys: parts, Measure: v.Column, Agg: v.Agg,
			})
		}
	}

	rows := make([]map[string]any, 0, len(rowOrder))
	for _, rk := range rowOrder {
		row := make(map[string]any, len(columns))
		rowKey := rowGroups[rk]
		for i, c := range groupByRows {
			row[c] = rowKey[i]
		}
		byCombo := make(map[string][]map[string]any)
		for _, b := range rowBuckets[rk] {
			ck := stringifyKey(colKeyOf(b))
			byCombo[ck] = b.rows
		}
		for _, ck := range comboOrder {
			comboVals := comboSeen[ck]
			parts := make([]string, 0, len(comboVals))
			for _, v := range comboVals {
				parts = append(parts, asStringKey(v))
			}
			comboRows := byCombo[ck]
			for _, v := range values {
				keyParts := append(append([]string{}, parts...), string(v.Agg), v.Column)
				key := strings.Join(keyParts, "_")
				row[key] = computeAgg(comboRows, v.Column, v.Agg)
			}
		}
		rows = append(rows, row)
	}

	total := len(rows)
	rows = applySort(rows, sortSpecs)
	rows = paginate(rows, limit, offset)

	return &reportql.AggregateResult{Columns: columns, Rows: rows, Total: total}, nil
}

func paginate(rows []map[string]any, limit, offset int) []map[string]any {
	if offset > len(rows) {
		offset = len(rows)
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

func asStringKey(v any) string {
	if v == nil {
		return "null"
	}
	return toDisplayString(v)
}

// computeAgg implements the per-function aggregation table. COUNT
// includes nulls and DISTINCT_COUNT counts null as one distinct value;
// every other function ignores null measure values. FIRST/LAST return
// the first/last non-null value observed in bucket order.
func computeAgg(rows []map[string]any, column string, agg reportql.AggFunc) any {
	switch agg {
	case reportql.AggCount:
		return len(rows)
	case reportql.AggDistinctCount:
		seen := make(map[string]struct{})
		for _, r := range rows {
			seen[asStringKey(r[column])] = struct{}{}
		}
		return len(seen)
	case reportql.AggFirst:
		for _, r := range rows {
			if r[column] != nil {
				return r[column]
			}
		}
		return nil
	case reportql.AggLast:
		for i := len(rows) - 1; i >= 0; i-- {
			if rows[i][column] != nil {
				return rows[i][column]
			}
		}
		return nil
	case reportql.AggSum, reportql.AggAvg, reportql.AggMin, reportql.AggMax:
		return numericAgg(rows, column, agg)
	default:
		return nil
	}
}

func numericAgg(rows []map[string]any, column string, agg reportql.AggFunc) any {
	var sum float64
	var count int
	var min, max float64
	haveMinMax := false

	for _, r := range rows {
		f, ok := toFloatLocal(r[column])
		if !ok {
			continue
		}
		sum += f
		count++
		if !haveMinMax || f < min {
			min = f
		}
		if !haveMinMax || f > max {
			max = f
		}
		haveMinMax = true
	}
	if count == 0 {
		return nil
	}
	switch agg {
	case reportql.AggSum:
		return sum
	case reportql.AggAvg:
		return sum / float64(count)
	case reportql.AggMin:
		return min
	case reportql.AggMax:
		return max
	default:
		return nil
	}
}

func toDisplayString(v any) string {
	return fmt.Sprint(v)
}
