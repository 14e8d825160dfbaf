// Package export shapes a Provider's query/aggregate output into a
// flat (headers, rows) form fit for a renderer (CSV/XLSX) and, from
// there, optionally to an S3 upload (C8/C13).
package export

import (
	"context"

	"github.com/arborfold/reportql"
)

// Shaped is the renderer-ready output of a flat or pivot export:
// display headers in column order, plus rows keyed by display header.
type Shaped struct {
	Headers []string
	Rows    []map[string]any
}

// Request describes one export call; exactly one of the (Columns) or
// (GroupByRows/GroupByCols/Values) paths is meaningful depending on
// Pivot.
type Request struct {
	Pivot       bool
	Columns     []string // flat export selection
	GroupByRows []string
	GroupByCols []string
	Values      []reportql.ValueSpec
	Filter      *reportql.FilterGroup
	Sort        []reportql.SortSpec
}

// Shape runs the flat or pivot export against provider and re-keys the
// result from machine column keys to display headers, per §4.7.
func Shape(ctx context.Context, provider reportql.Provider, req Request, rc *reportql.RequestContext) (*Shaped, error) {
	if req.Pivot {
		return shapePivot(ctx, provider, req, rc)
	}
	return shapeFlat(ctx, provider, req, rc)
}

func shapeFlat(ctx context.Context, provider reportql.Provider, req Request, rc *reportql.RequestContext) (*Shaped, error) {
	columns := req.Columns
	if len(columns) == 0 {
		cols, err := provider.GetColumns(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			columns = append(columns, c.Name)
		}
	}

	res, err := provider.Query(ctx, columns, req.Filter, req.Sort, 0, 0, rc)
	if err != nil {
		return nil, err
	}

	headers := make([]string, len(res.Columns))
	copy(headers, res.Columns)

	rows := make([]map[string]any, len(res.Rows))
	for i, r := range res.Rows {
		row := make(map[string]any, len(headers))
		for _, h := range headers {
			row[h] = r[h]
		}
		rows[i] = row
	}

	return &Shaped{Headers: headers, Rows: rows}, nil
}

func shapePivot(ctx context.Context, provider reportql.Provider, req Request, rc *reportql.RequestContext) (*Shaped, error) {
	res, err := provider.Aggregate(ctx, req.GroupByRows, req.GroupByCols, req.Values, req.Filter, req.Sort, -1, 0, rc)
	if err != nil {
		return nil, err
	}

	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = displayHeader(c)
	}

	rows := make([]map[string]any, len(res.Rows))
	for i, r := range res.Rows {
		row := make(map[string]any, len(headers))
		for j, c := range res.Columns {
			row[headers[j]] = r[c.Key]
		}
		rows[i] = row
	}

	return &Shaped{Headers: headers, Rows: rows}, nil
}

// displayHeader implements §4.7: pivot-keyed columns join their
// pivot_keys with " › " and an "(agg)" suffix; everything else uses
// the column's own header.
func displayHeader(c reportql.AggregateColumn) string {
	if len(c.PivotKeys) == 0 {
		return c.Header
	}
	joined := ""
	for i, k := range c.PivotKeys {
		if i > 0 {
			joined += " › "
		}
		joined += k
	}
	return joined + " (" + string(c.Agg) + ")"
}
