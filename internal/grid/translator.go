package grid

import (
	"context"
	"sort"
	"strings"

	"github.com/arborfold/reportql"
)

// HandleRequest implements §4.6's level selection and three-way
// dispatch (flat query / simple aggregate / pivot aggregate) against
// one provider.
func HandleRequest(ctx context.Context, provider reportql.Provider, req *Request, rc *reportql.RequestContext) (*Response, error) {
	filter := withDrillDown(resolveFilter(req), req.RowGroupCols, req.GroupKeys)

	depth := len(req.GroupKeys)
	r := len(req.RowGroupCols)
	limit := req.EndRow - req.StartRow
	offset := req.StartRow
	sortSpecs := translateSort(req.SortModel)

	pivotFields := fieldsOf(req.PivotCols)

	switch {
	case depth == r && len(pivotFields) == 0:
		return handleFlat(ctx, provider, req, filter, sortSpecs, limit, offset, rc)
	case depth < r && len(pivotFields) == 0:
		groupByRows := []string{fieldOf(req.RowGroupCols[depth])}
		return handleAggregate(ctx, provider, groupByRows, nil, req.ValueCols, filter, sortSpecs, limit, offset, rc)
	default:
		if !provider.Capabilities().Pivot {
			return nil, reportql.NewAggregationNotSupportedError(provider.Key(), "dataset does not support pivot")
		}
		var groupByRows []string
		if depth < r {
			groupByRows = []string{fieldOf(req.RowGroupCols[depth])}
		}
		return handleAggregate(ctx, provider, groupByRows, pivotFields, req.ValueCols, filter, sortSpecs, limit, offset, rc)
	}
}

func handleFlat(ctx context.Context, provider reportql.Provider, req *Request, filter *reportql.FilterGroup, sortSpecs []reportql.SortSpec, limit, offset int, rc *reportql.RequestContext) (*Response, error) {
	var selected []string
	for _, v := range req.ValueCols {
		selected = append(selected, fieldOf(v))
	}
	if len(selected) == 0 {
		cols, err := provider.GetColumns(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			selected = append(selected, c.Name)
		}
	}
	for _, rg := range req.RowGroupCols {
		f := fieldOf(rg)
		if !contains(selected, f) {
			selected = append([]string{f}, selected...)
		}
	}

	res, err := provider.Query(ctx, selected, filter, sortSpecs, limit, offset, rc)
	if err != nil {
		return nil, err
	}
	return &Response{RowData: res.Rows, RowCount: res.Total}, nil
}

func handleAggregate(ctx context.Context, provider reportql.Provider, groupByRows, groupByCols []string, valueCols []ColumnVO, filter *reportql.FilterGroup, sortSpecs []reportql.SortSpec, limit, offset int, rc *reportql.RequestContext) (*Response, error) {
	values := make([]reportql.ValueSpec, 0, len(valueCols))
	for _, v := range valueCols {
		agg := v.Agg
		if agg == "" {
			agg = reportql.AggSum
		}
		values = append(values, reportql.ValueSpec{Column: fieldOf(v), Agg: agg, Label: v.DisplayName})
	}

	res, err := provider.Aggregate(ctx, groupByRows, groupByCols, values, filter, sortSpecs, limit, offset, rc)
	if err != nil {
		return nil, err
	}

	resp := &Response{RowData: res.Rows, RowCount: res.Total}
	if len(groupByCols) > 0 {
		resp.PivotResultFields = pivotResultFields(res.Columns)
		resp.SecondaryColDefs = buildSecondaryColDefs(res.Columns)
	}
	return resp, nil
}

func translateSort(model []SortModelEntry) []reportql.SortSpec {
	if len(model) == 0 {
		return nil
	}
	out := make([]reportql.SortSpec, len(model))
	for i, m := range model {
		dir := reportql.SortAsc
		if strings.EqualFold(m.Direction, "desc") {
			dir = reportql.SortDesc
		}
		out[i] = reportql.SortSpec{Column: m.ColID, Direction: dir}
	}
	return out
}

func fieldsOf(cols []ColumnVO) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, fieldOf(c))
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func pivotResultFields(columns []reportql.AggregateColumn) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if len(c.PivotKeys) > 0 {
			out = append(out, c.Key)
		}
	}
	return out
}

// buildSecondaryColDefs groups pivot AggregateColumns by their leading
// pivot-dimension value into one top-level PivotResultColDef each, per
// §4.6.1.
func buildSecondaryColDefs(columns []reportql.AggregateColumn) []PivotResultColDef {
	order := make([]string, 0)
	byFirst := make(map[string][]reportql.AggregateColumn)
	for _, c := range columns {
		if len(c.PivotKeys) == 0 {
			continue
		}
		first := c.PivotKeys[0]
		if _, ok := byFirst[first]; !ok {
			order = append(order, first)
		}
		byFirst[first] = append(byFirst[first], c)
	}
	sort.Strings(order)

	defs := make([]PivotResultColDef, 0, len(order))
	for _, first := range order {
		cols := byFirst[first]
		children := make([]PivotResultColDef, 0, len(cols))
		for _, c := range cols {
			children = append(children, PivotResultColDef{
				HeaderName: c.Header,
				Field:      c.Key,
				PivotMeta:  &PivotMeta{PivotKeys: c.PivotKeys, PivotValue: strings.Join(c.PivotKeys, " › ")},
			})
		}
		defs = append(defs, PivotResultColDef{HeaderName: first, Children: children})
	}
	return defs
}
