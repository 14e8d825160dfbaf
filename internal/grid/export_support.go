package grid

import "github.com/arborfold/reportql"

// The export endpoint (§6.1, C8/C13) accepts the same grid-shaped
// rowGroupCols/valueCols/pivotCols/filterModel/sortModel fields as the
// table/pivot endpoints, but without startRow/endRow/groupKeys — it
// always exports the whole result. These wrappers expose the
// translation helpers already used by HandleRequest so the export
// handler doesn't duplicate that logic.

// FieldsOf returns the Field (or ID fallback) of each column
// descriptor, in order.
func FieldsOf(cols []ColumnVO) []string {
	return fieldsOf(cols)
}

// ValueSpecsOf builds one ValueSpec per value-column descriptor,
// defaulting an unset aggregate function to SUM.
func ValueSpecsOf(cols []ColumnVO) []reportql.ValueSpec {
	values := make([]reportql.ValueSpec, 0, len(cols))
	for _, v := range cols {
		agg := v.Agg
		if agg == "" {
			agg = reportql.AggSum
		}
		values = append(values, reportql.ValueSpec{Column: fieldOf(v), Agg: agg, Label: v.DisplayName})
	}
	return values
}

// TranslateSortModel is the exported form of translateSort.
func TranslateSortModel(model []SortModelEntry) []reportql.SortSpec {
	return translateSort(model)
}

// ResolveExportFilter translates a bare filterModel map (no rich
// Filter, no drill-down state) the same way resolveFilter does for a
// full grid Request.
func ResolveExportFilter(filterModel map[string]FilterModelEntry) *reportql.FilterGroup {
	if len(filterModel) == 0 {
		return nil
	}
	group := &reportql.FilterGroup{Combinator: reportql.CombinatorAnd}
	for column, entry := range filterModel {
		group.Conditions = append(group.Conditions, translateFilterEntry(column, entry)...)
	}
	return group
}
