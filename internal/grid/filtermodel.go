package grid

import "github.com/arborfold/reportql"

// resolveFilter implements §4.6's "Filter resolution": a rich filter
// wins if present, otherwise the grid-style filterModel is translated
// column by column and AND-combined.
func resolveFilter(req *Request) *reportql.FilterGroup {
	if req.Filter != nil {
		return req.Filter
	}
	if len(req.FilterModel) == 0 {
		return nil
	}
	group := &reportql.FilterGroup{Combinator: reportql.CombinatorAnd}
	for column, entry := range req.FilterModel {
		group.Conditions = append(group.Conditions, translateFilterEntry(column, entry)...)
	}
	return group
}

// translateFilterEntry converts one AG Grid filterModel entry into one
// or more flattened FilterConditions, per the table in §4.6. Combined
// filters ("operator"+"conditions") are flattened to AND regardless of
// the grid's own operator — an acknowledged limitation documented
// there.
func translateFilterEntry(column string, e FilterModelEntry) []reportql.FilterCondition {
	if len(e.Conditions) > 0 {
		var out []reportql.FilterCondition
		for _, sub := range e.Conditions {
			out = append(out, translateFilterEntry(column, sub)...)
		}
		return out
	}

	switch e.FilterType {
	case "set":
		return []reportql.FilterCondition{{Column: column, Operator: reportql.OpIn, Value: e.Values}}
	case "text":
		return []reportql.FilterCondition{translateTextFilter(column, e)}
	case "number", "date":
		return []reportql.FilterCondition{translateComparisonFilter(column, e)}
	default:
		return []reportql.FilterCondition{{Column: column, Operator: reportql.OpEQ, Value: firstNonNil(e.Filter, e.Values)}}
	}
}

func translateTextFilter(column string, e FilterModelEntry) reportql.FilterCondition {
	switch e.Type {
	case "contains":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpContains, Value: e.Filter}
	case "notContains":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpContains, Value: e.Filter, Negate: true}
	case "equals":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpEQ, Value: e.Filter}
	case "notEqual":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpNEQ, Value: e.Filter}
	case "startsWith":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpStartsWith, Value: e.Filter}
	case "endsWith":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpEndsWith, Value: e.Filter}
	case "blank":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpIsNull}
	case "notBlank":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpIsNotNull}
	default:
		return reportql.FilterCondition{Column: column, Operator: reportql.OpEQ, Value: e.Filter}
	}
}

func translateComparisonFilter(column string, e FilterModelEntry) reportql.FilterCondition {
	if e.Type == "inRange" {
		return reportql.FilterCondition{Column: column, Operator: reportql.OpBetween, Value: []any{e.Filter, e.FilterTo}}
	}
	switch e.Type {
	case "equals":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpEQ, Value: e.Filter}
	case "notEqual":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpNEQ, Value: e.Filter}
	case "greaterThan":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpGT, Value: e.Filter}
	case "lessThan":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpLT, Value: e.Filter}
	case "greaterThanOrEqual":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpGTE, Value: e.Filter}
	case "lessThanOrEqual":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpLTE, Value: e.Filter}
	case "blank":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpIsNull}
	case "notBlank":
		return reportql.FilterCondition{Column: column, Operator: reportql.OpIsNotNull}
	default:
		return reportql.FilterCondition{Column: column, Operator: reportql.OpEQ, Value: e.Filter}
	}
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// withDrillDown AND-combines equality conditions for every already
// expanded row-group key (§4.6 "Drill-down state is then injected").
func withDrillDown(base *reportql.FilterGroup, rowGroupCols []ColumnVO, groupKeys []any) *reportql.FilterGroup {
	if len(groupKeys) == 0 {
		return base
	}
	group := &reportql.FilterGroup{Combinator: reportql.CombinatorAnd}
	if base != nil {
		group.Groups = append(group.Groups, *base)
	}
	for i := 0; i < len(groupKeys) && i < len(rowGroupCols); i++ {
		field := fieldOf(rowGroupCols[i])
		group.Conditions = append(group.Conditions, reportql.FilterCondition{
			Column: field, Operator: reportql.OpEQ, Value: groupKeys[i],
		})
	}
	return group
}

func fieldOf(c ColumnVO) string {
	if c.Field != "" {
		return c.Field
	}
	return c.ID
}
