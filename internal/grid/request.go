// Package grid translates the AG Grid Server-Side Row Model protocol
// into calls against a reportql.Provider: filter-model resolution,
// drill-down level selection, and the flat/simple-aggregate/pivot
// three-way dispatch.
package grid

import "github.com/arborfold/reportql"

// ColumnVO describes one grid-side column descriptor (a row-group,
// pivot, or value column entry).
type ColumnVO struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Field       string          `json:"field,omitempty"`
	Agg         reportql.AggFunc `json:"aggFunc,omitempty"`
}

// SortModelEntry is one entry of the grid's sortModel list.
type SortModelEntry struct {
	ColID     string `json:"colId"`
	Direction string `json:"sort"` // "asc" | "desc"
}

// FilterModelEntry is one column's predicate in the grid-style
// filterModel map (AG Grid's SimpleFilter/CombinedFilter shapes).
type FilterModelEntry struct {
	FilterType string             `json:"filterType"`
	Type       string             `json:"type,omitempty"`
	Filter     any                `json:"filter,omitempty"`
	FilterTo   any                `json:"filterTo,omitempty"`
	Values     []any              `json:"values,omitempty"`
	Operator   string             `json:"operator,omitempty"` // "AND" | "OR" on combined filters
	Conditions []FilterModelEntry `json:"conditions,omitempty"`
}

// Request is the paginated grid request shape (§4.6).
type Request struct {
	StartRow     int                         `json:"startRow"`
	EndRow       int                         `json:"endRow"`
	RowGroupCols []ColumnVO                  `json:"rowGroupCols"`
	PivotCols    []ColumnVO                  `json:"pivotCols"`
	ValueCols    []ColumnVO                  `json:"valueCols"`
	GroupKeys    []any                       `json:"groupKeys"`
	PivotMode    bool                        `json:"pivotMode"`
	SortModel    []SortModelEntry            `json:"sortModel"`
	Filter       *reportql.FilterGroup       `json:"filter,omitempty"`
	FilterModel  map[string]FilterModelEntry `json:"filterModel,omitempty"`
}

// Response is the shape returned to the AG Grid client (§4.6 "Response
// shape").
type Response struct {
	RowData           []map[string]any  `json:"rowData"`
	RowCount          int               `json:"rowCount"`
	PivotResultFields []string          `json:"pivotResultFields,omitempty"`
	SecondaryColDefs  []PivotResultColDef `json:"secondaryColDefs,omitempty"`
}

// PivotResultColDef is one top-level secondary column group, grouped
// by the leading pivot dimension's value (§4.6.1 supplement).
type PivotResultColDef struct {
	HeaderName string              `json:"headerName"`
	Children   []PivotResultColDef `json:"children,omitempty"`
	Field      string              `json:"field,omitempty"`
	PivotMeta  *PivotMeta          `json:"pivotMeta,omitempty"`
}

// PivotMeta carries the combo/measure identity of one leaf secondary
// column, mirroring the original's {"pivotKeys": [...], "pivotValue": "..."}.
type PivotMeta struct {
	PivotKeys  []string `json:"pivotKeys"`
	PivotValue string   `json:"pivotValue"`
}
