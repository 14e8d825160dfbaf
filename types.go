package reportql

// CurrencyOptions describes how a CURRENCY-typed column should be
// rendered: the ISO code and where the symbol goes relative to the
// number.
type CurrencyOptions struct {
	Code           string `json:"code"`
	SymbolPosition string `json:"symbolPosition,omitempty"` // "prefix" | "suffix"
}

// FormatHints tells a renderer how to present a column's values.
type FormatHints struct {
	Kind     FormatHintKind   `json:"kind"`
	Decimals *int             `json:"decimals,omitempty"`
	Currency *CurrencyOptions `json:"currency,omitempty"`
}

// ColumnPivotOptions describes a column's role when used inside a
// pivot request. Invariant: AllowedAggs is populated iff Role is
// PivotRoleMeasure.
type ColumnPivotOptions struct {
	Role        PivotRole `json:"role"`
	AllowedAggs []AggFunc `json:"allowedAggs,omitempty"`
}

// ColumnMeta describes one column of a dataset. Built once at provider
// registration and immutable thereafter.
type ColumnMeta struct {
	Name        string              `json:"name"`
	Label       string              `json:"label"`
	Type        ColumnType          `json:"type"`
	Nullable    bool                `json:"nullable"`
	Operators   []FilterOperator    `json:"operators"`
	FormatHints *FormatHints        `json:"formatHints,omitempty"`
	EnumValues  []string            `json:"enumValues,omitempty"`
	FilterStyle FilterStyle         `json:"filterStyle,omitempty"`
	Pivot       *ColumnPivotOptions `json:"pivot,omitempty"`
}

// DefaultOperatorsFor returns the preset operator list for a column
// type, used when a ColumnMeta is constructed without an explicit
// Operators slice.
func DefaultOperatorsFor(t ColumnType) []FilterOperator {
	switch t {
	case ColumnTypeString:
		return TextOperators
	case ColumnTypeNumber, ColumnTypeCurrency, ColumnTypePercentage:
		return NumberOperators
	case ColumnTypeDate, ColumnTypeDateTime:
		return DateOperators
	case ColumnTypeBoolean:
		return BooleanOperators
	default:
		return nil
	}
}

// SortSpec is one entry of an ordered sort list; a list is applied as
// a lexicographic key in list order (first entry is primary).
type SortSpec struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// ValueSpec names a measure column and the aggregate function applied
// to it in an Aggregate call.
type ValueSpec struct {
	Column string  `json:"column"`
	Agg    AggFunc `json:"agg"`
	Label  string  `json:"label,omitempty"`
}

// TabularResult is the output of Provider.Query.
type TabularResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Total   int              `json:"total"`
}

// AggregateColumn describes one output column of an AggregateResult.
// Invariant: for non-pivot aggregations PivotKeys is empty; for pivot
// aggregations each measure generates one descriptor per discovered
// pivot combination.
type AggregateColumn struct {
	Key       string   `json:"key"`
	Header    string   `json:"header"`
	PivotKeys []string `json:"pivotKeys,omitempty"`
	Measure   string   `json:"measure,omitempty"`
	Agg       AggFunc  `json:"agg,omitempty"`
}

// AggregateResult is the output of Provider.Aggregate. Columns are in
// canonical order: row-group dimensions first, then dims×measures in
// sorted-combo order.
type AggregateResult struct {
	Columns []AggregateColumn `json:"columns"`
	Rows    []map[string]any  `json:"rows"`
	Total   int               `json:"total"`
}

// DatasetCapabilities flags optional behaviours a provider supports.
// A pivot request against a dataset with Pivot=false must be rejected
// by the translator.
type DatasetCapabilities struct {
	Pivot bool `json:"pivot"`
}
