package reportql

// ColumnType is the display/validation type of a dataset column.
type ColumnType string

const (
	ColumnTypeString     ColumnType = "STRING"
	ColumnTypeNumber     ColumnType = "NUMBER"
	ColumnTypeCurrency   ColumnType = "CURRENCY"
	ColumnTypePercentage ColumnType = "PERCENTAGE"
	ColumnTypeDate       ColumnType = "DATE"
	ColumnTypeDateTime   ColumnType = "DATETIME"
	ColumnTypeBoolean    ColumnType = "BOOLEAN"
)

// FilterOperator is the fixed set of predicate operators the filter
// tree and SQL compiler both understand. Wire values match the
// original Python source's camelCase JSON encoding.
type FilterOperator string

const (
	OpEQ         FilterOperator = "eq"
	OpNEQ        FilterOperator = "neq"
	OpGT         FilterOperator = "gt"
	OpLT         FilterOperator = "lt"
	OpGTE        FilterOperator = "gte"
	OpLTE        FilterOperator = "lte"
	OpContains   FilterOperator = "contains"
	OpStartsWith FilterOperator = "startsWith"
	OpEndsWith   FilterOperator = "endsWith"
	OpIsNull     FilterOperator = "isNull"
	OpIsNotNull  FilterOperator = "isNotNull"
	OpBetween    FilterOperator = "between"
	OpIn         FilterOperator = "in"
)

// FilterCombinator joins sibling conditions/groups within a FilterGroup.
type FilterCombinator string

const (
	CombinatorAnd FilterCombinator = "and"
	CombinatorOr  FilterCombinator = "or"
)

// FilterStyle hints to a client how a column's filter UI should render.
type FilterStyle string

const (
	FilterStyleOperators FilterStyle = "OPERATORS"
	FilterStyleSelect    FilterStyle = "SELECT"
)

// SortDirection is the direction of a single SortSpec.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// AggFunc is an aggregate function applicable to a measure column.
type AggFunc string

const (
	AggSum           AggFunc = "sum"
	AggAvg           AggFunc = "avg"
	AggMin           AggFunc = "min"
	AggMax           AggFunc = "max"
	AggCount         AggFunc = "count"
	AggDistinctCount AggFunc = "distinctCount"
	AggFirst         AggFunc = "first"
	AggLast          AggFunc = "last"
)

// FormatHintKind tells a renderer how to display a measure or column value.
type FormatHintKind string

const (
	FormatHintDecimal     FormatHintKind = "decimal"
	FormatHintPercentage  FormatHintKind = "percentage"
	FormatHintCurrency    FormatHintKind = "currency"
	FormatHintBasisPoints FormatHintKind = "basis_points"
)

// PivotRole says whether a column participates in a pivot as a
// dimension (groupable) or a measure (aggregatable).
type PivotRole string

const (
	PivotRoleDimension PivotRole = "dimension"
	PivotRoleMeasure   PivotRole = "measure"
)

// Default operator sets per column type, mirroring the original
// source's TEXT_OPERATORS/NUMBER_OPERATORS/DATE_OPERATORS/
// BOOLEAN_OPERATORS presets. Dataset authors fall back to these when a
// ColumnMeta is built without an explicit operators list.
var (
	TextOperators = []FilterOperator{
		OpEQ, OpNEQ, OpContains, OpStartsWith, OpEndsWith, OpIsNull, OpIsNotNull, OpIn,
	}
	NumberOperators = []FilterOperator{
		OpEQ, OpNEQ, OpGT, OpLT, OpGTE, OpLTE, OpBetween, OpIsNull, OpIsNotNull, OpIn,
	}
	DateOperators = []FilterOperator{
		OpEQ, OpNEQ, OpGT, OpLT, OpGTE, OpLTE, OpBetween, OpIsNull, OpIsNotNull,
	}
	BooleanOperators = []FilterOperator{
		OpEQ, OpNEQ, OpIsNull, OpIsNotNull,
	}

	// DefaultPivotAggs is used for a measure column whose ColumnPivotOptions
	// omits AllowedAggs, matching the original's conservative default.
	DefaultPivotAggs = []AggFunc{AggSum, AggAvg, AggMin, AggMax, AggCount}
)
