package reportql

import "context"

// RequestContext is the anonymous bundle of caller identity passed to
// providers for optional row-level filtering. Providers are never
// required to use it.
type RequestContext struct {
	UserID      string
	TenantID    string
	Permissions []string
	Groups      []string
	Extra       map[string]any
}

// Provider is the narrow capability set a dataset must implement:
// list its columns, run a flat query, run an aggregate/pivot query.
// Both reference implementations (in-memory, SQL) satisfy this
// interface; no inheritance chain is needed.
type Provider interface {
	// Key is the dataset's stable registry identifier.
	Key() string
	// Label is the dataset's human-readable display name.
	Label() string
	// Description is optional free text shown in dataset listings.
	Description() string
	// Capabilities flags optional behaviours, notably pivot support.
	Capabilities() DatasetCapabilities

	// GetColumns is pure, cheap, and safe to call repeatedly; O(1)
	// after the first call.
	GetColumns(ctx context.Context) ([]ColumnMeta, error)

	// Query runs a flat, projected, filtered, sorted, paginated read.
	// limit=0 means "no limit" (used by export paths).
	Query(ctx context.Context, selectedColumns []string, filter *FilterGroup, sort []SortSpec, limit, offset int, rc *RequestContext) (*TabularResult, error)

	// Aggregate runs a GROUP BY (groupByCols empty) or a pivot
	// (groupByCols non-empty) query. limit<0 means "no limit" (used
	// by export paths); offset is always honoured.
	Aggregate(ctx context.Context, groupByRows, groupByCols []string, values []ValueSpec, filter *FilterGroup, sort []SortSpec, limit int, offset int, rc *RequestContext) (*AggregateResult, error)
}
