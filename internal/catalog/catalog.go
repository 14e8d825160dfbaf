// Package catalog registers datasets: it validates an author-supplied
// column-definition document against a fixed JSON Schema before
// turning it into the ColumnMeta list a Provider is built from, and
// stamps stable identifiers for datasets/reports/export jobs (C12).
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/arborfold/reportql"
)

// columnDefSchema is the fixed meta-schema every dataset's column
// definitions document must satisfy before registration, catching
// malformed dataset configs at startup instead of at first query.
const columnDefSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "type"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "label": {"type": "string"},
      "type": {"type": "string", "enum": ["STRING", "NUMBER", "CURRENCY", "PERCENTAGE", "DATE", "DATETIME", "BOOLEAN"]},
      "nullable": {"type": "boolean"},
      "filterStyle": {"type": "string", "enum": ["OPERATORS", "SELECT"]},
      "enumValues": {"type": "array", "items": {"type": "string"}},
      "pivot": {
        "type": "object",
        "required": ["role"],
        "properties": {
          "role": {"type": "string", "enum": ["dimension", "measure"]},
          "allowedAggs": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var resolvedColumnDefSchema *jsonschema.Resolved

func resolvedSchema() (*jsonschema.Resolved, error) {
	if resolvedColumnDefSchema != nil {
		return resolvedColumnDefSchema, nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(columnDefSchema), &schema); err != nil {
		return nil, fmt.Errorf("parse column-definition meta-schema: %w", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("resolve column-definition meta-schema: %w", err)
	}
	resolvedColumnDefSchema = resolved
	return resolved, nil
}

// ColumnDef is the author-facing shape of one column definition,
// decoded straight off the validated JSON document.
type ColumnDef struct {
	Name        string                      `json:"name"`
	Label       string                      `json:"label"`
	Type        reportql.ColumnType         `json:"type"`
	Nullable    bool                        `json:"nullable"`
	FilterStyle reportql.FilterStyle        `json:"filterStyle"`
	EnumValues  []string                    `json:"enumValues"`
	Pivot       *reportql.ColumnPivotOptions `json:"pivot"`
}

// DatasetDefinition is what an operator submits to register a new
// reporting dataset.
type DatasetDefinition struct {
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Columns     []ColumnDef `json:"columns"`
}

// ValidateColumnDefs checks raw (the dataset's column-definitions
// document, as submitted) against the fixed meta-schema.
func ValidateColumnDefs(raw []byte) error {
	resolved, err := resolvedSchema()
	if err != nil {
		return err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return reportql.NewFilterValidationError(fmt.Sprintf("column definitions are not valid JSON: %v", err))
	}
	if err := resolved.Validate(data); err != nil {
		return reportql.NewFilterValidationError(fmt.Sprintf("column definitions failed schema validation: %v", err))
	}
	return nil
}

// BuildColumnMetas validates raw against the meta-schema, decodes it,
// and fills in each column's default operator preset and pivot
// allowed-aggs default where the author omitted them.
func BuildColumnMetas(raw []byte) ([]reportql.ColumnMeta, error) {
	if err := ValidateColumnDefs(raw); err != nil {
		return nil, err
	}
	var defs []ColumnDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, reportql.NewFilterValidationError(fmt.Sprintf("column definitions decode failed: %v", err))
	}

	metas := make([]reportql.ColumnMeta, 0, len(defs))
	for _, d := range defs {
		meta := reportql.ColumnMeta{
			Name:        d.Name,
			Label:       d.Label,
			Type:        d.Type,
			Nullable:    d.Nullable,
			Operators:   reportql.DefaultOperatorsFor(d.Type),
			EnumValues:  d.EnumValues,
			FilterStyle: d.FilterStyle,
			Pivot:       d.Pivot,
		}
		if meta.Label == "" {
			meta.Label = d.Name
		}
		if meta.Pivot != nil && meta.Pivot.Role == reportql.PivotRoleMeasure && len(meta.Pivot.AllowedAggs) == 0 {
			meta.Pivot.AllowedAggs = reportql.DefaultPivotAggs
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// NewDatasetID, NewReportID, and NewExportJobID stamp stable UUIDs for
// the catalogue's three identifier kinds; all three are presently the
// same underlying generator, kept as distinct names for call-site
// clarity (a dataset ID should never accidentally be compared against
// an export job ID).
func NewDatasetID() string  { return uuid.New().String() }
func NewReportID() string   { return uuid.New().String() }
func NewExportJobID() string { return uuid.New().String() }
