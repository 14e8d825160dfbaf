package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/export"
	"github.com/arborfold/reportql/internal/grid"
)

// datasetListEntry is one row of GET /datasets.
type datasetListEntry struct {
	Key          string                      `json:"key"`
	Label        string                      `json:"label"`
	Description  string                      `json:"description"`
	Capabilities reportql.DatasetCapabilities `json:"capabilities"`
}

// handleListDatasets handles GET /datasets.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	providers, err := s.registry.AllProviders()
	if err != nil {
		writeReportError(w, err)
		return
	}

	entries := make([]datasetListEntry, 0, len(providers))
	for _, key := range s.registry.ListKeys() {
		p, ok := providers[key]
		if !ok {
			continue
		}
		entries = append(entries, datasetListEntry{
			Key:          p.Key(),
			Label:        p.Label(),
			Description:  p.Description(),
			Capabilities: p.Capabilities(),
		})
	}

	writeSuccess(w, http.StatusOK, entries)
}

// handleGetColumns handles GET /datasets/{key}/columns.
func (s *Server) handleGetColumns(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider, err := s.registry.Get(key)
	if err != nil {
		writeReportError(w, err)
		return
	}

	columns, err := provider.GetColumns(r.Context())
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"columns": columns})
}

// previewRequest is the body of POST /datasets/{key}/preview.
type previewRequest struct {
	SelectedColumns []string                `json:"selectedColumns"`
	Filter          *reportql.FilterGroup   `json:"filter,omitempty"`
	Sort            []reportql.SortSpec     `json:"sort,omitempty"`
	Limit           int                     `json:"limit,omitempty"`
}

// handlePreview handles POST /datasets/{key}/preview.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider, err := s.registry.Get(key)
	if err != nil {
		writeReportError(w, err)
		return
	}

	var req previewRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.config.Query.DefaultPageSize
	}
	if limit > s.config.Query.MaxPageSize {
		limit = s.config.Query.MaxPageSize
	}

	columns := req.SelectedColumns
	if len(columns) == 0 {
		cols, err := provider.GetColumns(r.Context())
		if err != nil {
			writeReportError(w, err)
			return
		}
		for _, c := range cols {
			columns = append(columns, c.Name)
		}
	}

	result, err := provider.Query(r.Context(), columns, req.Filter, req.Sort, limit, 0, nil)
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"columns": result.Columns,
		"rows":    result.Rows,
		"total":   result.Total,
	})
}

// handleGridRequest handles POST /datasets/{key}/table and
// /datasets/{key}/pivot: both decode the same grid.Request shape and
// dispatch through grid.HandleRequest, which tells flat, simple-group,
// and pivot requests apart from the request body alone.
func (s *Server) handleGridRequest(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider, err := s.registry.Get(key)
	if err != nil {
		writeReportError(w, err)
		return
	}

	var req grid.Request
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	resp, err := grid.HandleRequest(r.Context(), provider, &req, nil)
	if err != nil {
		writeReportError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp)
}

// exportRequest is the body of POST /datasets/{key}/export, one of
// Flat or Pivot populated per §6.
type exportRequest struct {
	Flat *struct {
		SelectedColumns []string              `json:"selectedColumns"`
		Filter          *reportql.FilterGroup `json:"filter,omitempty"`
		Format          string                `json:"format"`
	} `json:"flat,omitempty"`
	Pivot *struct {
		RowGroupCols []grid.ColumnVO             `json:"rowGroupCols"`
		ValueCols    []grid.ColumnVO             `json:"valueCols"`
		PivotCols    []grid.ColumnVO             `json:"pivotCols"`
		FilterModel  map[string]grid.FilterModelEntry `json:"filterModel,omitempty"`
		SortModel    []grid.SortModelEntry       `json:"sortModel,omitempty"`
		Format       string                      `json:"format"`
	} `json:"pivot,omitempty"`
}

// toExportRequest builds the export.Request (and chosen format) for
// either the flat or the pivot sub-object of body.
func toExportRequest(body exportRequest) (export.Request, export.Format, error) {
	switch {
	case body.Flat != nil:
		return export.Request{
			Columns: body.Flat.SelectedColumns,
			Filter:  body.Flat.Filter,
		}, export.Format(body.Flat.Format), nil
	case body.Pivot != nil:
		filter := grid.ResolveExportFilter(body.Pivot.FilterModel)
		return export.Request{
			Pivot:       true,
			GroupByRows: grid.FieldsOf(body.Pivot.RowGroupCols),
			GroupByCols: grid.FieldsOf(body.Pivot.PivotCols),
			Values:      grid.ValueSpecsOf(body.Pivot.ValueCols),
			Filter:      filter,
			Sort:        grid.TranslateSortModel(body.Pivot.SortModel),
		}, export.Format(body.Pivot.Format), nil
	default:
		return export.Request{}, "", reportql.NewFilterValidationError("export body must set either 'flat' or 'pivot'")
	}
}

// handleExport handles POST /datasets/{key}/export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider, err := s.registry.Get(key)
	if err != nil {
		writeReportError(w, err)
		return
	}

	var body exportRequest
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	expReq, format, err := toExportRequest(body)
	if err != nil {
		writeReportError(w, err)
		return
	}

	shaped, err := export.Shape(r.Context(), provider, expReq, nil)
	if err != nil {
		writeReportError(w, err)
		return
	}

	rendered, contentType, err := export.Render(shaped, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, key, extensionFor(format)))
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
}

func extensionFor(format export.Format) string {
	if format == export.FormatXLSX {
		return "xlsx"
	}
	return "csv"
}

// exportToS3Request is the body of POST /datasets/{key}/export/s3.
type exportToS3Request struct {
	exportRequest
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"objectKey"`
}

// handleExportToS3 handles POST /datasets/{key}/export/s3.
func (s *Server) handleExportToS3(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.uploader == nil {
		writeError(w, http.StatusBadRequest, "export-to-storage is not configured on this server")
		return
	}

	provider, err := s.registry.Get(key)
	if err != nil {
		writeReportError(w, err)
		return
	}

	var body exportToS3Request
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	if body.Bucket == "" || body.ObjectKey == "" {
		writeError(w, http.StatusBadRequest, "bucket and objectKey are required")
		return
	}

	expReq, format, err := toExportRequest(body.exportRequest)
	if err != nil {
		writeReportError(w, err)
		return
	}

	shaped, err := export.Shape(r.Context(), provider, expReq, nil)
	if err != nil {
		writeReportError(w, err)
		return
	}

	rendered, _, err := export.Render(shaped, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := export.ToS3(r.Context(), s.uploader, body.Bucket, body.ObjectKey, shaped, format); err != nil {
		zap.S().Errorw("s3 export upload failed", "dataset", key, "bucket", body.Bucket, "objectKey", body.ObjectKey, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "custom_error",
			"details": []map[string]any{
				{"errorType": string(reportql.ErrorTypeBackend), "message": err.Error()},
			},
		})
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"bucket":       body.Bucket,
		"objectKey":    body.ObjectKey,
		"bytesWritten": len(rendered),
	})
}

// datasetHandler dispatches /datasets/{key}/... requests by the trailing
// path segment, mirroring the teacher's apiHandler router.
func (s *Server) datasetHandler(w http.ResponseWriter, r *http.Request) {
	key, rest := datasetPath(r.URL.Path)
	if key == "" {
		s.handleListDatasets(w, r)
		return
	}

	switch rest {
	case "columns":
		s.handleGetColumns(w, r, key)
	case "preview":
		s.handlePreview(w, r, key)
	case "table", "pivot":
		s.handleGridRequest(w, r, key)
	case "export":
		s.handleExport(w, r, key)
	case "export/s3":
		s.handleExportToS3(w, r, key)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown dataset route %q", rest))
	}
}
