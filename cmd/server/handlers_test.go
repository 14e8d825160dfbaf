package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arborfold/reportql"
	"github.com/arborfold/reportql/internal/memprovider"
)

func seedColumns() []reportql.ColumnMeta {
	return []reportql.ColumnMeta{
		{Name: "year", Type: reportql.ColumnTypeNumber, Pivot: &reportql.ColumnPivotOptions{Role: reportql.PivotRoleDimension}},
		{Name: "region", Type: reportql.ColumnTypeString, Pivot: &reportql.ColumnPivotOptions{Role: reportql.PivotRoleDimension}},
		{Name: "amount", Type: reportql.ColumnTypeCurrency, Pivot: &reportql.ColumnPivotOptions{Role: reportql.PivotRoleMeasure, AllowedAggs: reportql.DefaultPivotAggs}},
	}
}

func seedRows() []map[string]any {
	return []map[string]any{
		{"year": 2023.0, "region": "N", "amount": 100.0},
		{"year": 2023.0, "region": "S", "amount": 150.0},
		{"year": 2024.0, "region": "N", "amount": 120.0},
		{"year": 2024.0, "region": "S", "amount": 170.0},
	}
}

func newTestServer() *Server {
	registry := reportql.NewRegistry()
	registry.Add(memprovider.New("sales", "Sales", seedColumns(), seedRows(), nil))
	return NewServer(registry, reportql.DefaultConfig(), nil)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v, body: %s", err, rec.Body.String())
	}
	return resp
}

func TestHandleListDatasets(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetColumns(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/datasets/sales/columns", nil)
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetColumns_UnknownDataset(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/datasets/unknown/columns", nil)
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlePreview(t *testing.T) {
	s := newTestServer()
	payload := []byte(`{"selectedColumns": ["year", "region", "amount"]}`)
	req := httptest.NewRequest(http.MethodPost, "/datasets/sales/preview", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	if total, _ := data["total"].(float64); total != 4 {
		t.Fatalf("expected total 4, got %v", data["total"])
	}
}

func TestHandleGridRequest_Table(t *testing.T) {
	s := newTestServer()
	payload := []byte(`{
		"startRow": 0, "endRow": 10,
		"rowGroupCols": [],
		"valueCols": [{"id": "amount", "displayName": "Amount", "field": "amount"}]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/datasets/sales/table", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGridRequest_PivotRejectedWhenUnsupported(t *testing.T) {
	registry := reportql.NewRegistry()
	registry.Add(memprovider.New("sales", "Sales", seedColumns(), seedRows(), &reportql.DatasetCapabilities{Pivot: false}))
	s := NewServer(registry, reportql.DefaultConfig(), nil)

	payload := []byte(`{
		"startRow": 0, "endRow": 10,
		"rowGroupCols": [{"id": "year", "displayName": "Year", "field": "year"}],
		"pivotCols": [{"id": "region", "displayName": "Region", "field": "region"}],
		"pivotMode": true,
		"valueCols": [{"id": "amount", "displayName": "Amount", "field": "amount", "aggFunc": "SUM"}]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/datasets/sales/pivot", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExport_Flat_CSV(t *testing.T) {
	s := newTestServer()
	payload := []byte(`{"flat": {"selectedColumns": ["year", "region", "amount"], "format": "csv"}}`)
	req := httptest.NewRequest(http.MethodPost, "/datasets/sales/export", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if disp := rec.Header().Get("Content-Disposition"); disp == "" {
		t.Fatalf("expected a Content-Disposition header")
	}
}

func TestHandleExport_MissingBothSubObjects(t *testing.T) {
	s := newTestServer()
	payload := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, "/datasets/sales/export", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExportToS3_NotConfigured(t *testing.T) {
	s := newTestServer()
	payload := []byte(`{"flat": {"selectedColumns": ["year"], "format": "csv"}, "bucket": "b", "objectKey": "k"}`)
	req := httptest.NewRequest(http.MethodPost, "/datasets/sales/export/s3", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDatasetHandler_UnknownRoute(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/datasets/sales/bogus", nil)
	rec := httptest.NewRecorder()
	s.datasetHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
