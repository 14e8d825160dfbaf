package main

import (
	"reflect"
	"testing"
)

func TestDatasetPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantKey  string
		wantRest string
	}{
		{name: "root", path: "/datasets", wantKey: "", wantRest: ""},
		{name: "root with slash", path: "/datasets/", wantKey: "", wantRest: ""},
		{name: "key only", path: "/datasets/sales", wantKey: "sales", wantRest: ""},
		{name: "key and action", path: "/datasets/sales/columns", wantKey: "sales", wantRest: "columns"},
		{name: "nested action", path: "/datasets/sales/export/s3", wantKey: "sales", wantRest: "export/s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, rest := datasetPath(tt.path)
			if key != tt.wantKey || rest != tt.wantRest {
				t.Fatalf("datasetPath(%q) = (%q, %q), want (%q, %q)", tt.path, key, rest, tt.wantKey, tt.wantRest)
			}
		})
	}
}

func TestAPIResponseEnvelope(t *testing.T) {
	resp := APIResponse{Success: true, Data: map[string]any{"a": 1}}
	if !reflect.DeepEqual(resp.Data, map[string]any{"a": 1}) {
		t.Fatalf("unexpected data: %v", resp.Data)
	}
}
