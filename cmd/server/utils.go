package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/arborfold/reportql"
)

// APIResponse is the standard envelope shape for every handler.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a 2xx envelope.
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, APIResponse{Success: true, Data: data})
}

// writeError writes a plain-message error envelope.
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{Success: false, Error: message})
}

// writeReportError maps a ReportError to its §7 HTTP status and the
// `{error, details}` envelope; any other error is treated as an
// opaque backend failure.
func writeReportError(w http.ResponseWriter, err error) error {
	var reportErr *reportql.ReportError
	if re, ok := err.(*reportql.ReportError); ok {
		reportErr = re
	} else {
		reportErr = reportql.NewBackendError(err.Error(), err)
	}
	return writeJSON(w, reportErr.HTTPStatus(), map[string]any{
		"error": "custom_error",
		"details": []map[string]any{
			{"errorType": string(reportErr.Type), "message": reportErr.Message},
		},
	})
}

// readJSONBody decodes the request body into v.
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// datasetPath splits "/datasets/{key}/{rest...}" into the dataset key
// and whatever trails it, mirroring the teacher's manual path-parsing
// idiom rather than reaching for a router library (none exists
// anywhere in the example pack).
func datasetPath(path string) (key string, rest string) {
	trimmed := strings.TrimPrefix(path, "/datasets")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
