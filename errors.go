package reportql

import "fmt"

// ErrorType is the category of a ReportError, per the five-code
// taxonomy in §7 of SPEC_FULL.md.
type ErrorType string

const (
	ErrorTypeDatasetNotFound        ErrorType = "dataset_not_found"
	ErrorTypeColumnNotFound         ErrorType = "column_not_found"
	ErrorTypeFilterValidation       ErrorType = "filter_validation_error"
	ErrorTypeAggregationUnsupported ErrorType = "aggregation_not_supported"
	ErrorTypeBackend                ErrorType = "backend_error"
)

const (
	ErrCodeDatasetNotFound        = "DATASET_NOT_FOUND"
	ErrCodeColumnNotFound         = "COLUMN_NOT_FOUND"
	ErrCodeFilterValidationError  = "FILTER_VALIDATION_ERROR"
	ErrCodeAggregationUnsupported = "AGGREGATION_NOT_SUPPORTED"
	ErrCodeBackendError           = "BACKEND_ERROR"
)

// ReportError is the single unified error type returned by providers,
// the registry, and the grid translator. The HTTP surface maps Type
// to a status code per §7 (404, 400, 400, 501, 400 respectively).
type ReportError struct {
	Type    ErrorType
	Code    string
	Message string
	Dataset string
	Column  string
	Field   string
	Details map[string]any
	Cause   error
}

func (e *ReportError) Error() string {
	switch {
	case e.Dataset != "" && e.Column != "":
		return fmt.Sprintf("[%s:%s] dataset %q column %q: %s", e.Type, e.Code, e.Dataset, e.Column, e.Message)
	case e.Dataset != "":
		return fmt.Sprintf("[%s:%s] dataset %q: %s", e.Type, e.Code, e.Dataset, e.Message)
	case e.Field != "":
		return fmt.Sprintf("[%s:%s] field %q: %s", e.Type, e.Code, e.Field, e.Message)
	default:
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
}

func (e *ReportError) Unwrap() error { return e.Cause }

func (e *ReportError) WithDetail(key string, value any) *ReportError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *ReportError) WithCause(cause error) *ReportError {
	e.Cause = cause
	return e
}

// NewDatasetNotFoundError builds the error the registry raises for an
// unknown key lookup.
func NewDatasetNotFoundError(key string) *ReportError {
	return &ReportError{
		Type:    ErrorTypeDatasetNotFound,
		Code:    ErrCodeDatasetNotFound,
		Message: fmt.Sprintf("dataset %q is not registered", key),
		Dataset: key,
	}
}

// NewColumnNotFoundError builds the error a provider raises when a
// filter/sort/selection references a name absent from get_columns.
func NewColumnNotFoundError(dataset, column string) *ReportError {
	return &ReportError{
		Type:    ErrorTypeColumnNotFound,
		Code:    ErrCodeColumnNotFound,
		Message: fmt.Sprintf("column %q is not defined on dataset %q", column, dataset),
		Dataset: dataset,
		Column:  column,
	}
}

// NewFilterValidationError builds the error for a malformed filter
// group/condition shape.
func NewFilterValidationError(message string) *ReportError {
	return &ReportError{
		Type:    ErrorTypeFilterValidation,
		Code:    ErrCodeFilterValidationError,
		Message: message,
	}
}

// NewAggregationNotSupportedError builds the error a provider raises
// when it cannot fulfil a requested pivot/aggregate, or the translator
// raises when pivot is requested against a non-pivot-capable dataset.
func NewAggregationNotSupportedError(dataset, reason string) *ReportError {
	return &ReportError{
		Type:    ErrorTypeAggregationUnsupported,
		Code:    ErrCodeAggregationUnsupported,
		Message: reason,
		Dataset: dataset,
	}
}

// NewBackendError wraps an underlying database/storage failure.
func NewBackendError(message string, cause error) *ReportError {
	return &ReportError{
		Type:    ErrorTypeBackend,
		Code:    ErrCodeBackendError,
		Message: message,
		Cause:   cause,
	}
}

// HTTPStatus maps a ReportError's Type to the status code §7 assigns
// it.
func (e *ReportError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeDatasetNotFound:
		return 404
	case ErrorTypeColumnNotFound:
		return 400
	case ErrorTypeFilterValidation:
		return 400
	case ErrorTypeAggregationUnsupported:
		return 501
	case ErrorTypeBackend:
		return 400
	default:
		return 500
	}
}
