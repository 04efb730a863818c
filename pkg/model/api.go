package model

import (
	"fmt"
	"time"
)

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions configures list queries with pagination.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// Page returns the pagination metadata for a list of total items.
func (o ListOptions) Page(total int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   o.Limit,
		Offset:  o.Offset,
		HasMore: o.Offset+o.Limit < total,
	}
}

// ErrorCode classifies an APIError.
type ErrorCode string

const (
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeBadRequest    ErrorCode = "BAD_REQUEST"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeResolution    ErrorCode = "RESOLUTION"
	CodeBinding       ErrorCode = "BINDING"
	CodeJobExecution  ErrorCode = "JOB_EXECUTION"
	CodeContext       ErrorCode = "CONTEXT"
	CodeInternal      ErrorCode = "INTERNAL"
)

// APIError is the error body of a Response.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

// APIErrorFrom converts err to an APIError coded by its kind.
func APIErrorFrom(err error) *APIError {
	code := CodeInternal
	switch KindOf(err) {
	case ErrConfiguration:
		code = CodeConfiguration
	case ErrResolution:
		code = CodeResolution
	case ErrBinding:
		code = CodeBinding
	case ErrJobExecution:
		code = CodeJobExecution
	case ErrIncompatibleContext, ErrContextUnavailable:
		code = CodeContext
	}
	return &APIError{Code: code, Message: err.Error()}
}
