package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an APIError. Every kind maps to exactly one HTTP status.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation_error"
	KindInvalidArgument Kind = "invalid_argument"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindInvalidState    Kind = "invalid_state"
	KindPartialFailure  Kind = "partial_failure"
	KindInternal        Kind = "internal_error"
)

var kindStatus = map[Kind]int{
	KindNotFound:        http.StatusNotFound,
	KindValidation:      http.StatusBadRequest,
	KindInvalidArgument: http.StatusBadRequest,
	KindUnauthorized:    http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindConflict:        http.StatusConflict,
	KindInvalidState:    http.StatusBadRequest,
	KindPartialFailure:  http.StatusInternalServerError,
	KindInternal:        http.StatusInternalServerError,
}

// StatusFor returns the HTTP status a kind is reported with.
func StatusFor(k Kind) int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// APIError represents a structured error for API responses.
// Includes a code, message, and HTTP status for consistent error handling.
type APIError struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return e.Message
}

// Is reports whether target is an APIError of the same code, or the generic
// error of the same kind (e.g. ErrNotFound matches ErrOrganizationNotFound).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == string(t.Kind) && t.Kind == e.Kind
}

// WithMessage returns a copy of the error carrying a more specific message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// NewAPIError creates a new APIError of the given kind.
func NewAPIError(kind Kind, code, message string) *APIError {
	return &APIError{Kind: kind, Code: code, Message: message, Status: StatusFor(kind)}
}

// Generic errors, one per kind.
var (
	ErrNotFound        = NewAPIError(KindNotFound, string(KindNotFound), "resource not found")
	ErrValidation      = NewAPIError(KindValidation, string(KindValidation), "request failed validation")
	ErrInvalidArgument = NewAPIError(KindInvalidArgument, string(KindInvalidArgument), "invalid argument")
	ErrUnauthorized    = NewAPIError(KindUnauthorized, string(KindUnauthorized), "unauthorized")
	ErrForbidden       = NewAPIError(KindForbidden, string(KindForbidden), "you don't have permission to perform this action")
	ErrConflict        = NewAPIError(KindConflict, string(KindConflict), "conflicting request")
	ErrInvalidState    = NewAPIError(KindInvalidState, string(KindInvalidState), "operation not allowed in current state")
	ErrPartialFailure  = NewAPIError(KindPartialFailure, string(KindPartialFailure), "reference could not be resolved")
	ErrInternalServer  = NewAPIError(KindInternal, string(KindInternal), "internal server error")
)

// Predefined API errors for common scenarios.
var (
	ErrMemberNotFound         = NewAPIError(KindNotFound, "member_not_exist", "the member you are trying to operate on does not exist")
	ErrOrganizationNotFound   = NewAPIError(KindNotFound, "organization_not_exist", "the organization you are trying to operate on does not exist")
	ErrPostNotFound           = NewAPIError(KindNotFound, "post_not_exist", "the post you are trying to operate on does not exist")
	ErrPendingRequestNotFound = NewAPIError(KindNotFound, "pending_request_not_exist", "the pending organization request does not exist")
	ErrPositionNotFound       = NewAPIError(KindNotFound, "position_not_exist", "the position does not exist in this partition")
	ErrCalendarEventNotFound  = NewAPIError(KindNotFound, "calendar_event_not_exist", "the calendar event does not exist")
	ErrInvalidBody            = NewAPIError(KindValidation, "invalid_body_format", "unable to parse the request body")
	ErrInvalidDecision        = NewAPIError(KindInvalidArgument, "invalid_decision", "decision action must be \"approve\" or \"reject\"")
	ErrInvalidPartition       = NewAPIError(KindInvalidArgument, "invalid_partition", "partition must be \"open\" or \"closed\"")
	ErrPostHasNoEventDate     = NewAPIError(KindValidation, "post_without_event_date", "post does not have an event date")
	ErrTerminalRequest        = NewAPIError(KindConflict, "terminal_request", "the request has already been decided")
	ErrDuplicateCalendarEvent = NewAPIError(KindConflict, "duplicate_calendar_event", "event for this post already exists in your calendar")
	ErrConcurrentUpdate       = NewAPIError(KindConflict, "concurrent_update", "the resource was modified concurrently, retry the request")
	ErrClosedPositionCreate   = NewAPIError(KindInvalidState, "closed_position_create", "positions can only be created in the open partition")
	ErrNotExecutive           = NewAPIError(KindForbidden, "not_organization_executive", "you can only manage organizations you are an executive of")
	ErrInvalidToken           = NewAPIError(KindUnauthorized, "invalid_token", "invalid or expired token")
)

// NewValidationError returns a validation error with a detailed message.
func NewValidationError(message string) *APIError {
	return ErrValidation.WithMessage(message)
}

// As extracts the APIError from err. Errors that are not APIErrors are
// reported as internal errors.
func As(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternalServer
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	return As(err).Kind
}
