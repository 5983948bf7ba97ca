package errors

import (
	"fmt"
	"log/slog"
	"net/http"
)

const (
	// Prefix used for error code strings
	// Example:
	//   ErrorCodePrefix = "infractl"
	//   results in: infractl-7
	ErrorCodePrefix = "infractl"

	// Forbidden occurs when the requester may not perform the specified action
	ErrorForbidden ServiceErrorCode = 4

	// Conflict occurs when a database constraint is violated
	ErrorConflict ServiceErrorCode = 6

	// NotFound occurs when a record is not found in the database
	ErrorNotFound ServiceErrorCode = 7

	// Validation occurs when an object fails validation
	ErrorValidation ServiceErrorCode = 8

	// General occurs when an error fails to match any other error code
	ErrorGeneral ServiceErrorCode = 9

	// NotImplemented occurs when an API REST method is not implemented in a handler
	ErrorNotImplemented ServiceErrorCode = 10

	// MalformedRequest occurs when the request body cannot be read
	ErrorMalformedRequest ServiceErrorCode = 17

	// Bad Request
	ErrorBadRequest ServiceErrorCode = 21

	// AdmissionDenied occurs when an admission webhook rejects a write
	ErrorAdmissionDenied ServiceErrorCode = 31

	// FinalizersPresent occurs when a hard delete is blocked by remaining finalizers
	ErrorFinalizersPresent ServiceErrorCode = 32

	// NoReconcilerForType occurs when no reconciler claims the resource type of a new resource
	ErrorNoReconcilerForType ServiceErrorCode = 33
)

type ServiceErrorCode int

type ServiceErrors []ServiceError

// ValidationDetail represents a single field validation error
type ValidationDetail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func Find(code ServiceErrorCode) (bool, *ServiceError) {
	for _, err := range Errors() {
		if err.Code == code {
			return true, &err
		}
	}
	return false, nil
}

func Errors() ServiceErrors {
	return ServiceErrors{
		{Code: ErrorForbidden, Reason: "Forbidden to perform this action", HttpCode: http.StatusForbidden},
		{Code: ErrorConflict, Reason: "An entity with the specified unique values already exists", HttpCode: http.StatusConflict},
		{Code: ErrorNotFound, Reason: "Resource not found", HttpCode: http.StatusNotFound},
		{Code: ErrorValidation, Reason: "General validation failure", HttpCode: http.StatusBadRequest},
		{Code: ErrorGeneral, Reason: "Unspecified error", HttpCode: http.StatusInternalServerError},
		{Code: ErrorNotImplemented, Reason: "HTTP Method not implemented for this endpoint", HttpCode: http.StatusMethodNotAllowed},
		{Code: ErrorMalformedRequest, Reason: "Unable to read request body", HttpCode: http.StatusBadRequest},
		{Code: ErrorBadRequest, Reason: "Bad request", HttpCode: http.StatusBadRequest},
		{Code: ErrorAdmissionDenied, Reason: "Request denied by admission webhook", HttpCode: http.StatusForbidden},
		{Code: ErrorFinalizersPresent, Reason: "Resource has finalizers present", HttpCode: http.StatusConflict},
		{Code: ErrorNoReconcilerForType, Reason: "No reconciler registered for resource type", HttpCode: http.StatusBadRequest},
	}
}

type ServiceError struct {
	// Code is the numeric and distinct ID for the error
	Code ServiceErrorCode
	// Reason is the context-specific reason the error was generated
	Reason string
	// HttpCode is the status code associated with the error when the error is returned as an API response
	HttpCode int
	// Details contains field-level validation errors (optional)
	Details []ValidationDetail
}

// New Reason can be a string with format verbs, which will be replaced by the specified values
func New(code ServiceErrorCode, reason string, values ...interface{}) *ServiceError {
	// If the code isn't defined, use the general error code
	var err *ServiceError
	exists, err := Find(code)
	if !exists {
		slog.Error("Undefined error code used", "code", code)
		err = &ServiceError{
			Code:     ErrorGeneral,
			Reason:   "Unspecified error",
			HttpCode: 500,
		}
	}

	// If the reason is unspecified, use the default
	if reason != "" {
		err.Reason = fmt.Sprintf(reason, values...)
	}

	return err
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", CodeStr(e.Code), e.Reason)
}

func (e *ServiceError) AsError() error {
	return fmt.Errorf("%s", e.Error())
}

func (e *ServiceError) Is404() bool {
	return e.Code == ErrorNotFound
}

func (e *ServiceError) IsConflict() bool {
	return e.Code == ErrorConflict || e.Code == ErrorFinalizersPresent
}

func (e *ServiceError) IsForbidden() bool {
	return e.Code == ErrorForbidden || e.Code == ErrorAdmissionDenied
}

func CodeStr(code ServiceErrorCode) string {
	return fmt.Sprintf("%s-%d", ErrorCodePrefix, code)
}

func NotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorNotFound, reason, values...)
}

func GeneralError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorGeneral, reason, values...)
}

func Forbidden(reason string, values ...interface{}) *ServiceError {
	return New(ErrorForbidden, reason, values...)
}

func NotImplemented(reason string, values ...interface{}) *ServiceError {
	return New(ErrorNotImplemented, reason, values...)
}

func Conflict(reason string, values ...interface{}) *ServiceError {
	return New(ErrorConflict, reason, values...)
}

func Validation(reason string, values ...interface{}) *ServiceError {
	return New(ErrorValidation, reason, values...)
}

// ValidationWithDetails creates a validation error with field-level details
func ValidationWithDetails(reason string, details []ValidationDetail) *ServiceError {
	err := New(ErrorValidation, "%s", reason)
	err.Details = details
	return err
}

func MalformedRequest(reason string, values ...interface{}) *ServiceError {
	return New(ErrorMalformedRequest, reason, values...)
}

func BadRequest(reason string, values ...interface{}) *ServiceError {
	return New(ErrorBadRequest, reason, values...)
}

// AdmissionDenied reports a write rejected by an admission webhook.
func AdmissionDenied(reason string, values ...interface{}) *ServiceError {
	return New(ErrorAdmissionDenied, reason, values...)
}

// FinalizersPresent reports a hard delete blocked by remaining finalizers.
func FinalizersPresent(reason string, values ...interface{}) *ServiceError {
	return New(ErrorFinalizersPresent, reason, values...)
}

// NoReconcilerForType reports a create for a resource type no reconciler claims.
func NoReconcilerForType(resourceType string) *ServiceError {
	return New(ErrorNoReconcilerForType, "No reconciler registered for resource type '%s'", resourceType)
}
