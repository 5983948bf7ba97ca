package logger

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for keys defined in this package.
// This prevents collisions with keys defined in other packages.
type contextKey string

// Context keys for storing correlation fields
const (
	OpIDKey            contextKey = "operation_id"
	ReqIDKey           contextKey = "request_id"
	TraceIDCtxKey      contextKey = "trace_id"
	SpanIDCtxKey       contextKey = "span_id"
	ResourceTypeCtxKey contextKey = "resource_type"
	ResourceIDCtxKey   contextKey = "resource_id"
)

// HTTP header names
const (
	OpIDHeader  = "X-Operation-ID"
	ReqIDHeader = "X-Request-ID"
)

// WithOpID adds a fresh operation ID to the context unless one is already set
func WithOpID(ctx context.Context) context.Context {
	if ctx.Value(OpIDKey) != nil {
		return ctx
	}
	return context.WithValue(ctx, OpIDKey, uuid.New().String())
}

// WithRequestID adds a request ID to the context unless one is already set
func WithRequestID(ctx context.Context) context.Context {
	if ctx.Value(ReqIDKey) != nil {
		return ctx
	}
	return context.WithValue(ctx, ReqIDKey, uuid.New().String())
}

// WithTraceID adds trace ID to context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDCtxKey, traceID)
}

// WithSpanID adds span ID to context
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDCtxKey, spanID)
}

// WithResourceType adds resource type to context
func WithResourceType(ctx context.Context, resourceType string) context.Context {
	return context.WithValue(ctx, ResourceTypeCtxKey, resourceType)
}

// WithResourceID adds resource ID to context
func WithResourceID(ctx context.Context, resourceID string) context.Context {
	return context.WithValue(ctx, ResourceIDCtxKey, resourceID)
}

// GetOperationID retrieves operation ID from context
func GetOperationID(ctx context.Context) (string, bool) {
	opID, ok := ctx.Value(OpIDKey).(string)
	return opID, ok
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	reqID, ok := ctx.Value(ReqIDKey).(string)
	return reqID, ok
}

// GetTraceID retrieves trace ID from context
func GetTraceID(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(TraceIDCtxKey).(string)
	return traceID, ok
}

// GetSpanID retrieves span ID from context
func GetSpanID(ctx context.Context) (string, bool) {
	spanID, ok := ctx.Value(SpanIDCtxKey).(string)
	return spanID, ok
}

// GetResourceType retrieves resource type from context
func GetResourceType(ctx context.Context) (string, bool) {
	resourceType, ok := ctx.Value(ResourceTypeCtxKey).(string)
	return resourceType, ok
}

// GetResourceID retrieves resource ID from context
func GetResourceID(ctx context.Context) (string, bool) {
	resourceID, ok := ctx.Value(ResourceIDCtxKey).(string)
	return resourceID, ok
}

// ContextField defines metadata for a string-type context log field
type ContextField struct {
	Key    contextKey
	Name   string
	Getter func(context.Context) (string, bool)
}

// ContextFieldsRegistry defines all string-type context fields for logging.
// This is the single source of truth for string field management.
var ContextFieldsRegistry = []ContextField{
	{OpIDKey, "operation_id", GetOperationID},
	{ReqIDKey, "request_id", GetRequestID},
	{TraceIDCtxKey, "trace_id", GetTraceID},
	{SpanIDCtxKey, "span_id", GetSpanID},
	{ResourceTypeCtxKey, "resource_type", GetResourceType},
	{ResourceIDCtxKey, "resource_id", GetResourceID},
}
