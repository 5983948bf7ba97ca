package logger

// Field name constants for structured logging.
// These constants provide type safety and prevent typos when adding fields to logs.

// Server/Config related fields
const (
	FieldBindAddress = "bind_address"
	FieldEnvironment = "environment"
	FieldLogLevel    = "level"
	FieldLogFormat   = "format"
	FieldLogOutput   = "output"
)

// Reconciliation related fields
const (
	FieldReconciler    = "reconciler"
	FieldTriggerReason = "trigger_reason"
	FieldGeneration    = "generation"
	FieldPhase         = "phase"
	FieldFinalizer     = "finalizer"
	// Note: resource_type and resource_id are context fields (see context.go)
)

// Admission related fields
const (
	FieldWebhook       = "webhook"
	FieldWebhookURL    = "webhook_url"
	FieldFailurePolicy = "failure_policy"
	FieldOperation     = "operation"
)

// Event bus related fields
const (
	FieldSubscriberID = "subscriber_id"
	FieldEventType    = "event_type"
)

// Database related fields
const (
	FieldMigrationID = "migration_id"
	// FieldConnectionString - WARNING: Always sanitize connection strings before logging
	// to prevent exposing passwords. Never log raw connection strings.
	FieldConnectionString = "connection_string"
	FieldTable            = "table"
	FieldChannel          = "channel"
	FieldData             = "data"
)

// OpenTelemetry related fields
const (
	FieldOTelEnabled      = "otel_enabled"
	FieldSamplingRate     = "sampling_rate"
	FieldExporterEndpoint = "exporter_endpoint"
)

// Generic fields
const (
	FieldErrorCode = "error_code"
	FieldFlag      = "flag"
	FieldEndpoint  = "endpoint"
)
