package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/infractl/infractl/pkg/logger"
)

// setupTestTracer creates an in-memory tracer for testing
func setupTestTracer() (*trace.TracerProvider, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp, exporter
}

func initTestLogger() {
	logger.Initialize(logger.Config{
		Level:   "debug",
		Format:  "json",
		Output:  "stdout",
		Version: "test",
	})
}

// TestOTelMiddleware_SpanNameUsesRouteTemplate tests that span names use route
// templates to keep cardinality low
func TestOTelMiddleware_SpanNameUsesRouteTemplate(t *testing.T) {
	initTestLogger()

	tp, exporter := setupTestTracer()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	tests := []struct {
		name             string
		routePattern     string
		requestPath      string
		expectedSpanName string
	}{
		{
			name:             "resource detail uses template",
			routePattern:     "/api/v1/resources/{id}",
			requestPath:      "/api/v1/resources/42",
			expectedSpanName: "GET /api/v1/resources/{id}",
		},
		{
			name:             "resource detail with different id uses same template",
			routePattern:     "/api/v1/resources/{id}",
			requestPath:      "/api/v1/resources/99",
			expectedSpanName: "GET /api/v1/resources/{id}",
		},
		{
			name:             "resource history uses template",
			routePattern:     "/api/v1/resources/{id}/history",
			requestPath:      "/api/v1/resources/17/history",
			expectedSpanName: "GET /api/v1/resources/{id}/history",
		},
		{
			name:             "list endpoint without parameters",
			routePattern:     "/api/v1/resources",
			requestPath:      "/api/v1/resources",
			expectedSpanName: "GET /api/v1/resources",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear previous spans
			exporter.Reset()

			// Create test handler
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			// Create mux router with route
			router := mux.NewRouter()
			router.Handle(tt.routePattern, OTelMiddleware(testHandler)).Methods("GET")

			// Create request
			req := httptest.NewRequest("GET", tt.requestPath, nil)
			w := httptest.NewRecorder()

			// Execute request
			router.ServeHTTP(w, req)

			// Force flush spans
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Errorf("failed to flush spans: %v", err)
			}

			// Verify span was created
			spans := exporter.GetSpans()
			if len(spans) == 0 {
				t.Fatal("expected at least one span to be created")
			}

			// Find the HTTP server span (not the internal otelhttp spans)
			var httpSpan *tracetest.SpanStub
			for i := range spans {
				if spans[i].Name == tt.expectedSpanName {
					httpSpan = &spans[i]
					break
				}
			}

			if httpSpan == nil {
				t.Fatalf("expected span with name %q, got spans: %v",
					tt.expectedSpanName, getSpanNames(spans))
			}

			// Verify span name uses route template (low cardinality)
			if httpSpan.Name != tt.expectedSpanName {
				t.Errorf("expected span name %q, got %q", tt.expectedSpanName, httpSpan.Name)
			}
		})
	}
}

// TestOTelMiddleware_TraceContextExtraction tests W3C trace context extraction
func TestOTelMiddleware_TraceContextExtraction(t *testing.T) {
	initTestLogger()

	tp, exporter := setupTestTracer()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	tests := []struct {
		name             string
		traceparent      string
		expectTraceID    bool
		expectSpanID     bool
		expectValidTrace bool
	}{
		{
			name:             "valid W3C traceparent header",
			traceparent:      "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			expectTraceID:    true,
			expectSpanID:     true,
			expectValidTrace: true,
		},
		{
			name:             "no traceparent header creates new trace",
			traceparent:      "",
			expectTraceID:    true,
			expectSpanID:     true,
			expectValidTrace: true,
		},
		{
			name:             "invalid traceparent header creates new trace",
			traceparent:      "invalid-trace-header",
			expectTraceID:    true,
			expectSpanID:     true,
			expectValidTrace: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			var capturedTraceID, capturedSpanID string
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := r.Context()
				// Extract trace IDs from logger context
				if traceID, ok := logger.GetTraceID(ctx); ok {
					capturedTraceID = traceID
				}
				if spanID, ok := logger.GetSpanID(ctx); ok {
					capturedSpanID = spanID
				}
				w.WriteHeader(http.StatusOK)
			})

			router := mux.NewRouter()
			router.Handle("/test", OTelMiddleware(testHandler)).Methods("GET")

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Errorf("failed to flush spans: %v", err)
			}

			// Verify trace context was extracted and added to logger context
			if tt.expectTraceID && capturedTraceID == "" {
				t.Error("expected trace_id in logger context, got none")
			}
			if tt.expectSpanID && capturedSpanID == "" {
				t.Error("expected span_id in logger context, got none")
			}

			// Verify span was created
			spans := exporter.GetSpans()
			if tt.expectValidTrace && len(spans) == 0 {
				t.Error("expected spans to be created")
			}
		})
	}
}

// TestOTelMiddleware_NoTraceContext tests middleware behavior without trace context
func TestOTelMiddleware_NoTraceContext(t *testing.T) {
	initTestLogger()

	tp, exporter := setupTestTracer()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	exporter.Reset()

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router := mux.NewRouter()
	router.Handle("/test", OTelMiddleware(testHandler)).Methods("GET")

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	// Should not panic
	router.ServeHTTP(w, req)
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Errorf("failed to flush spans: %v", err)
	}

	// Verify response is successful
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	// Verify new trace was created
	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Error("expected new trace to be created when no trace context provided")
	}
}

// TestOTelMiddleware_CardinalityPrevention sends many distinct ids through one
// route and verifies the span name set stays small
func TestOTelMiddleware_CardinalityPrevention(t *testing.T) {
	initTestLogger()

	tp, exporter := setupTestTracer()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router := mux.NewRouter()
	router.Handle("/api/v1/resources/{id}", OTelMiddleware(testHandler)).Methods("GET")

	// Simulate 100 requests with different resource ids
	uniqueSpanNames := make(map[string]bool)

	for i := 0; i < 100; i++ {
		exporter.Reset()

		path := fmt.Sprintf("/api/v1/resources/%d", i)
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		if err := tp.ForceFlush(context.Background()); err != nil {
			t.Errorf("failed to flush spans: %v", err)
		}

		spans := exporter.GetSpans()
		for _, span := range spans {
			uniqueSpanNames[span.Name] = true
		}
	}

	// Expect only "GET /api/v1/resources/{id}" regardless of how many
	// distinct ids were requested
	if len(uniqueSpanNames) > 5 {
		t.Errorf("cardinality explosion detected: expected <=5 unique span names, got %d: %v",
			len(uniqueSpanNames), keys(uniqueSpanNames))
	}

	expectedSpanName := "GET /api/v1/resources/{id}"
	if !uniqueSpanNames[expectedSpanName] {
		t.Errorf("expected span name %q to exist, got: %v", expectedSpanName, keys(uniqueSpanNames))
	}
}

func getSpanNames(spans tracetest.SpanStubs) []string {
	names := make([]string, 0, len(spans))
	for _, span := range spans {
		names = append(names, span.Name)
	}
	return names
}

func keys(m map[string]bool) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	return result
}
