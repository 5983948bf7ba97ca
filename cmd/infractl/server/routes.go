package server

import (
	"context"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/infractl/infractl/cmd/infractl/server/logging"
	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/db"
	"github.com/infractl/infractl/pkg/handlers"
	"github.com/infractl/infractl/pkg/health"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/middleware"
)

type ServicesInterface interface {
	GetService(name string) interface{}
}

type RouteRegistrationFunc func(apiV1Router *mux.Router, services ServicesInterface)

var routeRegistry = make(map[string]RouteRegistrationFunc)

func RegisterRoutes(name string, registrationFunc RouteRegistrationFunc) {
	routeRegistry[name] = registrationFunc
}

func LoadDiscoveredRoutes(apiV1Router *mux.Router, services ServicesInterface) {
	for _, registrationFunc := range routeRegistry {
		registrationFunc(apiV1Router, services)
	}
}

func (s *apiServer) routes() *mux.Router {
	services := &env().Services

	metadataHandler := handlers.NewMetadataHandler()
	configHandler := handlers.NewConfigHandler(env().Config)

	// mainRouter is top level "/"
	mainRouter := mux.NewRouter()
	mainRouter.NotFoundHandler = http.HandlerFunc(api.SendNotFound)

	// Request ID and operation ID middleware set correlation fields in the
	// context of each request for debugging purposes
	mainRouter.Use(logger.RequestIDMiddleware)
	mainRouter.Use(logger.OperationIDMiddleware)

	// OpenTelemetry middleware (conditionally enabled)
	// Extracts trace_id/span_id from traceparent header and adds to logger context
	if env().Config.Logging.OTel.Enabled {
		mainRouter.Use(middleware.OTelMiddleware)
	}

	// Request logging middleware logs pertinent information about the request and response
	masker := middleware.NewMaskingMiddleware(env().Config.Logging)
	mainRouter.Use(logging.RequestLoggingMiddleware(masker))

	//  /health liveness probe on the API port; the dedicated health server
	// carries readiness on its own port
	healthHandler := health.NewHandler(env().Database.SessionFactory)
	mainRouter.HandleFunc("/health", healthHandler.LivenessHandler).Methods(http.MethodGet)

	//  /api
	apiRouter := mainRouter.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("", metadataHandler.Get).Methods(http.MethodGet)

	//  /api/v1/events and /api/v1/resources/{id}/events
	// The SSE streams are mounted ahead of the /v1 subrouter so they bypass
	// the transaction middleware; a stream must not pin a database connection.
	eventsHandler := handlers.NewEventsHandler(services.EventBus)
	apiRouter.HandleFunc("/v1/events", eventsHandler.Stream).Methods(http.MethodGet)
	apiRouter.HandleFunc("/v1/resources/{id}/events", eventsHandler.StreamResource).Methods(http.MethodGet)

	//  /api/v1
	apiV1Router := apiRouter.PathPrefix("/v1").Subrouter()
	apiV1Router.HandleFunc("", metadataHandler.Get).Methods(http.MethodGet)

	//  /api/v1/openapi
	// The document is generated once at startup and includes a spec schema
	// per resource type registered at that point.
	ctx := context.Background()
	types, err := dao.NewResourceTypeDao(&env().Database.SessionFactory).All(ctx)
	if err != nil {
		logger.Error(ctx, "Unable to load resource types for the OpenAPI document", "error", err.Error())
		types = nil
	}
	openapiHandler, openapiErr := handlers.NewOpenAPIHandler(ctx, types)
	check(openapiErr, "Unable to create OpenAPI handler")
	apiV1Router.HandleFunc("/openapi.html", openapiHandler.GetOpenAPIUI).Methods(http.MethodGet)
	apiV1Router.HandleFunc("/openapi", openapiHandler.GetOpenAPI).Methods(http.MethodGet)

	//  /api/v1/config exposes the redacted runtime configuration
	apiV1Router.HandleFunc("/config", configHandler.Get).Methods(http.MethodGet)

	registerApiMiddleware(apiV1Router)

	// Auto-discovered routes (no manual editing needed)
	LoadDiscoveredRoutes(apiV1Router, services)

	return mainRouter
}

func registerApiMiddleware(router *mux.Router) {
	router.Use(MetricsMiddleware)

	router.Use(
		func(next http.Handler) http.Handler {
			return db.TransactionMiddleware(next, env().Database.SessionFactory)
		},
	)

	router.Use(gorillahandlers.CompressHandler)
}
