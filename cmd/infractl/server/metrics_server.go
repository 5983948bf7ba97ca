package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/handlers"
	"github.com/infractl/infractl/pkg/logger"
)

func NewMetricsServer() Server {
	mainRouter := mux.NewRouter()
	mainRouter.NotFoundHandler = http.HandlerFunc(api.SendNotFound)

	// metrics endpoint only (health endpoints live on the health server)
	prometheusMetricsHandler := handlers.NewPrometheusMetricsHandler()
	mainRouter.Handle("/metrics", prometheusMetricsHandler.Handler())

	var mainHandler http.Handler = mainRouter

	s := &metricsServer{}
	s.httpServer = &http.Server{
		Addr:    env().Config.Metrics.GetBindAddress(),
		Handler: mainHandler,
	}
	return s
}

type metricsServer struct {
	httpServer *http.Server
}

var _ Server = &metricsServer{}

func (s metricsServer) Listen() (listener net.Listener, err error) {
	return nil, nil
}

func (s metricsServer) Serve(listener net.Listener) {
}

func (s metricsServer) Start() {
	ctx := context.Background()
	var err error
	if env().Config.Metrics.EnableHTTPS {
		if env().Config.Server.HTTPS.CertFile == "" || env().Config.Server.HTTPS.KeyFile == "" {
			check(
				fmt.Errorf("unspecified required --server-https-cert-file, --server-https-key-file"),
				"Can't start https server",
			)
		}

		logger.Info(ctx, "Serving Metrics with TLS", logger.FieldBindAddress, env().Config.Metrics.GetBindAddress())
		err = s.httpServer.ListenAndServeTLS(env().Config.Server.HTTPS.CertFile, env().Config.Server.HTTPS.KeyFile)
	} else {
		logger.Info(ctx, "Serving Metrics without TLS", logger.FieldBindAddress, env().Config.Metrics.GetBindAddress())
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		check(err, "Metrics server terminated with errors")
	} else {
		logger.Info(ctx, "Metrics server terminated")
	}
}

func (s metricsServer) Stop() error {
	return s.httpServer.Shutdown(context.Background())
}
