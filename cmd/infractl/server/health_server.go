package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/health"
	"github.com/infractl/infractl/pkg/logger"
)

const healthShutdownTimeout = 5 * time.Second

func NewHealthServer() Server {
	mainRouter := mux.NewRouter()
	mainRouter.NotFoundHandler = http.HandlerFunc(api.SendNotFound)

	healthHandler := health.NewHandler(env().Database.SessionFactory)
	mainRouter.HandleFunc("/healthz", healthHandler.LivenessHandler).Methods(http.MethodGet)
	mainRouter.HandleFunc("/readyz", healthHandler.ReadinessHandler).Methods(http.MethodGet)

	var mainHandler http.Handler = mainRouter

	s := &healthServer{
		listening: make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              env().Config.HealthCheck.GetBindAddress(),
		Handler:           mainHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

type healthServer struct {
	httpServer *http.Server
	listening  chan struct{}
}

var _ Server = &healthServer{}

func (s *healthServer) Listen() (listener net.Listener, err error) {
	return net.Listen("tcp", s.httpServer.Addr)
}

func (s *healthServer) Serve(listener net.Listener) {
	ctx := context.Background()
	var err error

	if env().Config.HealthCheck.EnableHTTPS {
		if env().Config.Server.HTTPS.CertFile == "" || env().Config.Server.HTTPS.KeyFile == "" {
			check(
				fmt.Errorf("unspecified required --server-https-cert-file, --server-https-key-file"),
				"Can't start https server",
			)
		}

		logger.Info(ctx, "Serving Health with TLS", logger.FieldBindAddress, s.httpServer.Addr)
		err = s.httpServer.ServeTLS(listener, env().Config.Server.HTTPS.CertFile, env().Config.Server.HTTPS.KeyFile)
	} else {
		logger.Info(ctx, "Serving Health without TLS", logger.FieldBindAddress, s.httpServer.Addr)
		err = s.httpServer.Serve(listener)
	}
	if err != nil && err != http.ErrServerClosed {
		check(err, "Health server terminated with errors")
	} else {
		logger.Info(ctx, "Health server terminated")
	}
}

// Start is a convenience wrapper that calls Listen() and Serve()
func (s *healthServer) Start() {
	listener, err := s.Listen()
	if err != nil {
		check(err, "Failed to create health server listener")
		return
	}

	// Signal that we're listening
	close(s.listening)

	s.Serve(listener)
}

// NotifyListening returns a channel that is closed when the server is listening
func (s *healthServer) NotifyListening() <-chan struct{} {
	return s.listening
}

func (s healthServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
