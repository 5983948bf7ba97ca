package servecmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/infractl/infractl/cmd/infractl/environments"
	"github.com/infractl/infractl/cmd/infractl/server"
	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/controller"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/health"
	"github.com/infractl/infractl/pkg/logger"
	"github.com/infractl/infractl/pkg/telemetry"
	"github.com/infractl/infractl/plugins/controllers"
)

func NewServeCommand() *cobra.Command {
	v := config.NewCommandConfig()
	appConfig := config.NewApplicationConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the infractl API and controller",
		Long:  "Serve the infractl API, controller scheduler, metrics, and health endpoints.",
		Run: func(cmd *cobra.Command, _ []string) {
			runServe(v, cmd)
		},
	}

	appConfig.ConfigureFlags(v, cmd.PersistentFlags())
	if err := environments.Environment().ApplyFlagDefaults(cmd.PersistentFlags()); err != nil {
		slog.Error("Unable to apply environment flag defaults to serve command", "error", err)
		os.Exit(1)
	}

	return cmd
}

func runServe(v *viper.Viper, cmd *cobra.Command) {
	loadedConfig, err := config.LoadConfig(v, cmd.PersistentFlags())
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}

	env := environments.Environment()
	if err := env.Initialize(loadedConfig); err != nil {
		slog.Error("Unable to initialize environment", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Trace export (no-op unless enabled in config)
	shutdownTracing, err := telemetry.SetupOTelSDK(ctx, loadedConfig)
	if err != nil {
		logger.WithError(err).WarnContext(ctx, "Unable to set up trace export, continuing without it")
	}

	resourceDao := dao.NewResourceDao(&env.Database.SessionFactory)
	historyDao := dao.NewHistoryDao(&env.Database.SessionFactory)
	reconcilerRegistry := controllers.Registry(&env.Services)

	// The scheduler shares the reconciler registry and event bus with the API
	scheduler, err := controller.NewScheduler(
		loadedConfig.Controller,
		reconcilerRegistry,
		resourceDao,
		historyDao,
		env.Services.EventBus,
	)
	if err != nil {
		logger.WithError(err).ErrorContext(ctx, "Unable to create controller scheduler")
		os.Exit(1)
	}
	scheduler.Start(ctx)

	// Reconcilers that carry their own loop get the store facade and a
	// shutdown signal
	runtime := controller.NewRuntime(loadedConfig.Controller, resourceDao, historyDao, controller.DefaultActions())
	reconcilerRegistry.StartAll(ctx, runtime)

	// Run the servers
	apiserver := server.NewAPIServer()
	go apiserver.Start()

	metricsServer := server.NewMetricsServer()
	go metricsServer.Start()

	healthServer := server.NewHealthServer()
	go healthServer.Start()

	health.GetReadinessState().SetReady()
	logger.Info(ctx, "infractl is ready",
		"bind_address", loadedConfig.Server.GetBindAddress(),
		"environment", env.Name,
	)

	// Block until asked to stop, then drain in-flight reconciles before the
	// HTTP servers go away
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logger.Info(ctx, "Shutting down", "signal", sig.String())

	health.GetReadinessState().SetShuttingDown()

	graceCtx, graceCancel := context.WithTimeout(context.Background(),
		time.Duration(loadedConfig.Controller.ShutdownGraceSec)*time.Second)
	defer graceCancel()

	scheduler.Stop(graceCtx)
	reconcilerRegistry.StopAll(runtime,
		time.Duration(loadedConfig.Controller.ShutdownGraceSec)*time.Second)

	if err := apiserver.Stop(); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Error stopping API server")
	}
	if err := metricsServer.Stop(); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Error stopping metrics server")
	}
	if err := healthServer.Stop(); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Error stopping health server")
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(graceCtx); err != nil {
			logger.WithError(err).ErrorContext(ctx, "Error shutting down trace export")
		}
	}

	env.Teardown()
}
