package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/infractl/infractl/cmd/infractl/migrate"
	"github.com/infractl/infractl/cmd/infractl/servecmd"
	"github.com/infractl/infractl/pkg/logger"

	// Import plugins to trigger their init() functions
	_ "github.com/infractl/infractl/plugins/controllers"
	_ "github.com/infractl/infractl/plugins/generic"
	_ "github.com/infractl/infractl/plugins/resources"
	_ "github.com/infractl/infractl/plugins/resourcetypes"
	_ "github.com/infractl/infractl/plugins/webhooks"
)

func main() {
	// A default logger so anything logged before the environment loads its
	// configuration is still captured
	logger.Initialize(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		Output: os.Getenv("LOG_OUTPUT"),
	})

	rootCmd := &cobra.Command{
		Use:  "infractl",
		Long: "infractl is a control plane for declaratively managed external infrastructure",
	}

	// All subcommands under root
	migrateCmd := migrate.NewMigrateCommand()
	serveCmd := servecmd.NewServeCommand()

	// Add subcommand(s)
	rootCmd.AddCommand(migrateCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Error running command", "error", err)
		os.Exit(1)
	}
}
