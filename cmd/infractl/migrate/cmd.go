package migrate

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/infractl/infractl/pkg/config"
	"github.com/infractl/infractl/pkg/db"
	"github.com/infractl/infractl/pkg/db/db_session"
	"github.com/infractl/infractl/pkg/logger"
)

// NewMigrateCommand migrate sub-command handles running migrations
func NewMigrateCommand() *cobra.Command {
	migrateConfig := config.NewMigrateConfig()
	v := config.NewCommandConfig()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run infractl data migrations",
		Long:  "Run infractl data migrations",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runMigrate(v, cmd); err != nil {
				os.Exit(1)
			}
		},
	}

	migrateConfig.ConfigureFlags(v, cmd.PersistentFlags())
	return cmd
}

func runMigrate(v *viper.Viper, cmd *cobra.Command) error {
	ctx := context.Background()

	migrateConfig, err := config.LoadMigrateConfig(v, cmd.PersistentFlags())
	if err != nil {
		logger.WithError(err).ErrorContext(ctx, "Unable to load migration configuration")
		return err
	}

	connection := db_session.NewProdFactory(migrateConfig.Database)
	defer func() {
		if closeErr := connection.Close(); closeErr != nil {
			logger.WithError(closeErr).ErrorContext(ctx, "Failed to close database connection")
		}
	}()

	if err := db.Migrate(connection.New(ctx)); err != nil {
		logger.WithError(err).ErrorContext(ctx, "Migration failed")
		return err
	}

	logger.Info(ctx, "Migration completed successfully")
	return nil
}
