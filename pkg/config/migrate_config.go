package config

import (
	"flag"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MigrateConfig holds configuration for the migrate command
// Only requires App and Database configuration
type MigrateConfig struct {
	App      *AppConfig      `mapstructure:"app" json:"app" validate:"required"`
	Database *DatabaseConfig `mapstructure:"db" json:"db" validate:"required"`
}

// NewMigrateConfig creates a new MigrateConfig with default values
func NewMigrateConfig() *MigrateConfig {
	return &MigrateConfig{
		App:      NewAppConfig(),
		Database: NewDatabaseConfig(),
	}
}

// defineAndBindFlags defines migrate command flags and binds them to viper keys in a single pass
func (c *MigrateConfig) defineAndBindFlags(v *viper.Viper, flagset *pflag.FlagSet) {
	// Note: config flag is defined but NOT bound to viper (special case)
	flagset.String("config", "", "Config file path")

	c.App.defineAndBindFlags(v, flagset)
	c.Database.defineAndBindFlags(v, flagset)
}

// ConfigureFlags defines configuration flags and binds them to viper for precedence handling
func (c *MigrateConfig) ConfigureFlags(v *viper.Viper, flagset *pflag.FlagSet) {
	flagset.AddGoFlagSet(flag.CommandLine)
	c.defineAndBindFlags(v, flagset)
}

// LoadMigrateConfig loads configuration for the migrate command with the same
// precedence rules as LoadConfig
func LoadMigrateConfig(v *viper.Viper, flags *pflag.FlagSet) (*MigrateConfig, error) {
	config := NewMigrateConfig()

	configFile := getConfigFilePath(flags)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
			slog.Info("Config file not found, continuing with flags and environment variables", "config_file", configFile)
		}
	}

	if err := v.UnmarshalExact(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}
