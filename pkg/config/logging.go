package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoggingConfig contains configuration for structured logging and tracing
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `mapstructure:"level" json:"level" validate:"oneof=debug info warn warning error"`
	// Format is the output format (text, json)
	Format string `mapstructure:"format" json:"format" validate:"oneof=text json"`
	// Output is the destination (stdout, stderr)
	Output string `mapstructure:"output" json:"output" validate:"oneof=stdout stderr"`
	// OTel configures trace export
	OTel OTelConfig `mapstructure:"otel" json:"otel"`
	// Masking controls redaction of sensitive request data in logs
	Masking MaskingConfig `mapstructure:"masking" json:"masking"`
}

// MaskingConfig controls redaction of sensitive headers and body fields in
// request logs. The lists are comma-separated so they can be set via a single
// environment variable.
type MaskingConfig struct {
	Enabled          bool   `mapstructure:"enabled" json:"enabled"`
	SensitiveHeaders string `mapstructure:"sensitive_headers" json:"sensitive_headers"`
	SensitiveFields  string `mapstructure:"sensitive_fields" json:"sensitive_fields"`
}

// OTelConfig contains OpenTelemetry tracing configuration
type OTelConfig struct {
	Enabled      bool    `mapstructure:"enabled" json:"enabled"`
	Endpoint     string  `mapstructure:"endpoint" json:"endpoint"`
	Protocol     string  `mapstructure:"protocol" json:"protocol" validate:"oneof=grpc http stdout"`
	Insecure     bool    `mapstructure:"insecure" json:"insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate" json:"sampling_rate" validate:"min=0,max=1"`
}

func NewLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stdout",
		OTel: OTelConfig{
			Enabled:      false,
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			SamplingRate: 1.0,
		},
		Masking: MaskingConfig{
			Enabled:          true,
			SensitiveHeaders: "Authorization,Cookie,X-Api-Key",
			SensitiveFields:  "password,secret,token,credentials",
		},
	}
}

// GetSensitiveHeadersList splits the configured header list.
func (c *LoggingConfig) GetSensitiveHeadersList() []string {
	return splitAndTrim(c.Masking.SensitiveHeaders)
}

// GetSensitiveFieldsList splits the configured body field list.
func (c *LoggingConfig) GetSensitiveFieldsList() []string {
	return splitAndTrim(c.Masking.SensitiveFields)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// defineAndBindFlags defines logging flags and binds them to viper keys in a single pass
func (c *LoggingConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindStringFlag(v, fs, "logging.level", "log-level", "", c.Level, "Minimum log level: debug, info, warn, error")
	defineAndBindStringFlag(v, fs, "logging.format", "log-format", "", c.Format, "Log output format: text, json")
	defineAndBindStringFlag(v, fs, "logging.output", "log-output", "", c.Output, "Log output destination: stdout, stderr")

	defineAndBindBoolFlag(v, fs, "logging.otel.enabled", "otel-enabled", "", c.OTel.Enabled, "Enable OpenTelemetry trace export")
	defineAndBindStringFlag(v, fs, "logging.otel.endpoint", "otel-endpoint", "", c.OTel.Endpoint, "OTLP exporter endpoint")
	defineAndBindStringFlag(v, fs, "logging.otel.protocol", "otel-protocol", "", c.OTel.Protocol, "OTLP exporter protocol: grpc, http, stdout")
	defineAndBindBoolFlag(v, fs, "logging.otel.insecure", "otel-insecure", "", c.OTel.Insecure, "Disable TLS for the OTLP exporter")

	defineAndBindBoolFlag(v, fs, "logging.masking.enabled", "log-masking-enabled", "", c.Masking.Enabled, "Redact sensitive request data in logs")
	defineAndBindStringFlag(v, fs, "logging.masking.sensitive_headers", "log-sensitive-headers", "", c.Masking.SensitiveHeaders, "Comma-separated headers to redact in request logs")
	defineAndBindStringFlag(v, fs, "logging.masking.sensitive_fields", "log-sensitive-fields", "", c.Masking.SensitiveFields, "Comma-separated body fields to redact in request logs")
}
