package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Hostname string        `mapstructure:"hostname" json:"hostname" validate:""`
	Host     string        `mapstructure:"host" json:"host" validate:"required"`
	Port     int           `mapstructure:"port" json:"port" validate:"required,min=1,max=65535"`
	Timeout  TimeoutConfig `mapstructure:"timeout" json:"timeout"`
	HTTPS    HTTPSConfig   `mapstructure:"https" json:"https"`

	// Legacy field for backward compatibility (combines host:port)
	BindAddress string `mapstructure:"bind_address" json:"bind_address,omitempty" validate:""`
}

type TimeoutConfig struct {
	Read  time.Duration `mapstructure:"read" json:"read" validate:""`
	Write time.Duration `mapstructure:"write" json:"write" validate:""`
}

type HTTPSConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	CertFile string `mapstructure:"cert_file" json:"cert_file"`
	KeyFile  string `mapstructure:"key_file" json:"key_file"`
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Hostname: "",
		Host:     "localhost",
		Port:     8000,
		Timeout: TimeoutConfig{
			Read: 5 * time.Second,
			// Write timeout must stay 0 so long-lived SSE streams are not cut off
			Write: 0,
		},
		HTTPS: HTTPSConfig{
			Enabled:  false,
			CertFile: "",
			KeyFile:  "",
		},
		BindAddress: "localhost:8000",
	}
}

// defineAndBindFlags defines & binds flags to viper keys in a single pass
func (s *ServerConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindStringFlag(v, fs, "server.host", "server-host", "", s.Host, "Server bind host")
	defineAndBindIntFlag(v, fs, "server.port", "server-port", "p", s.Port, "Server bind port")
	defineAndBindStringFlag(v, fs, "server.hostname", "server-hostname", "", s.Hostname, "Server's public hostname")

	defineAndBindDurationFlag(v, fs, "server.timeout.read", "server-timeout-read", "", s.Timeout.Read, "HTTP server read timeout")
	defineAndBindDurationFlag(v, fs, "server.timeout.write", "server-timeout-write", "", s.Timeout.Write, "HTTP server write timeout (0 keeps SSE streams open)")

	defineAndBindBoolFlag(v, fs, "server.https.enabled", "server-https-enabled", "", s.HTTPS.Enabled, "Enable HTTPS rather than HTTP")
	defineAndBindStringFlag(v, fs, "server.https.cert_file", "server-https-cert-file", "", s.HTTPS.CertFile, "Path to the tls.crt file")
	defineAndBindStringFlag(v, fs, "server.https.key_file", "server-https-key-file", "", s.HTTPS.KeyFile, "Path to the tls.key file")
}

// GetBindAddress returns the bind address in host:port format
func (s *ServerConfig) GetBindAddress() string {
	if s.BindAddress != "" {
		return s.BindAddress
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
