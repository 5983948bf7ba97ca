package config

import (
	"net"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// HealthCheckConfig configures the standalone probe server serving /healthz
// and /readyz. It listens on its own port so probes keep answering while the
// API server is saturated.
type HealthCheckConfig struct {
	Host        string `mapstructure:"host" json:"host" validate:""`
	Port        int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
	EnableHTTPS bool   `mapstructure:"enable_https" json:"enable_https"`
}

func NewHealthCheckConfig() *HealthCheckConfig {
	return &HealthCheckConfig{
		Host: "localhost",
		Port: 8083,
	}
}

func (c *HealthCheckConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindStringFlag(v, fs, "health_check.host", "health-check-host", "", c.Host, "Health check server bind host")
	defineAndBindIntFlag(v, fs, "health_check.port", "health-check-port", "", c.Port, "Health check server bind port")
	defineAndBindBoolFlag(v, fs, "health_check.enable_https", "health-check-https-enabled", "", c.EnableHTTPS, "Enable HTTPS for health check server")
}

// GetBindAddress returns the probe server's host:port listen address.
func (c *HealthCheckConfig) GetBindAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
