package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ControllerConfig holds the reconciliation scheduler knobs. The *_sec keys are
// environment-addressable as INFRACTL_RECONCILE_INTERVAL_SEC and friends.
type ControllerConfig struct {
	ReconcileIntervalSec    int `mapstructure:"reconcile_interval_sec" json:"reconcile_interval_sec" validate:"min=1"`
	MaxConcurrentReconciles int `mapstructure:"max_concurrent_reconciles" json:"max_concurrent_reconciles" validate:"min=1"`
	DriftIntervalSec        int `mapstructure:"drift_interval_sec" json:"drift_interval_sec" validate:"min=1"`
	BackoffBaseSec          int `mapstructure:"backoff_base_sec" json:"backoff_base_sec" validate:"min=1"`
	BackoffCapSec           int `mapstructure:"backoff_cap_sec" json:"backoff_cap_sec" validate:"min=1"`
	ShutdownGraceSec        int `mapstructure:"shutdown_grace_sec" json:"shutdown_grace_sec" validate:"min=1"`
	EventQueueSize          int `mapstructure:"event_queue_size" json:"event_queue_size" validate:"min=1"`
}

func NewControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		ReconcileIntervalSec:    60,
		MaxConcurrentReconciles: 5,
		DriftIntervalSec:        300,
		BackoffBaseSec:          60,
		BackoffCapSec:           61440,
		ShutdownGraceSec:        30,
		EventQueueSize:          256,
	}
}

// defineAndBindFlags defines controller flags and binds them to viper keys in a single pass
func (c *ControllerConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindIntFlag(v, fs, "reconcile_interval_sec", "reconcile-interval-sec", "", c.ReconcileIntervalSec, "Scheduler tick interval in seconds")
	defineAndBindIntFlag(v, fs, "max_concurrent_reconciles", "max-concurrent-reconciles", "", c.MaxConcurrentReconciles, "Maximum concurrent reconciliation tasks")
	defineAndBindIntFlag(v, fs, "drift_interval_sec", "drift-interval-sec", "", c.DriftIntervalSec, "Seconds between drift re-reconciliations of ready resources")
	defineAndBindIntFlag(v, fs, "backoff_base_sec", "backoff-base-sec", "", c.BackoffBaseSec, "Base retry backoff in seconds")
	defineAndBindIntFlag(v, fs, "backoff_cap_sec", "backoff-cap-sec", "", c.BackoffCapSec, "Maximum retry backoff in seconds")
	defineAndBindIntFlag(v, fs, "shutdown_grace_sec", "shutdown-grace-sec", "", c.ShutdownGraceSec, "Seconds to wait for in-flight reconciles on shutdown")
	defineAndBindIntFlag(v, fs, "event_queue_size", "event-queue-size", "", c.EventQueueSize, "Per-subscriber event queue size")
}

func (c *ControllerConfig) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSec) * time.Second
}

func (c *ControllerConfig) DriftInterval() time.Duration {
	return time.Duration(c.DriftIntervalSec) * time.Second
}

func (c *ControllerConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseSec) * time.Second
}

func (c *ControllerConfig) BackoffCap() time.Duration {
	return time.Duration(c.BackoffCapSec) * time.Second
}

func (c *ControllerConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSec) * time.Second
}
