package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "infractl_reconciles_total",
		Help: "Completed reconcile attempts, by result and trigger reason.",
	}, []string{"result", "trigger"})

	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "infractl_reconcile_duration_seconds",
		Help:    "Wall-clock duration of reconcile attempts.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"resource_type"})

	activeReconciles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "infractl_active_reconciles",
		Help: "Reconcile attempts currently in flight.",
	})
)
