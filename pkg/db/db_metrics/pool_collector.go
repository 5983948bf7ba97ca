/*
Copyright (c) 2026 Red Hat, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file implements a Prometheus collector over sql.DB.Stats(). Pool
// pressure shows up here first: reconcile workers and API requests share the
// same pool, so a climbing waited_total means the scheduler is starving the
// write path (or vice versa).

package db_metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector reports connection pool gauges read at scrape time.
type PoolCollector struct {
	db *sql.DB
}

// NewPoolCollector creates a PoolCollector over the given connection pool.
func NewPoolCollector(db *sql.DB) *PoolCollector {
	return &PoolCollector{db: db}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- ConnectionsOpenDesc
	ch <- ConnectionsInUseDesc
	ch <- ConnectionsIdleDesc
	ch <- ConnectionsWaitedDesc
}

// Collect implements prometheus.Collector by sampling the pool stats.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.db == nil {
		return
	}
	stats := c.db.Stats()

	ch <- prometheus.MustNewConstMetric(ConnectionsOpenDesc, prometheus.GaugeValue, float64(stats.OpenConnections))
	ch <- prometheus.MustNewConstMetric(ConnectionsInUseDesc, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(ConnectionsIdleDesc, prometheus.GaugeValue, float64(stats.Idle))
	ch <- prometheus.MustNewConstMetric(ConnectionsWaitedDesc, prometheus.CounterValue, float64(stats.WaitCount))
}

// RegisterPoolCollector registers a PoolCollector for the given pool with the
// default registry.
func RegisterPoolCollector(db *sql.DB) error {
	return prometheus.Register(NewPoolCollector(db))
}
