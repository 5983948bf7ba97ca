/*
Copyright (c) 2019 Red Hat, Inc.

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

package server

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/infractl/infractl/pkg/api"
)

const metricsSubsystem = "infractl_api"

// MetricsNames are the metric names emitted by the API request middleware.
var MetricsNames = []string{
	"requests_total",
	"request_duration_seconds",
}

// MetricsLabels are the labels attached to every request metric.
var MetricsLabels = []string{
	"component",
	"version",
	"method",
	"path",
	"code",
}

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricsSubsystem + "_requests_total",
			Help: "Number of HTTP requests served.",
		},
		MetricsLabels,
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricsSubsystem + "_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		MetricsLabels,
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: metricsSubsystem + "_build_info",
			Help: "Build information for the running binary.",
		},
		[]string{"component", "version", "commit", "go_version"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(buildInfo)

	buildInfo.WithLabelValues("api", api.Version, api.Commit, runtime.Version()).Set(1)
}

// ResetMetricCollectors clears the request collectors. Test helper.
func ResetMetricCollectors() {
	requestsTotal.Reset()
	requestDuration.Reset()
}

// MetricsMiddleware records a counter and a duration histogram per request.
// The path label uses the mux route template with variables substituted by
// "-" to keep cardinality bounded.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := metricsPath(r)

		recorder := &statusRecorder{ResponseWriter: w}

		start := time.Now()
		next.ServeHTTP(recorder, r)
		elapsed := time.Since(start).Seconds()

		code := recorder.status
		if code == 0 {
			code = http.StatusOK
		}

		labels := prometheus.Labels{
			"component": "api",
			"version":   api.Version,
			"method":    r.Method,
			"path":      path,
			"code":      strconv.Itoa(code),
		}
		requestsTotal.With(labels).Inc()
		requestDuration.With(labels).Observe(elapsed)
	})
}

func metricsPath(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	// Substitute path variables so each route yields one label value
	return substitutePathVariables(template, mux.Vars(r))
}

func substitutePathVariables(template string, vars map[string]string) string {
	out := template
	for name := range vars {
		out = strings.Replace(out, "{"+name+"}", "-", 1)
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
