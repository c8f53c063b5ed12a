package main

import (
	"encoding/json"
	"net/http"
	"time"

	"skyscraper-hq/skyscraper/pkg/telemetry/metrics"
)

// nextRunner reports the scheduler's next run.
type nextRunner interface {
	NextRun() *time.Time
	IsRunning() bool
}

// newMetricsServer serves the collector at metricsPath and a JSON health
// endpoint at /healthz.
func newMetricsServer(metricsPath string, collector *metrics.Collector, sched nextRunner) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, collector.Handler())
	mux.HandleFunc("/healthz", healthHandler(sched))

	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(sched nextRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Status  string     `json:"status"`
			NextRun *time.Time `json:"next_run,omitempty"`
		}{Status: "ok", NextRun: sched.NextRun()}

		code := http.StatusOK
		if !sched.IsRunning() {
			body.Status = "stopped"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
