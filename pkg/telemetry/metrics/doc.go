// Package metrics exposes cleanup-run metrics through Prometheus.
//
// A Collector is the single sink for three observer interfaces:
// retention.Observer (per-record decisions), orchestrator.Observer (per-pass
// and per-run results) and platform.Observer (HTTP round trips). In daemon
// mode the registry is served over HTTP with Handler; after a one-shot run
// it can be sent to a Pushgateway with Push.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	client.SetObserver(collector)
//	orch := orchestrator.New(policy, keep, orchestrator.WithObserver(collector))
//	report := orch.Run(ctx, targets)
//	_ = collector.Push(ctx)
//
// Every metric lives on the collector's own registry, so tests can build as
// many collectors as they like.
package metrics
