package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Pushing reports whether a Pushgateway URL is configured.
func (c *Collector) Pushing() bool {
	return c.config.Enabled && c.config.PushgatewayURL != ""
}

// Push sends the current registry contents to the configured Pushgateway,
// replacing any metrics previously pushed under the same job. One-shot runs
// call it once after the report is built. It is a no-op when no gateway is
// configured.
func (c *Collector) Push(ctx context.Context) error {
	if !c.Pushing() {
		return nil
	}
	job := c.config.PushJob
	if job == "" {
		job = c.config.Namespace
	}
	pusher := push.New(c.config.PushgatewayURL, job).Gatherer(c.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", c.config.PushgatewayURL, err)
	}
	return nil
}
