package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"skyscraper-hq/skyscraper/pkg/config"
	"skyscraper-hq/skyscraper/pkg/orchestrator"
	"skyscraper-hq/skyscraper/pkg/platform"
	"skyscraper-hq/skyscraper/pkg/retention"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Collector must satisfy every observer interface it is wired to.
var (
	_ retention.Observer    = (*Collector)(nil)
	_ orchestrator.Observer = (*Collector)(nil)
	_ platform.Observer     = (*Collector)(nil)
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	c := NewCollector(cfg, nil)

	if c.Registry() == nil {
		t.Fatal("expected a registry")
	}
	if cfg.Namespace != "skyscraper" {
		t.Errorf("Namespace = %q, want skyscraper", cfg.Namespace)
	}
	if len(cfg.RequestDurationBuckets) == 0 || len(cfg.PassDurationBuckets) == 0 {
		t.Error("expected default histogram buckets")
	}
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	// Two collectors must not collide on registration.
	a := NewCollector(testConfig(), nil)
	b := NewCollector(testConfig(), nil)
	if a.Registry() == b.Registry() {
		t.Error("collectors share a registry")
	}
}

func TestCollector_ObserveRecord(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.ObserveRecord("bluesky", platform.KindPosts, retention.DecisionDeleted)
	c.ObserveRecord("bluesky", platform.KindPosts, retention.DecisionDeleted)
	c.ObserveRecord("bluesky", platform.KindPosts, retention.DecisionSkippedProtected)
	c.ObserveRecord("mastodon", platform.KindLikes, retention.DecisionWouldDelete)

	if got := testutil.ToFloat64(c.records.WithLabelValues("bluesky", "posts", "deleted")); got != 2 {
		t.Errorf("bluesky deleted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.records.WithLabelValues("bluesky", "posts", "skipped_protected")); got != 1 {
		t.Errorf("bluesky skipped_protected = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.records); got != 3 {
		t.Errorf("series = %d, want 3", got)
	}
}

func TestCollector_ObservePass(t *testing.T) {
	tests := []struct {
		name    string
		outcome retention.Outcome
		err     error
		want    string
	}{
		{name: "completed", outcome: retention.Outcome{Scanned: 3}, want: PassResultOK},
		{name: "rate limited", outcome: retention.Outcome{RateLimited: true}, want: PassResultRateLimited},
		{name: "fetch failed", err: errors.New("boom"), want: PassResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(testConfig(), nil)
			c.ObservePass("threads", platform.KindPosts, tt.outcome, tt.err, 2*time.Second)

			if got := testutil.ToFloat64(c.passes.WithLabelValues("threads", "posts", tt.want)); got != 1 {
				t.Errorf("passes{result=%s} = %v, want 1", tt.want, got)
			}
			if got := testutil.CollectAndCount(c.passDuration); got != 1 {
				t.Errorf("pass duration series = %d, want 1", got)
			}
		})
	}
}

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.ObserveRequest("mastodon", http.MethodGet, 200, 50*time.Millisecond)
	c.ObserveRequest("mastodon", http.MethodGet, 429, 10*time.Millisecond)
	c.ObserveRequest("mastodon", http.MethodDelete, 0, time.Second)

	if got := testutil.ToFloat64(c.requests.WithLabelValues("mastodon", "GET", "200")); got != 1 {
		t.Errorf("GET 200 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("mastodon", "GET", "429")); got != 1 {
		t.Errorf("GET 429 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("mastodon", "DELETE", "error")); got != 1 {
		t.Errorf("DELETE error = %v, want 1", got)
	}
}

func TestCollector_ObserveRun(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	finished := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	report := &orchestrator.Report{
		FinishedAt: finished,
		Platforms: []orchestrator.PlatformResult{
			{
				Name:   "bluesky",
				Status: orchestrator.StatusOK,
				Passes: []orchestrator.PassResult{
					{Kind: platform.KindPosts, Outcome: retention.Outcome{Deleted: 4}},
					{Kind: platform.KindLikes, Outcome: retention.Outcome{Deleted: 2}},
				},
			},
			{Name: "mastodon", Status: orchestrator.StatusSkipped},
		},
	}
	c.ObserveRun(report)

	if got := testutil.ToFloat64(c.lastRunSuccess); got != 1 {
		t.Errorf("last_run_success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.lastRunTimestamp); got != float64(finished.Unix()) {
		t.Errorf("last_run_timestamp = %v, want %d", got, finished.Unix())
	}
	if got := testutil.ToFloat64(c.lastRunDeleted.WithLabelValues("bluesky")); got != 6 {
		t.Errorf("last_run_deleted{bluesky} = %v, want 6", got)
	}
	if got := testutil.CollectAndCount(c.lastRunDeleted); got != 1 {
		t.Errorf("last_run_deleted series = %d, want 1 (skipped platform omitted)", got)
	}

	report.Platforms[0].Status = orchestrator.StatusFailed
	c.ObserveRun(report)

	if got := testutil.ToFloat64(c.lastRunSuccess); got != 0 {
		t.Errorf("last_run_success after failure = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.runs.WithLabelValues("failed")); got != 1 {
		t.Errorf("runs{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.runs.WithLabelValues("success")); got != 1 {
		t.Errorf("runs{success} = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, nil)

	c.ObserveRecord("bluesky", platform.KindPosts, retention.DecisionDeleted)
	c.ObservePass("bluesky", platform.KindPosts, retention.Outcome{}, nil, time.Second)
	c.ObserveRequest("bluesky", "GET", 200, time.Millisecond)
	c.ObserveRun(&orchestrator.Report{})

	if got := testutil.CollectAndCount(c.records); got != 0 {
		t.Errorf("records series = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(c.requests); got != 0 {
		t.Errorf("request series = %d, want 0", got)
	}
	if got := testutil.ToFloat64(c.runs.WithLabelValues("success")); got != 0 {
		t.Errorf("runs = %v, want 0", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	c.ObserveRecord("bluesky", platform.KindPosts, retention.DecisionDeleted)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `test_records_total{collection="posts",decision="deleted",platform="bluesky"} 1`) {
		t.Errorf("metrics output missing records_total sample:\n%s", body)
	}
}

func TestCollector_Push(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	cfg := testConfig()
	cfg.PushgatewayURL = gateway.URL
	cfg.PushJob = "cleanup"
	c := NewCollector(cfg, nil)
	c.ObserveRecord("threads", platform.KindPosts, retention.DecisionDeleted)

	if !c.Pushing() {
		t.Fatal("Pushing() = false with a gateway configured")
	}
	if err := c.Push(context.Background()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if path != "/metrics/job/cleanup" {
		t.Errorf("path = %s, want /metrics/job/cleanup", path)
	}
	if len(body) == 0 {
		t.Error("expected a non-empty push body")
	}
}

func TestCollector_PushGatewayError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer gateway.Close()

	cfg := testConfig()
	cfg.PushgatewayURL = gateway.URL
	c := NewCollector(cfg, nil)

	err := c.Push(context.Background())
	if err == nil {
		t.Fatal("expected an error from a failing gateway")
	}
	if !strings.Contains(err.Error(), gateway.URL) {
		t.Errorf("error %q does not name the gateway", err)
	}
}

func TestCollector_PushWithoutGateway(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	if c.Pushing() {
		t.Error("Pushing() = true without a gateway")
	}
	if err := c.Push(context.Background()); err != nil {
		t.Errorf("Push() without gateway error = %v", err)
	}
}
