package perf

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/roleviz/roleviz/internal/app"
	"github.com/roleviz/roleviz/internal/observability"
	"github.com/roleviz/roleviz/jobs"
)

func TestOpsEndpointLatencyTargets(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()
	if _, err := client.EnqueueDirectorySync(ctx, jobs.DirectorySyncPayload{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()
	status := jobs.NewStatusStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err := status.RecordRun(ctx, jobs.RunStatus{Reason: "scheduled"}); err != nil {
		t.Fatalf("record run: %v", err)
	}

	logger := slog.Default()
	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		JobHandler: jobs.NewHandler(inspector, status, logger),
		Metrics:    observability.NewMetrics(),
	})

	// All requests share one client IP; the per-IP limiter allows 60 a
	// minute, so the total sample count has to stay below that.
	paths := []string{"/healthz", "/jobs/health", "/jobs/last-run", "/metrics"}
	const samplesPerPath = 12

	for _, path := range paths {
		samples := make([]time.Duration, 0, samplesPerPath)
		for i := 0; i < samplesPerPath; i++ {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			res := httptest.NewRecorder()

			start := time.Now()
			router.ServeHTTP(res, req)
			samples = append(samples, time.Since(start))

			if res.Code != http.StatusOK {
				t.Fatalf("%s returned %d", path, res.Code)
			}
		}

		p95 := percentile95(samples)
		if p95 > 500*time.Millisecond {
			t.Fatalf("%s latency regression: p95=%s threshold=500ms", path, p95)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
