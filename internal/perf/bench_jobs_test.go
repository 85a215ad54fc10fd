package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/roleviz/roleviz/internal/jobs"
)

func TestSyncJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	// Simulate scheduled runs completing against a warm vault.
	for i := 0; i < 50; i++ {
		tracker := metrics.Track("directory:sync")
		time.Sleep(10 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending tracker: %v", err)
		}
	}

	// Inject directory outages to ensure failures surface in the counters.
	for i := 0; i < 4; i++ {
		tracker := metrics.Track("directory:sync")
		time.Sleep(12 * time.Millisecond)
		if err := tracker.End(errors.New("connection reset")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	metrics.SetEntityRows("roles", 1200, 1200)
	metrics.SetLifecycleRows("viz_roles", 14, 3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "roleviz_jobs_total", map[string]string{"job": "directory:sync", "status": "success"})
	failure := metricValue(t, families, "roleviz_jobs_total", map[string]string{"job": "directory:sync", "status": "failure"})
	if success+failure == 0 {
		t.Fatal("no run executions recorded")
	}
	ratio := success / (success + failure)
	if ratio < 0.9 {
		t.Fatalf("run success ratio too low: %f", ratio)
	}

	duration := histogramMean(t, families, "roleviz_job_duration_seconds", map[string]string{"job": "directory:sync"})
	if duration > 2.0 {
		t.Fatalf("run duration above budget: %f", duration)
	}

	stored := metricValue(t, families, "roleviz_sync_entries", map[string]string{"entity": "roles", "stage": "stored"})
	if stored != 1200 {
		t.Fatalf("expected 1200 stored roles, got %f", stored)
	}
	marked := metricValue(t, families, "roleviz_sync_lifecycle_rows", map[string]string{"table": "viz_roles", "action": "marked"})
	if marked != 14 {
		t.Fatalf("expected 14 marked rows, got %f", marked)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
