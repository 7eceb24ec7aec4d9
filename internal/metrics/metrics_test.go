package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestOutcome(t *testing.T) {
	if Outcome(true) != "overload" || Outcome(false) != "ok" {
		t.Fatal("unexpected outcome labels")
	}
}

func TestQueuesBuiltCounts(t *testing.T) {
	c := QueuesBuilt.WithLabelValues(Outcome(true))
	before := counterValue(t, c)
	c.Inc()
	if got := counterValue(t, c); got != before+1 {
		t.Errorf("expected %f, got %f", before+1, got)
	}
}

func TestCollectorsRegistered(t *testing.T) {
	WhatIfRequests.Inc()
	BuildDuration.Observe(0.01)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"planner_what_if_requests_total", "planner_queue_build_duration_seconds"} {
		if !names[want] {
			t.Errorf("expected %s to be registered", want)
		}
	}
}
