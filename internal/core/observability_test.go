package core

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderPublishes(t *testing.T) {
	rec := NewExpvarMetricsRecorder("santasim_test_metrics")
	rec.Observe(context.Background(), "round", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "round", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)
	rec.ObserveRound(context.Background(), RoundStats{Round: 0, GiftsAssigned: 3, ChildrenRemoved: 1})
	rec.ObserveRound(context.Background(), RoundStats{Round: 1, GiftsAssigned: 2})

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("recorder not published")
	}
	var snap ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(v.String()), &snap); err != nil {
		t.Fatalf("decode expvar: %v", err)
	}
	if snap.DurationsMS["round"] != 3 {
		t.Fatalf("durations = %v", snap.DurationsMS)
	}
	if snap.Results["round"]["success"] != 1 || snap.Results["round"]["error"] != 1 {
		t.Fatalf("results = %v", snap.Results)
	}
	if snap.Rounds != 2 || snap.GiftsAssigned != 5 || snap.Removed != 1 || snap.LastRound == nil || snap.LastRound.Round != 1 {
		t.Fatalf("round figures = %+v", snap)
	}
}

func TestJSONTracerRecordsErrors(t *testing.T) {
	var buf strings.Builder
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "round")
	span.End(errors.New("boom"))
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Status != "error" || entries[0].Error != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"round"`) {
		t.Fatalf("span not written: %q", buf.String())
	}
	if NewJSONTracer(nil) == nil {
		t.Fatalf("nil writer tracer should still be usable")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	rec.Observe(context.Background(), "round", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "transition", false, time.Millisecond)
	rec.ObserveRound(context.Background(), RoundStats{Population: 4, CatalogSize: 2, GiftsAssigned: 3, ChildrenRemoved: 1, ChildrenAdmitted: 2, BudgetUnit: 12.5})
	rec.ObserveRound(context.Background(), RoundStats{Population: 3, CatalogSize: 0, GiftsAssigned: 2})

	if got := testutil.ToFloat64(rec.giftsAssigned); got != 5 {
		t.Fatalf("gifts assigned = %v", got)
	}
	if got := testutil.ToFloat64(rec.removed); got != 1 {
		t.Fatalf("removed = %v", got)
	}
	if got := testutil.ToFloat64(rec.population); got != 3 {
		t.Fatalf("population = %v", got)
	}
	if got := testutil.CollectAndCount(rec.duration); got != 2 {
		t.Fatalf("expected 2 duration series, got %d", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"santasim_operation_duration_seconds", "santasim_gifts_assigned_total", "santasim_catalog_size", "santasim_population_size"} {
		if !names[want] {
			t.Fatalf("metric %s not gathered", want)
		}
	}
}

func TestMultiRecorderFansOut(t *testing.T) {
	a := NewExpvarMetricsRecorder("")
	b := NewPrometheusMetricsRecorder(prometheus.NewRegistry())
	multi := MultiRecorder{a, b, noopMetricsRecorder{}}
	multi.Observe(context.Background(), "seed", true, time.Millisecond)
	multi.ObserveRound(context.Background(), RoundStats{GiftsAssigned: 4})
	if a.Snapshot().GiftsAssigned != 4 {
		t.Fatalf("expvar recorder missed the round")
	}
	if testutil.ToFloat64(b.giftsAssigned) != 4 {
		t.Fatalf("prometheus recorder missed the round")
	}
}
