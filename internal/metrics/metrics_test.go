package metrics

import (
	"testing"

	"raceforge/internal/models"
)

func TestDisabledRegistryIsNoop(t *testing.T) {
	reg := New(models.MetricsConfig{Enabled: false})
	reg.RecordState("a", 100)
	reg.RecordFailure()
	reg.RecordRaceBurst(&models.RaceBurstSummary{SkewNs: 5000, StatusCounts: map[int]int{200: 1}})

	snap := reg.Snapshot()
	if snap.Requests != 0 || snap.Failures != 0 || len(snap.StatusCodes) != 0 {
		t.Fatalf("expected a disabled registry to record nothing, got %+v", snap)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	reg.RecordState("a", 100)
	reg.RecordFailure()
	reg.RecordRaceBurst(&models.RaceBurstSummary{})
	if snap := reg.Snapshot(); snap.Requests != 0 {
		t.Fatalf("expected nil registry Snapshot to be zero-value, got %+v", snap)
	}
}

func TestEnabledRegistryRecordsState(t *testing.T) {
	reg := New(models.MetricsConfig{Enabled: true})
	reg.RecordState("login", 1500)
	reg.RecordState("login", 2500)

	snap := reg.Snapshot()
	if snap.Requests != 2 {
		t.Fatalf("expected 2 requests recorded, got %d", snap.Requests)
	}
	p, ok := snap.StatePercentiles["login"]
	if !ok {
		t.Fatal("expected percentiles for state \"login\"")
	}
	if p.Max < 2500 {
		t.Fatalf("expected max >= 2500, got %d", p.Max)
	}
}

func TestEnabledRegistryRecordsFailuresAndRaceBurst(t *testing.T) {
	reg := New(models.MetricsConfig{Enabled: true})
	reg.RecordFailure()
	reg.RecordFailure()
	reg.RecordRaceBurst(&models.RaceBurstSummary{
		SkewNs:       12_000,
		StatusCounts: map[int]int{200: 3, 409: 1},
	})

	snap := reg.Snapshot()
	if snap.Failures != 2 {
		t.Fatalf("expected 2 failures, got %d", snap.Failures)
	}
	if snap.StatusCodes[200] != 3 || snap.StatusCodes[409] != 1 {
		t.Fatalf("expected status counts {200:3,409:1}, got %v", snap.StatusCodes)
	}
	if snap.RaceSkewNs.Max <= 0 {
		t.Fatalf("expected race skew histogram to have recorded a value, got %+v", snap.RaceSkewNs)
	}
}
