package mining

import (
	"math"
	"testing"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func miningSession(hours, multiplier int) *storage.Session {
	return &storage.Session{
		ID:                         "s1",
		Wallet:                     "w1",
		Status:                     storage.StatusMining,
		Multiplier:                 multiplier,
		MiningStartTime:            epoch,
		CurrentMultiplierStartTime: epoch,
		SelectedHourTarget:         hours,
	}
}

func TestComputeProgressBasic(t *testing.T) {
	s := miningSession(1, 1)
	p := ComputeProgress(s, rates.Default(), epoch.Add(30*time.Minute))

	if !almostEqual(p.Points, 18) {
		t.Errorf("Points = %f, want 18", p.Points)
	}
	if p.Elapsed != 1800 || p.Remaining != 1800 {
		t.Errorf("Elapsed/Remaining = %d/%d, want 1800/1800", p.Elapsed, p.Remaining)
	}
	if !almostEqual(p.Percent, 50) {
		t.Errorf("Percent = %f, want 50", p.Percent)
	}
	if p.Complete {
		t.Error("Complete should be false at half time")
	}
	if !almostEqual(p.Rate, 0.01) || p.Multiplier != 1 {
		t.Errorf("Rate/Multiplier = %f/%d", p.Rate, p.Multiplier)
	}
}

func TestComputeProgressFloorsSubSeconds(t *testing.T) {
	s := miningSession(1, 1)
	p := ComputeProgress(s, rates.Default(), epoch.Add(10*time.Second+999*time.Millisecond))

	if p.Elapsed != 10 {
		t.Errorf("Elapsed = %d, want 10", p.Elapsed)
	}
	if !almostEqual(p.Points, 0.1) {
		t.Errorf("Points = %f, want 0.1", p.Points)
	}
}

func TestComputeProgressIdempotent(t *testing.T) {
	s := miningSession(2, 3)
	now := epoch.Add(47*time.Minute + 13*time.Second)

	first := ComputeProgress(s, rates.Default(), now)
	second := ComputeProgress(s, rates.Default(), now)
	if first != second {
		t.Errorf("ComputeProgress not idempotent: %+v vs %+v", first, second)
	}
}

func TestComputeProgressMonotonic(t *testing.T) {
	s := miningSession(1, 2)
	s.CurrentMiningPoints = 5

	prev := -1.0
	for sec := 0; sec <= 5000; sec += 250 {
		p := ComputeProgress(s, rates.Default(), epoch.Add(time.Duration(sec)*time.Second))
		if p.Points < prev {
			t.Fatalf("points decreased at %ds: %f < %f", sec, p.Points, prev)
		}
		prev = p.Points
	}

	// Capped at the full session at multiplier 2
	if !almostEqual(prev, 5+3600*0.02) {
		t.Errorf("final points = %f, want %f", prev, 5+3600*0.02)
	}
}

func TestComputeProgressCompletion(t *testing.T) {
	s := miningSession(1, 1)
	p := ComputeProgress(s, rates.Default(), epoch.Add(2*time.Hour))

	if !p.Complete {
		t.Error("Complete should be true past the target")
	}
	if p.Elapsed != 3600 {
		t.Errorf("Elapsed = %d, want clamped 3600", p.Elapsed)
	}
	if p.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", p.Remaining)
	}
	if p.Percent != 100 {
		t.Errorf("Percent = %f, want 100", p.Percent)
	}
	if !almostEqual(p.Points, 36) {
		t.Errorf("Points = %f, want 36", p.Points)
	}
}

func TestComputeProgressExactTarget(t *testing.T) {
	s := miningSession(1, 1)
	p := ComputeProgress(s, rates.Default(), epoch.Add(time.Hour))
	if !p.Complete {
		t.Error("Complete should be true exactly at the target")
	}
}

func TestComputeProgressClockBeforeStart(t *testing.T) {
	s := miningSession(1, 1)
	p := ComputeProgress(s, rates.Default(), epoch.Add(-time.Minute))

	if p.Points != 0 || p.Elapsed != 0 || p.Remaining != 3600 {
		t.Errorf("skewed clock progress = %+v", p)
	}
}

func TestSegmentCap(t *testing.T) {
	// 1 hour session upgraded 1->2 at 59 minutes, polled 10 minutes past the upgrade
	s := miningSession(1, 1)
	upgradeAt := epoch.Add(3540 * time.Second)
	s.CurrentMiningPoints = SegmentPoints(s, rates.Default(), upgradeAt)
	s.CurrentMultiplierStartTime = upgradeAt
	s.Multiplier = 2

	if !almostEqual(s.CurrentMiningPoints, 35.4) {
		t.Fatalf("folded points = %f, want 35.4", s.CurrentMiningPoints)
	}

	poll := epoch.Add(3600*time.Second + 600*time.Second)
	seg := SegmentPoints(s, rates.Default(), poll)
	if !almostEqual(seg, 60*0.02) {
		t.Errorf("segment points = %f, want %f (60s at rate 2)", seg, 60*0.02)
	}

	p := ComputeProgress(s, rates.Default(), poll)
	if !almostEqual(p.Points, 35.4+1.2) {
		t.Errorf("Points = %f, want 36.6", p.Points)
	}
}

func TestSegmentStartedAfterTarget(t *testing.T) {
	s := miningSession(1, 1)
	s.CurrentMultiplierStartTime = epoch.Add(2 * time.Hour)
	s.CurrentMiningPoints = 36

	if got := SegmentPoints(s, rates.Default(), epoch.Add(3*time.Hour)); got != 0 {
		t.Errorf("SegmentPoints past target = %f, want 0", got)
	}
}

func TestComputeProgressRateFallback(t *testing.T) {
	s := miningSession(1, 4)
	sparse := rates.Table{1: {Rate: 0.01, HourlyReward: 36}}

	p := ComputeProgress(s, sparse, epoch.Add(100*time.Second))
	if !almostEqual(p.Points, 4) {
		t.Errorf("Points = %f, want 4 from default level 4", p.Points)
	}
}

func TestComputeProgressNonMiningStates(t *testing.T) {
	ready := miningSession(1, 1)
	ready.Status = storage.StatusReadyToClaim
	ready.CurrentMiningPoints = 36

	p := ComputeProgress(ready, rates.Default(), epoch.Add(5*time.Hour))
	if !almostEqual(p.Points, 36) || !p.Complete {
		t.Errorf("ready progress = %+v", p)
	}

	claimed := miningSession(1, 1)
	claimed.Status = storage.StatusClaimed
	claimed.SettledPoints = 36

	p = ComputeProgress(claimed, rates.Default(), epoch.Add(5*time.Hour))
	if !almostEqual(p.Points, 36) || !p.Complete || p.Percent != 100 {
		t.Errorf("claimed progress = %+v", p)
	}
}
