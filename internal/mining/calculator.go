// Package mining implements session accrual and the mining session lifecycle.
package mining

import (
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
)

// Progress is a point-in-time view of a session's accrual
type Progress struct {
	Points     float64 `json:"points"`
	Elapsed    int64   `json:"elapsed"`   // seconds, capped at the target
	Remaining  int64   `json:"remaining"` // seconds
	Percent    float64 `json:"percent"`
	Complete   bool    `json:"complete"`
	Multiplier int     `json:"multiplier"`
	Rate       float64 `json:"rate"`
}

// wholeSeconds floors a duration to whole seconds, clamped at zero
func wholeSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// targetSeconds is the session's total duration
func targetSeconds(s *storage.Session) int64 {
	return int64(s.SelectedHourTarget) * 3600
}

// SegmentPoints returns what the open multiplier segment has accrued by now.
// A segment never accrues past the end of the whole session, however late
// it is polled.
func SegmentPoints(s *storage.Session, table rates.Table, now time.Time) float64 {
	rate := table.Level(s.Multiplier).Rate

	segmentElapsed := wholeSeconds(now.Sub(s.CurrentMultiplierStartTime))
	segmentBudget := targetSeconds(s) - wholeSeconds(s.CurrentMultiplierStartTime.Sub(s.MiningStartTime))
	if segmentBudget < 0 {
		segmentBudget = 0
	}

	capped := segmentElapsed
	if capped > segmentBudget {
		capped = segmentBudget
	}
	return float64(capped) * rate
}

// ComputeProgress derives a session's accrual from its timestamps. It has no
// side effects; only mining sessions accrue, other states report their
// stored points.
func ComputeProgress(s *storage.Session, table rates.Table, now time.Time) Progress {
	total := targetSeconds(s)
	elapsed := wholeSeconds(now.Sub(s.MiningStartTime))

	p := Progress{
		Multiplier: s.Multiplier,
		Rate:       table.Level(s.Multiplier).Rate,
		Complete:   elapsed >= total,
	}

	switch s.Status {
	case storage.StatusMining:
		p.Points = s.CurrentMiningPoints + SegmentPoints(s, table, now)
	case storage.StatusClaimed:
		p.Points = s.SettledPoints
		p.Complete = true
	default:
		p.Points = s.CurrentMiningPoints
		if s.Status == storage.StatusReadyToClaim {
			p.Complete = true
		}
	}

	p.Remaining = total - elapsed
	if p.Remaining < 0 || p.Complete {
		p.Remaining = 0
	}

	p.Elapsed = elapsed
	if p.Elapsed > total {
		p.Elapsed = total
	}

	if total > 0 {
		p.Percent = float64(p.Elapsed) / float64(total) * 100
	}
	if p.Complete || total == 0 {
		p.Percent = 100
	}
	return p
}
