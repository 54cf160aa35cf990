// Package leaderboard ranks wallets by lifetime settled points and credits.
package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

// Entry is one ranked wallet
type Entry struct {
	Rank         int     `json:"rank"`
	Wallet       string  `json:"wallet"`
	TotalPoints  float64 `json:"total_points"`
	MinedPoints  float64 `json:"mined_points"`
	BonusBalance float64 `json:"bonus_balance"`
	Sessions     int     `json:"sessions"`
}

// Board is a ranked snapshot
type Board struct {
	Entries     []Entry `json:"leaderboard"`
	TotalMiners int     `json:"total_miners"`
	GeneratedAt int64   `json:"generated_at"`
}

// Store supplies leaderboard rows in registration order
type Store interface {
	LeaderboardRows(ctx context.Context) ([]storage.WalletTotals, error)
}

// Build ranks rows by total points descending. Rows must be in registration
// order; ties keep that order. limit <= 0 keeps every row.
func Build(rows []storage.WalletTotals, limit int) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			Wallet:       row.Wallet,
			TotalPoints:  row.TotalEarned + row.BonusBalance,
			MinedPoints:  row.TotalEarned,
			BonusBalance: row.BonusBalance,
			Sessions:     row.Sessions,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Service serves a cached leaderboard
type Service struct {
	store Store
	limit int
	ttl   time.Duration
	clock util.Clock

	mu       sync.Mutex
	cached   *Board
	cachedAt time.Time
}

// NewService creates a leaderboard service
func NewService(store Store, limit int, ttl time.Duration, clock util.Clock) *Service {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Service{store: store, limit: limit, ttl: ttl, clock: clock}
}

// Get returns the leaderboard, rebuilding it when the cache expired
func (s *Service) Get(ctx context.Context) (*Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.cached != nil && now.Sub(s.cachedAt) < s.ttl {
		return s.cached, nil
	}

	rows, err := s.store.LeaderboardRows(ctx)
	if err != nil {
		return nil, err
	}

	s.cached = &Board{
		Entries:     Build(rows, s.limit),
		TotalMiners: len(rows),
		GeneratedAt: now.Unix(),
	}
	s.cachedAt = now
	return s.cached, nil
}

// Invalidate drops the cached board
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
