package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

func TestBuildRanksWithStableTies(t *testing.T) {
	rows := []storage.WalletTotals{
		{Wallet: "A", TotalEarned: 50, Sessions: 1},
		{Wallet: "B", TotalEarned: 150, BonusBalance: 50, Sessions: 1},
		{Wallet: "C", TotalEarned: 200, Sessions: 2},
	}

	entries := Build(rows, 100)
	want := []struct {
		wallet string
		rank   int
		total  float64
	}{
		{"B", 1, 200},
		{"C", 2, 200},
		{"A", 3, 50},
	}

	if len(entries) != len(want) {
		t.Fatalf("Build() returned %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		e := entries[i]
		if e.Wallet != w.wallet || e.Rank != w.rank || e.TotalPoints != w.total {
			t.Errorf("entries[%d] = %+v, want %s rank %d total %f", i, e, w.wallet, w.rank, w.total)
		}
	}
	if entries[1].Sessions != 2 || entries[0].BonusBalance != 50 {
		t.Errorf("entry details wrong: %+v", entries)
	}
}

func TestBuildLimit(t *testing.T) {
	var rows []storage.WalletTotals
	for i := 0; i < 150; i++ {
		rows = append(rows, storage.WalletTotals{Wallet: string(rune('a' + i%26)), BonusBalance: float64(i)})
	}

	entries := Build(rows, 100)
	if len(entries) != 100 {
		t.Fatalf("Build() returned %d entries, want 100", len(entries))
	}
	if entries[0].TotalPoints != 149 || entries[99].Rank != 100 {
		t.Errorf("first = %+v, last = %+v", entries[0], entries[99])
	}

	if all := Build(rows, 0); len(all) != 150 {
		t.Errorf("Build(limit 0) returned %d entries, want 150", len(all))
	}
}

func TestBuildEmpty(t *testing.T) {
	if entries := Build(nil, 100); len(entries) != 0 {
		t.Errorf("Build(nil) = %v", entries)
	}
}

type countingStore struct {
	calls int
	rows  []storage.WalletTotals
	err   error
}

func (s *countingStore) LeaderboardRows(ctx context.Context) ([]storage.WalletTotals, error) {
	s.calls++
	return s.rows, s.err
}

func TestServiceCaches(t *testing.T) {
	store := &countingStore{rows: []storage.WalletTotals{{Wallet: "A", BonusBalance: 1}}}
	clock := util.NewManualClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(store, 100, 10*time.Second, clock)
	ctx := context.Background()

	board, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if board.TotalMiners != 1 || len(board.Entries) != 1 {
		t.Errorf("Get() = %+v", board)
	}

	clock.Advance(5 * time.Second)
	svc.Get(ctx)
	if store.calls != 1 {
		t.Errorf("store calls = %d, want cached result", store.calls)
	}

	clock.Advance(6 * time.Second)
	svc.Get(ctx)
	if store.calls != 2 {
		t.Errorf("store calls = %d, want refresh after ttl", store.calls)
	}

	svc.Invalidate()
	svc.Get(ctx)
	if store.calls != 3 {
		t.Errorf("store calls = %d, want refresh after invalidate", store.calls)
	}
}

func TestServiceError(t *testing.T) {
	store := &countingStore{err: errors.New("redis down")}
	svc := NewService(store, 100, time.Second, nil)

	if _, err := svc.Get(context.Background()); err == nil {
		t.Error("Get() should propagate store errors")
	}
}
