package master

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/alicebob/miniredis/v2"
)

type fakeQueue struct {
	jobs []*storage.SettlementJob
	err  error
}

func (q *fakeQueue) Pending(ctx context.Context) ([]*storage.SettlementJob, error) {
	return q.jobs, q.err
}

type recordingSink struct {
	mu      sync.Mutex
	miners  int64
	pending int
	calls   int
}

func (s *recordingSink) UpdateEngineMetrics(miners int64, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.miners, s.pending = miners, pending
	s.calls++
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type orderedService struct {
	name string
	log  *[]string
}

func (s orderedService) Start() { *s.log = append(*s.log, "start "+s.name) }
func (s orderedService) Stop()  { *s.log = append(*s.log, "stop "+s.name) }

func setupStore(t *testing.T) *storage.RedisClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	r, err := storage.NewRedisClient(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestUpdateStats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	for _, w := range []string{"alice", "bob"} {
		if _, _, err := store.RegisterWallet(ctx, w, w+"-code", 1); err != nil {
			t.Fatalf("RegisterWallet() error = %v", err)
		}
	}

	clock := util.NewManualClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	queue := &fakeQueue{jobs: []*storage.SettlementJob{{ID: "j1"}}}
	sink := &recordingSink{}

	m := NewMaster(store, queue, time.Minute, clock)
	m.AddSink(sink)
	m.updateStats()

	stats := m.Stats()
	if stats.Miners != 2 || stats.PendingSettlements != 1 || !stats.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("Stats() = %+v", stats)
	}
	if sink.miners != 2 || sink.pending != 1 {
		t.Errorf("sink = %d, %d", sink.miners, sink.pending)
	}
}

func TestUpdateStatsKeepsLastGoodValue(t *testing.T) {
	store := setupStore(t)
	queue := &fakeQueue{jobs: []*storage.SettlementJob{{ID: "j1"}, {ID: "j2"}}}

	m := NewMaster(store, queue, time.Minute, nil)
	m.updateStats()

	queue.err = errors.New("redis down")
	m.updateStats()

	if got := m.Stats().PendingSettlements; got != 2 {
		t.Errorf("PendingSettlements = %d, want last good value 2", got)
	}
}

func TestStartStopServices(t *testing.T) {
	store := setupStore(t)
	var log []string

	m := NewMaster(store, &fakeQueue{}, time.Minute, nil)
	m.Manage(orderedService{name: "policy", log: &log})
	m.Manage(orderedService{name: "settlement", log: &log})

	m.Start()
	m.Stop()

	want := []string{"start policy", "start settlement", "stop settlement", "stop policy"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestStatsLoop(t *testing.T) {
	store := setupStore(t)
	sink := &recordingSink{}

	m := NewMaster(store, &fakeQueue{}, 10*time.Millisecond, nil)
	m.AddSink(sink)
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("stats loop ran %d times, want at least 3", sink.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
