// Package master runs the engine's background coordination: it keeps the
// engine-wide gauges current and owns the lifecycle of the background loops.
package master

import (
	"context"
	"sync"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

// Store counts registered wallets
type Store interface {
	CountWallets(ctx context.Context) (int64, error)
}

// SettlementQueue lists cascades waiting for retry
type SettlementQueue interface {
	Pending(ctx context.Context) ([]*storage.SettlementJob, error)
}

// StatsSink receives engine-wide gauges, e.g. an APM agent
type StatsSink interface {
	UpdateEngineMetrics(miners int64, pendingSettlements int)
}

// Service is a background loop the master starts and stops with itself
type Service interface {
	Start()
	Stop()
}

// Stats is the last computed engine snapshot
type Stats struct {
	Miners             int64     `json:"miners"`
	PendingSettlements int       `json:"pending_settlements"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Master coordinates background work
type Master struct {
	store    Store
	queue    SettlementQueue
	interval time.Duration
	clock    util.Clock
	sinks    []StatsSink
	services []Service

	statsMu sync.RWMutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaster creates a coordinator refreshing stats every interval
func NewMaster(store Store, queue SettlementQueue, interval time.Duration, clock util.Clock) *Master {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Master{
		store:    store,
		queue:    queue,
		interval: interval,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddSink registers a receiver for engine gauges
func (m *Master) AddSink(s StatsSink) {
	m.sinks = append(m.sinks, s)
}

// Manage hands a background service to the master. Services start in
// registration order and stop in reverse.
func (m *Master) Manage(s Service) {
	m.services = append(m.services, s)
}

// Start begins the master coordinator
func (m *Master) Start() {
	util.Info("Starting engine master...")

	for _, s := range m.services {
		s.Start()
	}

	m.updateStats()

	m.wg.Add(1)
	go m.statsUpdateLoop()

	util.Info("Engine master started")
}

// Stop shuts down the master and its managed services
func (m *Master) Stop() {
	util.Info("Stopping engine master...")
	m.cancel()
	m.wg.Wait()

	for i := len(m.services) - 1; i >= 0; i-- {
		m.services[i].Stop()
	}
	util.Info("Engine master stopped")
}

// Stats returns the last computed snapshot
func (m *Master) Stats() Stats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats
}

// statsUpdateLoop refreshes engine-wide gauges
func (m *Master) statsUpdateLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.updateStats()
		}
	}
}

// updateStats recomputes engine gauges. A failed read keeps the previous value.
func (m *Master) updateStats() {
	ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()

	m.statsMu.Lock()
	stats := m.stats
	m.statsMu.Unlock()

	if miners, err := m.store.CountWallets(ctx); err != nil {
		util.Warnf("Failed to count wallets: %v", err)
	} else {
		stats.Miners = miners
	}

	if jobs, err := m.queue.Pending(ctx); err != nil {
		util.Warnf("Failed to load pending settlements: %v", err)
	} else {
		stats.PendingSettlements = len(jobs)
	}
	stats.UpdatedAt = m.clock.Now()

	m.statsMu.Lock()
	m.stats = stats
	m.statsMu.Unlock()

	metrics.SetRegisteredWallets(stats.Miners)
	metrics.SetPendingSettlements(stats.PendingSettlements)
	for _, s := range m.sinks {
		s.UpdateEngineMetrics(stats.Miners, stats.PendingSettlements)
	}
	util.Debugf("Engine stats: miners=%d pending_settlements=%d", stats.Miners, stats.PendingSettlements)
}
