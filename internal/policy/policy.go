// Package policy implements request policies for the API.
// This includes score-based rate limiting, temporary IP bans, and wallet blacklisting.
package policy

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/gin-gonic/gin"
)

// ListStore persists the blacklist and whitelist
type ListStore interface {
	GetBlacklist(ctx context.Context) ([]string, error)
	GetWhitelist(ctx context.Context) ([]string, error)
	AddToBlacklist(ctx context.Context, wallet string) error
	RemoveFromBlacklist(ctx context.Context, wallet string) error
	AddToWhitelist(ctx context.Context, ip string) error
	RemoveFromWhitelist(ctx context.Context, ip string) error
}

// IPStats tracks per-IP request scoring
type IPStats struct {
	LastBeat       time.Time
	BannedAt       time.Time // zero when not banned
	Score          int32
	LastScoreReset time.Time
}

func (s *IPStats) banned(now time.Time, banFor time.Duration) bool {
	return !s.BannedAt.IsZero() && now.Sub(s.BannedAt) < banFor
}

// Server manages request policies
type Server struct {
	cfg   *config.SecurityConfig
	store ListStore
	clock util.Clock

	statsMu sync.Mutex
	stats   map[string]*IPStats

	listMu    sync.RWMutex
	blacklist map[string]struct{}
	whitelist map[string]struct{}

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewServer creates a policy server
func NewServer(cfg *config.SecurityConfig, store ListStore, clock util.Clock) *Server {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		clock:     clock,
		stats:     make(map[string]*IPStats),
		blacklist: make(map[string]struct{}),
		whitelist: make(map[string]struct{}),
		quit:      make(chan struct{}),
	}
}

// Start loads the access lists and begins background maintenance
func (p *Server) Start() {
	util.Info("Starting policy server...")

	p.refreshLists(context.Background())

	p.wg.Add(1)
	go p.maintenanceLoop()

	util.Info("Policy server started")
}

// Stop shuts down the policy server
func (p *Server) Stop() {
	close(p.quit)
	p.wg.Wait()
	util.Info("Policy server stopped")
}

// maintenanceLoop refreshes the lists and drops stale stats
func (p *Server) maintenanceLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			p.refreshLists(context.Background())
			p.resetStats()
		}
	}
}

// resetStats clears expired bans and idle entries
func (p *Server) resetStats() {
	now := p.clock.Now()
	stale := p.cfg.ScoreResetTime
	if p.cfg.BanDuration > stale {
		stale = p.cfg.BanDuration
	}

	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	removed := 0
	for ip, stats := range p.stats {
		if !stats.BannedAt.IsZero() && !stats.banned(now, p.cfg.BanDuration) {
			stats.BannedAt = time.Time{}
			util.Infof("Ban expired for %s", ip)
		}
		if stats.BannedAt.IsZero() && now.Sub(stats.LastBeat) >= stale {
			delete(p.stats, ip)
			removed++
		}
	}

	if removed > 0 {
		util.Debugf("Policy stats reset: removed %d stale IPs", removed)
	}
}

// refreshLists reloads blacklist and whitelist from storage
func (p *Server) refreshLists(ctx context.Context) {
	if p.store == nil {
		return
	}

	blacklist, err := p.store.GetBlacklist(ctx)
	if err != nil {
		util.Warnf("Failed to load blacklist: %v", err)
	} else {
		set := make(map[string]struct{}, len(blacklist))
		for _, w := range blacklist {
			set[strings.ToLower(w)] = struct{}{}
		}
		p.listMu.Lock()
		p.blacklist = set
		p.listMu.Unlock()
	}

	whitelist, err := p.store.GetWhitelist(ctx)
	if err != nil {
		util.Warnf("Failed to load whitelist: %v", err)
	} else {
		set := make(map[string]struct{}, len(whitelist))
		for _, ip := range whitelist {
			set[ip] = struct{}{}
		}
		p.listMu.Lock()
		p.whitelist = set
		p.listMu.Unlock()
	}
}

// getStats gets or creates stats for an IP. Callers hold statsMu.
func (p *Server) getStats(ip string, now time.Time) *IPStats {
	stats, ok := p.stats[ip]
	if !ok {
		stats = &IPStats{LastScoreReset: now}
		p.stats[ip] = stats
	}
	stats.LastBeat = now
	return stats
}

// IsBanned checks if an IP is currently banned
func (p *Server) IsBanned(ip string) bool {
	if !p.cfg.Enabled {
		return false
	}

	now := p.clock.Now()
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	stats, ok := p.stats[ip]
	return ok && stats.banned(now, p.cfg.BanDuration)
}

// AddScore adds cost to an IP's score and returns false once it is banned
func (p *Server) AddScore(ip string, cost int32) bool {
	if !p.cfg.Enabled || p.IsWhitelisted(ip) {
		return true
	}

	now := p.clock.Now()
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	stats := p.getStats(ip, now)
	if stats.banned(now, p.cfg.BanDuration) {
		return false
	}

	if now.Sub(stats.LastScoreReset) >= p.cfg.ScoreResetTime {
		stats.Score = 0
		stats.LastScoreReset = now
	}

	stats.Score += cost
	if stats.Score >= p.cfg.MaxScore {
		util.Warnf("Score limit exceeded for %s: %d >= %d", ip, stats.Score, p.cfg.MaxScore)
		stats.Score = 0
		if p.cfg.BanDuration > 0 {
			stats.BannedAt = now
			util.Infof("Banned IP: %s for %v", ip, p.cfg.BanDuration)
		}
		return false
	}
	return true
}

// GetScore returns the current score for an IP
func (p *Server) GetScore(ip string) int32 {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if stats, ok := p.stats[ip]; ok {
		return stats.Score
	}
	return 0
}

// GetStats returns tracked and banned IP counts for monitoring
func (p *Server) GetStats() (total, banned int) {
	now := p.clock.Now()
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	total = len(p.stats)
	for _, stats := range p.stats {
		if stats.banned(now, p.cfg.BanDuration) {
			banned++
		}
	}
	return
}

// IsWhitelisted checks if an IP is whitelisted
func (p *Server) IsWhitelisted(ip string) bool {
	p.listMu.RLock()
	defer p.listMu.RUnlock()
	_, ok := p.whitelist[ip]
	return ok
}

// IsBlacklisted checks if a wallet is blacklisted
func (p *Server) IsBlacklisted(wallet string) bool {
	p.listMu.RLock()
	defer p.listMu.RUnlock()
	_, ok := p.blacklist[strings.ToLower(wallet)]
	return ok
}

// Blacklist returns the cached blacklist
func (p *Server) Blacklist() []string {
	p.listMu.RLock()
	defer p.listMu.RUnlock()
	return keys(p.blacklist)
}

// Whitelist returns the cached whitelist
func (p *Server) Whitelist() []string {
	p.listMu.RLock()
	defer p.listMu.RUnlock()
	return keys(p.whitelist)
}

// AddToBlacklist adds a wallet to the blacklist
func (p *Server) AddToBlacklist(ctx context.Context, wallet string) error {
	wallet = strings.ToLower(wallet)
	if p.store != nil {
		if err := p.store.AddToBlacklist(ctx, wallet); err != nil {
			return err
		}
	}
	p.listMu.Lock()
	p.blacklist[wallet] = struct{}{}
	p.listMu.Unlock()
	return nil
}

// RemoveFromBlacklist removes a wallet from the blacklist
func (p *Server) RemoveFromBlacklist(ctx context.Context, wallet string) error {
	wallet = strings.ToLower(wallet)
	if p.store != nil {
		if err := p.store.RemoveFromBlacklist(ctx, wallet); err != nil {
			return err
		}
	}
	p.listMu.Lock()
	delete(p.blacklist, wallet)
	p.listMu.Unlock()
	return nil
}

// AddToWhitelist adds an IP to the whitelist
func (p *Server) AddToWhitelist(ctx context.Context, ip string) error {
	if p.store != nil {
		if err := p.store.AddToWhitelist(ctx, ip); err != nil {
			return err
		}
	}
	p.listMu.Lock()
	p.whitelist[ip] = struct{}{}
	p.listMu.Unlock()
	return nil
}

// RemoveFromWhitelist removes an IP from the whitelist
func (p *Server) RemoveFromWhitelist(ctx context.Context, ip string) error {
	if p.store != nil {
		if err := p.store.RemoveFromWhitelist(ctx, ip); err != nil {
			return err
		}
	}
	p.listMu.Lock()
	delete(p.whitelist, ip)
	p.listMu.Unlock()
	return nil
}

// Middleware charges every request to the client IP, rejecting banned
// clients. Client errors cost extra, malformed requests the most.
func (p *Server) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.cfg.Enabled {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if p.IsBanned(ip) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "temporarily banned", "code": "BANNED"})
			return
		}
		if !p.AddScore(ip, p.cfg.CostRequest) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "RATE_LIMITED"})
			return
		}

		c.Next()

		switch status := c.Writer.Status(); {
		case status == http.StatusBadRequest:
			p.AddScore(ip, p.cfg.CostMalformed)
		case status >= 400 && status < 500 && status != http.StatusTooManyRequests:
			p.AddScore(ip, p.cfg.CostFailure)
		}
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
