// Package newrelic provides New Relic APM integration for monitoring.
package newrelic

import (
	"context"
	"sync"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Agent wraps New Relic APM functionality
type Agent struct {
	cfg *config.NewRelicConfig
	app *newrelic.Application
	mu  sync.RWMutex
}

// NewAgent creates a new New Relic agent
func NewAgent(cfg *config.NewRelicConfig) *Agent {
	return &Agent{
		cfg: cfg,
	}
}

// Start initializes the New Relic agent
func (a *Agent) Start() error {
	if !a.cfg.Enabled {
		util.Info("New Relic APM disabled")
		return nil
	}

	if a.cfg.LicenseKey == "" {
		util.Warn("New Relic license key not configured, APM disabled")
		return nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(a.cfg.AppName),
		newrelic.ConfigLicense(a.cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return err
	}

	// Wait for connection (up to 5 seconds)
	if err := app.WaitForConnection(5 * time.Second); err != nil {
		util.Warnf("New Relic connection timeout: %v (will retry in background)", err)
	}

	a.mu.Lock()
	a.app = app
	a.mu.Unlock()

	util.Infof("New Relic APM enabled for app: %s", a.cfg.AppName)
	return nil
}

// Stop shuts down the New Relic agent
func (a *Agent) Stop() {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()

	if app != nil {
		util.Info("Shutting down New Relic agent")
		app.Shutdown(10 * time.Second)
	}
}

// IsEnabled returns true if New Relic is enabled and connected
func (a *Agent) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.app != nil
}

// StartTransaction starts a new New Relic transaction
func (a *Agent) StartTransaction(name string) *newrelic.Transaction {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()

	if app == nil {
		return nil
	}
	return app.StartTransaction(name)
}

// RecordCustomEvent records a custom event
func (a *Agent) RecordCustomEvent(eventType string, params map[string]interface{}) {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()

	if app != nil {
		app.RecordCustomEvent(eventType, params)
	}
}

// RecordCustomMetric records a custom metric
func (a *Agent) RecordCustomMetric(name string, value float64) {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()

	if app != nil {
		app.RecordCustomMetric(name, value)
	}
}

// NoticeError records an error
func (a *Agent) NoticeError(txn *newrelic.Transaction, err error) {
	if txn != nil && err != nil {
		txn.NoticeError(err)
	}
}

// NewContext adds transaction to context
func (a *Agent) NewContext(ctx context.Context, txn *newrelic.Transaction) context.Context {
	if txn == nil {
		return ctx
	}
	return newrelic.NewContext(ctx, txn)
}

// Middleware wraps each request in a web transaction named after its route
func (a *Agent) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		txn := a.StartTransaction(c.Request.Method + " " + name)
		if txn == nil {
			c.Next()
			return
		}
		defer txn.End()

		txn.SetWebRequestHTTP(c.Request)
		c.Request = c.Request.WithContext(a.NewContext(c.Request.Context(), txn))

		c.Next()

		for _, err := range c.Errors {
			a.NoticeError(txn, err.Err)
		}
		txn.SetWebResponse(nil).WriteHeader(c.Writer.Status())
	}
}

// RecordSessionStarted records a mining session start
func (a *Agent) RecordSessionStarted(wallet, sessionID string, hours, multiplier int) {
	a.RecordCustomEvent("SessionStarted", map[string]interface{}{
		"wallet":     wallet,
		"sessionId":  sessionID,
		"hours":      hours,
		"multiplier": multiplier,
	})
}

// RecordMultiplierUpgraded records a multiplier upgrade
func (a *Agent) RecordMultiplierUpgraded(wallet, sessionID string, multiplier int, points float64) {
	a.RecordCustomEvent("MultiplierUpgraded", map[string]interface{}{
		"wallet":     wallet,
		"sessionId":  sessionID,
		"multiplier": multiplier,
		"points":     points,
	})
}

// RecordSessionCompleted records a session reaching its target
func (a *Agent) RecordSessionCompleted(wallet, sessionID string, points float64) {
	a.RecordCustomEvent("SessionCompleted", map[string]interface{}{
		"wallet":    wallet,
		"sessionId": sessionID,
		"points":    points,
	})
}

// RecordClaim records a claimed reward
func (a *Agent) RecordClaim(wallet, sessionID string, amount, total float64) {
	a.RecordCustomEvent("RewardClaimed", map[string]interface{}{
		"wallet":      wallet,
		"sessionId":   sessionID,
		"amount":      amount,
		"totalEarned": total,
	})
}

// RecordReferralApplied records a referral code being applied
func (a *Agent) RecordReferralApplied(referrer, referred string, bonus float64) {
	a.RecordCustomEvent("ReferralApplied", map[string]interface{}{
		"referrer": referrer,
		"referred": referred,
		"bonus":    bonus,
	})
}

// RecordReferralReward records a referrer's share of a claim
func (a *Agent) RecordReferralReward(referrer, referred string, amount float64) {
	a.RecordCustomEvent("ReferralReward", map[string]interface{}{
		"referrer": referrer,
		"referred": referred,
		"amount":   amount,
	})
}

// UpdateEngineMetrics updates engine-wide metrics
func (a *Agent) UpdateEngineMetrics(miners int64, pendingSettlements int) {
	a.RecordCustomMetric("Custom/Engine/Miners", float64(miners))
	a.RecordCustomMetric("Custom/Engine/PendingSettlements", float64(pendingSettlements))
}
