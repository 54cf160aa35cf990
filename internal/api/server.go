// Package api provides the REST API server.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/account"
	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/leaderboard"
	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/newrelic"
	"github.com/akshaygadendss/CryptoMinerApp/internal/notify"
	"github.com/akshaygadendss/CryptoMinerApp/internal/policy"
	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/akshaygadendss/CryptoMinerApp/internal/referral"
	"github.com/akshaygadendss/CryptoMinerApp/internal/settlement"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the API serves
type Deps struct {
	Redis       *storage.RedisClient
	Accounts    *account.Service
	Engine      *mining.Engine
	Rates       *rates.Provider
	Settlement  *settlement.Service
	Ads         *settlement.AdRewards
	Referrals   *referral.Service
	Leaderboard *leaderboard.Service
	Inbox       *notify.Inbox
	Policy      *policy.Server
	Agent       *newrelic.Agent
}

// Server is the API server
type Server struct {
	cfg    *config.Config
	deps   Deps
	router *gin.Engine
	server *http.Server
	stream *Stream
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: router,
		stream: NewStream(deps.Engine, cfg.API.StreamInterval, cfg.API.CORSOrigins),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures API endpoints
func (s *Server) setupRoutes() {
	s.router.Use(metrics.Middleware())
	if s.deps.Agent != nil {
		s.router.Use(s.deps.Agent.Middleware())
	}
	s.router.Use(s.corsMiddleware())
	if s.deps.Policy != nil {
		s.router.Use(s.deps.Policy.Middleware())
	}

	api := s.router.Group("/api")
	{
		api.POST("/signup", s.handleSignup)
		api.GET("/user/:wallet", s.handleUser)
		api.POST("/start-mining", s.handleStartMining)
		api.POST("/calculate-progress", s.handleProgress)
		api.POST("/upgrade-multiplier", s.handleUpgrade)
		api.POST("/claim-reward", s.handleClaim)
		api.GET("/sessions/:wallet", s.handleSessions)

		api.POST("/referral/apply", s.handleApplyReferral)
		api.GET("/referral/:wallet", s.handleReferralStatus)
		api.POST("/ad-reward", s.handleAdReward)

		api.GET("/leaderboard", s.handleLeaderboard)
		api.GET("/config/rates", s.handleRates)
		api.GET("/config/durations", s.handleDurations)

		api.GET("/notifications/:wallet", s.handleNotifications)
		api.POST("/notifications/:wallet/:id/read", s.handleMarkRead)

		api.GET("/miner-user/:wallet", s.handleMinerUser)
		api.GET("/miner-users", s.handleMinerUsers)
		api.GET("/miner-users/date-range", s.handleMinerUsersRange)
	}

	s.router.GET("/ws/progress/:wallet", s.handleStream)

	// Admin API (password protected)
	if s.cfg.API.AdminEnabled && s.cfg.API.AdminPassword != "" {
		admin := s.router.Group("/admin")
		admin.Use(s.adminAuthMiddleware())
		{
			admin.GET("/stats", s.handleAdminStats)
			admin.PUT("/config/rates", s.handleSetRates)
			admin.PUT("/config/durations", s.handleSetDurations)
			admin.GET("/settlements", s.handlePendingSettlements)
			admin.POST("/settlements/retry", s.handleRetrySettlements)
			if s.deps.Policy != nil {
				admin.GET("/blacklist", s.handleGetBlacklist)
				admin.POST("/blacklist", s.handleAddBlacklist)
				admin.DELETE("/blacklist/:wallet", s.handleRemoveBlacklist)
				admin.GET("/whitelist", s.handleGetWhitelist)
				admin.POST("/whitelist", s.handleAddWhitelist)
				admin.DELETE("/whitelist/:ip", s.handleRemoveWhitelist)
			}
		}
	}

	if s.cfg.API.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Health check
	s.router.GET("/health", s.handleHealth)
}

// corsMiddleware allows the configured origins. An empty list or "*" allows all.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowAll := len(s.cfg.API.CORSOrigins) == 0
	allowed := make(map[string]struct{}, len(s.cfg.API.CORSOrigins))
	for _, o := range s.cfg.API.CORSOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Start begins the API server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.API.Bind,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	util.Infof("API server listening on %s", s.cfg.API.Bind)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Errorf("API server error: %v", err)
		}
	}()

	return nil
}

// Stop closes progress streams and drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.stream.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(200, gin.H{
		"status": "ok",
		"apm":    s.deps.Agent != nil && s.deps.Agent.IsEnabled(),
	})
}

// adminAuthMiddleware validates admin password
func (s *Server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(401, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		// Support both "Bearer <password>" and plain password
		password := strings.TrimPrefix(auth, "Bearer ")
		if password != s.cfg.API.AdminPassword {
			c.JSON(403, gin.H{"error": "Invalid password"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// requireWallet normalizes and checks a wallet from a request, writing the
// error response itself when the wallet is unusable.
func (s *Server) requireWallet(c *gin.Context, raw string) (string, bool) {
	wallet := util.NormalizeWallet(raw)
	if !util.ValidateWallet(wallet) {
		c.JSON(400, gin.H{"error": "Wallet address is required", "code": util.ErrorCode(account.ErrInvalidWallet)})
		return "", false
	}
	if s.deps.Policy != nil && s.deps.Policy.IsBlacklisted(wallet) {
		c.JSON(403, gin.H{"error": "Wallet is blacklisted", "code": "BLACKLISTED"})
		return "", false
	}
	return wallet, true
}

// writeError maps service errors to HTTP responses
func writeError(c *gin.Context, err error) {
	var nonSeq *mining.NonSequentialError
	code := util.ErrorCode(err)

	switch {
	case errors.As(err, &nonSeq):
		c.JSON(409, gin.H{
			"error":                err.Error(),
			"code":                 code,
			"current_multiplier":   nonSeq.Current,
			"requested_multiplier": nonSeq.Requested,
		})
	case errors.Is(err, mining.ErrWalletNotRegistered), errors.Is(err, notify.ErrNotificationNotFound):
		c.JSON(404, gin.H{"error": err.Error(), "code": code})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(409, gin.H{"error": "Concurrent update, please retry", "code": "CONFLICT"})
	case errors.Is(err, mining.ErrActiveSessionExists),
		errors.Is(err, mining.ErrNotMining),
		errors.Is(err, mining.ErrNotReadyToClaim),
		errors.Is(err, mining.ErrMaxMultiplierReached),
		errors.Is(err, referral.ErrAlreadyUsed):
		c.JSON(409, gin.H{"error": err.Error(), "code": code})
	case errors.Is(err, settlement.ErrAdCooldown):
		c.JSON(429, gin.H{"error": err.Error(), "code": code})
	case util.IsDomainError(err):
		c.JSON(400, gin.H{"error": err.Error(), "code": code})
	default:
		util.Errorf("API %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.Error(err)
		c.JSON(500, gin.H{"error": "Internal server error", "code": "INTERNAL"})
	}
}
