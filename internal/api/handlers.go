package api

import (
	"strconv"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/gin-gonic/gin"
)

// WalletRequest carries only a wallet
type WalletRequest struct {
	Wallet string `json:"wallet"`
}

// StartRequest starts a mining session
type StartRequest struct {
	Wallet       string `json:"wallet"`
	SelectedHour int    `json:"selected_hour"`
	Multiplier   int    `json:"multiplier"`
}

// UpgradeRequest raises the multiplier of the running session
type UpgradeRequest struct {
	Wallet        string `json:"wallet"`
	NewMultiplier int    `json:"new_multiplier"`
}

// ReferralRequest applies a referral code
type ReferralRequest struct {
	Wallet string `json:"wallet"`
	Code   string `json:"code"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// queryInt parses a non-negative integer query parameter
func queryInt(c *gin.Context, name string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func pageLimit(c *gin.Context) int64 {
	limit := queryInt(c, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// handleSignup registers a wallet, returning the existing record on repeat
func (s *Server) handleSignup(c *gin.Context) {
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}

	reg, err := s.deps.Accounts.Register(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}

	status := 200
	if reg.Created {
		status = 201
		s.deps.Leaderboard.Invalidate()
	}
	c.JSON(status, reg)
}

// handleUser returns the wallet record with its current or last session
func (s *Server) handleUser(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}
	ctx := c.Request.Context()

	w, err := s.deps.Accounts.Get(ctx, wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	if w == nil {
		c.JSON(404, gin.H{"error": "User not found", "code": "WALLET_NOT_REGISTERED"})
		return
	}

	snap, err := s.deps.Engine.Session(ctx, wallet)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"user": w, "session": nil}
	if snap != nil {
		resp["session"] = snap.Session
		resp["progress"] = snap.Progress
	}
	c.JSON(200, resp)
}

func (s *Server) handleStartMining(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}

	hours := req.SelectedHour
	if hours == 0 {
		hours = s.cfg.Mining.DefaultHours
	}
	multiplier := req.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}

	session, err := s.deps.Engine.Start(c.Request.Context(), wallet, hours, multiplier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(201, gin.H{"session": session})
}

func (s *Server) handleProgress(c *gin.Context) {
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}

	snap, err := s.deps.Engine.Progress(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, snap)
}

func (s *Server) handleUpgrade(c *gin.Context) {
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}
	if req.NewMultiplier == 0 {
		c.JSON(400, gin.H{"error": "new_multiplier is required"})
		return
	}

	snap, err := s.deps.Engine.Upgrade(c.Request.Context(), wallet, req.NewMultiplier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, snap)
}

func (s *Server) handleClaim(c *gin.Context) {
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}

	claim, err := s.deps.Engine.Claim(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	s.deps.Leaderboard.Invalidate()
	c.JSON(200, claim)
}

// handleSessions returns a wallet's sessions, newest first
func (s *Server) handleSessions(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}

	sessions, err := s.deps.Engine.History(c.Request.Context(), wallet, pageLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"sessions": sessions})
}

func (s *Server) handleApplyReferral(c *gin.Context) {
	var req ReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}

	result, err := s.deps.Referrals.Apply(c.Request.Context(), wallet, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	s.deps.Leaderboard.Invalidate()
	c.JSON(200, result)
}

func (s *Server) handleReferralStatus(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}

	status, err := s.deps.Referrals.Status(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, status)
}

func (s *Server) handleAdReward(c *gin.Context) {
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	wallet, ok := s.requireWallet(c, req.Wallet)
	if !ok {
		return
	}

	result, err := s.deps.Ads.Claim(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	s.deps.Leaderboard.Invalidate()
	c.JSON(200, result)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	board, err := s.deps.Leaderboard.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, board)
}

func (s *Server) handleRates(c *gin.Context) {
	c.JSON(200, gin.H{
		"rates":          s.deps.Rates.Rates(c.Request.Context()),
		"max_multiplier": rates.MaxMultiplier,
	})
}

func (s *Server) handleDurations(c *gin.Context) {
	c.JSON(200, gin.H{
		"durations":     s.deps.Rates.Durations(c.Request.Context()),
		"default_hours": s.cfg.Mining.DefaultHours,
	})
}

func (s *Server) handleNotifications(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}

	list, err := s.deps.Inbox.List(c.Request.Context(), wallet, pageLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}

	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	c.JSON(200, gin.H{"notifications": list, "unread": unread})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}

	if err := s.deps.Inbox.MarkRead(c.Request.Context(), wallet, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) handleMinerUser(c *gin.Context) {
	wallet, ok := s.requireWallet(c, c.Param("wallet"))
	if !ok {
		return
	}

	w, err := s.deps.Accounts.Get(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, err)
		return
	}
	if w == nil {
		c.JSON(404, gin.H{"error": "Miner user not found", "code": "WALLET_NOT_REGISTERED"})
		return
	}
	c.JSON(200, gin.H{"miner_user": w})
}

// handleMinerUsers pages through registered wallets, newest first
func (s *Server) handleMinerUsers(c *gin.Context) {
	wallets, total, err := s.deps.Accounts.List(c.Request.Context(), queryInt(c, "offset", 0), pageLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"count": len(wallets), "total": total, "miner_users": wallets})
}

func (s *Server) handleMinerUsersRange(c *gin.Context) {
	startRaw, endRaw := c.Query("startDate"), c.Query("endDate")
	if startRaw == "" || endRaw == "" {
		c.JSON(400, gin.H{"error": "startDate and endDate are required"})
		return
	}

	start, _, err := parseDate(startRaw)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid startDate"})
		return
	}
	end, dateOnly, err := parseDate(endRaw)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid endDate"})
		return
	}
	// A bare end date covers the whole day
	if dateOnly {
		end = end.Add(24*time.Hour - time.Millisecond)
	}

	wallets, err := s.deps.Accounts.Between(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"count": len(wallets), "miner_users": wallets})
}

// parseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates in UTC
func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}
