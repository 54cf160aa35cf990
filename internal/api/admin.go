package api

import (
	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/gin-gonic/gin"
)

// AdminStatsResponse contains engine-wide counters
type AdminStatsResponse struct {
	Miners             int64 `json:"miners"`
	PendingSettlements int   `json:"pending_settlements"`
	StreamClients      int   `json:"stream_clients"`
	TrackedIPs         int   `json:"tracked_ips"`
	BannedIPs          int   `json:"banned_ips"`
	BlacklistCount     int   `json:"blacklist_count"`
	WhitelistCount     int   `json:"whitelist_count"`
}

// handleAdminStats returns engine-wide counters
func (s *Server) handleAdminStats(c *gin.Context) {
	ctx := c.Request.Context()

	_, miners, err := s.deps.Accounts.List(ctx, 0, 1)
	if err != nil {
		writeError(c, err)
		return
	}
	pending, err := s.deps.Settlement.Pending(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	response := AdminStatsResponse{
		Miners:             miners,
		PendingSettlements: len(pending),
		StreamClients:      s.stream.Count(),
	}
	if p := s.deps.Policy; p != nil {
		response.TrackedIPs, response.BannedIPs = p.GetStats()
		response.BlacklistCount = len(p.Blacklist())
		response.WhitelistCount = len(p.Whitelist())
	}

	c.JSON(200, response)
}

// handleSetRates replaces the rate table
func (s *Server) handleSetRates(c *gin.Context) {
	var table rates.Table
	if err := c.ShouldBindJSON(&table); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	if err := rates.Validate(table); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := s.deps.Rates.SetRates(c.Request.Context(), table); err != nil {
		writeError(c, err)
		return
	}

	util.Infof("Admin: Updated rate table (%d levels)", len(table))
	c.JSON(200, gin.H{"status": "ok", "rates": table})
}

// handleSetDurations replaces the session duration options
func (s *Server) handleSetDurations(c *gin.Context) {
	var opts []rates.DurationOption
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	if err := rates.ValidateDurations(opts); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := s.deps.Rates.SetDurations(c.Request.Context(), opts); err != nil {
		writeError(c, err)
		return
	}

	util.Infof("Admin: Updated duration options (%d)", len(opts))
	c.JSON(200, gin.H{"status": "ok", "durations": opts})
}

// handlePendingSettlements returns queued referral cascades
func (s *Server) handlePendingSettlements(c *gin.Context) {
	jobs, err := s.deps.Settlement.Pending(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get pending settlements"})
		return
	}

	c.JSON(200, gin.H{"pending_settlements": jobs})
}

// handleRetrySettlements runs one retry pass immediately
func (s *Server) handleRetrySettlements(c *gin.Context) {
	result, err := s.deps.Settlement.RetryPending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	util.Infof("Admin: Settlement retry settled=%d failed=%d parked=%d", result.Settled, result.Failed, result.Parked)
	c.JSON(200, result)
}

// handleGetBlacklist returns all blacklisted wallets
func (s *Server) handleGetBlacklist(c *gin.Context) {
	c.JSON(200, gin.H{"blacklist": s.deps.Policy.Blacklist()})
}

// BlacklistRequest represents a blacklist add request
type BlacklistRequest struct {
	Wallet string `json:"wallet"`
}

// handleAddBlacklist adds a wallet to the blacklist
func (s *Server) handleAddBlacklist(c *gin.Context) {
	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	wallet := util.NormalizeWallet(req.Wallet)
	if wallet == "" {
		c.JSON(400, gin.H{"error": "Wallet required"})
		return
	}

	if err := s.deps.Policy.AddToBlacklist(c.Request.Context(), wallet); err != nil {
		c.JSON(500, gin.H{"error": "Failed to add to blacklist"})
		return
	}

	util.Infof("Admin: Added %s to blacklist", wallet)
	c.JSON(200, gin.H{"status": "ok", "wallet": wallet})
}

// handleRemoveBlacklist removes a wallet from the blacklist
func (s *Server) handleRemoveBlacklist(c *gin.Context) {
	wallet := c.Param("wallet")

	if err := s.deps.Policy.RemoveFromBlacklist(c.Request.Context(), wallet); err != nil {
		c.JSON(500, gin.H{"error": "Failed to remove from blacklist"})
		return
	}

	util.Infof("Admin: Removed %s from blacklist", wallet)
	c.JSON(200, gin.H{"status": "ok", "wallet": wallet})
}

// handleGetWhitelist returns all whitelisted IPs
func (s *Server) handleGetWhitelist(c *gin.Context) {
	c.JSON(200, gin.H{"whitelist": s.deps.Policy.Whitelist()})
}

// WhitelistRequest represents a whitelist add request
type WhitelistRequest struct {
	IP string `json:"ip"`
}

// handleAddWhitelist adds an IP to the whitelist
func (s *Server) handleAddWhitelist(c *gin.Context) {
	var req WhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	if req.IP == "" {
		c.JSON(400, gin.H{"error": "IP required"})
		return
	}

	if err := s.deps.Policy.AddToWhitelist(c.Request.Context(), req.IP); err != nil {
		c.JSON(500, gin.H{"error": "Failed to add to whitelist"})
		return
	}

	util.Infof("Admin: Added %s to whitelist", req.IP)
	c.JSON(200, gin.H{"status": "ok", "ip": req.IP})
}

// handleRemoveWhitelist removes an IP from the whitelist
func (s *Server) handleRemoveWhitelist(c *gin.Context) {
	ip := c.Param("ip")

	if err := s.deps.Policy.RemoveFromWhitelist(c.Request.Context(), ip); err != nil {
		c.JSON(500, gin.H{"error": "Failed to remove from whitelist"})
		return
	}

	util.Infof("Admin: Removed %s from whitelist", ip)
	c.JSON(200, gin.H{"status": "ok", "ip": ip})
}
