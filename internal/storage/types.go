// Package storage provides data persistence for the mining engine.
package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrConflict is returned when a per-wallet update keeps losing its compare-and-swap
var ErrConflict = errors.New("storage: concurrent update conflict")

// SessionStatus represents the mining session lifecycle state
type SessionStatus string

const (
	StatusIdle         SessionStatus = "idle"
	StatusMining       SessionStatus = "mining"
	StatusReadyToClaim SessionStatus = "ready_to_claim"
	StatusClaimed      SessionStatus = "claimed"
)

// IsActive reports whether a session in this status blocks a new start
func (s SessionStatus) IsActive() bool {
	return s == StatusMining || s == StatusReadyToClaim
}

// Wallet is the lifetime aggregate for a registered wallet
type Wallet struct {
	Wallet        string  `json:"wallet"`
	ReferralCode  string  `json:"referral_code"`
	CreatedAt     int64   `json:"created_at"`
	TotalEarned   float64 `json:"total_earned"`
	BonusBalance  float64 `json:"bonus_balance"` // ad and referral credits
	ActiveSession string  `json:"active_session,omitempty"`
	LastSession   string  `json:"last_session,omitempty"`
	LastAdReward  int64   `json:"last_ad_reward,omitempty"`
	Version       int64   `json:"version"`
	LastUpdated   int64   `json:"last_updated"`
}

// Session is one mining attempt
type Session struct {
	ID                         string        `json:"id"`
	Wallet                     string        `json:"wallet"`
	Status                     SessionStatus `json:"status"`
	Multiplier                 int           `json:"multiplier"`
	MiningStartTime            time.Time     `json:"mining_start_time"`
	CurrentMultiplierStartTime time.Time     `json:"current_multiplier_start_time"`
	SelectedHourTarget         int           `json:"selected_hour"`
	CurrentMiningPoints        float64       `json:"current_mining_points"`
	SettledPoints              float64       `json:"settled_points"`
	CompletedAt                *time.Time    `json:"completed_at,omitempty"`
	ClaimedAt                  *time.Time    `json:"claimed_at,omitempty"`
	LastUpdated                time.Time     `json:"last_updated"`
}

// ReferralLink records that a referred wallet applied a referrer's code
type ReferralLink struct {
	ReferrerWallet string  `json:"referrer_wallet"`
	ReferredWallet string  `json:"referred_wallet"`
	Code           string  `json:"code"`
	SignupBonus    float64 `json:"signup_bonus"`
	CreatedAt      int64   `json:"created_at"`
}

// ReferralMiningReward is a ledger entry for a referrer's share of a claim
type ReferralMiningReward struct {
	ID             string  `json:"id"`
	SessionID      string  `json:"session_id"`
	ReferrerWallet string  `json:"referrer_wallet"`
	ReferredWallet string  `json:"referred_wallet"`
	Amount         float64 `json:"amount"`
	Timestamp      int64   `json:"timestamp"`
}

// AdReward is a ledger entry for a rewarded ad view
type AdReward struct {
	ID        string  `json:"id"`
	Wallet    string  `json:"wallet"`
	Tokens    float64 `json:"rewarded_tokens"`
	ClaimedAt int64   `json:"claimed_at"`
}

// NotificationType classifies in-app notifications
type NotificationType string

const (
	NotificationReferral NotificationType = "referral"
	NotificationMining   NotificationType = "mining"
	NotificationReward   NotificationType = "reward"
)

// Notification is an in-app inbox message
type Notification struct {
	ID        string           `json:"id"`
	Wallet    string           `json:"wallet"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      NotificationData `json:"data"`
	IsRead    bool             `json:"is_read"`
	CreatedAt int64            `json:"created_at"`
}

// NotificationData carries the amounts behind a notification
type NotificationData struct {
	ReferrerWallet string  `json:"referrer_wallet,omitempty"`
	ReferredWallet string  `json:"referred_wallet,omitempty"`
	Tokens         float64 `json:"tokens,omitempty"`
}

// ConfigEntry is a versioned key/value document from the config store
type ConfigEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt int64           `json:"updated_at"`
}

// SettlementJob is a referral cascade waiting for (re)delivery
type SettlementJob struct {
	ID         string  `json:"id"`
	SessionID  string  `json:"session_id"`
	Wallet     string  `json:"wallet"`
	Amount     float64 `json:"amount"`
	ClaimedAt  int64   `json:"claimed_at"`
	Attempts   int     `json:"attempts"`
	LastError  string  `json:"last_error,omitempty"`
	EnqueuedAt int64   `json:"enqueued_at"`
}

// WalletTotals is one leaderboard input row
type WalletTotals struct {
	Wallet       string  `json:"wallet"`
	TotalEarned  float64 `json:"total_earned"`
	BonusBalance float64 `json:"bonus_balance"`
	Sessions     int     `json:"sessions"`
}
