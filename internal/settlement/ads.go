package settlement

import (
	"context"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/google/uuid"
)

// ErrAdCooldown is returned when an ad reward is claimed too soon after the last one
var ErrAdCooldown = util.NewDomainError("AD_COOLDOWN", "ad reward is not available yet")

// AdNotifier is told when an ad reward is credited
type AdNotifier interface {
	AdReward(ctx context.Context, wallet string, amount float64)
}

// AdResult is the outcome of a credited ad view
type AdResult struct {
	Wallet         string  `json:"wallet"`
	RewardedTokens float64 `json:"rewarded_tokens"`
	BonusBalance   float64 `json:"bonus_balance"`
	NextAvailable  int64   `json:"next_available"`
}

// AdRewards credits rewarded ad views to the wallet's bonus bucket
type AdRewards struct {
	store    Store
	tokens   float64
	cooldown time.Duration
	clock    util.Clock
	notifier AdNotifier
}

// NewAdRewards creates an ad reward service
func NewAdRewards(store Store, tokens float64, cooldown time.Duration, clock util.Clock) *AdRewards {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &AdRewards{store: store, tokens: tokens, cooldown: cooldown, clock: clock}
}

// SetNotifier sets the ad reward notifier
func (a *AdRewards) SetNotifier(n AdNotifier) {
	a.notifier = n
}

// Claim credits one ad view
func (a *AdRewards) Claim(ctx context.Context, wallet string) (*AdResult, error) {
	now := a.clock.Now()
	var result *AdResult

	err := a.store.UpdateWallet(ctx, wallet, func(tx *storage.WalletTx) error {
		if tx.Wallet == nil {
			return mining.ErrWalletNotRegistered
		}
		if tx.Wallet.LastAdReward > 0 && now.Sub(time.UnixMilli(tx.Wallet.LastAdReward)) < a.cooldown {
			return ErrAdCooldown
		}

		tx.Wallet.BonusBalance += a.tokens
		tx.Wallet.LastAdReward = now.UnixMilli()
		tx.Wallet.LastUpdated = now.UnixMilli()
		result = &AdResult{
			Wallet:         wallet,
			RewardedTokens: a.tokens,
			BonusBalance:   tx.Wallet.BonusBalance,
			NextAvailable:  now.Add(a.cooldown).Unix(),
		}
		return tx.AppendAdReward(&storage.AdReward{
			ID:        uuid.NewString(),
			Wallet:    wallet,
			Tokens:    a.tokens,
			ClaimedAt: now.Unix(),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.AddCredit("ad", a.tokens)
	util.Infof("Ad reward: wallet=%s tokens=%.2f", util.TruncateWallet(wallet), a.tokens)
	if a.notifier != nil {
		a.notifier.AdReward(ctx, wallet, a.tokens)
	}
	return result, nil
}
