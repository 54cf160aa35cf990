// Package referral links referred wallets to their referrer and pays the signup bonus.
package referral

import (
	"context"
	"fmt"
	"strings"

	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

var (
	ErrAlreadyUsed = util.NewDomainError("ALREADY_USED_REFERRAL", "wallet has already used a referral code")
	ErrSelf        = util.NewDomainError("SELF_REFERRAL", "cannot use your own referral code")
	ErrInvalidCode = util.NewDomainError("INVALID_REFERRAL_CODE", "referral code does not exist")
)

// Store is the persistence the referral program needs
type Store interface {
	GetWallet(ctx context.Context, wallet string) (*storage.Wallet, error)
	ResolveCode(ctx context.Context, code string) (string, error)
	GetReferralLink(ctx context.Context, referred string) (*storage.ReferralLink, error)
	CountReferrals(ctx context.Context, referrer string) (int64, error)
	GetReferrerRewards(ctx context.Context, referrer string, limit int64) ([]*storage.ReferralMiningReward, error)
	UpdateWallet(ctx context.Context, wallet string, fn func(tx *storage.WalletTx) error) error
}

// Notifier is told when a referral is applied
type Notifier interface {
	ReferralSignup(ctx context.Context, referrer, referred string, bonus float64)
}

// Observer receives referral milestones for tracing
type Observer interface {
	RecordReferralApplied(referrer, referred string, bonus float64)
}

// Result is the outcome of a successful Apply
type Result struct {
	Referrer       string  `json:"referrer"`
	Referred       string  `json:"referred"`
	RewardedTokens float64 `json:"rewarded_tokens"`
}

// Status is the referral view of one wallet
type Status struct {
	Wallet          string  `json:"wallet"`
	ReferralCode    string  `json:"referral_code"`
	HasUsedReferral bool    `json:"has_used_referral"`
	ReferredBy      string  `json:"referred_by,omitempty"`
	ReferralCount   int64   `json:"referral_count"`
	ReferralRewards float64 `json:"referral_rewards"`
}

// Service applies referral codes
type Service struct {
	store    Store
	bonus    float64
	clock    util.Clock
	notifier Notifier
	observer Observer
}

// NewService creates a referral service paying bonus per applied code
func NewService(store Store, bonus float64, clock util.Clock) *Service {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Service{store: store, bonus: bonus, clock: clock}
}

// SetNotifier sets the referral notifier
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetObserver sets the milestone observer
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Apply links referred to the owner of code and credits the signup bonus
func (s *Service) Apply(ctx context.Context, referred, code string) (*Result, error) {
	w, err := s.store.GetWallet(ctx, referred)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return nil, mining.ErrWalletNotRegistered
	}

	link, err := s.store.GetReferralLink(ctx, referred)
	if err != nil {
		return nil, fmt.Errorf("load referral link: %w", err)
	}
	if link != nil {
		return nil, ErrAlreadyUsed
	}

	referrer, err := s.resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer == referred {
		return nil, ErrSelf
	}

	now := s.clock.Now()
	err = s.store.UpdateWallet(ctx, referrer, func(tx *storage.WalletTx) error {
		if tx.Wallet == nil {
			return ErrInvalidCode
		}
		// The link key is watched, so a concurrent apply for the same
		// referred wallet aborts this commit and re-runs the check.
		existing, err := tx.ReferralLink(referred)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyUsed
		}

		tx.Wallet.BonusBalance += s.bonus
		tx.Wallet.LastUpdated = now.UnixMilli()
		return tx.CreateReferralLink(&storage.ReferralLink{
			ReferrerWallet: referrer,
			ReferredWallet: referred,
			Code:           strings.ToUpper(strings.TrimSpace(code)),
			SignupBonus:    s.bonus,
			CreatedAt:      now.Unix(),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.AddCredit("referral_signup", s.bonus)
	util.Infof("Referral applied: referrer=%s referred=%s bonus=%.2f",
		util.TruncateWallet(referrer), util.TruncateWallet(referred), s.bonus)
	if s.observer != nil {
		s.observer.RecordReferralApplied(referrer, referred, s.bonus)
	}
	if s.notifier != nil {
		s.notifier.ReferralSignup(ctx, referrer, referred, s.bonus)
	}

	return &Result{Referrer: referrer, Referred: referred, RewardedTokens: s.bonus}, nil
}

// resolve maps a referral code, or a registered wallet id, to its wallet
func (s *Service) resolve(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrInvalidCode
	}

	wallet, err := s.store.ResolveCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("resolve code: %w", err)
	}
	if wallet != "" {
		return wallet, nil
	}

	w, err := s.store.GetWallet(ctx, code)
	if err != nil {
		return "", fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return "", ErrInvalidCode
	}
	return w.Wallet, nil
}

// Code returns the referral code of a registered wallet
func (s *Service) Code(ctx context.Context, wallet string) (string, error) {
	w, err := s.store.GetWallet(ctx, wallet)
	if err != nil {
		return "", fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return "", mining.ErrWalletNotRegistered
	}
	return w.ReferralCode, nil
}

// Status returns the referral view of a registered wallet
func (s *Service) Status(ctx context.Context, wallet string) (*Status, error) {
	w, err := s.store.GetWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return nil, mining.ErrWalletNotRegistered
	}

	status := &Status{Wallet: wallet, ReferralCode: w.ReferralCode}

	link, err := s.store.GetReferralLink(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load referral link: %w", err)
	}
	if link != nil {
		status.HasUsedReferral = true
		status.ReferredBy = link.ReferrerWallet
	}

	if status.ReferralCount, err = s.store.CountReferrals(ctx, wallet); err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}

	// limit 0 reads the whole ledger
	rewards, err := s.store.GetReferrerRewards(ctx, wallet, 0)
	if err != nil {
		return nil, fmt.Errorf("load referral rewards: %w", err)
	}
	for _, r := range rewards {
		status.ReferralRewards += r.Amount
	}
	return status, nil
}
