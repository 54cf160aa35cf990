// Package settlement credits referral shares of claimed mining rewards.
package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/google/uuid"
)

// Store is the persistence settlement needs
type Store interface {
	GetReferralLink(ctx context.Context, referred string) (*storage.ReferralLink, error)
	UpdateWallet(ctx context.Context, wallet string, fn func(tx *storage.WalletTx) error) error
	SaveSettlementJob(ctx context.Context, job *storage.SettlementJob) error
	GetPendingSettlements(ctx context.Context) ([]*storage.SettlementJob, error)
	RemoveSettlementJob(ctx context.Context, id string) error
}

// Notifier is told when a referrer is credited
type Notifier interface {
	ReferralReward(ctx context.Context, referrer, referred string, amount float64)
}

// Observer receives credit milestones for tracing
type Observer interface {
	RecordReferralReward(referrer, referred string, amount float64)
}

// Service runs the referral cascade for claims and retries failed cascades
type Service struct {
	store    Store
	cfg      *config.SettlementConfig
	share    float64
	clock    util.Clock
	notifier Notifier
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a settlement service crediting share of each claim
func NewService(store Store, cfg *config.SettlementConfig, share float64, clock util.Clock) *Service {
	if clock == nil {
		clock = util.SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:  store,
		cfg:    cfg,
		share:  share,
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetNotifier sets the referrer notifier
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetObserver sets the milestone observer
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Settle runs the cascade for a committed claim. A failed cascade is queued
// for retry and its error returned for logging only.
func (s *Service) Settle(ctx context.Context, claim *mining.Claim) error {
	err := s.cascade(ctx, claim.Wallet, claim.SessionID, claim.Amount, claim.ClaimedAt.Unix())
	metrics.ObserveSettlement(err)
	if err == nil {
		return nil
	}

	job := &storage.SettlementJob{
		ID:         uuid.NewString(),
		SessionID:  claim.SessionID,
		Wallet:     claim.Wallet,
		Amount:     claim.Amount,
		ClaimedAt:  claim.ClaimedAt.Unix(),
		Attempts:   1,
		LastError:  err.Error(),
		EnqueuedAt: s.clock.Now().Unix(),
	}
	if qerr := s.store.SaveSettlementJob(ctx, job); qerr != nil {
		util.Errorf("Failed to queue settlement for session %s: %v (cascade error: %v)", claim.SessionID, qerr, err)
		return fmt.Errorf("cascade failed and could not be queued: %w", err)
	}
	util.Warnf("Queued settlement %s for session %s: %v", job.ID, claim.SessionID, err)
	return err
}

// cascade credits the referrer of wallet with its share of amount, at most
// once per session
func (s *Service) cascade(ctx context.Context, wallet, sessionID string, amount float64, claimedAt int64) error {
	link, err := s.store.GetReferralLink(ctx, wallet)
	if err != nil {
		return fmt.Errorf("load referral link: %w", err)
	}
	if link == nil {
		return nil
	}

	bonus := amount * s.share
	if bonus <= 0 {
		return nil
	}

	credited := false
	err = s.store.UpdateWallet(ctx, link.ReferrerWallet, func(tx *storage.WalletTx) error {
		credited = false
		if tx.Wallet == nil {
			util.Warnf("Referrer %s of %s is not registered, skipping cascade",
				util.TruncateWallet(link.ReferrerWallet), util.TruncateWallet(wallet))
			return nil
		}

		settled, err := tx.RewardSettled(sessionID)
		if err != nil {
			return err
		}
		if settled {
			return nil
		}

		tx.Wallet.BonusBalance += bonus
		tx.Wallet.LastUpdated = s.clock.Now().UnixMilli()
		credited = true
		return tx.AppendReferralReward(&storage.ReferralMiningReward{
			ID:             uuid.NewString(),
			SessionID:      sessionID,
			ReferrerWallet: link.ReferrerWallet,
			ReferredWallet: wallet,
			Amount:         bonus,
			Timestamp:      claimedAt,
		})
	})
	if err != nil {
		return fmt.Errorf("credit referrer: %w", err)
	}
	if !credited {
		return nil
	}

	metrics.AddCredit("referral_mining", bonus)
	util.Infof("Referral reward: referrer=%s referred=%s amount=%.4f",
		util.TruncateWallet(link.ReferrerWallet), util.TruncateWallet(wallet), bonus)
	if s.observer != nil {
		s.observer.RecordReferralReward(link.ReferrerWallet, wallet, bonus)
	}
	if s.notifier != nil {
		s.notifier.ReferralReward(ctx, link.ReferrerWallet, wallet, bonus)
	}
	return nil
}

// RetryResult summarizes one pass over the pending queue
type RetryResult struct {
	Settled int `json:"settled"`
	Failed  int `json:"failed"`
	Parked  int `json:"parked"`
}

// RetryPending re-runs queued cascades. Jobs that reached max attempts stay
// parked until an operator intervenes.
func (s *Service) RetryPending(ctx context.Context) (*RetryResult, error) {
	jobs, err := s.store.GetPendingSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending settlements: %w", err)
	}

	result := &RetryResult{}
	for _, job := range jobs {
		if job.Attempts >= s.cfg.MaxAttempts {
			result.Parked++
			continue
		}

		log := util.With("job", job.ID, "session", job.SessionID, "wallet", util.TruncateWallet(job.Wallet))
		err := s.cascade(ctx, job.Wallet, job.SessionID, job.Amount, job.ClaimedAt)
		metrics.ObserveSettlement(err)
		if err == nil {
			if err := s.store.RemoveSettlementJob(ctx, job.ID); err != nil {
				log.Warnw("Failed to remove settled job", "error", err)
			}
			result.Settled++
			continue
		}

		job.Attempts++
		job.LastError = err.Error()
		if job.Attempts >= s.cfg.MaxAttempts {
			log.Errorw("Settlement parked", "attempts", job.Attempts, "error", err)
			result.Parked++
		} else {
			result.Failed++
		}
		if err := s.store.SaveSettlementJob(ctx, job); err != nil {
			log.Warnw("Failed to update settlement job", "error", err)
		}
	}

	metrics.SetPendingSettlements(result.Failed + result.Parked)
	return result, nil
}

// Pending returns the queued settlement jobs
func (s *Service) Pending(ctx context.Context) ([]*storage.SettlementJob, error) {
	return s.store.GetPendingSettlements(ctx)
}

// Start launches the retry loop when enabled
func (s *Service) Start() {
	if !s.cfg.RetryEnabled {
		util.Info("Settlement retry disabled")
		return
	}

	s.wg.Add(1)
	go s.retryLoop()
	util.Infof("Settlement retry started (interval: %v, max attempts: %d)", s.cfg.RetryInterval, s.cfg.MaxAttempts)
}

// Stop shuts down the retry loop
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
	util.Info("Settlement retry stopped")
}

func (s *Service) retryLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			result, err := s.RetryPending(s.ctx)
			if err != nil {
				util.Warnf("Settlement retry failed: %v", err)
				continue
			}
			if result.Settled > 0 || result.Failed > 0 {
				util.Infof("Settlement retry: settled=%d failed=%d parked=%d",
					result.Settled, result.Failed, result.Parked)
			}
		}
	}
}
