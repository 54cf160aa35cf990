package settlement

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/config"
	"github.com/akshaygadendss/CryptoMinerApp/internal/mining"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/alicebob/miniredis/v2"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// flakyStore fails referral lookups while down is set
type flakyStore struct {
	*storage.RedisClient
	down atomic.Bool
}

func (f *flakyStore) GetReferralLink(ctx context.Context, referred string) (*storage.ReferralLink, error) {
	if f.down.Load() {
		return nil, errors.New("redis: connection refused")
	}
	return f.RedisClient.GetReferralLink(ctx, referred)
}

type recordingNotifier struct {
	rewards []float64
}

func (n *recordingNotifier) ReferralReward(ctx context.Context, referrer, referred string, amount float64) {
	n.rewards = append(n.rewards, amount)
}

func setupStore(t *testing.T) *flakyStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	r, err := storage.NewRedisClient(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return &flakyStore{RedisClient: r}
}

func retryConfig() *config.SettlementConfig {
	return &config.SettlementConfig{
		RetryEnabled:  true,
		RetryInterval: 20 * time.Millisecond,
		MaxAttempts:   3,
	}
}

func linkWallets(t *testing.T, store *flakyStore, referrer, referred string) {
	t.Helper()
	ctx := context.Background()
	store.RegisterWallet(ctx, referrer, referrer+"-code", 1)
	store.RegisterWallet(ctx, referred, referred+"-code", 2)

	err := store.UpdateWallet(ctx, referrer, func(tx *storage.WalletTx) error {
		return tx.CreateReferralLink(&storage.ReferralLink{
			ReferrerWallet: referrer,
			ReferredWallet: referred,
		})
	})
	if err != nil {
		t.Fatalf("link wallets: %v", err)
	}
}

func claimOf(wallet, session string, amount float64) *mining.Claim {
	return &mining.Claim{Wallet: wallet, SessionID: session, Amount: amount, NewTotal: amount, ClaimedAt: epoch}
}

func TestSettleCreditsReferrer(t *testing.T) {
	store := setupStore(t)
	linkWallets(t, store, "alice", "bob")
	notifier := &recordingNotifier{}

	svc := NewService(store, retryConfig(), 0.10, util.NewManualClock(epoch))
	svc.SetNotifier(notifier)
	ctx := context.Background()

	if err := svc.Settle(ctx, claimOf("bob", "s1", 100)); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	alice, _ := store.GetWallet(ctx, "alice")
	if alice.BonusBalance != 10 {
		t.Errorf("referrer BonusBalance = %f, want exactly 10", alice.BonusBalance)
	}

	rewards, _ := store.GetReferrerRewards(ctx, "alice", 10)
	if len(rewards) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(rewards))
	}
	if rewards[0].Amount != 10 || rewards[0].ReferredWallet != "bob" || rewards[0].SessionID != "s1" {
		t.Errorf("ledger entry = %+v", rewards[0])
	}
	if len(notifier.rewards) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.rewards))
	}

	bob, _ := store.GetWallet(ctx, "bob")
	if bob.BonusBalance != 0 {
		t.Errorf("claimer BonusBalance = %f, want 0", bob.BonusBalance)
	}
}

func TestSettleIsIdempotentPerSession(t *testing.T) {
	store := setupStore(t)
	linkWallets(t, store, "alice", "bob")
	svc := NewService(store, retryConfig(), 0.10, nil)
	ctx := context.Background()

	svc.Settle(ctx, claimOf("bob", "s1", 100))
	svc.Settle(ctx, claimOf("bob", "s1", 100))
	svc.Settle(ctx, claimOf("bob", "s2", 50))

	alice, _ := store.GetWallet(ctx, "alice")
	if math.Abs(alice.BonusBalance-15) > 1e-9 {
		t.Errorf("BonusBalance = %f, want 15", alice.BonusBalance)
	}
	rewards, _ := store.GetReferrerRewards(ctx, "alice", 10)
	if len(rewards) != 2 {
		t.Errorf("ledger entries = %d, want 2", len(rewards))
	}
}

func TestSettleWithoutReferral(t *testing.T) {
	store := setupStore(t)
	store.RegisterWallet(context.Background(), "solo", "SOLO", 1)
	svc := NewService(store, retryConfig(), 0.10, nil)

	if err := svc.Settle(context.Background(), claimOf("solo", "s1", 100)); err != nil {
		t.Errorf("Settle() error = %v", err)
	}
	jobs, _ := store.GetPendingSettlements(context.Background())
	if len(jobs) != 0 {
		t.Errorf("pending jobs = %d, want 0", len(jobs))
	}
}

func TestSettleFailureQueuesAndRetries(t *testing.T) {
	store := setupStore(t)
	linkWallets(t, store, "alice", "bob")
	svc := NewService(store, retryConfig(), 0.10, util.NewManualClock(epoch))
	ctx := context.Background()

	store.down.Store(true)
	if err := svc.Settle(ctx, claimOf("bob", "s1", 100)); err == nil {
		t.Fatal("Settle() should report the cascade failure")
	}

	jobs, _ := svc.Pending(ctx)
	if len(jobs) != 1 || jobs[0].Attempts != 1 || jobs[0].LastError == "" {
		t.Fatalf("pending jobs = %+v", jobs)
	}

	// Still failing: attempts grow
	result, err := svc.RetryPending(ctx)
	if err != nil {
		t.Fatalf("RetryPending() error = %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("RetryPending() = %+v, want 1 failed", result)
	}

	store.down.Store(false)
	result, _ = svc.RetryPending(ctx)
	if result.Settled != 1 {
		t.Errorf("RetryPending() = %+v, want 1 settled", result)
	}

	jobs, _ = svc.Pending(ctx)
	if len(jobs) != 0 {
		t.Errorf("pending jobs after success = %d, want 0", len(jobs))
	}
	alice, _ := store.GetWallet(ctx, "alice")
	if alice.BonusBalance != 10 {
		t.Errorf("BonusBalance = %f, want 10", alice.BonusBalance)
	}
}

func TestRetryParksAfterMaxAttempts(t *testing.T) {
	store := setupStore(t)
	linkWallets(t, store, "alice", "bob")
	svc := NewService(store, retryConfig(), 0.10, nil)
	ctx := context.Background()

	store.down.Store(true)
	svc.Settle(ctx, claimOf("bob", "s1", 100))
	svc.RetryPending(ctx)              // attempt 2
	result, _ := svc.RetryPending(ctx) // attempt 3 reaches the limit
	if result.Parked != 1 {
		t.Fatalf("RetryPending() = %+v, want 1 parked", result)
	}

	store.down.Store(false)
	result, _ = svc.RetryPending(ctx)
	if result.Parked != 1 || result.Settled != 0 {
		t.Errorf("parked job should not be retried: %+v", result)
	}
}

func TestRetryLoop(t *testing.T) {
	store := setupStore(t)
	linkWallets(t, store, "alice", "bob")
	svc := NewService(store, retryConfig(), 0.10, nil)
	ctx := context.Background()

	store.down.Store(true)
	svc.Settle(ctx, claimOf("bob", "s1", 100))
	store.down.Store(false)

	svc.Start()
	defer svc.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		jobs, _ := svc.Pending(ctx)
		if len(jobs) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("retry loop did not settle the pending job")
}

func TestStartDisabled(t *testing.T) {
	store := setupStore(t)
	cfg := retryConfig()
	cfg.RetryEnabled = false

	svc := NewService(store, cfg, 0.10, nil)
	svc.Start()
	svc.Stop()
}
