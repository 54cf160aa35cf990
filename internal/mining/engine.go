package mining

import (
	"context"
	"fmt"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/metrics"
	"github.com/akshaygadendss/CryptoMinerApp/internal/rates"
	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/google/uuid"
)

// Store is the persistence the engine needs
type Store interface {
	GetWallet(ctx context.Context, wallet string) (*storage.Wallet, error)
	GetSession(ctx context.Context, id string) (*storage.Session, error)
	ListSessions(ctx context.Context, wallet string, limit int64) ([]*storage.Session, error)
	UpdateWallet(ctx context.Context, wallet string, fn func(tx *storage.WalletTx) error) error
}

// RateSource supplies the current rate table and duration options
type RateSource interface {
	Rates(ctx context.Context) rates.Table
	Durations(ctx context.Context) []rates.DurationOption
}

// Settler runs the follow-up side effects of a committed claim
type Settler interface {
	Settle(ctx context.Context, claim *Claim) error
}

// Notifier is told when a session reaches its target
type Notifier interface {
	MiningComplete(ctx context.Context, session *storage.Session)
}

// Observer receives lifecycle milestones for tracing
type Observer interface {
	RecordSessionStarted(wallet, sessionID string, hours, multiplier int)
	RecordMultiplierUpgraded(wallet, sessionID string, multiplier int, points float64)
	RecordSessionCompleted(wallet, sessionID string, points float64)
	RecordClaim(wallet, sessionID string, amount, total float64)
}

// Claim is the result of a successful claim
type Claim struct {
	Wallet    string    `json:"wallet"`
	SessionID string    `json:"session_id"`
	Amount    float64   `json:"settled_amount"`
	NewTotal  float64   `json:"new_total_earned"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Snapshot pairs a session with its computed progress
type Snapshot struct {
	Session  *storage.Session `json:"session"`
	Progress Progress         `json:"progress"`
}

// Engine owns all session state transitions
type Engine struct {
	store    Store
	rates    RateSource
	clock    util.Clock
	settler  Settler
	notifier Notifier
	observer Observer
}

// NewEngine creates a lifecycle engine
func NewEngine(store Store, rateSource RateSource, clock util.Clock) *Engine {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Engine{
		store: store,
		rates: rateSource,
		clock: clock,
	}
}

// SetSettler sets the claim follow-up
func (e *Engine) SetSettler(s Settler) {
	e.settler = s
}

// SetNotifier sets the completion notifier
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetObserver sets the milestone observer
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// activeSession loads the wallet's active session inside a transaction
func activeSession(tx *storage.WalletTx) (*storage.Session, error) {
	if tx.Wallet == nil {
		return nil, ErrWalletNotRegistered
	}
	return tx.Session(tx.Wallet.ActiveSession)
}

// Start begins a new mining session. A zero multiplier means level 1.
func (e *Engine) Start(ctx context.Context, wallet string, hours, multiplier int) (session *storage.Session, err error) {
	started := time.Now()
	defer func() { metrics.ObserveEngine("start", err, started) }()

	if multiplier == 0 {
		multiplier = rates.MinMultiplier
	}
	if multiplier < rates.MinMultiplier || multiplier > rates.MaxMultiplier {
		return nil, ErrInvalidMultiplier
	}
	if !rates.Allows(e.rates.Durations(ctx), hours) {
		return nil, ErrInvalidDuration
	}

	now := e.clock.Now()
	err = e.store.UpdateWallet(ctx, wallet, func(tx *storage.WalletTx) error {
		current, err := activeSession(tx)
		if err != nil {
			return err
		}
		if current != nil && current.Status.IsActive() {
			return ErrActiveSessionExists
		}

		session = &storage.Session{
			ID:                         uuid.NewString(),
			Wallet:                     wallet,
			Status:                     storage.StatusMining,
			Multiplier:                 multiplier,
			MiningStartTime:            now,
			CurrentMultiplierStartTime: now,
			SelectedHourTarget:         hours,
			LastUpdated:                now,
		}
		tx.Wallet.ActiveSession = session.ID
		tx.Wallet.LastSession = session.ID
		tx.Wallet.LastUpdated = now.UnixMilli()
		return tx.AddSession(session)
	})
	if err != nil {
		return nil, err
	}

	util.Infof("Mining started: wallet=%s session=%s hours=%d multiplier=%d",
		util.TruncateWallet(wallet), session.ID, hours, multiplier)
	if e.observer != nil {
		e.observer.RecordSessionStarted(wallet, session.ID, hours, multiplier)
	}
	return session, nil
}

// Progress computes the wallet's current session progress. Reaching the
// target persists the ready_to_claim transition; otherwise nothing is written.
func (e *Engine) Progress(ctx context.Context, wallet string) (snap *Snapshot, err error) {
	started := time.Now()
	defer func() { metrics.ObserveEngine("progress", err, started) }()

	w, err := e.store.GetWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return nil, ErrWalletNotRegistered
	}

	id := w.ActiveSession
	if id == "" {
		id = w.LastSession
	}
	if id == "" {
		return nil, ErrNotMining
	}

	session, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrNotMining
	}

	table := e.rates.Rates(ctx)
	now := e.clock.Now()
	progress := ComputeProgress(session, table, now)

	if session.Status == storage.StatusMining && progress.Complete {
		return e.complete(ctx, wallet, table, now)
	}
	return &Snapshot{Session: session, Progress: progress}, nil
}

// complete persists the ready_to_claim transition of the active session
func (e *Engine) complete(ctx context.Context, wallet string, table rates.Table, now time.Time) (*Snapshot, error) {
	var session *storage.Session
	transitioned := false

	err := e.store.UpdateWallet(ctx, wallet, func(tx *storage.WalletTx) error {
		s, err := activeSession(tx)
		if err != nil {
			return err
		}
		if s == nil {
			return ErrNotMining
		}
		session = s
		transitioned, err = completeInTx(tx, s, table, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		e.completed(ctx, session)
	}
	return &Snapshot{Session: session, Progress: ComputeProgress(session, table, now)}, nil
}

// completeInTx stages the completion of a mining session whose target has
// elapsed. It reports whether a transition was staged.
func completeInTx(tx *storage.WalletTx, s *storage.Session, table rates.Table, now time.Time) (bool, error) {
	if s.Status != storage.StatusMining {
		return false, nil
	}
	p := ComputeProgress(s, table, now)
	if !p.Complete {
		return false, nil
	}

	completedAt := s.MiningStartTime.Add(time.Duration(targetSeconds(s)) * time.Second)
	s.CurrentMiningPoints = p.Points
	s.Status = storage.StatusReadyToClaim
	s.CompletedAt = &completedAt
	s.LastUpdated = now
	tx.Wallet.LastUpdated = now.UnixMilli()
	if err := tx.PutSession(s); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) completed(ctx context.Context, s *storage.Session) {
	util.Infof("Mining complete: wallet=%s session=%s points=%.4f",
		util.TruncateWallet(s.Wallet), s.ID, s.CurrentMiningPoints)
	if e.observer != nil {
		e.observer.RecordSessionCompleted(s.Wallet, s.ID, s.CurrentMiningPoints)
	}
	if e.notifier != nil {
		e.notifier.MiningComplete(ctx, s)
	}
}

// Upgrade raises the active session's multiplier by exactly one level,
// folding the closing segment into the carried points first.
func (e *Engine) Upgrade(ctx context.Context, wallet string, requested int) (snap *Snapshot, err error) {
	started := time.Now()
	defer func() { metrics.ObserveEngine("upgrade", err, started) }()

	if requested > rates.MaxMultiplier {
		return nil, ErrMaxMultiplierReached
	}

	table := e.rates.Rates(ctx)
	now := e.clock.Now()

	var session *storage.Session
	var folded float64
	transitioned := false

	err = e.store.UpdateWallet(ctx, wallet, func(tx *storage.WalletTx) error {
		transitioned = false
		s, err := activeSession(tx)
		if err != nil {
			return err
		}
		if s == nil || s.Status != storage.StatusMining {
			return ErrNotMining
		}
		session = s

		// A session past its target can only complete
		transitioned, err = completeInTx(tx, s, table, now)
		if err != nil || transitioned {
			return err
		}

		if requested != s.Multiplier+1 {
			return &NonSequentialError{Current: s.Multiplier, Requested: requested}
		}

		folded = SegmentPoints(s, table, now)
		s.CurrentMiningPoints += folded
		s.CurrentMultiplierStartTime = now
		s.Multiplier = requested
		s.LastUpdated = now
		tx.Wallet.LastUpdated = now.UnixMilli()
		return tx.PutSession(s)
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		e.completed(ctx, session)
		return nil, ErrNotMining
	}

	util.Infof("Multiplier upgraded: wallet=%s session=%s multiplier=%d folded=%.4f",
		util.TruncateWallet(wallet), session.ID, requested, folded)
	if e.observer != nil {
		e.observer.RecordMultiplierUpgraded(wallet, session.ID, requested, session.CurrentMiningPoints)
	}
	return &Snapshot{Session: session, Progress: ComputeProgress(session, table, now)}, nil
}

// Claim settles a ready_to_claim session into the wallet's lifetime total.
// Settlement runs after the claim commits and never changes its result.
func (e *Engine) Claim(ctx context.Context, wallet string) (claim *Claim, err error) {
	started := time.Now()
	defer func() { metrics.ObserveEngine("claim", err, started) }()

	now := e.clock.Now()
	err = e.store.UpdateWallet(ctx, wallet, func(tx *storage.WalletTx) error {
		s, err := activeSession(tx)
		if err != nil {
			return err
		}
		if s == nil || s.Status != storage.StatusReadyToClaim {
			return ErrNotReadyToClaim
		}

		amount := s.CurrentMiningPoints
		s.SettledPoints = amount
		s.CurrentMiningPoints = 0
		s.Status = storage.StatusClaimed
		s.ClaimedAt = &now
		s.LastUpdated = now

		tx.Wallet.TotalEarned += amount
		tx.Wallet.ActiveSession = ""
		tx.Wallet.LastUpdated = now.UnixMilli()

		claim = &Claim{
			Wallet:    wallet,
			SessionID: s.ID,
			Amount:    amount,
			NewTotal:  tx.Wallet.TotalEarned,
			ClaimedAt: now,
		}
		return tx.PutSession(s)
	})
	if err != nil {
		return nil, err
	}

	metrics.AddPointsSettled(claim.Amount)
	util.Infof("Reward claimed: wallet=%s session=%s amount=%.4f total=%.4f",
		util.TruncateWallet(wallet), claim.SessionID, claim.Amount, claim.NewTotal)
	if e.observer != nil {
		e.observer.RecordClaim(wallet, claim.SessionID, claim.Amount, claim.NewTotal)
	}

	if e.settler != nil {
		if err := e.settler.Settle(ctx, claim); err != nil {
			util.Warnf("Settlement for session %s deferred: %v", claim.SessionID, err)
		}
	}
	return claim, nil
}

// Session returns the active or most recent session with its progress,
// without persisting any transition. Both are nil if the wallet never mined.
func (e *Engine) Session(ctx context.Context, wallet string) (*Snapshot, error) {
	w, err := e.store.GetWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return nil, ErrWalletNotRegistered
	}

	id := w.ActiveSession
	if id == "" {
		id = w.LastSession
	}
	if id == "" {
		return nil, nil
	}

	session, err := e.store.GetSession(ctx, id)
	if err != nil || session == nil {
		return nil, err
	}
	return &Snapshot{Session: session, Progress: ComputeProgress(session, e.rates.Rates(ctx), e.clock.Now())}, nil
}

// History returns a wallet's sessions newest first
func (e *Engine) History(ctx context.Context, wallet string, limit int64) ([]*storage.Session, error) {
	w, err := e.store.GetWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if w == nil {
		return nil, ErrWalletNotRegistered
	}
	return e.store.ListSessions(ctx, wallet, limit)
}
