// Package account registers wallets and issues their referral codes.
package account

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/akshaygadendss/CryptoMinerApp/internal/storage"
	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
	"github.com/zeebo/blake3"
)

const (
	// CodeLength is the number of hex characters in a referral code
	CodeLength = 8

	maxCodeAttempts = 32
)

// ErrInvalidWallet is returned for empty or malformed wallet identifiers
var ErrInvalidWallet = util.NewDomainError("INVALID_WALLET", "wallet address is required")

// Store is the persistence registration needs
type Store interface {
	RegisterWallet(ctx context.Context, wallet, code string, createdAt int64) (*storage.Wallet, bool, error)
	GetWallet(ctx context.Context, wallet string) (*storage.Wallet, error)
	ResolveCode(ctx context.Context, code string) (string, error)
	ListWallets(ctx context.Context, offset, limit int64) ([]*storage.Wallet, error)
	ListWalletsBetween(ctx context.Context, from, to int64) ([]*storage.Wallet, error)
	CountWallets(ctx context.Context) (int64, error)
}

// Registration is the outcome of Register
type Registration struct {
	Wallet  *storage.Wallet `json:"miner_user"`
	Created bool            `json:"created"`
}

// Service registers wallets
type Service struct {
	store Store
	clock util.Clock
}

// NewService creates an account service
func NewService(store Store, clock util.Clock) *Service {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Service{store: store, clock: clock}
}

// Code derives the referral code for a wallet. salt is bumped when the
// unsalted code already belongs to another wallet.
func Code(wallet string, salt uint32) string {
	h := blake3.New()
	h.Write([]byte(wallet))
	if salt > 0 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], salt)
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return strings.ToUpper(hex.EncodeToString(sum[:CodeLength/2]))
}

// Register creates the wallet record. Registering an existing wallet returns
// the stored record unchanged.
func (s *Service) Register(ctx context.Context, wallet string) (*Registration, error) {
	wallet = util.NormalizeWallet(wallet)
	if !util.ValidateWallet(wallet) {
		return nil, ErrInvalidWallet
	}

	existing, err := s.store.GetWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if existing != nil {
		return &Registration{Wallet: existing}, nil
	}

	code, err := s.freeCode(ctx, wallet)
	if err != nil {
		return nil, err
	}

	w, created, err := s.store.RegisterWallet(ctx, wallet, code, s.clock.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("register wallet: %w", err)
	}
	if created {
		util.Infof("Registered wallet %s (code %s)", util.TruncateWallet(wallet), code)
	}
	return &Registration{Wallet: w, Created: created}, nil
}

// freeCode returns the first code for wallet not owned by another wallet
func (s *Service) freeCode(ctx context.Context, wallet string) (string, error) {
	for salt := uint32(0); salt < maxCodeAttempts; salt++ {
		code := Code(wallet, salt)
		owner, err := s.store.ResolveCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("resolve code: %w", err)
		}
		if owner == "" || owner == wallet {
			return code, nil
		}
		util.Debugf("Referral code %s taken, salting for %s", code, util.TruncateWallet(wallet))
	}
	return "", fmt.Errorf("no free referral code for %s after %d attempts", util.TruncateWallet(wallet), maxCodeAttempts)
}

// Get returns a registered wallet, or nil if unknown
func (s *Service) Get(ctx context.Context, wallet string) (*storage.Wallet, error) {
	return s.store.GetWallet(ctx, util.NormalizeWallet(wallet))
}

// List returns registrations newest first
func (s *Service) List(ctx context.Context, offset, limit int64) ([]*storage.Wallet, int64, error) {
	wallets, err := s.store.ListWallets(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountWallets(ctx)
	if err != nil {
		return nil, 0, err
	}
	return wallets, total, nil
}

// Between returns registrations created in [from, to], newest first
func (s *Service) Between(ctx context.Context, from, to time.Time) ([]*storage.Wallet, error) {
	if to.Before(from) {
		from, to = to, from
	}
	return s.store.ListWalletsBetween(ctx, from.UnixMilli(), to.UnixMilli())
}
