package mining

import (
	"fmt"

	"github.com/akshaygadendss/CryptoMinerApp/internal/util"
)

var (
	ErrActiveSessionExists  = util.NewDomainError("ACTIVE_SESSION_EXISTS", "an active mining session already exists")
	ErrWalletNotRegistered  = util.NewDomainError("WALLET_NOT_REGISTERED", "wallet is not registered")
	ErrNotMining            = util.NewDomainError("NOT_MINING", "no mining session in progress")
	ErrNonSequential        = util.NewDomainError("NON_SEQUENTIAL", "multiplier must be upgraded one level at a time")
	ErrMaxMultiplierReached = util.NewDomainError("MAX_MULTIPLIER_REACHED", "maximum multiplier reached")
	ErrNotReadyToClaim      = util.NewDomainError("NOT_READY_TO_CLAIM", "session is not ready to claim")
	ErrInvalidDuration      = util.NewDomainError("INVALID_DURATION", "duration is not an available option")
	ErrInvalidMultiplier    = util.NewDomainError("INVALID_MULTIPLIER", "multiplier is out of range")
)

// NonSequentialError reports a skipped or repeated multiplier level.
// It unwraps to ErrNonSequential.
type NonSequentialError struct {
	Current   int
	Requested int
}

func (e *NonSequentialError) Error() string {
	return fmt.Sprintf("multiplier must be upgraded one level at a time: current %d, requested %d", e.Current, e.Requested)
}

func (e *NonSequentialError) Unwrap() error {
	return ErrNonSequential
}
