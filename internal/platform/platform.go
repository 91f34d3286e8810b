// Package platform is the hosting environment the lottery contract runs in:
// it supplies the block time, moves value between accounts and records the
// events a contract emits.
package platform

import (
	"errors"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/phase"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrZeroAddress       = errors.New("transfer involves the zero address")
)

// Transfer moves Amount from one account to another.
type Transfer struct {
	From   crypto.Address
	To     crypto.Address
	Amount uint64
}

// Event is a log entry emitted by a contract.
type Event struct {
	Contract crypto.Address
	Name     string
	Account  crypto.Address
	Amount   uint64
	Time     phase.Timestamp
}

// Env is what a contract needs from the platform.
type Env interface {
	// Now is the timestamp of the block being executed.
	Now() phase.Timestamp
	// Apply executes all transfers or none of them.
	Apply(transfers []Transfer) error
	// Emit appends events to the platform log.
	Emit(events ...Event)
}
