// Package escrow tracks the funds held by the lottery contract.
package escrow

import (
	"errors"
	"fmt"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/safemath"
)

const percent = 100

var (
	ErrInsufficientBalance = errors.New("payout exceeds escrow balance")
	ErrInvalidCommission   = errors.New("commission must be below 100 percent")
)

// Transfer is an outgoing payment the hosting platform has to execute.
type Transfer struct {
	To     crypto.Address
	Amount uint64
}

// Escrow is the contract balance: deposit plus collected ticket payments
// minus what has been paid out. Payouts are recorded as pending transfers
// and handed to the platform when the operation commits.
type Escrow struct {
	held    uint64
	pending []Transfer
}

// New returns an escrow already holding balance.
func New(balance uint64) *Escrow {
	return &Escrow{held: balance}
}

// Held returns the current balance.
func (e *Escrow) Held() uint64 {
	return e.held
}

// Collect adds an incoming payment to the balance.
func (e *Escrow) Collect(amount uint64) error {
	v, ok := safemath.Add64(e.held, amount)
	if !ok {
		return fmt.Errorf("collect %d: %w", amount, safemath.ErrOverflow)
	}
	e.held = v
	return nil
}

// Payout debits the balance and queues a transfer to the recipient.
func (e *Escrow) Payout(to crypto.Address, amount uint64) error {
	v, ok := safemath.Sub64(e.held, amount)
	if !ok {
		return fmt.Errorf("payout %d to %s with %d held: %w", amount, to, e.held, ErrInsufficientBalance)
	}
	e.held = v
	e.pending = append(e.pending, Transfer{To: to, Amount: amount})
	return nil
}

// Pending returns the transfers queued since the escrow was created or cloned.
func (e *Escrow) Pending() []Transfer {
	out := make([]Transfer, len(e.pending))
	copy(out, e.pending)
	return out
}

// Clone copies the balance with an empty pending list, so each operation
// stages only its own transfers.
func (e *Escrow) Clone() *Escrow {
	return &Escrow{held: e.held}
}

// Split divides the ticket revenue between the winner and the owner:
//
//	total      = price * sold
//	prize      = total * (100 - commission) / 100
//	commission = total * commission / 100
//
// Both parts round down. The division remainder is paid to nobody and stays
// in escrow, see Remainder.
func Split(price, sold, commissionPercent uint64) (prize, commission uint64, err error) {
	if commissionPercent >= percent {
		return 0, 0, ErrInvalidCommission
	}
	total, ok := safemath.Mul64(price, sold)
	if !ok {
		return 0, 0, fmt.Errorf("ticket revenue: %w", safemath.ErrOverflow)
	}
	prize, err = safemath.MulDiv64(total, percent-commissionPercent, percent)
	if err != nil {
		return 0, 0, fmt.Errorf("prize: %w", err)
	}
	commission, err = safemath.MulDiv64(total, commissionPercent, percent)
	if err != nil {
		return 0, 0, fmt.Errorf("commission: %w", err)
	}
	return prize, commission, nil
}

// Remainder is the part of the ticket revenue Split leaves in escrow.
func Remainder(price, sold, commissionPercent uint64) (uint64, error) {
	prize, commission, err := Split(price, sold, commissionPercent)
	if err != nil {
		return 0, err
	}
	// Split already proved price*sold fits.
	return price*sold - prize - commission, nil
}
