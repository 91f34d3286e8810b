package lottery

import (
	"time"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/phase"
	"github.com/eigerco/lottery/internal/safemath"
	"github.com/eigerco/lottery/internal/store"
)

// MinDepositMultiplier is how many ticket prices the owner has to deposit.
const MinDepositMultiplier = 10

// Params are the deployment arguments of a round. Durations are counted
// in TimeUnit, which defaults to one day.
type Params struct {
	TicketPrice     uint64
	SalesDuration   uint64
	RevealDuration  uint64
	EndDuration     uint64
	Commission      uint64 // percent
	OwnerSecretHash crypto.Hash
	TimeUnit        time.Duration
}

// Validate checks the parameters in deployment order against the deposit
// that accompanies the deployment.
func (p Params) Validate(deposit uint64) error {
	switch {
	case p.TicketPrice == 0:
		return ErrTicketPrice
	case p.SalesDuration == 0:
		return ErrSalesDuration
	case p.RevealDuration == 0:
		return ErrRevealDuration
	case p.EndDuration == 0:
		return ErrEndDuration
	case p.Commission >= 100:
		return ErrCommission
	}
	minDeposit, ok := safemath.Mul64(p.TicketPrice, MinDepositMultiplier)
	if !ok || deposit < minDeposit {
		return ErrDepositTooLow
	}
	return nil
}

// Schedule returns the phase schedule described by the parameters.
func (p Params) Schedule() phase.Schedule {
	unit := p.TimeUnit
	if unit <= 0 {
		unit = phase.DefaultUnit
	}
	return phase.Schedule{
		Sales:  p.SalesDuration,
		Reveal: p.RevealDuration,
		End:    p.EndDuration,
		Unit:   unit,
	}
}

// Config is the immutable configuration of a deployed round.
type Config struct {
	Params
	Contract   crypto.Address
	Owner      crypto.Address
	Deposit    uint64
	DeployedAt phase.Timestamp
}

func (c Config) record() store.Config {
	return store.Config{
		Contract:        c.Contract,
		Owner:           c.Owner,
		TicketPrice:     c.TicketPrice,
		SalesDuration:   c.SalesDuration,
		RevealDuration:  c.RevealDuration,
		EndDuration:     c.EndDuration,
		Commission:      c.Commission,
		OwnerSecretHash: c.OwnerSecretHash,
		Deposit:         c.Deposit,
		TimeUnit:        int64(c.TimeUnit),
		DeployedAt:      uint64(c.DeployedAt),
	}
}

func configFromRecord(r store.Config) Config {
	return Config{
		Params: Params{
			TicketPrice:     r.TicketPrice,
			SalesDuration:   r.SalesDuration,
			RevealDuration:  r.RevealDuration,
			EndDuration:     r.EndDuration,
			Commission:      r.Commission,
			OwnerSecretHash: r.OwnerSecretHash,
			TimeUnit:        time.Duration(r.TimeUnit),
		},
		Contract:   r.Contract,
		Owner:      r.Owner,
		Deposit:    r.Deposit,
		DeployedAt: phase.Timestamp(r.DeployedAt),
	}
}
