package lottery

import (
	"fmt"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/entropy"
	"github.com/eigerco/lottery/internal/escrow"
	"github.com/eigerco/lottery/internal/ledger"
	"github.com/eigerco/lottery/internal/safemath"
	"github.com/eigerco/lottery/internal/store"
)

// state is everything an operation may change. Operations work on a clone
// and the clone replaces the live state only once the call has committed.
type state struct {
	tickets *ledger.Ledger
	acc     entropy.Accumulator
	escrow  *escrow.Escrow
	closed  bool
	winner  *crypto.Address
	prize   uint64
	events  uint64
}

func (s *state) clone() *state {
	c := *s
	c.tickets = s.tickets.Clone()
	c.escrow = s.escrow.Clone()
	if s.winner != nil {
		w := *s.winner
		c.winner = &w
	}
	return &c
}

func (s *state) record() store.State {
	return store.State{
		Tickets:     s.tickets.Tickets(),
		RevealOrder: s.tickets.RevealOrder(),
		Accumulator: s.acc,
		Held:        s.escrow.Held(),
		Closed:      s.closed,
		Winner:      s.winner,
		Prize:       s.prize,
		EventCount:  s.events,
	}
}

func stateFromRecord(r store.State) (*state, error) {
	tickets, err := ledger.Restore(r.Tickets, r.RevealOrder)
	if err != nil {
		return nil, err
	}
	return &state{
		tickets: tickets,
		acc:     r.Accumulator,
		escrow:  escrow.New(r.Held),
		closed:  r.Closed,
		winner:  r.Winner,
		prize:   r.Prize,
		events:  r.EventCount,
	}, nil
}

// checkInvariants verifies that the state is one the operations could have
// produced under cfg.
func (s *state) checkInvariants(cfg Config) error {
	var (
		unsettled uint64
		secrets   []crypto.Secret
	)
	for _, t := range s.tickets.Tickets() {
		if !t.Settled {
			unsettled++
		}
	}
	for _, addr := range s.tickets.RevealOrder() {
		t, _ := s.tickets.Get(addr)
		secrets = append(secrets, *t.Secret)
	}

	if s.closed {
		if s.winner == nil {
			return fmt.Errorf("closed round without a winner")
		}
		if unsettled != 0 {
			return fmt.Errorf("closed round has %d unsettled tickets", unsettled)
		}
		remainder, err := escrow.Remainder(cfg.TicketPrice, uint64(s.tickets.Len()), cfg.Commission)
		if err != nil {
			return fmt.Errorf("closed round remainder: %w", err)
		}
		if s.escrow.Held() != remainder {
			return fmt.Errorf("closed round holds %d, want split remainder %d", s.escrow.Held(), remainder)
		}
		// The owner secret is folded last and is not stored.
		if s.acc.Count != uint64(len(secrets))+1 {
			return fmt.Errorf("closed round folded %d secrets, want %d", s.acc.Count, len(secrets)+1)
		}
		return nil
	}

	if got := entropy.Replay(secrets...); got != s.acc.Digest || s.acc.Count != uint64(len(secrets)) {
		return fmt.Errorf("digest %s over %d secrets does not match %d revealed tickets", s.acc.Digest, s.acc.Count, len(secrets))
	}
	stake, ok := safemath.Mul64(cfg.TicketPrice, unsettled)
	if !ok {
		return fmt.Errorf("unsettled stake: %w", safemath.ErrOverflow)
	}
	want, ok := safemath.Add64(cfg.Deposit, stake)
	if !ok {
		return fmt.Errorf("expected escrow: %w", safemath.ErrOverflow)
	}
	if s.escrow.Held() != want {
		return fmt.Errorf("escrow holds %d, want deposit %d plus %d unsettled tickets", s.escrow.Held(), cfg.Deposit, unsettled)
	}
	return nil
}
