package lottery

import (
	"errors"
	"fmt"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/entropy"
	"github.com/eigerco/lottery/internal/escrow"
	"github.com/eigerco/lottery/internal/ledger"
	"github.com/eigerco/lottery/internal/metrics"
	"github.com/eigerco/lottery/internal/phase"
	"github.com/eigerco/lottery/internal/platform"
	"github.com/eigerco/lottery/internal/safemath"
	"github.com/eigerco/lottery/pkg/log"
)

// BuyTicket sells a ticket to tx.From committed to the given secret hash.
// tx.Value must equal the ticket price.
func (l *Lottery) BuyTicket(tx Tx, committed crypto.Hash) error {
	return l.stage(OpBuyTicket, tx, func(now phase.Timestamp, ph phase.Phase, next *state) (effects, error) {
		if ph != phase.Sale {
			return effects{}, ErrSalesClosed
		}
		if _, err := next.tickets.Open(tx.From, committed, tx.Value, l.cfg.TicketPrice); err != nil {
			return effects{}, ledgerError(err)
		}
		if err := next.escrow.Collect(tx.Value); err != nil {
			return effects{}, err
		}
		return effects{
			incoming: []platform.Transfer{{From: tx.From, To: l.cfg.Contract, Amount: tx.Value}},
			events:   []platform.Event{l.event(EventBuyTicket, tx.From, tx.Value, now)},
		}, nil
	})
}

// RevealSecret opens tx.From's commitment and folds the secret into the
// draw.
func (l *Lottery) RevealSecret(tx Tx, secret crypto.Secret) error {
	return l.stage(OpRevealSecret, tx, func(now phase.Timestamp, ph phase.Phase, next *state) (effects, error) {
		switch ph {
		case phase.Sale:
			return effects{}, ErrRevealTooEarly
		case phase.End, phase.Expired:
			return effects{}, ErrRevealClosed
		}
		revealed, err := next.tickets.Reveal(tx.From, secret)
		if err != nil {
			return effects{}, ledgerError(err)
		}
		next.acc.Add(revealed)
		return effects{events: []platform.Event{l.event(EventRevealSecret, tx.From, 0, now)}}, nil
	})
}

// EndLottery draws the winner with the owner's secret and pays out the
// prize to the winner and the commission plus the deposit to the owner.
func (l *Lottery) EndLottery(tx Tx, ownerSecret crypto.Secret) error {
	return l.stage(OpEndLottery, tx, func(now phase.Timestamp, ph phase.Phase, next *state) (effects, error) {
		if tx.From != l.cfg.Owner {
			return effects{}, ErrNotOwner
		}
		switch ph {
		case phase.Sale, phase.Reveal:
			return effects{}, ErrInProgress
		case phase.Expired:
			return effects{}, ErrEndTooLate
		}
		if next.closed {
			return effects{}, ErrAlreadyEnded
		}
		if !ownerSecret.Matches(l.cfg.OwnerSecretHash) {
			return effects{}, ErrSecretMismatch
		}

		order := next.tickets.RevealOrder()
		next.acc.Add(ownerSecret)
		idx, err := entropy.WinnerIndex(next.acc.Digest, len(order))
		if errors.Is(err, entropy.ErrNoReveals) {
			return effects{}, ErrNoReveals
		}
		if err != nil {
			return effects{}, err
		}
		winner := order[idx]

		prize, commission, err := escrow.Split(l.cfg.TicketPrice, uint64(next.tickets.Len()), l.cfg.Commission)
		if err != nil {
			return effects{}, fmt.Errorf("split revenue: %w", err)
		}
		ownerShare, ok := safemath.Add64(commission, l.cfg.Deposit)
		if !ok {
			return effects{}, fmt.Errorf("owner share: %w", safemath.ErrOverflow)
		}
		if err := next.escrow.Payout(winner, prize); err != nil {
			return effects{}, escrowError(err)
		}
		if err := next.escrow.Payout(l.cfg.Owner, ownerShare); err != nil {
			return effects{}, escrowError(err)
		}
		for _, t := range next.tickets.Tickets() {
			if err := next.tickets.Settle(t.Owner); err != nil {
				return effects{}, fmt.Errorf("settle %s: %w", t.Owner, err)
			}
		}

		next.closed = true
		next.winner = &winner
		next.prize = prize

		return effects{
			events: []platform.Event{l.event(EventEndLottery, winner, prize, now)},
			committed: func() {
				l.metrics.RecordPayout(metrics.PayoutPrize, prize)
				l.metrics.RecordPayout(metrics.PayoutCommission, commission)
				log.Lottery.Info().
					Stringer("winner", winner).
					Uint64("prize", prize).
					Uint64("commission", commission).
					Int("revealed", len(order)).
					Msg("lottery ended")
			},
		}, nil
	})
}

// ReturnTicket refunds the ticket price to tx.From after the owner failed
// to end the round in time.
func (l *Lottery) ReturnTicket(tx Tx, secret crypto.Secret) error {
	return l.stage(OpReturnTicket, tx, func(now phase.Timestamp, ph phase.Phase, next *state) (effects, error) {
		t, ok := next.tickets.Unsettled(tx.From)
		if !ok {
			return effects{}, ErrNoTicket
		}
		if !secret.Matches(t.Committed) {
			return effects{}, ErrSecretMismatch
		}
		if ph != phase.Expired {
			return effects{}, ErrReturnTooEarly
		}
		if err := next.tickets.Settle(tx.From); err != nil {
			return effects{}, ledgerError(err)
		}
		if err := next.escrow.Payout(tx.From, l.cfg.TicketPrice); err != nil {
			return effects{}, escrowError(err)
		}

		return effects{
			events: []platform.Event{l.event(EventReturnTicket, tx.From, l.cfg.TicketPrice, now)},
			committed: func() {
				l.metrics.RecordPayout(metrics.PayoutRefund, l.cfg.TicketPrice)
				log.Lottery.Info().
					Stringer("participant", tx.From).
					Uint64("amount", l.cfg.TicketPrice).
					Msg("ticket returned")
			},
		}, nil
	})
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrTicketExists):
		return ErrTicketExists
	case errors.Is(err, ledger.ErrWrongPayment):
		return ErrWrongPayment
	case errors.Is(err, ledger.ErrNoTicket), errors.Is(err, ledger.ErrAlreadySettled):
		return ErrNoTicket
	case errors.Is(err, ledger.ErrHashMismatch):
		return ErrSecretMismatch
	case errors.Is(err, ledger.ErrAlreadyRevealed):
		return ErrAlreadyRevealed
	default:
		return err
	}
}

func escrowError(err error) error {
	if errors.Is(err, escrow.ErrInsufficientBalance) {
		return ErrInsufficientEscrow
	}
	return err
}
