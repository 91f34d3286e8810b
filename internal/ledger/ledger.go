// Package ledger keeps one commit-reveal ticket per participant.
package ledger

import (
	"fmt"

	"github.com/eigerco/lottery/internal/crypto"
)

// Ticket is a participant's stake in the round.
type Ticket struct {
	Owner     crypto.Address
	Committed crypto.Hash    // digest supplied at purchase
	Secret    *crypto.Secret // nil until revealed
	Settled   bool           // paid out or refunded
}

// Revealed reports whether the ticket's secret has been revealed
func (t Ticket) Revealed() bool {
	return t.Secret != nil
}

// Ledger maps participants to their ticket and remembers the order in which
// secrets were revealed. The zero value is not usable, use New.
type Ledger struct {
	tickets map[crypto.Address]*Ticket
	// purchase order, used for deterministic iteration
	buyers   []crypto.Address
	revealed []crypto.Address
}

func New() *Ledger {
	return &Ledger{tickets: make(map[crypto.Address]*Ticket)}
}

// Open records a new ticket. A participant holds at most one ticket for the
// lifetime of the round; a second purchase is rejected and the first
// commitment stays authoritative.
func (l *Ledger) Open(participant crypto.Address, committed crypto.Hash, payment, price uint64) (Ticket, error) {
	if _, ok := l.tickets[participant]; ok {
		return Ticket{}, ErrTicketExists
	}
	if payment != price {
		return Ticket{}, ErrWrongPayment
	}
	t := &Ticket{Owner: participant, Committed: committed}
	l.tickets[participant] = t
	l.buyers = append(l.buyers, participant)
	return *t, nil
}

// Reveal opens the participant's commitment and appends the participant to
// the reveal order. The returned secret is what the randomness accumulator
// must fold next.
func (l *Ledger) Reveal(participant crypto.Address, secret crypto.Secret) (crypto.Secret, error) {
	t, ok := l.tickets[participant]
	if !ok {
		return crypto.Secret{}, ErrNoTicket
	}
	if !secret.Matches(t.Committed) {
		return crypto.Secret{}, ErrHashMismatch
	}
	if t.Revealed() {
		return crypto.Secret{}, ErrAlreadyRevealed
	}
	s := secret
	t.Secret = &s
	l.revealed = append(l.revealed, participant)
	return secret, nil
}

// Settle marks the ticket as paid out. It is the single gate both the prize
// and the refund paths pass through, so a ticket can never pay twice.
func (l *Ledger) Settle(participant crypto.Address) error {
	t, ok := l.tickets[participant]
	if !ok {
		return ErrNoTicket
	}
	if t.Settled {
		return ErrAlreadySettled
	}
	t.Settled = true
	return nil
}

// Get returns a copy of the participant's ticket
func (l *Ledger) Get(participant crypto.Address) (Ticket, bool) {
	t, ok := l.tickets[participant]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

// Unsettled returns the participant's ticket only if it can still be paid.
func (l *Ledger) Unsettled(participant crypto.Address) (Ticket, bool) {
	t, ok := l.Get(participant)
	if !ok || t.Settled {
		return Ticket{}, false
	}
	return t, true
}

// Len is the number of tickets sold.
func (l *Ledger) Len() int {
	return len(l.buyers)
}

// RevealedCount is the number of tickets whose secret has been revealed.
func (l *Ledger) RevealedCount() int {
	return len(l.revealed)
}

// RevealOrder returns the participants in the order their secrets were revealed.
func (l *Ledger) RevealOrder() []crypto.Address {
	out := make([]crypto.Address, len(l.revealed))
	copy(out, l.revealed)
	return out
}

// Tickets returns all tickets in purchase order.
func (l *Ledger) Tickets() []Ticket {
	out := make([]Ticket, 0, len(l.buyers))
	for _, addr := range l.buyers {
		out = append(out, *l.tickets[addr])
	}
	return out
}

// Clone returns a deep copy that can be mutated without affecting l.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		tickets:  make(map[crypto.Address]*Ticket, len(l.tickets)),
		buyers:   append([]crypto.Address(nil), l.buyers...),
		revealed: append([]crypto.Address(nil), l.revealed...),
	}
	for addr, t := range l.tickets {
		cp := *t
		if t.Secret != nil {
			s := *t.Secret
			cp.Secret = &s
		}
		c.tickets[addr] = &cp
	}
	return c
}

// Restore rebuilds a ledger from tickets in purchase order and the reveal
// order. It is the inverse of Tickets and RevealOrder.
func Restore(tickets []Ticket, revealOrder []crypto.Address) (*Ledger, error) {
	l := New()
	for _, t := range tickets {
		if _, ok := l.tickets[t.Owner]; ok {
			return nil, fmt.Errorf("%w: duplicate ticket for %s", ErrInconsistent, t.Owner)
		}
		cp := t
		l.tickets[t.Owner] = &cp
		l.buyers = append(l.buyers, t.Owner)
	}
	seen := make(map[crypto.Address]struct{}, len(revealOrder))
	for _, addr := range revealOrder {
		t, ok := l.tickets[addr]
		if !ok || !t.Revealed() {
			return nil, fmt.Errorf("%w: %s revealed without a revealed ticket", ErrInconsistent, addr)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: %s revealed twice", ErrInconsistent, addr)
		}
		seen[addr] = struct{}{}
		l.revealed = append(l.revealed, addr)
	}
	return l, nil
}
