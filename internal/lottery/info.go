package lottery

import (
	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/phase"
)

// Info is a read-only view of the round.
type Info struct {
	Contract        crypto.Address
	Owner           crypto.Address
	Now             phase.Timestamp
	Phase           phase.Phase
	Boundaries      phase.Boundaries
	TicketPrice     uint64
	Commission      uint64
	Deposit         uint64
	TicketsSold     int
	TicketsRevealed int
	Held            uint64
	Digest          crypto.Hash
	Closed          bool
	Winner          *crypto.Address // set once the round has ended
	Prize           uint64
}

// Info reports the state of the round at the platform's current time.
func (l *Lottery) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.env.Now()
	info := Info{
		Contract:        l.cfg.Contract,
		Owner:           l.cfg.Owner,
		Now:             now,
		Phase:           l.schedule.PhaseAt(l.cfg.DeployedAt, now),
		Boundaries:      l.schedule.Boundaries(l.cfg.DeployedAt),
		TicketPrice:     l.cfg.TicketPrice,
		Commission:      l.cfg.Commission,
		Deposit:         l.cfg.Deposit,
		TicketsSold:     l.st.tickets.Len(),
		TicketsRevealed: l.st.tickets.RevealedCount(),
		Held:            l.st.escrow.Held(),
		Digest:          l.st.acc.Digest,
		Closed:          l.st.closed,
		Prize:           l.st.prize,
	}
	if l.st.winner != nil {
		w := *l.st.winner
		info.Winner = &w
	}
	return info
}
