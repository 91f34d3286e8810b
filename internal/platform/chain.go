package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/phase"
	"github.com/eigerco/lottery/internal/safemath"
)

// Chain is an in-memory Env with account balances, a manually driven clock
// and an append-only event log.
type Chain struct {
	mu       sync.Mutex
	now      phase.Timestamp
	balances map[crypto.Address]uint64
	events   []Event
}

var _ Env = (*Chain)(nil)

// NewChain returns a chain whose clock starts at start.
func NewChain(start phase.Timestamp) *Chain {
	return &Chain{
		now:      start,
		balances: make(map[crypto.Address]uint64),
	}
}

func (c *Chain) Now() phase.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Chain) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetTime moves the clock to ts.
func (c *Chain) SetTime(ts phase.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ts
}

// Mint credits amount to account out of thin air.
func (c *Chain) Mint(account crypto.Address, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := safemath.Add64(c.balances[account], amount)
	if !ok {
		return fmt.Errorf("mint %d to %s: %w", amount, account, safemath.ErrOverflow)
	}
	c.balances[account] = v
	return nil
}

func (c *Chain) Balance(account crypto.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account]
}

// Apply executes the transfers in order against a scratch copy of the
// touched balances and only writes them back if every transfer succeeded.
func (c *Chain) Apply(transfers []Transfer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scratch := make(map[crypto.Address]uint64)
	balance := func(a crypto.Address) uint64 {
		if v, ok := scratch[a]; ok {
			return v
		}
		return c.balances[a]
	}

	for i, t := range transfers {
		if t.From.IsZero() || t.To.IsZero() {
			return fmt.Errorf("transfer %d: %w", i, ErrZeroAddress)
		}
		from, ok := safemath.Sub64(balance(t.From), t.Amount)
		if !ok {
			return fmt.Errorf("transfer %d of %d from %s: %w", i, t.Amount, t.From, ErrInsufficientFunds)
		}
		scratch[t.From] = from
		to, ok := safemath.Add64(balance(t.To), t.Amount)
		if !ok {
			return fmt.Errorf("transfer %d of %d to %s: %w", i, t.Amount, t.To, safemath.ErrOverflow)
		}
		scratch[t.To] = to
	}

	for a, v := range scratch {
		c.balances[a] = v
	}
	return nil
}

func (c *Chain) Emit(events ...Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

// Events returns a copy of everything emitted so far.
func (c *Chain) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
