// Package lottery runs a single commit-reveal lottery round as an escrow
// contract. Participants buy one ticket each during Sale by committing to
// a secret, reveal it during Reveal, and the owner reveals its own secret
// and pays out during End. If the owner misses End, ticket holders reclaim
// their payment once the round has Expired.
package lottery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/escrow"
	"github.com/eigerco/lottery/internal/ledger"
	"github.com/eigerco/lottery/internal/metrics"
	"github.com/eigerco/lottery/internal/phase"
	"github.com/eigerco/lottery/internal/platform"
	"github.com/eigerco/lottery/internal/store"
	"github.com/eigerco/lottery/pkg/log"
)

// Operation names used in logs and metrics.
const (
	OpDeploy       = "deploy"
	OpBuyTicket    = "buy_ticket"
	OpRevealSecret = "reveal_secret"
	OpEndLottery   = "end_lottery"
	OpReturnTicket = "return_ticket"
)

// Tx is the caller of an operation and the value sent along with it.
type Tx struct {
	From  crypto.Address
	Value uint64
}

// Option configures a Lottery on Deploy or Load.
type Option func(*Lottery)

// WithMetrics records every call on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(l *Lottery) {
		l.metrics = c
	}
}

// Lottery is a deployed round. It is safe for concurrent use; calls are
// executed one at a time.
type Lottery struct {
	mu      sync.Mutex
	env     platform.Env
	store   *store.Lottery
	metrics *metrics.Collector

	cfg      Config
	schedule phase.Schedule
	st       *state
}

// Deploy creates a round owned by tx.From, funded with tx.Value as the
// deposit. A nil store keeps the round in memory only.
func Deploy(env platform.Env, st *store.Lottery, tx Tx, params Params, opts ...Option) (*Lottery, error) {
	l := &Lottery{env: env, store: st}
	for _, opt := range opts {
		opt(l)
	}

	if err := params.Validate(tx.Value); err != nil {
		l.reject(OpDeploy, tx, err)
		return nil, err
	}
	if params.TimeUnit <= 0 {
		params.TimeUnit = phase.DefaultUnit
	}

	now := env.Now()
	l.cfg = Config{
		Params:     params,
		Contract:   crypto.ContractAddress(tx.From, uint64(now)),
		Owner:      tx.From,
		Deposit:    tx.Value,
		DeployedAt: now,
	}
	l.schedule = params.Schedule()

	next := &state{
		tickets: ledger.New(),
		escrow:  escrow.New(0),
	}
	if err := next.escrow.Collect(tx.Value); err != nil {
		return nil, fmt.Errorf("collect deposit: %w", err)
	}

	events := []platform.Event{l.event(EventStartLottery, tx.From, tx.Value, now)}
	next.events = uint64(len(events))

	deposit := []platform.Transfer{{From: tx.From, To: l.cfg.Contract, Amount: tx.Value}}
	if err := env.Apply(deposit); err != nil {
		l.metrics.RecordOperation(OpDeploy, metrics.ResultFailed)
		return nil, fmt.Errorf("transfer deposit: %w", err)
	}
	if l.store != nil {
		if err := l.store.Create(l.cfg.record(), next.record(), events); err != nil {
			l.revert(deposit)
			l.metrics.RecordOperation(OpDeploy, metrics.ResultFailed)
			return nil, fmt.Errorf("persist deployment: %w", err)
		}
	}
	l.st = next
	env.Emit(events...)

	l.metrics.RecordOperation(OpDeploy, metrics.ResultOK)
	l.metrics.RecordState(0, 0, next.escrow.Held())
	log.Lottery.Info().
		Stringer("contract", l.cfg.Contract).
		Stringer("owner", l.cfg.Owner).
		Uint64("ticketPrice", params.TicketPrice).
		Uint64("deposit", tx.Value).
		Msg("lottery deployed")
	return l, nil
}

// Load restores a deployed round from the store.
func Load(env platform.Env, st *store.Lottery, contract crypto.Address, opts ...Option) (*Lottery, error) {
	rec, err := st.Config(contract)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	stRec, err := st.State(contract)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	l := &Lottery{env: env, store: st}
	for _, opt := range opts {
		opt(l)
	}
	l.cfg = configFromRecord(rec)
	l.schedule = l.cfg.Schedule()

	l.st, err = stateFromRecord(stRec)
	if err != nil {
		return nil, fmt.Errorf("restore state: %w", err)
	}
	if err := l.st.checkInvariants(l.cfg); err != nil {
		return nil, fmt.Errorf("restore state of %s: %w", contract, err)
	}

	l.metrics.RecordState(l.st.tickets.Len(), l.st.tickets.RevealedCount(), l.st.escrow.Held())
	log.Lottery.Info().
		Stringer("contract", contract).
		Int("tickets", l.st.tickets.Len()).
		Bool("closed", l.st.closed).
		Msg("lottery loaded")
	return l, nil
}

// Config returns the deployment configuration.
func (l *Lottery) Config() Config {
	return l.cfg
}

// Contract returns the address that holds the escrow.
func (l *Lottery) Contract() crypto.Address {
	return l.cfg.Contract
}

// Ticket returns the participant's ticket.
func (l *Lottery) Ticket(participant crypto.Address) (ledger.Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.tickets.Get(participant)
}

// effects are what a staged operation asks the commit to carry out.
type effects struct {
	incoming []platform.Transfer
	events   []platform.Event
	// committed runs after the state has been swapped in.
	committed func()
}

// stage reads the clock once and hands a clone of the state to fn. If fn
// succeeds, the clone is committed.
func (l *Lottery) stage(op string, tx Tx, fn func(now phase.Timestamp, ph phase.Phase, next *state) (effects, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.env.Now()
	ph := l.schedule.PhaseAt(l.cfg.DeployedAt, now)
	next := l.st.clone()

	fx, err := fn(now, ph, next)
	if err != nil {
		l.reject(op, tx, err)
		return err
	}
	if err := l.commit(next, fx.incoming, fx.events); err != nil {
		l.metrics.RecordOperation(op, metrics.ResultFailed)
		log.Lottery.Error().Err(err).Str("op", op).Stringer("from", tx.From).Msg("commit failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	if fx.committed != nil {
		fx.committed()
	}
	l.metrics.RecordOperation(op, metrics.ResultOK)
	l.metrics.RecordState(next.tickets.Len(), next.tickets.RevealedCount(), next.escrow.Held())
	log.Lottery.Debug().
		Str("op", op).
		Stringer("from", tx.From).
		Stringer("phase", ph).
		Msg("accepted")
	return nil
}

// commit moves the staged funds, persists the staged state and only then
// makes it visible and emits its events.
func (l *Lottery) commit(next *state, incoming []platform.Transfer, events []platform.Event) error {
	transfers := append([]platform.Transfer(nil), incoming...)
	for _, p := range next.escrow.Pending() {
		transfers = append(transfers, platform.Transfer{From: l.cfg.Contract, To: p.To, Amount: p.Amount})
	}
	next.events += uint64(len(events))

	if err := l.env.Apply(transfers); err != nil {
		return fmt.Errorf("apply transfers: %w", err)
	}
	if l.store != nil {
		if err := l.store.SaveState(l.cfg.Contract, next.record(), events); err != nil {
			l.revert(transfers)
			return fmt.Errorf("persist state: %w", err)
		}
	}

	// Pending transfers have been executed; the live escrow starts clean.
	next.escrow = next.escrow.Clone()
	l.st = next
	l.env.Emit(events...)
	return nil
}

// revert undoes transfers that were applied before persisting failed.
func (l *Lottery) revert(transfers []platform.Transfer) {
	undo := make([]platform.Transfer, 0, len(transfers))
	for i := len(transfers) - 1; i >= 0; i-- {
		t := transfers[i]
		undo = append(undo, platform.Transfer{From: t.To, To: t.From, Amount: t.Amount})
	}
	if err := l.env.Apply(undo); err != nil {
		log.Lottery.Error().Err(err).Stringer("contract", l.cfg.Contract).Msg("failed to revert transfers")
	}
}

func (l *Lottery) reject(op string, tx Tx, err error) {
	var lerr *Error
	if !errors.As(err, &lerr) {
		l.metrics.RecordOperation(op, metrics.ResultFailed)
		log.Lottery.Error().Err(err).Str("op", op).Stringer("from", tx.From).Msg("operation failed")
		return
	}
	l.metrics.RecordOperation(op, metrics.ResultRejected)
	ev := log.Lottery.Debug()
	if lerr == ErrInsufficientEscrow {
		ev = log.Lottery.Error()
	}
	ev.Str("op", op).
		Stringer("from", tx.From).
		Stringer("kind", lerr.Kind).
		Str("reason", lerr.Reason).
		Msg("rejected")
}

func (l *Lottery) event(name string, account crypto.Address, amount uint64, at phase.Timestamp) platform.Event {
	return platform.Event{
		Contract: l.cfg.Contract,
		Name:     name,
		Account:  account,
		Amount:   amount,
		Time:     at,
	}
}
