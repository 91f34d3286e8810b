package lottery

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/entropy"
	"github.com/eigerco/lottery/internal/metrics"
	"github.com/eigerco/lottery/internal/phase"
	"github.com/eigerco/lottery/internal/platform"
	"github.com/eigerco/lottery/internal/store"
	"github.com/eigerco/lottery/pkg/db/pebble"
)

const (
	price    = 10
	deposit  = 100
	funds    = 1000
	day      = 24 * time.Hour
	deployAt = phase.Timestamp(1_700_000_000)
)

var (
	owner = crypto.AddressFromLabel("owner")
	alice = crypto.AddressFromLabel("alice")
	bob   = crypto.AddressFromLabel("bob")
	carol = crypto.AddressFromLabel("carol")
	dave  = crypto.AddressFromLabel("dave")

	ownerSecret = crypto.SecretFromUint64(424242)
	secrets     = map[crypto.Address]crypto.Secret{
		alice: crypto.SecretFromUint64(1111),
		bob:   crypto.SecretFromUint64(2222),
		carol: crypto.SecretFromUint64(3333),
		dave:  crypto.SecretFromUint64(4444),
	}
)

type fixture struct {
	chain *platform.Chain
	store *store.Lottery
	lot   *Lottery
}

func testParams() Params {
	return Params{
		TicketPrice:     price,
		SalesDuration:   1,
		RevealDuration:  1,
		EndDuration:     1,
		Commission:      10,
		OwnerSecretHash: crypto.CommitSecret(ownerSecret),
		TimeUnit:        day,
	}
}

func newChain(t *testing.T) *platform.Chain {
	chain := platform.NewChain(deployAt)
	for _, a := range []crypto.Address{owner, alice, bob, carol, dave} {
		require.NoError(t, chain.Mint(a, funds))
	}
	return chain
}

func newStore(t *testing.T) *store.Lottery {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return store.NewLottery(kv)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	f := &fixture{chain: newChain(t), store: newStore(t)}
	lot, err := Deploy(f.chain, f.store, Tx{From: owner, Value: deposit}, testParams(), opts...)
	require.NoError(t, err)
	f.lot = lot
	return f
}

func (f *fixture) buy(t *testing.T, who ...crypto.Address) {
	for _, a := range who {
		require.NoError(t, f.lot.BuyTicket(Tx{From: a, Value: price}, crypto.CommitSecret(secrets[a])))
	}
}

func (f *fixture) reveal(t *testing.T, who ...crypto.Address) {
	for _, a := range who {
		require.NoError(t, f.lot.RevealSecret(Tx{From: a}, secrets[a]))
	}
}

// at moves the clock to offset after deployment.
func (f *fixture) at(offset time.Duration) {
	f.chain.SetTime(deployAt.Add(offset))
}

func eventNames(events []platform.Event) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	return names
}

func TestDeploy(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, uint64(funds-deposit), f.chain.Balance(owner))
	assert.Equal(t, uint64(deposit), f.chain.Balance(f.lot.Contract()))
	assert.Equal(t, []string{EventStartLottery}, eventNames(f.chain.Events()))

	cfg := f.lot.Config()
	assert.Equal(t, owner, cfg.Owner)
	assert.Equal(t, deployAt, cfg.DeployedAt)
	assert.Equal(t, uint64(deposit), cfg.Deposit)

	info := f.lot.Info()
	assert.Equal(t, phase.Sale, info.Phase)
	assert.Equal(t, uint64(deposit), info.Held)
	assert.Equal(t, deployAt.Add(day), info.Boundaries.RevealStart)
	assert.Equal(t, deployAt.Add(3*day), info.Boundaries.ExpiredStart)
	assert.Nil(t, info.Winner)
}

func TestDeployValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Params)
		deposit uint64
		err     *Error
	}{
		{"zero price", func(p *Params) { p.TicketPrice = 0; p.SalesDuration = 0 }, deposit, ErrTicketPrice},
		{"zero sales", func(p *Params) { p.SalesDuration = 0; p.Commission = 100 }, deposit, ErrSalesDuration},
		{"zero reveal", func(p *Params) { p.RevealDuration = 0 }, deposit, ErrRevealDuration},
		{"zero end", func(p *Params) { p.EndDuration = 0 }, deposit, ErrEndDuration},
		{"commission 100", func(p *Params) { p.Commission = 100 }, 0, ErrCommission},
		{"deposit too low", func(p *Params) {}, 10*price - 1, ErrDepositTooLow},
		{"price overflows deposit", func(p *Params) { p.TicketPrice = ^uint64(0) }, ^uint64(0), ErrDepositTooLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chain := newChain(t)
			p := testParams()
			tc.mutate(&p)

			_, err := Deploy(chain, nil, Tx{From: owner, Value: tc.deposit}, p)
			require.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.err.Reason, err.Error())
			assert.Equal(t, uint64(funds), chain.Balance(owner))
			assert.Empty(t, chain.Events())
		})
	}

	t.Run("minimum deposit", func(t *testing.T) {
		_, err := Deploy(newChain(t), nil, Tx{From: owner, Value: 10 * price}, testParams())
		assert.NoError(t, err)
	})

	t.Run("owner cannot fund deposit", func(t *testing.T) {
		_, err := Deploy(newChain(t), nil, Tx{From: owner, Value: funds + 1}, testParams())
		assert.ErrorIs(t, err, platform.ErrInsufficientFunds)
	})
}

func TestBuyTicket(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice)

	assert.Equal(t, uint64(funds-price), f.chain.Balance(alice))
	assert.Equal(t, uint64(deposit+price), f.chain.Balance(f.lot.Contract()))

	ticket, ok := f.lot.Ticket(alice)
	require.True(t, ok)
	assert.Equal(t, crypto.CommitSecret(secrets[alice]), ticket.Committed)
	assert.False(t, ticket.Revealed())

	err := f.lot.BuyTicket(Tx{From: alice, Value: price}, crypto.CommitSecret(secrets[bob]))
	assert.ErrorIs(t, err, ErrTicketExists)
	ticket, _ = f.lot.Ticket(alice)
	assert.Equal(t, crypto.CommitSecret(secrets[alice]), ticket.Committed)

	for _, v := range []uint64{0, price - 1, price + 1} {
		err := f.lot.BuyTicket(Tx{From: bob, Value: v}, crypto.CommitSecret(secrets[bob]))
		assert.ErrorIs(t, err, ErrWrongPayment)
	}
	assert.Equal(t, uint64(funds), f.chain.Balance(bob))

	f.at(day)
	err = f.lot.BuyTicket(Tx{From: bob, Value: price}, crypto.CommitSecret(secrets[bob]))
	assert.ErrorIs(t, err, ErrSalesClosed)
	assert.Equal(t, "No more ticket sales", err.Error())

	assert.Equal(t, []string{EventStartLottery, EventBuyTicket}, eventNames(f.chain.Events()))
	assert.Equal(t, 1, f.lot.Info().TicketsSold)
}

func TestRevealSecret(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice, bob)

	err := f.lot.RevealSecret(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrRevealTooEarly)

	f.at(day)
	err = f.lot.RevealSecret(Tx{From: carol}, secrets[carol])
	assert.ErrorIs(t, err, ErrNoTicket)

	err = f.lot.RevealSecret(Tx{From: alice}, secrets[bob])
	assert.ErrorIs(t, err, ErrSecretMismatch)

	f.reveal(t, bob, alice)
	err = f.lot.RevealSecret(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrAlreadyRevealed)

	info := f.lot.Info()
	assert.Equal(t, phase.Reveal, info.Phase)
	assert.Equal(t, 2, info.TicketsRevealed)
	assert.Equal(t, entropy.Replay(secrets[bob], secrets[alice]), info.Digest)

	f.at(2 * day)
	err = f.lot.RevealSecret(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrRevealClosed)
	f.at(3 * day)
	err = f.lot.RevealSecret(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrRevealClosed)

	assert.Equal(t,
		[]string{EventStartLottery, EventBuyTicket, EventBuyTicket, EventRevealSecret, EventRevealSecret},
		eventNames(f.chain.Events()))
}

func TestEndLotteryScenario(t *testing.T) {
	collector := metrics.NewCollector("")
	f := newFixture(t, WithMetrics(collector))
	f.buy(t, alice, bob, carol, dave)

	f.at(day)
	f.reveal(t, alice, bob, carol)

	f.at(2 * day)
	require.NoError(t, f.lot.EndLottery(Tx{From: owner}, ownerSecret))

	digest := entropy.Replay(secrets[alice], secrets[bob], secrets[carol], ownerSecret)
	idx, err := entropy.WinnerIndex(digest, 3)
	require.NoError(t, err)
	winner := []crypto.Address{alice, bob, carol}[idx]

	const prize = 4 * price * 90 / 100
	const commission = 4*price - prize

	info := f.lot.Info()
	require.NotNil(t, info.Winner)
	assert.Equal(t, winner, *info.Winner)
	assert.Equal(t, uint64(prize), info.Prize)
	assert.True(t, info.Closed)
	assert.Zero(t, info.Held)
	assert.Equal(t, digest, info.Digest)

	assert.Zero(t, f.chain.Balance(f.lot.Contract()))
	assert.Equal(t, uint64(funds-deposit+commission+deposit), f.chain.Balance(owner))
	assert.Equal(t, uint64(funds-price+prize), f.chain.Balance(winner))
	assert.Equal(t, uint64(funds-price), f.chain.Balance(dave))

	events := f.chain.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventEndLottery, last.Name)
	assert.Equal(t, winner, last.Account)
	assert.Equal(t, uint64(prize), last.Amount)

	err = f.lot.EndLottery(Tx{From: owner}, ownerSecret)
	assert.ErrorIs(t, err, ErrAlreadyEnded)
	err = f.lot.ReturnTicket(Tx{From: dave}, secrets[dave])
	assert.ErrorIs(t, err, ErrNoTicket)

	expected := `
# HELP lottery_tickets_sold Tickets sold in the round
# TYPE lottery_tickets_sold gauge
lottery_tickets_sold 4
# HELP lottery_escrow_held Value currently held by the contract
# TYPE lottery_escrow_held gauge
lottery_escrow_held 0
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"lottery_tickets_sold", "lottery_escrow_held"))
}

func TestEndLotteryRejections(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice)

	err := f.lot.EndLottery(Tx{From: alice}, ownerSecret)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, "Ownable: caller is not the owner", err.Error())

	err = f.lot.EndLottery(Tx{From: owner}, ownerSecret)
	assert.ErrorIs(t, err, ErrInProgress)
	f.at(day)
	err = f.lot.EndLottery(Tx{From: owner}, ownerSecret)
	assert.ErrorIs(t, err, ErrInProgress)

	f.at(2 * day)
	err = f.lot.EndLottery(Tx{From: owner}, secrets[alice])
	assert.ErrorIs(t, err, ErrSecretMismatch)

	err = f.lot.EndLottery(Tx{From: owner}, ownerSecret)
	assert.ErrorIs(t, err, ErrNoReveals)

	f.at(3 * day)
	err = f.lot.EndLottery(Tx{From: owner}, ownerSecret)
	assert.ErrorIs(t, err, ErrEndTooLate)

	info := f.lot.Info()
	assert.False(t, info.Closed)
	assert.Equal(t, uint64(deposit+price), info.Held)
	assert.Zero(t, info.Digest)
}

func TestReturnTicketScenario(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice, bob, carol, dave)
	f.at(day)
	f.reveal(t, alice, bob)

	f.at(2 * day)
	err := f.lot.ReturnTicket(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrReturnTooEarly)

	f.at(3 * day)
	for _, a := range []crypto.Address{alice, bob, carol, dave} {
		require.NoError(t, f.lot.ReturnTicket(Tx{From: a}, secrets[a]))
		assert.Equal(t, uint64(funds), f.chain.Balance(a))
	}

	err = f.lot.ReturnTicket(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrNoTicket)

	// the deposit stays with the contract
	assert.Equal(t, uint64(deposit), f.chain.Balance(f.lot.Contract()))
	assert.Equal(t, uint64(deposit), f.lot.Info().Held)
	assert.Equal(t, phase.Expired, f.lot.Info().Phase)

	var refunded uint64
	for _, e := range f.chain.Events() {
		if e.Name == EventReturnTicket {
			refunded += e.Amount
		}
	}
	assert.Equal(t, uint64(4*price), refunded)
}

func TestReturnTicketCheckOrder(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice)

	err := f.lot.ReturnTicket(Tx{From: bob}, secrets[bob])
	assert.ErrorIs(t, err, ErrNoTicket)
	err = f.lot.ReturnTicket(Tx{From: alice}, secrets[bob])
	assert.ErrorIs(t, err, ErrSecretMismatch)
	err = f.lot.ReturnTicket(Tx{From: alice}, secrets[alice])
	assert.ErrorIs(t, err, ErrReturnTooEarly)
	assert.Equal(t, "It's too early to return tickets", err.Error())
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice, bob)
	f.at(day)
	f.reveal(t, bob)

	restored, err := Load(f.chain, f.store, f.lot.Contract())
	require.NoError(t, err)
	assert.Equal(t, f.lot.Info(), restored.Info())
	assert.Equal(t, f.lot.Config(), restored.Config())

	f.reveal(t, alice)
	f.at(2 * day)
	require.NoError(t, f.lot.EndLottery(Tx{From: owner}, ownerSecret))

	restored, err = Load(f.chain, f.store, f.lot.Contract())
	require.NoError(t, err)
	assert.Equal(t, f.lot.Info(), restored.Info())
	err = restored.EndLottery(Tx{From: owner}, ownerSecret)
	assert.ErrorIs(t, err, ErrAlreadyEnded)

	events, err := f.store.Events(f.lot.Contract())
	require.NoError(t, err)
	assert.Equal(t, f.chain.Events(), events)

	_, err = Load(f.chain, f.store, crypto.AddressFromLabel("nowhere"))
	assert.ErrorIs(t, err, store.ErrNotDeployed)
}

func TestLoadRejectsTamperedState(t *testing.T) {
	f := newFixture(t)
	f.buy(t, alice)

	rec, err := f.store.State(f.lot.Contract())
	require.NoError(t, err)
	rec.Held += 1
	require.NoError(t, f.store.SaveState(f.lot.Contract(), rec, nil))

	_, err = Load(f.chain, f.store, f.lot.Contract())
	assert.Error(t, err)
}

func TestFailedCommitLeavesNoTrace(t *testing.T) {
	chain := newChain(t)
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	lot, err := Deploy(chain, store.NewLottery(kv), Tx{From: owner, Value: deposit}, testParams())
	require.NoError(t, err)

	require.NoError(t, kv.Close())
	err = lot.BuyTicket(Tx{From: alice, Value: price}, crypto.CommitSecret(secrets[alice]))
	require.Error(t, err)
	assert.ErrorIs(t, err, pebble.ErrClosed)

	assert.Equal(t, uint64(funds), chain.Balance(alice))
	assert.Equal(t, uint64(deposit), chain.Balance(lot.Contract()))
	assert.Equal(t, 0, lot.Info().TicketsSold)
	assert.Equal(t, []string{EventStartLottery}, eventNames(chain.Events()))
}

func TestBuyerWithoutFunds(t *testing.T) {
	f := newFixture(t)
	poor := crypto.AddressFromLabel("poor")

	err := f.lot.BuyTicket(Tx{From: poor, Value: price}, crypto.CommitSecret(secrets[alice]))
	assert.ErrorIs(t, err, platform.ErrInsufficientFunds)
	_, ok := f.lot.Ticket(poor)
	assert.False(t, ok)
	assert.Equal(t, uint64(deposit), f.lot.Info().Held)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindConfig, ErrCommission.Kind)
	assert.Equal(t, KindAuthorization, ErrNotOwner.Kind)
	assert.Equal(t, KindIntegrity, ErrSecretMismatch.Kind)
	assert.Equal(t, "phase", ErrEndTooLate.Kind.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
