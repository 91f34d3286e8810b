package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/entropy"
	"github.com/eigerco/lottery/internal/ledger"
	"github.com/eigerco/lottery/internal/platform"
	"github.com/eigerco/lottery/pkg/db"
	"github.com/eigerco/lottery/pkg/db/pebble"
	"github.com/eigerco/lottery/pkg/log"
	"github.com/eigerco/lottery/pkg/serialization"
)

var (
	ErrNotDeployed     = errors.New("no lottery deployed at address")
	ErrAlreadyDeployed = errors.New("lottery already deployed at address")
)

// Config is the immutable deployment record of a lottery contract.
type Config struct {
	Contract        crypto.Address
	Owner           crypto.Address
	TicketPrice     uint64
	SalesDuration   uint64
	RevealDuration  uint64
	EndDuration     uint64
	Commission      uint64
	OwnerSecretHash crypto.Hash
	Deposit         uint64
	TimeUnit        int64 // nanoseconds
	DeployedAt      uint64
}

// State is the mutable part of a contract, written as a whole after every
// accepted operation.
type State struct {
	Tickets     []ledger.Ticket // purchase order
	RevealOrder []crypto.Address
	Accumulator entropy.Accumulator
	Held        uint64
	Closed      bool
	Winner      *crypto.Address `cbor:",omitempty"`
	Prize       uint64
	// EventCount is the number of events emitted by the contract so far.
	EventCount uint64
}

// Lottery persists lottery contracts keyed by contract address.
type Lottery struct {
	db.KVStore
	serializer *serialization.Serializer
}

// NewLottery creates a new lottery store using KVStore
func NewLottery(kv db.KVStore) *Lottery {
	return &Lottery{KVStore: kv, serializer: serialization.NewCBORSerializer()}
}

// NewInMemoryLottery is a lottery store over an in-memory pebble database.
func NewInMemoryLottery() (*Lottery, error) {
	kv, err := pebble.NewKVStore()
	if err != nil {
		return nil, err
	}
	return NewLottery(kv), nil
}

// Create writes the deployment record together with the initial state and
// events in one batch. It fails if the contract address is already taken.
func (l *Lottery) Create(cfg Config, st State, events []platform.Event) error {
	_, err := l.Get(makeKey(prefixConfig, cfg.Contract[:]))
	if err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyDeployed, cfg.Contract)
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("get %s: %w", PrefixToString(prefixConfig), err)
	}

	cfgBytes, err := l.serializer.Encode(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return l.write(cfg.Contract, st, events, func(b db.Batch) error {
		return b.Put(makeKey(prefixConfig, cfg.Contract[:]), cfgBytes)
	})
}

// SaveState replaces the contract state and appends events, atomically.
// The events occupy the sequence numbers directly below st.EventCount.
func (l *Lottery) SaveState(contract crypto.Address, st State, events []platform.Event) error {
	return l.write(contract, st, events, nil)
}

func (l *Lottery) write(contract crypto.Address, st State, events []platform.Event, extra func(db.Batch) error) error {
	if uint64(len(events)) > st.EventCount {
		return fmt.Errorf("save state: %d events exceed event count %d", len(events), st.EventCount)
	}

	stBytes, err := l.serializer.Encode(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	batch := l.NewBatch()
	defer func() {
		if err := batch.Close(); err != nil {
			log.Store.Error().Err(err).Msg("error closing batch")
		}
	}()

	if extra != nil {
		if err := extra(batch); err != nil {
			return fmt.Errorf("batch put config: %w", err)
		}
	}
	if err := batch.Put(makeKey(prefixState, contract[:]), stBytes); err != nil {
		return fmt.Errorf("batch put state: %w", err)
	}

	first := st.EventCount - uint64(len(events))
	for i, ev := range events {
		evBytes, err := l.serializer.Encode(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := batch.Put(makeEventKey(contract[:], first+uint64(i)), evBytes); err != nil {
			return fmt.Errorf("batch put event: %w", err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	log.Store.Debug().
		Stringer("contract", contract).
		Int("tickets", len(st.Tickets)).
		Int("events", len(events)).
		Msg("state saved")
	return nil
}

// Config retrieves the deployment record of a contract
func (l *Lottery) Config(contract crypto.Address) (Config, error) {
	var cfg Config
	if err := l.getRecord(prefixConfig, contract, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// State retrieves the latest state of a contract
func (l *Lottery) State(contract crypto.Address) (State, error) {
	var st State
	if err := l.getRecord(prefixState, contract, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// getRecord loads and decodes the record stored under prefix for contract.
func (l *Lottery) getRecord(prefix byte, contract crypto.Address, v interface{}) error {
	bytes, err := l.Get(makeKey(prefix, contract[:]))
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotDeployed, contract)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", PrefixToString(prefix), err)
	}
	if err := l.serializer.Decode(bytes, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", PrefixToString(prefix), err)
	}
	return nil
}

// Events returns every event the contract emitted, oldest first.
func (l *Lottery) Events(contract crypto.Address) ([]platform.Event, error) {
	prefix := makeKey(prefixEvent, contract[:])
	iter, err := l.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer func() {
		if err := iter.Close(); err != nil {
			log.Store.Error().Err(err).Msg("error closing iterator")
		}
	}()

	var events []platform.Event
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("get iterator value: %w", err)
		}
		var ev platform.Event
		if err := l.serializer.Decode(value, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
