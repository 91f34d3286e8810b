// Package config loads the deployment parameters of a lottery round and
// the settings of its supporting services from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/eigerco/lottery/internal/crypto"
	"github.com/eigerco/lottery/internal/lottery"
	"github.com/eigerco/lottery/internal/phase"
	"github.com/eigerco/lottery/internal/store"
	"github.com/eigerco/lottery/pkg/db/pebble"
	"github.com/eigerco/lottery/pkg/log"
)

type Config struct {
	Lottery Lottery `toml:"lottery"`
	Log     Log     `toml:"log"`
	Store   Store   `toml:"store"`
}

// Lottery holds the round parameters. Durations are whole TimeUnits.
type Lottery struct {
	TicketPrice     uint64 `toml:"ticket_price"`
	SalesDays       uint64 `toml:"sales_days"`
	RevealDays      uint64 `toml:"reveal_days"`
	EndDays         uint64 `toml:"end_days"`
	Commission      uint64 `toml:"commission"`
	OwnerSecretHash string `toml:"owner_secret_hash"`
	Deposit         uint64 `toml:"deposit"`
	TimeUnit        string `toml:"time_unit"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Store configures persistence. An empty Path keeps state in memory.
type Store struct {
	Path string `toml:"path"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Lottery: Lottery{TimeUnit: phase.DefaultUnit.String()},
		Log:     Log{Level: "info", Format: "console"},
	}
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses TOML data.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

// Params converts the [lottery] table into deployment parameters. Range
// checks are left to the deployment itself.
func (c Config) Params() (lottery.Params, error) {
	hash, err := crypto.HashFromHex(c.Lottery.OwnerSecretHash)
	if err != nil {
		return lottery.Params{}, fmt.Errorf("owner_secret_hash: %w", err)
	}
	unit := phase.DefaultUnit
	if c.Lottery.TimeUnit != "" {
		unit, err = time.ParseDuration(c.Lottery.TimeUnit)
		if err != nil {
			return lottery.Params{}, fmt.Errorf("time_unit: %w", err)
		}
		if unit < time.Second {
			return lottery.Params{}, fmt.Errorf("time_unit: %s is shorter than one second", unit)
		}
	}
	return lottery.Params{
		TicketPrice:     c.Lottery.TicketPrice,
		SalesDuration:   c.Lottery.SalesDays,
		RevealDuration:  c.Lottery.RevealDays,
		EndDuration:     c.Lottery.EndDays,
		Commission:      c.Lottery.Commission,
		OwnerSecretHash: hash,
		TimeUnit:        unit,
	}, nil
}

// DeployTx is the deployment call of owner carrying the configured deposit.
func (c Config) DeployTx(owner crypto.Address) lottery.Tx {
	return lottery.Tx{From: owner, Value: c.Lottery.Deposit}
}

// LogOptions converts the [log] table.
func (c Config) LogOptions() (log.Options, error) {
	level, err := log.ParseLogLevel(c.Log.Level)
	if err != nil {
		return log.Options{}, fmt.Errorf("log level: %w", err)
	}
	typ, err := log.ParseLoggerType(c.Log.Format)
	if err != nil {
		return log.Options{}, fmt.Errorf("log format: %w", err)
	}
	return log.Options{LogLevel: level, Type: typ}, nil
}

// OpenStore opens the lottery store described by the [store] table.
func (c Config) OpenStore() (*store.Lottery, error) {
	if c.Store.Path == "" {
		return store.NewInMemoryLottery()
	}
	kv, err := pebble.Open(pebble.Options{Path: c.Store.Path})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store.NewLottery(kv), nil
}
