package pebble

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/lottery/pkg/db"
)

// Options configure the store. An empty Path keeps everything in memory.
type Options struct {
	Path      string
	CacheSize int64
}

// KVStore is a db.KVStore backed by pebble.
type KVStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
}

var _ db.KVStore = (*KVStore)(nil)

// NewKVStore opens an in-memory store.
func NewKVStore() (*KVStore, error) {
	return Open(Options{})
}

// Open opens (or creates) the store described by opts.
func Open(opts Options) (*KVStore, error) {
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 8 << 20
	}
	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{Cache: cache}
	if opts.Path == "" {
		pebbleOpts.FS = vfs.NewMem()
	}

	pdb, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %q: %w", opts.Path, err)
	}
	return &KVStore{db: pdb}, nil
}

func (s *KVStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *KVStore) Put(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Set(key, value, pebble.Sync)
}

func (s *KVStore) Delete(key []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Delete(key, pebble.Sync)
}

func (s *KVStore) NewBatch() db.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &batch{store: s}
	}
	return &batch{store: s, b: s.db.NewBatch()}
}

func (s *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	return &iterator{it: it}, nil
}

func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type batch struct {
	store *KVStore
	b     *pebble.Batch
	done  atomic.Bool
}

func (b *batch) Put(key, value []byte) error {
	if b.b == nil {
		return ErrClosed
	}
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.b.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	if b.b == nil {
		return ErrClosed
	}
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.b.Delete(key, nil)
}

func (b *batch) Commit() error {
	if b.b == nil {
		return ErrClosed
	}
	if b.done.Load() {
		return ErrBatchDone
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	if b.store.closed {
		return ErrClosed
	}
	if err := b.b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.done.Store(true)
	return b.b.Close()
}

func (b *batch) Close() error {
	if b.b == nil || !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.b.Close()
}

type iterator struct {
	it      *pebble.Iterator
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		return i.it.First()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte {
	key := i.it.Key()
	out := make([]byte, len(key))
	copy(out, key)
	return out
}

func (i *iterator) Value() ([]byte, error) {
	if !i.it.Valid() {
		return nil, ErrIteratorInvalid
	}
	val, err := i.it.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf("read iterator value: %w", err)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (i *iterator) Close() error {
	return i.it.Close()
}
