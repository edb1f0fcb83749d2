package pebble

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/timelord/pkg/db"
)

// KVStore is a db.KVStore backed by pebble.
type KVStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

type config struct {
	path      string
	cacheSize int64
}

// Option configures NewKVStore.
type Option func(*config)

// WithPath opens the store on disk at path. Without it the store lives in
// memory and is lost on Close.
func WithPath(path string) Option {
	return func(c *config) {
		c.path = path
	}
}

// WithCacheSize sets the block cache size in bytes.
func WithCacheSize(size int64) Option {
	return func(c *config) {
		c.cacheSize = size
	}
}

func NewKVStore(opts ...Option) (*KVStore, error) {
	cfg := config{cacheSize: 64 * 1024 * 1024}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache := pebble.NewCache(cfg.cacheSize)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{
		Cache:        cache,
		MemTableSize: 32 * 1024 * 1024,
	}
	if cfg.path == "" {
		pebbleOpts.FS = vfs.NewMem()
	}

	pdb, err := pebble.Open(cfg.path, pebbleOpts)
	if err != nil {
		return nil, err
	}
	return &KVStore{db: pdb}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

var _ db.KVStore = (*KVStore)(nil)
