package netstore

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/markdingo/netresolv/log"
)

// Store maps network ids to Networks. All methods are safe for concurrent use. The
// Store lock only covers the map itself; per-network config changes are serialized by
// that network alone.
type Store struct {
	mu        sync.RWMutex
	networks  map[uint32]*Network
	cacheSize int
	now       func() time.Time
}

// NewStore creates an empty Store whose networks cache up to cacheSize answers each. A
// cacheSize <= 0 selects DefaultCacheSize.
func NewStore(cacheSize int) *Store {
	return &Store{
		networks:  make(map[uint32]*Network),
		cacheSize: cacheSize,
		now:       time.Now,
	}
}

// Create allocates an empty network.
func (t *Store) Create(id uint32) error {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Errorf("netstore: cache secret: %w", err)
	}
	secrets := [2]uint64{binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:])}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.networks[id]; ok {
		return fmt.Errorf("%w: %d", ErrAlreadyExists, id)
	}
	t.networks[id] = newNetwork(id, t.cacheSize, secrets, t.now())
	log.Minorf("netstore: %d: created", id)

	return nil
}

// Destroy releases the network. Requests already holding the *Network finish normally.
func (t *Store) Destroy(id uint32) error {
	t.mu.Lock()
	n, ok := t.networks[id]
	if ok {
		delete(t.networks, id)
	}
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	n.release()
	log.Minorf("netstore: %d: destroyed with %d exchanges in flight", id, n.Inflight())

	return nil
}

// Get returns the network for id.
func (t *Store) Get(id uint32) (*Network, error) {
	t.mu.RLock()
	n, ok := t.networks[id]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return n, nil
}

// SetNameservers atomically replaces the servers, search domains and params of the
// network. On error the existing config is untouched.
func (t *Store) SetNameservers(id uint32, servers, domains []string, params Params) error {
	n, err := t.Get(id)
	if err != nil {
		return err
	}
	cfg, err := newConfig(id, servers, domains, params)
	if err != nil {
		return err
	}
	n.setConfig(cfg)
	if log.IfDebug() {
		log.Debug("netstore: ", cfg.String())
	}

	return nil
}

// Config returns the current config snapshot of the network.
func (t *Store) Config(id uint32) (*Config, error) {
	n, err := t.Get(id)
	if err != nil {
		return nil, err
	}

	return n.Config(), nil
}

// Flush empties the answer cache of the network.
func (t *Store) Flush(id uint32) error {
	n, err := t.Get(id)
	if err != nil {
		return err
	}
	n.Flush()

	return nil
}

// FlushAll empties every answer cache.
func (t *Store) FlushAll() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, n := range t.networks {
		n.Flush()
	}
}

// NetIDs returns the ids of all networks in ascending order.
func (t *Store) NetIDs() []uint32 {
	t.mu.RLock()
	ids := make([]uint32, 0, len(t.networks))
	for id := range t.networks {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
