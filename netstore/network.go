package netstore

import (
	"context"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/markdingo/netresolv/log"
)

// Network is the resolver state of one network. Requests obtain a *Network from the
// Store once, at admission, and keep using it even if the network is destroyed while
// they are in flight.
type Network struct {
	id      uint32
	created time.Time

	cfgMu sync.Mutex // Serializes config replacement, readers use cfg directly
	cfg   *atomic.Pointer[Config]

	cache   *answerCache
	stats   *serverStats
	pending singleflight.Group

	inflight  atomic.Int64
	destroyed atomic.Bool
}

func newNetwork(id uint32, cacheSize int, secrets [2]uint64, now time.Time) *Network {
	return &Network{
		id:      id,
		created: now,
		cfg:     atomic.NewPointer(&Config{NetID: id, Params: DefaultParams()}),
		cache:   newAnswerCache(cacheSize, secrets),
		stats:   newServerStats(),
	}
}

func (t *Network) ID() uint32 {
	return t.id
}

// Config returns the current configuration snapshot which must not be modified.
func (t *Network) Config() *Config {
	return t.cfg.Load()
}

// Destroyed returns true once the Store has released this network.
func (t *Network) Destroyed() bool {
	return t.destroyed.Load()
}

// Inflight returns the number of exchanges started by Do which are still running.
func (t *Network) Inflight() int64 {
	return t.inflight.Load()
}

// setConfig publishes cfg. A change of servers flushes the answer cache and discards all
// statistics. A change of sampling Params only discards statistics.
func (t *Network) setConfig(cfg *Config) {
	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()

	old := t.cfg.Swap(cfg)
	switch {
	case !old.sameServers(cfg):
		t.cache.flush()
		t.stats.reset()
		log.Minorf("netstore: %d: servers changed, cache flushed", t.id)
	case !old.Params.samplingEqual(cfg.Params):
		t.stats.reset()
		log.Minorf("netstore: %d: sampling params changed, statistics reset", t.id)
	}
}

// CacheGet returns a cached response for q, if any.
func (t *Network) CacheGet(q dns.Question, now time.Time) (*dns.Msg, bool) {
	return t.cache.get(q, now)
}

// CachePut caches m if it is cacheable and returns the TTL used, or zero.
func (t *Network) CachePut(m *dns.Msg, now time.Time) time.Duration {
	return t.cache.put(m, now)
}

func (t *Network) CacheLen() int {
	return t.cache.len()
}

// CacheCounters returns the hits and misses since creation.
func (t *Network) CacheCounters() (hits, misses uint64) {
	return t.cache.hits.Load(), t.cache.misses.Load()
}

func (t *Network) Flush() {
	t.cache.flush()
}

// Record adds an exchange sample for server using the current Params.
func (t *Network) Record(server string, s Sample) {
	t.stats.record(server, s, t.Config().Params)
}

// UsableServers returns the configured servers which statistics have not ruled out.
func (t *Network) UsableServers(now time.Time) []string {
	cfg := t.Config()
	return t.stats.usable(cfg.Servers, cfg.Params, now)
}

// Stats summarizes the statistics of every configured server.
func (t *Network) Stats(now time.Time) []ServerStats {
	cfg := t.Config()
	return t.stats.stats(cfg.Servers, cfg.Params, now)
}

// Reply is the outcome of one exchange started by Do.
type Reply struct {
	Msg       *dns.Msg
	Server    string // Which answered, or was last tried
	Exchanges int    // With nameservers, including retries
	Samples   int    // Statistics samples recorded
}

// Do runs fn unless an identical exchange, as identified by key, is already pending in
// which case the caller joins it. fn runs under a context derived from ctx which no
// caller can cancel, so joined callers are unaffected if the one which started the
// exchange goes away. Each caller stops waiting as soon as its own ctx is done.
//
// joined is true if the caller shared an exchange started by another caller. Joined
// callers receive their own copy of the Reply.
func (t *Network) Do(ctx context.Context, key string,
	fn func(context.Context) (*Reply, error)) (rep *Reply, joined bool, err error) {
	var started atomic.Bool
	ch := t.pending.DoChan(key, func() (interface{}, error) {
		started.Store(true)
		t.inflight.Inc()
		defer t.inflight.Dec()
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		rep, _ = res.Val.(*Reply)
		if rep == nil {
			rep = &Reply{}
		}
		if res.Shared {
			cp := *rep
			if cp.Msg != nil {
				cp.Msg = cp.Msg.Copy()
			}
			rep = &cp
		}
		return rep, !started.Load(), res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// release is called by the Store on Destroy. Pending exchanges are forgotten so new
// callers never join them, but they run to completion for their existing waiters.
func (t *Network) release() {
	t.destroyed.Store(true)
	t.cache.flush()
	t.stats.reset()
}
