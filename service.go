package netresolv

import (
	"fmt"
	"sync"
	"time"

	"github.com/markdingo/rrl"
	"go.uber.org/atomic"

	"github.com/markdingo/netresolv/callbacks"
	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/netstore"
	"github.com/markdingo/netresolv/ownership"
	"github.com/markdingo/netresolv/resolver"
)

// Config defines how a Service is assembled. The zero value is usable: no control
// listener, default cache size, the real resolver and an ownership Adapter configured
// from the environment.
type Config struct {
	Listen       string // Control listener address. Empty means none.
	ControlNetID uint32 // Network used by control listener queries
	ControlUID   uint32 // Identity used by control listener queries
	CacheSize    int    // Per network. Zero means netstore.DefaultCacheSize.
	RRL          *rrl.Config

	Resolver  resolver.Resolver
	Ownership *ownership.Adapter
}

// Service is the resolution service. It owns the callback registry, the network store
// and the socket ownership adapter and is safe for concurrent use.
type Service struct {
	cfg       Config
	registry  *callbacks.Registry
	store     *netstore.Store
	owner     *ownership.Adapter
	resolver  resolver.Resolver
	startTime time.Time

	logQueries atomic.Bool
	closed     atomic.Bool

	proxyMu sync.Mutex // Serializes listener start and stop
	proxy   *proxy

	statsMu sync.Mutex
	stats   serviceStats
}

// New creates a Service. No callbacks are active until Init is called.
func New(cfg Config) *Service {
	t := &Service{
		cfg:       cfg,
		registry:  callbacks.NewRegistry(),
		store:     netstore.NewStore(cfg.CacheSize),
		owner:     cfg.Ownership,
		resolver:  cfg.Resolver,
		startTime: time.Now(),
	}
	if t.owner == nil {
		t.owner = ownership.NewFromEnv()
	}
	if t.resolver == nil {
		t.resolver = resolver.NewResolver()
	}

	return t
}

// Init replaces the active callbacks and then starts the control listener if one is
// configured and not already running. A listener failure is logged and otherwise
// ignored; the callbacks are in effect regardless. The only error is ErrServiceClosed.
func (t *Service) Init(cbs callbacks.Set) error {
	if t.closed.Load() {
		return ErrServiceClosed
	}
	t.registry.Initialize(cbs)

	if len(t.cfg.Listen) == 0 {
		return nil
	}
	t.proxyMu.Lock()
	defer t.proxyMu.Unlock()
	if t.proxy != nil {
		return nil
	}
	p := newProxy(t, t.cfg.Listen, t.cfg.RRL)
	if err := p.start(); err != nil {
		log.Majorf("Control listener %s not started: %s", t.cfg.Listen, err)
		return nil
	}
	t.proxy = p
	log.Minor("Control listener started on ", p.address())

	return nil
}

// Reset clears all callbacks. The control listener, if any, keeps running.
func (t *Service) Reset() {
	t.registry.Reset()
}

// Callbacks returns the active callback Set.
func (t *Service) Callbacks() callbacks.Set {
	return t.registry.Active()
}

// Ownership returns the socket ownership adapter so its capability level can be
// changed.
func (t *Service) Ownership() *ownership.Adapter {
	return t.owner
}

// Shutdown stops the control listener and refuses further Init calls. Networks remain
// usable so in-flight requests complete.
func (t *Service) Shutdown() {
	t.closed.Store(true)
	t.proxyMu.Lock()
	p := t.proxy
	t.proxy = nil
	t.proxyMu.Unlock()
	if p != nil {
		p.stop()
	}
}

// ControlAddress returns the bound control listener address or an empty string if it is
// not running.
func (t *Service) ControlAddress() string {
	t.proxyMu.Lock()
	defer t.proxyMu.Unlock()
	if t.proxy == nil {
		return ""
	}

	return t.proxy.address()
}

func (t *Service) CreateNetworkCache(netID uint32) error {
	return t.store.Create(netID)
}

func (t *Service) DestroyNetworkCache(netID uint32) error {
	return t.store.Destroy(netID)
}

// SetNameservers replaces the configuration of netID and returns a status code.
func (t *Service) SetNameservers(netID uint32, servers, domains []string,
	params netstore.Params) int {
	return StatusCode(t.SetNameserversErr(netID, servers, domains, params))
}

// SetNameserversErr is SetNameservers returning an error rather than a status code.
func (t *Service) SetNameserversErr(netID uint32, servers, domains []string,
	params netstore.Params) error {
	err := t.store.SetNameservers(netID, servers, domains, params)
	if err != nil {
		log.Minorf("SetNameservers %d: %s", netID, err)
	}

	return err
}

// NetworkConfig returns the current configuration of netID.
func (t *Service) NetworkConfig(netID uint32) (*netstore.Config, error) {
	return t.store.Config(netID)
}

// NetIDs returns all configured network ids.
func (t *Service) NetIDs() []uint32 {
	return t.store.NetIDs()
}

// ServerStats returns the nameserver statistics of netID.
func (t *Service) ServerStats(netID uint32) ([]netstore.ServerStats, error) {
	n, err := t.store.Get(netID)
	if err != nil {
		return nil, err
	}

	return n.Stats(time.Now()), nil
}

// FlushCaches empties every answer cache.
func (t *Service) FlushCaches() {
	t.store.FlushAll()
}

// TagSocket applies the socket checkpoint to fd outside of a resolution: the TagSocket
// callback, if any, then the ownership change. The status code reflects the ownership
// change alone.
func (t *Service) TagSocket(fd int, uid uint32, pid int32) int {
	g := newGate(t.registry.Active(), t.owner, callbacks.NetContext{UID: uid, PID: pid})
	err := g.tagSocket(fd)
	if err != nil {
		log.Minor(err)
	}

	return StatusCode(err)
}

// SetLogQueries turns per-request logging on or off.
func (t *Service) SetLogQueries(on bool) {
	t.logQueries.Store(on)
}

func (t *Service) LogQueries() bool {
	return t.logQueries.Load()
}

func (t *Service) addStats(from *serviceStats) {
	t.statsMu.Lock()
	t.stats.add(from)
	t.statsMu.Unlock()
}

var zeroStats serviceStats

// StatsReport logs the service counters and, optionally, resets them.
func (t *Service) StatsReport(resetCounters bool) {
	t.statsMu.Lock()
	totals := t.stats
	if resetCounters {
		t.stats = zeroStats
	}
	t.statsMu.Unlock()

	log.Major("Stats: Uptime ", time.Since(t.startTime).Round(time.Second))
	log.Major("Stats: Requests ", totals.String())

	t.proxyMu.Lock()
	p := t.proxy
	t.proxyMu.Unlock()
	if p != nil {
		log.Major("Stats: Control ", p.statsString(resetCounters))
	}

	for _, id := range t.store.NetIDs() {
		n, err := t.store.Get(id)
		if err != nil { // Destroyed since NetIDs
			continue
		}
		hits, misses := n.CacheCounters()
		log.Major(fmt.Sprintf("Stats: Network %d cache=%d hit=%d miss=%d inflight=%d",
			id, n.CacheLen(), hits, misses, n.Inflight()))
		for _, ss := range n.Stats(time.Now()) {
			log.Major(fmt.Sprintf("Stats: Network %d %s", id, ss.String()))
		}
	}
}
