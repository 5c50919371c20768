package netresolv

import (
	"sync"

	"github.com/markdingo/netresolv/callbacks"
	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/ownership"
)

// gate applies the host callbacks to one request. The callback Set is captured once at
// admission so a concurrent Initialize or Reset never changes the rules mid-request.
//
// Checkpoints, in order:
//
//  1. context: GetNetworkContext may replace the caller's NetContext
//  2. permission: CheckPermission false stops the request before any socket exists
//  3. domain: EvaluateDomainName is asked once per distinct name given to the engine
//  4. socket: TagSocket then the ownership change for every query socket
//  5. log: start and end summaries to the Log callback
type gate struct {
	cbs   callbacks.Set
	nc    callbacks.NetContext
	owner *ownership.Adapter

	mu        sync.Mutex
	evaluated map[string]bool
	stats     serviceStats // Gate counters only, merged by the caller
}

// newGate performs checkpoint 1.
func newGate(cbs callbacks.Set, owner *ownership.Adapter, nc callbacks.NetContext) *gate {
	t := &gate{cbs: cbs, nc: nc, owner: owner, evaluated: make(map[string]bool)}
	if cbs.GetNetworkContext != nil {
		if override, ok := cbs.GetNetworkContext(nc.UID, nc.AppMark); ok {
			if log.IfDebug() {
				log.Debugf("gate: context %s replaced by %s", nc, override)
			}
			t.nc = override
		}
	}

	return t
}

// permitted is checkpoint 2.
func (t *gate) permitted() bool {
	if t.cbs.CheckPermission == nil {
		return true
	}
	ok := t.cbs.CheckPermission(t.nc)
	if !ok {
		t.mu.Lock()
		t.stats.denied++
		t.mu.Unlock()
	}

	return ok
}

// evaluate is checkpoint 3. The verdict for a name is remembered so concurrent A and
// AAAA queries for the same name share one callback invocation.
func (t *gate) evaluate(name string) bool {
	if t.cbs.EvaluateDomainName == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok, seen := t.evaluated[name]; seen {
		return ok
	}
	ok := t.cbs.EvaluateDomainName(t.nc, name)
	t.evaluated[name] = ok
	if !ok {
		t.stats.rejected++
	}

	return ok
}

// tagSocket is checkpoint 4 and is used as the resolver SocketHook. The TagSocket
// callback only ever gets logged, it's the ownership change which decides whether the
// socket may be used.
func (t *gate) tagSocket(fd int) error {
	t.mu.Lock()
	t.stats.sockets++
	t.mu.Unlock()

	if t.cbs.TagSocket != nil {
		if err := t.cbs.TagSocket(fd, callbacks.TagSystemDNS, t.nc.UID, t.nc.PID); err != nil {
			log.Minorf("gate: tagSocket fd=%d uid=%d: %s", fd, t.nc.UID, err)
			t.mu.Lock()
			t.stats.tagFailures++
			t.mu.Unlock()
		}
	}

	err := t.owner.TagSocket(fd, t.nc.UID)
	if err != nil {
		t.mu.Lock()
		t.stats.ownership++
		t.mu.Unlock()
	}

	return err
}

// log is checkpoint 5. Whatever the callback does, it cannot affect the request.
func (t *gate) log(msg string) {
	if t.cbs.Log == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Minorf("gate: log callback panic ignored: %v", r)
		}
	}()
	t.cbs.Log(msg)
}

func (t *gate) counters() serviceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stats
}
