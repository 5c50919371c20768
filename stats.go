package netresolv

import (
	"fmt"
)

// serviceStats are accumulated per request and then added to the service totals.
type serviceStats struct {
	requests int
	numeric  int // Answered without any query

	denied      int // Permission callback said no
	rejected    int // Domain callback said no
	ownership   int // Socket ownership change failed
	tagFailures int // TagSocket callback errors, not fatal

	cacheHits int
	shared    int
	exchanges int
	sockets   int

	good     int
	nxDomain int
	failures int
	timeouts int
}

func (t *serviceStats) add(from *serviceStats) {
	t.requests += from.requests
	t.numeric += from.numeric
	t.denied += from.denied
	t.rejected += from.rejected
	t.ownership += from.ownership
	t.tagFailures += from.tagFailures
	t.cacheHits += from.cacheHits
	t.shared += from.shared
	t.exchanges += from.exchanges
	t.sockets += from.sockets
	t.good += from.good
	t.nxDomain += from.nxDomain
	t.failures += from.failures
	t.timeouts += from.timeouts
}

func (t *serviceStats) String() string {
	return fmt.Sprintf("req=%d/%d gate=%d/%d/%d/%d q=%d/%d/%d/%d res=%d/%d/%d/%d",
		t.requests, t.numeric,
		t.denied, t.rejected, t.ownership, t.tagFailures,
		t.cacheHits, t.shared, t.exchanges, t.sockets,
		t.good, t.nxDomain, t.failures, t.timeouts)
}

type proxyStats struct {
	queries    int
	badRequest int
	refused    int
	rrlDrop    int
	rrlSlip    int
}

func (t *proxyStats) add(from *proxyStats) {
	t.queries += from.queries
	t.badRequest += from.badRequest
	t.refused += from.refused
	t.rrlDrop += from.rrlDrop
	t.rrlSlip += from.rrlSlip
}

func (t *proxyStats) String() string {
	return fmt.Sprintf("q=%d bad=%d ref=%d rrl=%d/%d",
		t.queries, t.badRequest, t.refused, t.rrlDrop, t.rrlSlip)
}
