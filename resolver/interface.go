package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/dnsutil"
)

const (
	defaultTimeout = 5 * time.Second
	defaultTries   = 3 // Total number of passes over the servers

	maxAttemptTimeout = 2 * time.Minute // Doubling per pass stops here
)

var (
	ErrNoServers      = errors.New("no nameservers")
	ErrSocketRejected = errors.New("query socket rejected")
)

// SocketHook is called with the file descriptor of each query socket before it is used.
// A non-nil return closes the socket and aborts the whole exchange.
type SocketHook func(fd int) error

// ExchangeConfig expresses settings which were previously passed to miekg via a
// Client struct. It's defined as an interface rather than a struct to enforce the use
// of NewExchangeConfig which sets defaults.
type ExchangeConfig interface {
	Net() string
	UDPSize() uint16
	Timeout() time.Duration // Of the first pass, doubled on each subsequent pass
	Tries() int
	Hook() SocketHook
	clone() *exchangeConfig
}

type exchangeConfig struct {
	net     string
	udpSize uint16
	timeout time.Duration
	tries   int
	hook    SocketHook
}

func (t *exchangeConfig) Net() string            { return t.net }
func (t *exchangeConfig) UDPSize() uint16        { return t.udpSize }
func (t *exchangeConfig) Timeout() time.Duration { return t.timeout }
func (t *exchangeConfig) Tries() int             { return t.tries }
func (t *exchangeConfig) Hook() SocketHook       { return t.hook }

func (t *exchangeConfig) clone() *exchangeConfig {
	c := *t
	return &c
}

func NewExchangeConfig() *exchangeConfig {
	return &exchangeConfig{net: dnsutil.UDPNetwork, udpSize: dnsutil.MaxUDPSize,
		timeout: defaultTimeout, tries: defaultTries}
}

// SetTimeout sets the first pass timeout. Non-positive values are ignored.
func (t *exchangeConfig) SetTimeout(d time.Duration) *exchangeConfig {
	if d > 0 {
		t.timeout = d
	}
	return t
}

// SetRetries sets the number of passes after the first.
func (t *exchangeConfig) SetRetries(n int) *exchangeConfig {
	if n >= 0 {
		t.tries = n + 1
	}
	return t
}

func (t *exchangeConfig) SetHook(h SocketHook) *exchangeConfig {
	t.hook = h
	return t
}

// Result describes the outcome of one exchange with one server. It is passed to the
// ResultFunc given to FullExchange so the caller can maintain server statistics.
type Result struct {
	Server  string
	Net     string
	Rcode   int // -1 if no response
	RTT     time.Duration
	Timeout bool
	Err     error
}

type ResultFunc func(Result)

// Resolver is the interface to the query engine. Implementations must be concurrency
// safe.
type Resolver interface {

	// LookupPort is similar to net.Resolver.LookupPort.
	LookupPort(ctx context.Context, network, service string) (int, error)

	// SingleExchange is a shim for the github.com/miekg/dns ExchangeContext function
	// which makes a single exchange attempt with the server; no retries, no fallback
	// to TCP. See FullExchange() for that capability.
	//
	// The query socket is passed to c.Hook() before the query is sent. A hook error
	// is returned wrapped in ErrSocketRejected.
	//
	// The dns.Msg must be fully formed with all flags and Id set as needed by the
	// caller. logName is only used for logging.
	SingleExchange(ctx context.Context, c ExchangeConfig, q *dns.Msg,
		server, logName string) (r *dns.Msg, rtt time.Duration, err error)

	// FullExchange is a wrapper around SingleExchange which handles retries, server
	// selection and truncation. It makes up to c.Tries() passes over servers, doubling
	// the timeout on each pass, and returns as soon as a server gives a definitive
	// answer (NOERROR or NXDOMAIN). Other rcodes move on to the next server; if no
	// definitive answer arrives the last response received is returned.
	//
	// Every exchange is reported to rf (which may be nil). A socket hook failure or
	// context cancellation stops everything immediately.
	FullExchange(ctx context.Context, c ExchangeConfig, q dns.Question,
		servers []string, logName string, rf ResultFunc) (r *dns.Msg, server string, err error)
}
