package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
)

func (t *resolver) SingleExchange(ctx context.Context, c ExchangeConfig, q *dns.Msg,
	server, logName string) (r *dns.Msg, rtt time.Duration, err error) {
	if len(q.Question) != 1 {
		err = fmt.Errorf("SingleExchange Message contains %d Question(s), expect one",
			len(q.Question))
		return
	}

	question := q.Question[0]
	client := &dns.Client{Timeout: c.Timeout()}
	client.Net = c.Net()
	client.UDPSize = c.UDPSize()
	client.Dialer = &net.Dialer{Timeout: c.Timeout(), Control: control(c.Hook())}
	server = dnsutil.NormalizeHostPort(server, dnsutil.DefaultService)

	if log.IfDebug() {
		LogExchangeQ(client.Net, logName, server, question)
	}

	r, rtt, err = exchange(ctx, client, q, server)

	if log.IfDebug() {
		LogExchangeA(server, question, r, err)
	}

	return
}

type exchangeResult struct {
	r   *dns.Msg
	rtt time.Duration
	err error
}

// exchange is client.ExchangeContext except that cancellation of ctx, not just its
// deadline, ends the exchange. The connection is closed to unblock the reader.
func exchange(ctx context.Context, client *dns.Client, q *dns.Msg,
	server string) (*dns.Msg, time.Duration, error) {
	conn, err := client.DialContext(ctx, server)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Close()

	done := make(chan exchangeResult, 1)
	go func() {
		r, rtt, err := client.ExchangeWithConnContext(ctx, q, conn)
		done <- exchangeResult{r, rtt, err}
	}()

	select {
	case res := <-done:
		return res.r, res.rtt, res.err
	case <-ctx.Done():
		conn.Close()
		<-done
		return nil, 0, ctx.Err()
	}
}

// attemptTimeout doubles base for each pass, stopping once maxAttemptTimeout is reached.
// A base above maxAttemptTimeout is used as is.
func attemptTimeout(base time.Duration, pass int) time.Duration {
	d := base
	for ix := 0; ix < pass && d < maxAttemptTimeout; ix++ {
		d *= 2
	}
	if d > maxAttemptTimeout && base <= maxAttemptTimeout {
		d = maxAttemptTimeout
	}

	return d
}

// control adapts a SocketHook to net.Dialer.Control which runs after the socket is
// created and before it is connected. An error return causes the Dialer to close the
// socket.
func control(hook SocketHook) func(network, address string, rc syscall.RawConn) error {
	if hook == nil {
		return nil
	}

	return func(network, address string, rc syscall.RawConn) error {
		var hookErr error
		err := rc.Control(func(fd uintptr) {
			hookErr = hook(int(fd))
		})
		if err != nil {
			return err
		}
		if hookErr != nil {
			return fmt.Errorf("%w: %w", ErrSocketRejected, hookErr)
		}

		return nil
	}
}

func (t *resolver) FullExchange(ctx context.Context, c ExchangeConfig, question dns.Question,
	servers []string, logName string, rf ResultFunc) (r *dns.Msg, server string, err error) {
	if len(servers) == 0 {
		err = ErrNoServers
		return
	}

	query := new(dns.Msg)
	query.Id = dns.Id()
	query.RecursionDesired = true // We are a stub so recursion is the server's job
	query.SetEdns0(c.UDPSize(), false)
	query.Question = append(query.Question, question)

	ec := c.clone() // Private copy as net and timeout change per attempt
	base := ec.timeout
	var last *dns.Msg
	var lastServer string
	for pass := 0; pass < ec.tries; pass++ {
		ec.timeout = attemptTimeout(base, pass)
		for _, s := range servers {
			r, err = t.try(ctx, ec, query, s, logName, rf)
			if ctx.Err() != nil {
				return nil, s, ctx.Err()
			}
			if err != nil {
				if errors.Is(err, ErrSocketRejected) {
					return nil, s, err
				}
				continue
			}
			switch r.Rcode {
			case dns.RcodeSuccess, dns.RcodeNameError:
				return r, s, nil
			}
			last, lastServer = r, s // SERVFAIL, REFUSED and friends: try elsewhere
		}
	}

	if last != nil {
		return last, lastServer, nil
	}

	return nil, "", err // No response from any nameserver
}

// try makes one UDP exchange and, if truncated, one TCP exchange with server.
func (t *resolver) try(ctx context.Context, ec *exchangeConfig, query *dns.Msg,
	server, logName string, rf ResultFunc) (*dns.Msg, error) {
	ec.net = dnsutil.UDPNetwork
	r, err := t.report(ctx, ec, query, server, logName, rf)
	if err != nil {
		return nil, err
	}

	// If truncated, try again with TCP
	if r.MsgHdr.Rcode == dns.RcodeSuccess && r.MsgHdr.Truncated {
		ec.net = dnsutil.TCPNetwork
		r, err = t.report(ctx, ec, query, server, logName, rf)
	}

	return r, err
}

func (t *resolver) report(ctx context.Context, ec *exchangeConfig, query *dns.Msg,
	server, logName string, rf ResultFunc) (*dns.Msg, error) {
	start := time.Now()
	r, rtt, err := t.SingleExchange(ctx, ec, query, server, logName)
	if rf == nil {
		return r, err
	}

	res := Result{Server: dnsutil.NormalizeHostPort(server, dnsutil.DefaultService),
		Net: ec.net, Rcode: -1, RTT: rtt, Err: err}
	switch {
	case err == nil:
		res.Rcode = r.Rcode
	case ctx.Err() != nil:
		res.Err = ctx.Err()
	default:
		res.RTT = time.Since(start)
		var ne net.Error
		res.Timeout = errors.As(err, &ne) && ne.Timeout()
	}
	rf(res)

	return r, err
}
