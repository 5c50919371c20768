package mock

import (
	"net"

	"github.com/miekg/dns"
)

var local = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53}

// ResponseWriter is a dns.ResponseWriter which saves the last written message. Remote
// is returned by RemoteAddr() and defaults to 127.0.0.2:5353 if nil.
type ResponseWriter struct {
	Remote net.Addr
	m      *dns.Msg
	writes int
}

func (t *ResponseWriter) Reset() {
	t.m = nil
	t.writes = 0
}

// Get returns the last response, if any, then clears it.
func (t *ResponseWriter) Get() *dns.Msg {
	m := t.m
	t.m = nil
	return m
}

// Writes returns the number of WriteMsg calls since the last Reset.
func (t *ResponseWriter) Writes() int {
	return t.writes
}

func (t *ResponseWriter) LocalAddr() net.Addr {
	return local
}

func (t *ResponseWriter) RemoteAddr() net.Addr {
	if t.Remote == nil {
		return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 2), Port: 5353}
	}
	return t.Remote
}

func (t *ResponseWriter) WriteMsg(m *dns.Msg) error {
	t.m = m
	t.writes++

	return nil
}

func (t *ResponseWriter) Write(b []byte) (int, error) {
	panic("Don't expect Write() to be called")
}

func (t *ResponseWriter) Close() error        { return nil }
func (t *ResponseWriter) TsigStatus() error   { return nil }
func (t *ResponseWriter) TsigTimersOnly(bool) {}
func (t *ResponseWriter) Hijack()             {}
