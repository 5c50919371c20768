package netresolv

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// Address families. Values match Linux so they can be passed straight through.
const (
	AFUnspec = 0
	AFInet   = 2
	AFInet6  = 10
)

// Socket types.
const (
	SockAny    = 0
	SockStream = 1
	SockDgram  = 2
)

// Hint flags.
const (
	AICanonName   = 0x0002 // Return the canonical name in Outcome.Canonical
	AINumericHost = 0x0004 // Name must be an address literal, never query
	AINumericServ = 0x0400 // Service must be a port number
)

// Hints narrows a resolution in the manner of getaddrinfo(3) hints.
type Hints struct {
	Family   int
	SockType int
	Protocol int
	Flags    int
}

func (t Hints) has(flag int) bool {
	return t.Flags&flag != 0
}

func (t Hints) validate() error {
	switch t.Family {
	case AFUnspec, AFInet, AFInet6:
	default:
		return fmt.Errorf("%w: address family %d", ErrInvalidArgument, t.Family)
	}
	switch t.SockType {
	case SockAny, SockStream, SockDgram:
	default:
		return fmt.Errorf("%w: socket type %d", ErrInvalidArgument, t.SockType)
	}

	return nil
}

// qTypes returns the query types needed for the family, A before AAAA.
func (t Hints) qTypes() []uint16 {
	switch t.Family {
	case AFInet:
		return []uint16{dns.TypeA}
	case AFInet6:
		return []uint16{dns.TypeAAAA}
	}

	return []uint16{dns.TypeA, dns.TypeAAAA}
}

// portNetwork is the network used to look up a service name.
func (t Hints) portNetwork() string {
	if t.SockType == SockStream {
		return "tcp"
	}
	return "udp"
}

// Addr is one resolved address.
type Addr struct {
	Family   int
	IP       net.IP
	Port     int
	SockType int
}

func (t Addr) String() string {
	return net.JoinHostPort(t.IP.String(), fmt.Sprint(t.Port))
}

func newAddr(ip net.IP, port int, hints Hints) Addr {
	a := Addr{IP: ip, Port: port, SockType: hints.SockType, Family: AFInet6}
	if ip4 := ip.To4(); ip4 != nil {
		a.IP = ip4
		a.Family = AFInet
	}

	return a
}

// numericHost returns the IP if name is an address literal. A zone suffix on an IPv6
// literal is accepted and discarded.
func numericHost(name string) net.IP {
	if i := strings.IndexByte(name, '%'); i > 0 && strings.Contains(name, ":") {
		name = name[:i]
	}

	return net.ParseIP(name)
}

func familyMatches(ip net.IP, family int) bool {
	switch family {
	case AFInet:
		return ip.To4() != nil
	case AFInet6:
		return ip.To4() == nil
	}

	return true
}

func addrsToStrings(ar []Addr) string {
	s := make([]string, 0, len(ar))
	for _, a := range ar {
		s = append(s, a.IP.String())
	}

	return strings.Join(s, ",")
}
