package mock

import "net"

// NewUDPAddr returns a net.Addr for the supplied "ip:port" string or panics. It exists so
// tests can present distinct client sources to the control listener.
func NewUDPAddr(hostPort string) net.Addr {
	a, err := net.ResolveUDPAddr("udp", hostPort)
	if err != nil {
		panic("mock.NewUDPAddr: " + err.Error())
	}

	return a
}
