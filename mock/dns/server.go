package dns

import (
	"github.com/miekg/dns"
)

// StartServer starts a miekg DNS server and only returns once it is accepting queries.
// Setup failures panic as they can only be test configuration errors.
func StartServer(net, serverAddr string, h dns.Handler) *dns.Server {
	srv := &dns.Server{Net: net, Addr: serverAddr, Handler: h}
	hasStarted := make(chan struct{})
	srv.NotifyStartedFunc = func() {
		close(hasStarted)
	}

	failed := make(chan error, 1)
	go func() {
		failed <- srv.ListenAndServe()
	}()

	select {
	case <-hasStarted:
	case err := <-failed:
		panic("Setup of Server failed:" + err.Error())
	}

	return srv
}

// StartResponder starts a Responder on both udp and tcp at serverAddr. Call the
// returned function to shut both down.
func StartResponder(serverAddr string) (*Responder, func()) {
	r := NewResponder()
	udp := StartServer("udp", serverAddr, r)
	tcp := StartServer("tcp", serverAddr, r)

	return r, func() {
		udp.Shutdown()
		tcp.Shutdown()
	}
}
