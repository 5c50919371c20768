package callbacks

import "fmt"

const (
	// MarkUnset is the mark value for a context which carries no socket mark.
	MarkUnset uint32 = 0

	// NetIDUnset means "use the default network".
	NetIDUnset uint32 = 0

	// TagSystemDNS is the traffic tag handed to TagSocket for resolver sockets.
	TagSystemDNS uint32 = 0xFFFFFF82
)

// NetContext identifies who a request is made for and which network it is made on. The
// app* fields describe the caller's network selection and the dns* fields the network
// the query is actually sent on, which may differ when a VPN or private DNS is in
// effect. NetContext is passed by value and never modified once a request has been
// admitted.
type NetContext struct {
	AppNetID uint32
	AppMark  uint32
	DNSNetID uint32
	DNSMark  uint32
	UID      uint32
	PID      int32
}

func (t NetContext) String() string {
	return fmt.Sprintf("app=%d/0x%x dns=%d/0x%x uid=%d pid=%d",
		t.AppNetID, t.AppMark, t.DNSNetID, t.DNSMark, t.UID, t.PID)
}
