package dnsutil

const (
	TCPNetwork = "tcp" // Yeah, yea, a bit silly, but case is important
	UDPNetwork = "udp" // so having consts here avoids pernickety errors

	DefaultService = "domain" // Appended to nameserver addresses lacking a port

	MaxUDPSize uint16 = 1232 // Generally suggested as universally safe in edns0

	MaxSearchDomains = 6 // Same limit as resolv.conf
	MaxNameservers   = 4 // Additional servers are ignored
	DefaultNdots     = 1 // Fewer dots than this tries the search list first
	MaxDomainNameLen = 255
)
