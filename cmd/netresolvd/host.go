package main

import (
	"github.com/markdingo/netresolv/callbacks"
	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
)

// hostCallbacks returns the callback Set netresolvd plays host with. Everyone may
// resolve, names within denyDomains are refused and everything else is logged.
func hostCallbacks(denyDomains []string) callbacks.Set {
	return callbacks.Set{
		CheckPermission: func(nc callbacks.NetContext) bool {
			return true
		},
		Log: func(msg string) {
			log.Minor("cb: ", msg)
		},
		TagSocket: func(fd int, tag, uid uint32, pid int32) error {
			if log.IfDebug() {
				log.Debugf("cb: tagSocket fd=%d tag=0x%x uid=%d pid=%d", fd, tag, uid, pid)
			}
			return nil
		},
		EvaluateDomainName: func(nc callbacks.NetContext, name string) bool {
			if parent := dnsutil.InAnyDomain(name, denyDomains); len(parent) > 0 {
				log.Minorf("cb: %s denied by --deny-domain %s for %s", name, parent, nc)
				return false
			}
			return true
		},
	}
}
