package resolver

import (
	"context"
	"net"

	"github.com/markdingo/netresolv/log"
)

type resolver struct {
	netResolver net.Resolver
}

// NewResolver creates a fully formed resolver which is ready to use.
func NewResolver() *resolver {
	return &resolver{}
}

func (t *resolver) LookupPort(ctx context.Context, network, service string) (int, error) {
	port, err := t.netResolver.LookupPort(ctx, network, service)
	if log.IfDebug() {
		LogPort(network, service, port, "net", err)
	}

	return port, err
}
