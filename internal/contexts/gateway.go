package contexts

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
)

// DirectorRelation is the relation carrying the PLUMgrid directors.
const DirectorRelation = "plumgrid"

// RelationReader resolves the addresses published on a relation.
type RelationReader interface {
	RelationAddresses(ctx context.Context, name string) ([]string, error)
}

// InterfaceDetector names the interface the gateway fabric runs on.
type InterfaceDetector interface {
	InterfaceType(ctx context.Context) (string, error)
}

// GatewayContext feeds plumgrid.conf, hostname, hosts and ifcs.conf.
type GatewayContext struct {
	Relations          RelationReader
	Interfaces         InterfaceDetector
	ExternalInterfaces []string

	// Hostname and FQDN default to the host's own values.
	Hostname func() (string, error)
	FQDN     func(host string) string
}

func (g *GatewayContext) Name() string { return "gateway" }

func (g *GatewayContext) Context(ctx context.Context) (Context, error) {
	directors, err := g.Relations.RelationAddresses(ctx, DirectorRelation)
	if err != nil {
		return nil, fmt.Errorf("failed to read director addresses: %w", err)
	}
	if len(directors) == 0 {
		return nil, fmt.Errorf("no directors on %q relation: %w", DirectorRelation, ErrIncomplete)
	}

	hostnameFn := g.Hostname
	if hostnameFn == nil {
		hostnameFn = os.Hostname
	}
	hostname, err := hostnameFn()
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %w", err)
	}
	// Juju hostnames may come back fully qualified; the short name is the label.
	short := strings.SplitN(hostname, ".", 2)[0]

	fqdnFn := g.FQDN
	if fqdnFn == nil {
		fqdnFn = lookupFQDN
	}

	iface, err := g.Interfaces.InterfaceType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect fabric interface: %w", err)
	}

	ext := g.ExternalInterfaces
	if ext == nil {
		ext = []string{}
	}

	return Context{
		"director_ips":   directors,
		"pg_hostname":    short,
		"pg_fqdn":        fqdnFn(short),
		"interface":      iface,
		"label":          short,
		"fabric_mode":    "host",
		"ext_interfaces": ext,
	}, nil
}

func lookupFQDN(host string) string {
	cname, err := net.LookupCNAME(host)
	if err != nil || cname == "" {
		return host
	}
	return strings.TrimSuffix(cname, ".")
}
