package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/vishvananda/netlink"
)

const (
	// Bridge is the bridge Juju creates on MAAS-provisioned hosts.
	Bridge = "juju-br0"
	// AWSInterface is used when the host has no bridge.
	AWSInterface = "eth0"
)

// Inspector kinds accepted by NewInspector.
const (
	InspectorBrctl   = "brctl"
	InspectorNetlink = "netlink"
)

// BridgeInspector decides which interface carries fabric traffic.
type BridgeInspector interface {
	// InterfaceType returns Bridge or AWSInterface.
	InterfaceType(ctx context.Context) (string, error)
	// Members returns the bridge's enslaved interfaces.
	Members(ctx context.Context) ([]string, error)
}

// NewInspector returns the inspector for kind.
func NewInspector(kind string, runner *cmdrunner.CommandsRunner, nl Netlinker) (BridgeInspector, error) {
	switch kind {
	case "", InspectorBrctl:
		return &BrctlInspector{runner: runner}, nil
	case InspectorNetlink:
		return &NetlinkInspector{nl: nl}, nil
	}
	return nil, fmt.Errorf("unknown bridge inspector %q", kind)
}

// BrctlInspector reads `brctl show juju-br0`.
type BrctlInspector struct {
	runner *cmdrunner.CommandsRunner
}

func NewBrctlInspector(runner *cmdrunner.CommandsRunner) *BrctlInspector {
	return &BrctlInspector{runner: runner}
}

func (b *BrctlInspector) show(ctx context.Context) (string, error) {
	out, err := b.runner.Output(ctx, "brctl", "show", Bridge)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// InterfaceType looks at the 11th token of the output, split on every single
// space, tab and newline. An empty or missing token means the bridge has no
// interfaces row.
func (b *BrctlInspector) InterfaceType(ctx context.Context) (string, error) {
	out, err := b.show(ctx)
	if err != nil {
		return "", err
	}
	tokens := splitEach(out)
	if len(tokens) <= 10 || tokens[10] == "" {
		return AWSInterface, nil
	}
	return Bridge, nil
}

// Members returns every word of the output that names an eth device.
func (b *BrctlInspector) Members(ctx context.Context) ([]string, error) {
	out, err := b.show(ctx)
	if err != nil {
		return nil, err
	}
	var members []string
	for _, w := range strings.Fields(out) {
		if strings.Contains(w, "eth") {
			members = append(members, w)
		}
	}
	return members, nil
}

// splitEach splits s at each space, tab and newline, keeping empty tokens.
func splitEach(s string) []string {
	tokens := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n':
			tokens = append(tokens, s[start:i])
			start = i + 1
		}
	}
	return append(tokens, s[start:])
}

// NetlinkInspector asks the kernel for the bridge and its slaves.
type NetlinkInspector struct {
	nl Netlinker
}

func NewNetlinkInspector(nl Netlinker) *NetlinkInspector {
	return &NetlinkInspector{nl: nl}
}

// InterfaceType returns Bridge whenever the bridge link exists, members or
// not, which is what brctl reports once the bridge row is printed.
func (n *NetlinkInspector) InterfaceType(ctx context.Context) (string, error) {
	if _, ok, err := n.bridge(ctx); err != nil || !ok {
		if err != nil {
			return "", err
		}
		return AWSInterface, nil
	}
	return Bridge, nil
}

func (n *NetlinkInspector) bridge(ctx context.Context) (netlink.Link, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	br, err := n.nl.LinkByName(Bridge)
	if err != nil {
		if isLinkNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up %s: %w", Bridge, err)
	}
	return br, true, nil
}

func (n *NetlinkInspector) Members(ctx context.Context) ([]string, error) {
	br, ok, err := n.bridge(ctx)
	if err != nil || !ok {
		return nil, err
	}

	links, err := n.nl.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	idx := br.Attrs().Index
	var members []string
	for _, l := range links {
		if l.Attrs().MasterIndex == idx {
			members = append(members, l.Attrs().Name)
		}
	}
	return members, nil
}
