package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// Tuner applies the configured MTU to the fabric interface.
type Tuner struct {
	inspector BridgeInspector
	nl        Netlinker
	logger    *logger.Logger
}

func NewTuner(inspector BridgeInspector, nl Netlinker, log *logger.Logger) *Tuner {
	return &Tuner{inspector: inspector, nl: nl, logger: log}
}

// InterfaceType reports the fabric interface.
func (t *Tuner) InterfaceType(ctx context.Context) (string, error) {
	return t.inspector.InterfaceType(ctx)
}

// EnsureMTU sets mtu on the fabric interface and, when that is the bridge, on
// its eth members first. Every link is attempted; the first error is returned.
func (t *Tuner) EnsureMTU(ctx context.Context, mtu int) error {
	if mtu <= 0 {
		t.logger.Info("network-device-mtu not set, leaving MTU alone")
		return nil
	}

	iface, err := t.inspector.InterfaceType(ctx)
	if err != nil {
		return fmt.Errorf("failed to detect fabric interface: %w", err)
	}

	var links []string
	if iface == Bridge {
		members, err := t.inspector.Members(ctx)
		if err != nil {
			return fmt.Errorf("failed to list %s members: %w", Bridge, err)
		}
		for _, m := range members {
			if strings.Contains(m, "eth") {
				links = append(links, m)
			}
		}
	}
	links = append(links, iface)

	var first error
	for _, name := range links {
		if err := t.setMTU(name, mtu); err != nil {
			t.logger.WithError(err).Warnf("Failed to set MTU %d on %s", mtu, name)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (t *Tuner) setMTU(name string, mtu int) error {
	link, err := t.nl.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to find interface %s: %w", name, err)
	}
	if link.Attrs().MTU == mtu {
		t.logger.Debugf("%s already at MTU %d", name, mtu)
		return nil
	}
	if err := t.nl.LinkSetMTU(link, mtu); err != nil {
		return fmt.Errorf("failed to set MTU on %s: %w", name, err)
	}
	t.logger.Infof("Set MTU %d on %s", mtu, name)
	return nil
}
