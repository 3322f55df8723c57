package firewall

import (
	"context"
	"fmt"

	"github.com/google/nftables"
	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// Backends accepted by New.
const (
	Iptables = "iptables"
	Nftables = "nftables"
)

// filterTable is the table iptables -F operates on by default.
const filterTable = "filter"

// Flusher drops the packet filter rules left behind by the gateway datapath.
type Flusher interface {
	Flush(ctx context.Context) error
}

// New returns the flusher for backend.
func New(backend string, runner *cmdrunner.CommandsRunner, log *logger.Logger) (Flusher, error) {
	switch backend {
	case "", Iptables:
		return &IptablesFlusher{runner: runner}, nil
	case Nftables:
		return &NftablesFlusher{dial: dialNftables, logger: log}, nil
	}
	return nil, fmt.Errorf("unknown firewall backend %q", backend)
}

// IptablesFlusher runs iptables -F.
type IptablesFlusher struct {
	runner *cmdrunner.CommandsRunner
}

func NewIptablesFlusher(runner *cmdrunner.CommandsRunner) *IptablesFlusher {
	return &IptablesFlusher{runner: runner}
}

func (f *IptablesFlusher) Flush(ctx context.Context) error {
	return f.runner.Exec(ctx, cmdrunner.Fatal, "failed to flush iptables rules", "iptables", "-F").AsError()
}

// Conn is the part of *nftables.Conn the flusher uses.
type Conn interface {
	ListChains() ([]*nftables.Chain, error)
	FlushChain(c *nftables.Chain)
	Flush() error
}

// NftablesFlusher empties every chain of the filter tables in one batch.
type NftablesFlusher struct {
	dial   func() (Conn, error)
	logger *logger.Logger
}

// NewNftablesFlusher builds a flusher over a custom connection factory.
func NewNftablesFlusher(dial func() (Conn, error), log *logger.Logger) *NftablesFlusher {
	return &NftablesFlusher{dial: dial, logger: log}
}

func dialNftables() (Conn, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open nftables connection: %w", err)
	}
	return conn, nil
}

func (f *NftablesFlusher) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := f.dial()
	if err != nil {
		return err
	}

	chains, err := conn.ListChains()
	if err != nil {
		return fmt.Errorf("failed to list chains: %w", err)
	}

	n := 0
	for _, c := range chains {
		if c.Table == nil || c.Table.Name != filterTable {
			continue
		}
		conn.FlushChain(c)
		n++
	}
	if n == 0 {
		f.logger.Debug("No filter chains to flush")
		return nil
	}

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush nftables chains: %w", err)
	}
	f.logger.Infof("Flushed %d nftables filter chains", n)
	return nil
}
