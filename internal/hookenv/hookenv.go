// Package hookenv wraps the hook tools the Juju agent puts on PATH while a
// hook runs. Every call is a single process invocation; nothing is cached.
package hookenv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// Workload status values accepted by status-set.
const (
	StatusMaintenance = "maintenance"
	StatusActive      = "active"
	StatusBlocked     = "blocked"
	StatusWaiting     = "waiting"
)

// Tools calls the hook tools through a command runner.
type Tools struct {
	runner *cmdrunner.CommandsRunner
	logger *logger.Logger
}

func New(runner *cmdrunner.CommandsRunner, log *logger.Logger) *Tools {
	return &Tools{runner: runner, logger: log}
}

// ConfigGetJSON returns every charm option as a JSON object.
func (t *Tools) ConfigGetJSON(ctx context.Context) ([]byte, error) {
	return t.runner.Output(ctx, "config-get", "--format=json")
}

// RelationIDs lists the ids of the named relation, e.g. "plumgrid:3".
func (t *Tools) RelationIDs(ctx context.Context, name string) ([]string, error) {
	var ids []string
	if err := t.jsonOutput(ctx, &ids, "relation-ids", "--format=json", name); err != nil {
		return nil, err
	}
	return ids, nil
}

// RelatedUnits lists the remote units on a relation id.
func (t *Tools) RelatedUnits(ctx context.Context, relID string) ([]string, error) {
	var units []string
	if err := t.jsonOutput(ctx, &units, "relation-list", "--format=json", "-r", relID); err != nil {
		return nil, err
	}
	return units, nil
}

// RelationGet reads one key a remote unit published on a relation.
func (t *Tools) RelationGet(ctx context.Context, relID, unit, key string) (string, error) {
	var value *string
	if err := t.jsonOutput(ctx, &value, "relation-get", "--format=json", "-r", relID, key, unit); err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// RelationAddresses collects the private-address of every unit on every
// instance of the named relation, sorted and without duplicates.
func (t *Tools) RelationAddresses(ctx context.Context, name string) ([]string, error) {
	ids, err := t.RelationIDs(ctx, name)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, id := range ids {
		units, err := t.RelatedUnits(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, unit := range units {
			addr, err := t.RelationGet(ctx, id, unit, "private-address")
			if err != nil {
				return nil, err
			}
			if addr != "" {
				seen[addr] = struct{}{}
			}
		}
	}

	addrs := make([]string, 0, len(seen))
	for addr := range seen {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs, nil
}

// StatusSet reports workload status. Failures are logged only.
func (t *Tools) StatusSet(ctx context.Context, status, message string) {
	if !logger.InHookContext() {
		t.logger.Debugf("status %s: %s", status, message)
		return
	}
	t.runner.Exec(ctx, cmdrunner.Tolerate, "failed to set workload status", "status-set", status, message)
}

func (t *Tools) jsonOutput(ctx context.Context, into any, name string, args ...string) error {
	out, err := t.runner.Output(ctx, name, args...)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(out))) == 0 {
		return nil
	}
	if err := json.Unmarshal(out, into); err != nil {
		return fmt.Errorf("failed to decode %s output: %w", name, err)
	}
	return nil
}
