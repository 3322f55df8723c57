// Package resources describes the files the agent renders and the services
// that must be restarted when they change.
package resources

import (
	"path/filepath"
	"slices"
	"sort"
)

const (
	// DataPath is the root filesystem of the plumgrid LXC container.
	DataPath = "/var/lib/libvirt/filesystems/plumgrid-data"

	ServiceName = "plumgrid"

	// GatewayContext is the name the gateway context provider registers under.
	GatewayContext = "gateway"
)

var (
	PGConf      = filepath.Join(DataPath, "conf/pg/plumgrid.conf")
	PGHostname  = filepath.Join(DataPath, "conf/etc/hostname")
	PGHosts     = filepath.Join(DataPath, "conf/etc/hosts")
	PGIfcsConf  = filepath.Join(DataPath, "conf/pg/ifcs.conf")
	AuthKeyPath = filepath.Join(DataPath, "root/.ssh/authorized_keys")

	SudoersConf = "/etc/sudoers.d/ifc_ctl_sudoers"
)

// Entry binds a rendered file to the services it affects and the context
// providers, by name, that supply its template data.
type Entry struct {
	Path     string
	Services []string
	Contexts []string
}

// Map is an ordered set of entries keyed by path.
type Map struct {
	entries []Entry
}

// New builds the resource map. Every call returns an independent value.
func New() Map {
	return Map{entries: []Entry{
		{Path: PGConf, Services: []string{ServiceName}, Contexts: []string{GatewayContext}},
		{Path: PGHostname, Services: []string{ServiceName}, Contexts: []string{GatewayContext}},
		{Path: PGHosts, Services: []string{ServiceName}, Contexts: []string{GatewayContext}},
		{Path: PGIfcsConf, Services: []string{}, Contexts: []string{GatewayContext}},
	}}
}

// Entries returns a copy of the entries in rendering order.
func (m Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{
			Path:     e.Path,
			Services: slices.Clone(e.Services),
			Contexts: slices.Clone(e.Contexts),
		}
	}
	return out
}

// Paths returns the file paths in rendering order.
func (m Map) Paths() []string {
	paths := make([]string, len(m.entries))
	for i, e := range m.entries {
		paths[i] = e.Path
	}
	return paths
}

// Lookup returns the entry for path.
func (m Map) Lookup(path string) (Entry, bool) {
	for _, e := range m.Entries() {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (m Map) Len() int { return len(m.entries) }

// RestartMap projects the map to path -> services.
func (m Map) RestartMap() map[string][]string {
	out := make(map[string][]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Path] = slices.Clone(e.Services)
	}
	return out
}

// ServicesFor returns the sorted, de-duplicated services affected by changed paths.
func (m Map) ServicesFor(changed []string) []string {
	restart := m.RestartMap()
	seen := map[string]struct{}{}
	for _, p := range changed {
		for _, svc := range restart[p] {
			seen[svc] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for svc := range seen {
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}
