// Package openstack resolves the OpenStack release a host runs, the way the
// rest of the deployment names it (kilo, liberty, ...).
package openstack

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// Releases lists codenames oldest first.
var Releases = []string{
	"diablo", "essex", "folsom", "grizzly", "havana", "icehouse", "juno",
	"kilo", "liberty", "mitaka", "newton", "ocata", "pike", "queens",
}

// nova package versions by codename. Date-based versions before liberty
// are keyed "year.minor"; later ones by major version.
var codenames = map[string]string{
	"2011.3": "diablo",
	"2012.1": "essex",
	"2012.2": "folsom",
	"2013.1": "grizzly",
	"2013.2": "havana",
	"2014.1": "icehouse",
	"2014.2": "juno",
	"2015.1": "kilo",
	"12":     "liberty",
	"13":     "mitaka",
	"14":     "newton",
	"15":     "ocata",
	"16":     "pike",
	"17":     "queens",
}

// CodenameForVersion maps a Debian package version such as
// "2:12.0.0-0ubuntu1~cloud0" to its release codename.
func CodenameForVersion(pkgVersion string) (string, error) {
	v := pkgVersion
	if i := strings.Index(v, ":"); i >= 0 {
		v = v[i+1:]
	}
	if i := strings.LastIndex(v, "-"); i >= 0 {
		v = v[:i]
	}
	if i := strings.IndexAny(v, "~+"); i >= 0 {
		v = v[:i]
	}

	sv, err := semver.NewVersion(v)
	if err != nil {
		return "", fmt.Errorf("failed to parse package version %q: %w", pkgVersion, err)
	}

	key := fmt.Sprintf("%d", sv.Major())
	if sv.Major() >= 2000 {
		key = fmt.Sprintf("%d.%d", sv.Major(), sv.Minor())
	}
	name, ok := codenames[key]
	if !ok {
		return "", fmt.Errorf("no OpenStack release for version %s", v)
	}
	return name, nil
}

// Index returns the position of release in Releases, or -1.
func Index(release string) int {
	return slices.Index(Releases, release)
}

// UpTo returns release and every older release, newest first. An unknown
// release yields just itself.
func UpTo(release string) []string {
	i := Index(release)
	if i < 0 {
		return []string{release}
	}
	out := slices.Clone(Releases[:i+1])
	slices.Reverse(out)
	return out
}

// Resolver reads installed package versions through dpkg.
type Resolver struct {
	runner *cmdrunner.CommandsRunner
	logger *logger.Logger
}

func NewResolver(runner *cmdrunner.CommandsRunner, log *logger.Logger) *Resolver {
	return &Resolver{runner: runner, logger: log}
}

// OSRelease returns the codename for the installed version of pkg, or base
// when the package is missing or its version is not recognised.
func (r *Resolver) OSRelease(ctx context.Context, pkg, base string) string {
	version, err := r.runner.RunAndTrimmedOutput(ctx, "dpkg-query", "-W", "-f=${Version}", pkg)
	if err != nil || version == "" {
		r.logger.Debugf("%s not installed, using release %s", pkg, base)
		return base
	}

	name, err := CodenameForVersion(version)
	if err != nil {
		r.logger.WithError(err).Warnf("falling back to release %s", base)
		return base
	}
	return name
}
