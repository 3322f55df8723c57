package services

import (
	"context"
	"errors"
	"testing"

	"github.com/plumgrid/pg-gateway/internal/config"
	"github.com/plumgrid/pg-gateway/internal/resources"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(r *recorder, changed []string) *Services {
	cfg := config.DefaultConfig()
	cfg.Charm.LCMSSHKey = "ssh-rsa AAAA lcm"
	return NewServicesWith(cfg, Deps{
		Packages:   fakePackages{r},
		Modules:    fakeModules{r},
		Files:      fakeFiles{r},
		Tuner:      fakeTuner{r},
		Renderer:   fakeRenderer{r: r, changed: changed},
		Controller: newController(r),
		Status:     fakeStatus{r},
		Logs:       fakeLogs{r},
	}, logger.NewNopLogger("services"))
}

var restartCalls = []string{"stop plumgrid", "sleep 2s", "flush", "start plumgrid", "sleep 5s"}

func TestInstall(t *testing.T) {
	r := newRecorder()
	require.NoError(t, newTestServices(r, nil).Install(context.Background()))

	assert.Equal(t, []string{
		"status-set maintenance",
		"install plumgrid-lxc iovisor-dkms",
		"modprobe iovisor",
		"mtu 1580",
		"ensure-files",
		"add-key ssh-rsa AAAA lcm",
		"status-set waiting",
	}, r.calls)
}

func TestInstallFailureBlocks(t *testing.T) {
	r := newRecorder()
	r.fail["install"] = errors.New("apt broken")

	assert.ErrorContains(t, newTestServices(r, nil).Install(context.Background()), "apt broken")
	assert.Equal(t, "status-set blocked", r.calls[len(r.calls)-1])
	assert.NotContains(t, r.calls, "modprobe iovisor")
}

func TestConfigChanged(t *testing.T) {
	r := newRecorder()
	require.NoError(t, newTestServices(r, nil).ConfigChanged(context.Background()))

	want := []string{
		"status-set maintenance",
		"stop plumgrid", "sleep 2s",
		"modprobe iovisor",
		"mtu 1580",
		"ensure-files",
		"add-key ssh-rsa AAAA lcm",
		"write-all",
	}
	want = append(want, restartCalls...)
	want = append(want, "status-set active")
	assert.Equal(t, want, r.calls)
}

func TestUpgradeCharmMatchesConfigChanged(t *testing.T) {
	a, b := newRecorder(), newRecorder()
	require.NoError(t, newTestServices(a, nil).ConfigChanged(context.Background()))
	require.NoError(t, newTestServices(b, nil).UpgradeCharm(context.Background()))
	assert.Equal(t, a.calls, b.calls)
}

func TestConfigChangedMTUFailure(t *testing.T) {
	r := newRecorder()
	r.fail["mtu"] = errors.New("no such device")

	err := newTestServices(r, nil).ConfigChanged(context.Background())
	assert.ErrorContains(t, err, "failed to set MTU")
	assert.NotContains(t, r.calls, "write-all")
}

func TestStartRestarts(t *testing.T) {
	r := newRecorder()
	require.NoError(t, newTestServices(r, nil).Start(context.Background()))
	assert.Equal(t, append(append([]string{}, restartCalls...), "status-set active"), r.calls)
}

func TestStopRemovesModuleAndPackages(t *testing.T) {
	r := newRecorder()
	r.fail["rmmod"] = errors.New("module in use")

	require.NoError(t, newTestServices(r, nil).Stop(context.Background()))
	assert.Equal(t, []string{
		"status-set maintenance",
		"stop plumgrid", "sleep 2s",
		"rmmod iovisor",
		"purge plumgrid-lxc iovisor-dkms",
	}, r.calls)
}

func TestRelationChangedRestartsOnlyForServiceFiles(t *testing.T) {
	r := newRecorder()
	require.NoError(t, newTestServices(r, []string{resources.PGConf}).DirectorRelationChanged(context.Background()))
	assert.Equal(t, append(append([]string{"write-all"}, restartCalls...), "status-set active"), r.calls)

	r = newRecorder()
	require.NoError(t, newTestServices(r, []string{resources.PGIfcsConf}).GatewayRelationChanged(context.Background()))
	assert.Equal(t, []string{"write-all"}, r.calls)

	r = newRecorder()
	require.NoError(t, newTestServices(r, nil).DirectorRelationChanged(context.Background()))
	assert.Equal(t, []string{"write-all"}, r.calls)
}

func TestRenderOnlyManagedFiles(t *testing.T) {
	r := newRecorder()
	s := newTestServices(r, nil)

	out, err := s.Render(context.Background(), resources.PGHostname)
	require.NoError(t, err)
	assert.Equal(t, "rendered "+resources.PGHostname, string(out))

	_, err = s.Render(context.Background(), "/etc/passwd")
	assert.Error(t, err)
	assert.Equal(t, "kilo", s.Release())
}

func TestCloseRunsHook(t *testing.T) {
	closed := false
	s := NewServicesWith(config.DefaultConfig(), Deps{Close: func() { closed = true }}, logger.NewNopLogger("services"))
	s.Close()
	assert.True(t, closed)

	NewServicesWith(config.DefaultConfig(), Deps{}, logger.NewNopLogger("services")).Close()
}

func TestWriteConfigs(t *testing.T) {
	r := newRecorder()
	changed, err := newTestServices(r, []string{resources.PGHosts}).WriteConfigs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{resources.PGHosts}, changed)
	assert.Equal(t, []string{"write-all"}, r.calls)
}

func TestServiceLogs(t *testing.T) {
	r := newRecorder()
	entries, err := newTestServices(r, nil).ServiceLogs(5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"logs plumgrid.service 5"}, r.calls)

	entries, err = NewServicesWith(config.DefaultConfig(), Deps{}, logger.NewNopLogger("services")).ServiceLogs(5)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
