package packages

import (
	"context"
	"errors"
	"testing"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterminePackages(t *testing.T) {
	pkgs, err := DeterminePackages()
	require.NoError(t, err)
	assert.Equal(t, []string{"plumgrid-lxc", "iovisor-dkms"}, pkgs)

	pkgs[0] = "changed"
	again, err := DeterminePackages()
	require.NoError(t, err)
	assert.Equal(t, "plumgrid-lxc", again[0])
}

func TestPluginTable(t *testing.T) {
	plugins, err := Plugins()
	require.NoError(t, err)
	require.Contains(t, plugins, Plugin)
	assert.Contains(t, plugins[Plugin].ServerPackages, "neutron-plugin-plumgrid")

	_, err = parsePlugins([]byte("plumgrid: [unterminated"))
	assert.Error(t, err)
}

func TestInstall(t *testing.T) {
	fake := cmdrunner.NewFakeExecutor()
	inst := NewInstaller(cmdrunner.NewCommandsRunnerWith(fake, logger.NewNopLogger("packages")), logger.NewNopLogger("packages"))

	require.NoError(t, inst.Install(context.Background(), []string{"plumgrid-lxc", "iovisor-dkms"}))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "apt-get install -y --no-install-recommends plumgrid-lxc iovisor-dkms", fake.Calls[0].String())
	assert.Equal(t, []string{"DEBIAN_FRONTEND=noninteractive"}, fake.Calls[0].Env)

	require.NoError(t, inst.Install(context.Background(), nil))
	assert.Len(t, fake.Calls, 1, "empty list runs nothing")

	fake.On("apt-get install", cmdrunner.FakeResponse{Stderr: "E: Unable to locate package", Err: errors.New("exit status 100")})
	assert.ErrorContains(t, inst.Install(context.Background(), []string{"nope"}), "failed to install packages")
}

func TestPurgeIsBestEffort(t *testing.T) {
	fake := cmdrunner.NewFakeExecutor().On("apt-get purge", cmdrunner.FakeResponse{Err: errors.New("exit status 100")})
	inst := NewInstaller(cmdrunner.NewCommandsRunnerWith(fake, logger.NewNopLogger("packages")), logger.NewNopLogger("packages"))

	res := inst.Purge(context.Background(), []string{"plumgrid-lxc"})
	assert.Equal(t, cmdrunner.RecoverableFailure, res.Outcome)
	assert.NoError(t, res.AsError())
	assert.Equal(t, []string{"apt-get purge -y plumgrid-lxc"}, fake.CommandLines())
}
