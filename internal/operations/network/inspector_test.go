package network

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plumgrid/pg-gateway/internal/cmdrunner"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

const (
	brctlHeader  = "bridge name\tbridge id\t\tSTP enabled\tinterfaces\n"
	brctlBridged = brctlHeader + "juju-br0\t\t8000.525400aabbcc\tno\t\teth0\n\t\t\t\t\t\t\teth1\n"
)

func brctl(stdout string, err error) *BrctlInspector {
	fake := cmdrunner.NewFakeExecutor().On("brctl show juju-br0", cmdrunner.FakeResponse{Stdout: stdout, Err: err})
	return NewBrctlInspector(cmdrunner.NewCommandsRunnerWith(fake, logger.NewNopLogger("network")))
}

func TestSplitEachKeepsEmptyTokens(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b", "c", ""}, splitEach("a\t\tb c\n"))
	assert.Equal(t, []string{""}, splitEach(""))
}

func TestBrctlInterfaceType(t *testing.T) {
	cases := []struct {
		name   string
		stdout string
		want   string
	}{
		{"populated bridge", brctlBridged, Bridge},
		{"header only", brctlHeader, AWSInterface},
		{"empty output", "", AWSInterface},
		{"eleventh token empty", strings.Repeat("x ", 10) + " tail", AWSInterface},
		{"eleventh token set", strings.Repeat("x ", 10) + "y", Bridge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := brctl(tc.stdout, nil).InterfaceType(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBrctlMembers(t *testing.T) {
	members, err := brctl(brctlBridged, nil).Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eth0", "eth1"}, members)
}

func TestBrctlFailure(t *testing.T) {
	b := brctl("", errors.New("executable file not found"))
	_, err := b.InterfaceType(context.Background())
	assert.Error(t, err)
	_, err = b.Members(context.Background())
	assert.Error(t, err)
}

func TestNetlinkInspector(t *testing.T) {
	nl := new(MockNetlinker)
	br := device(Bridge, 7, 0, 1500)
	nl.On("LinkByName", Bridge).Return(br, nil)
	nl.On("LinkList").Return([]netlink.Link{
		device("lo", 1, 0, 65536),
		device("eth0", 2, 7, 1500),
		device("eth1", 3, 0, 1500),
		br,
		device("veth-a", 9, 7, 1500),
	}, nil)

	insp := NewNetlinkInspector(nl)
	members, err := insp.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eth0", "veth-a"}, members)

	iface, err := insp.InterfaceType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Bridge, iface)
	nl.AssertExpectations(t)
}

func TestNetlinkInspectorWithoutBridge(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByName", Bridge).Return(nil, netlink.LinkNotFoundError{})

	iface, err := NewNetlinkInspector(nl).InterfaceType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AWSInterface, iface)
	nl.AssertNotCalled(t, "LinkList")
}

func TestNetlinkInspectorEmptyBridge(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByName", Bridge).Return(device(Bridge, 7, 0, 1500), nil)
	nl.On("LinkList").Return([]netlink.Link{device("eth0", 2, 0, 1500)}, nil)

	i := NewNetlinkInspector(nl)
	iface, err := i.InterfaceType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Bridge, iface)

	members, err := i.Members(context.Background())
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestInspectorsAgree(t *testing.T) {
	cases := []struct {
		name  string
		brctl string
		link  netlink.Link
		err   error
		want  string
	}{
		{
			name:  "bridge with members",
			brctl: brctlBridged,
			link:  device(Bridge, 7, 0, 1500),
			want:  Bridge,
		},
		{
			name:  "bridge without members",
			brctl: brctlHeader + "juju-br0\t\t8000.525400aabbcc\tno\t\t\n",
			link:  device(Bridge, 7, 0, 1500),
			want:  Bridge,
		},
		{
			name:  "no bridge",
			brctl: brctlHeader,
			err:   netlink.LinkNotFoundError{},
			want:  AWSInterface,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nl := new(MockNetlinker)
			nl.On("LinkByName", Bridge).Return(tc.link, tc.err)

			fromBrctl, err := brctl(tc.brctl, nil).InterfaceType(context.Background())
			require.NoError(t, err)
			fromNetlink, err := NewNetlinkInspector(nl).InterfaceType(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tc.want, fromBrctl)
			assert.Equal(t, fromBrctl, fromNetlink)
			nl.AssertNotCalled(t, "LinkList")
		})
	}
}

func TestNetlinkInspectorErrors(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkByName", Bridge).Return(nil, errors.New("permission denied"))
	_, err := NewNetlinkInspector(nl).Members(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestNewInspector(t *testing.T) {
	runner := cmdrunner.NewCommandsRunnerWith(cmdrunner.NewFakeExecutor(), logger.NewNopLogger("network"))

	i, err := NewInspector("", runner, RealNetlinker{})
	require.NoError(t, err)
	assert.IsType(t, &BrctlInspector{}, i)

	i, err = NewInspector(InspectorNetlink, runner, RealNetlinker{})
	require.NoError(t, err)
	assert.IsType(t, &NetlinkInspector{}, i)

	_, err = NewInspector("ip", runner, RealNetlinker{})
	assert.Error(t, err)
}
