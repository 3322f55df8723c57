package network

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vishvananda/netlink"
)

type MockNetlinker struct {
	mock.Mock
}

func (m *MockNetlinker) LinkByName(name string) (netlink.Link, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(netlink.Link), args.Error(1)
}

func (m *MockNetlinker) LinkList() ([]netlink.Link, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]netlink.Link), args.Error(1)
}

func (m *MockNetlinker) LinkSetMTU(link netlink.Link, mtu int) error {
	args := m.Called(link, mtu)
	return args.Error(0)
}

type staticInspector struct {
	iface   string
	members []string
	err     error
}

func (s staticInspector) InterfaceType(context.Context) (string, error) { return s.iface, s.err }

func (s staticInspector) Members(context.Context) ([]string, error) { return s.members, s.err }

func device(name string, index, master, mtu int) *netlink.Device {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name, Index: index, MasterIndex: master, MTU: mtu}}
}
