package network

import (
	"errors"
	"sync"

	"github.com/vishvananda/netlink"
)

var netlinkLock sync.Mutex

// Netlinker is the subset of netlink the tuner needs.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	LinkSetMTU(link netlink.Link, mtu int) error
}

// RealNetlinker talks to the kernel.
type RealNetlinker struct{}

func (RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (RealNetlinker) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

func (RealNetlinker) LinkSetMTU(link netlink.Link, mtu int) error {
	netlinkLock.Lock()
	defer netlinkLock.Unlock()
	return netlink.LinkSetMTU(link, mtu)
}

func isLinkNotFound(err error) bool {
	var nf netlink.LinkNotFoundError
	return errors.As(err, &nf)
}
