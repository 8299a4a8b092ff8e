// Package hostnet validates that a caller-supplied interface address
// is actually bound to a local network interface before the facade
// binds its control socket to it. Adapted from the teacher's
// cmd/gnbsim_netlink.go::addIPv4Address, which walks netlink.AddrList
// looking for a link carrying a given address before adding one if
// missing; this package keeps the lookup half and drops the mutation
// half, since a GVCP session never needs to create host addresses.
package hostnet

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// ResolveBindAddr confirms addr is assigned to some local interface
// and returns that interface's name. It returns a plain error if addr
// is not IPv4, if the links cannot be listed, or if no local interface
// carries addr; aravis.NewDevice logs such an error as a warning and
// continues.
func ResolveBindAddr(addr net.IP) (string, error) {
	if addr == nil || addr.To4() == nil {
		return "", fmt.Errorf("hostnet: not an IPv4 address: %v", addr)
	}

	links, err := netlink.LinkList()
	if err != nil {
		return "", fmt.Errorf("hostnet: failed to list links: %w", err)
	}

	for _, link := range links {
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if a.IP.Equal(addr) {
				return link.Attrs().Name, nil
			}
		}
	}
	return "", fmt.Errorf("hostnet: no local interface carries address %v", addr)
}
