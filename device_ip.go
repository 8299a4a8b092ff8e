package aravis

import (
	"context"
	"net"

	"github.com/OverviewCorporation/aravis/gvcp"
)

// CurrentIP returns the device's current IP address, subnet mask and
// gateway. These registers are read-only on the device (spec.md
// §4.7).
func (d *Device) CurrentIP(ctx context.Context) (addr, mask, gateway net.IP, err error) {
	a, err := d.session.ReadRegister(ctx, gvcp.RegCurrentIPAddress)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := d.session.ReadRegister(ctx, gvcp.RegCurrentIPMask)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := d.session.ReadRegister(ctx, gvcp.RegCurrentIPGateway)
	if err != nil {
		return nil, nil, nil, err
	}
	return uint32ToIP(a), uint32ToIP(m), uint32ToIP(g), nil
}

// PersistentIP returns the device's configured persistent IP address,
// subnet mask and gateway.
func (d *Device) PersistentIP(ctx context.Context) (addr, mask, gateway net.IP, err error) {
	a, err := d.session.ReadRegister(ctx, gvcp.RegPersistentIPAddress)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := d.session.ReadRegister(ctx, gvcp.RegPersistentIPMask)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := d.session.ReadRegister(ctx, gvcp.RegPersistentIPGateway)
	if err != nil {
		return nil, nil, nil, err
	}
	return uint32ToIP(a), uint32ToIP(m), uint32ToIP(g), nil
}

// SetPersistentIP writes the device's persistent IP configuration and
// flips the IP-configuration register's persistent bit so the device
// picks it up on next boot (spec.md §4.7). IPv4 strings only; IPv6
// input is rejected with InvalidParameter.
func (d *Device) SetPersistentIP(ctx context.Context, addr, mask, gateway string) error {
	a, err := parseIPv4(addr)
	if err != nil {
		return err
	}
	m, err := parseIPv4(mask)
	if err != nil {
		return err
	}
	g, err := parseIPv4(gateway)
	if err != nil {
		return err
	}

	if err := d.session.WriteRegister(ctx, gvcp.RegPersistentIPAddress, ipToUint32(a)); err != nil {
		return err
	}
	if err := d.session.WriteRegister(ctx, gvcp.RegPersistentIPMask, ipToUint32(m)); err != nil {
		return err
	}
	if err := d.session.WriteRegister(ctx, gvcp.RegPersistentIPGateway, ipToUint32(g)); err != nil {
		return err
	}

	mode, err := d.session.ReadRegister(ctx, gvcp.RegCurrentIPConfig)
	if err != nil {
		return err
	}
	return d.session.WriteRegister(ctx, gvcp.RegCurrentIPConfig, mode|gvcp.IPConfigPersistent)
}

func parseIPv4(s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, gvcp.NewError(gvcp.InvalidParameter, "parseIPv4", nil)
	}
	v4 := ip.To4()
	if v4 == nil {
		return nil, gvcp.NewError(gvcp.InvalidParameter, "parseIPv4", nil)
	}
	return v4, nil
}

func ipToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
