package gvcp

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/OverviewCorporation/aravis/genicam"
)

// Protocol-defined packet-size bounds (ARV_GVSP_MINIMUM_PACKET_SIZE /
// ARV_GVSP_MAXIMUM_PACKET_SIZE, spec.md §4.5).
const (
	MinimumPacketSize = 576
	MaximumPacketSize = 16000

	// udpOverhead is the IPv4+UDP header overhead a test packet of
	// "size" bytes carries on the wire; the probe compares the
	// datagram payload actually received against size-udpOverhead.
	udpOverhead = 28

	testPacketWait    = 10 * time.Millisecond
	testPacketRetries = 3
)

// TestPacketFirer fires one GVSP test datagram of the device's
// currently configured packet size. The feature backing it may be a
// GenICam command node or a boolean toggle (spec.md §4.5 step 5).
type TestPacketFirer interface {
	Fire(ctx context.Context) error
}

type commandFirer struct{ cmd genicam.CommandFeature }

func (f commandFirer) Fire(ctx context.Context) error { return f.cmd.Execute(ctx) }

// NewCommandFirer adapts a GenICam command feature to TestPacketFirer.
func NewCommandFirer(cmd genicam.CommandFeature) TestPacketFirer { return commandFirer{cmd} }

type toggleFirer struct{ b genicam.BooleanFeature }

func (f toggleFirer) Fire(ctx context.Context) error {
	if err := f.b.SetValue(ctx, false); err != nil {
		return err
	}
	return f.b.SetValue(ctx, true)
}

// NewToggleFirer adapts a GenICam boolean feature to TestPacketFirer.
func NewToggleFirer(b genicam.BooleanFeature) TestPacketFirer { return toggleFirer{b} }

// MTUProbe runs the bisection search of spec.md §4.5 over a dedicated
// ephemeral UDP socket, separate from the control channel's socket.
type MTUProbe struct {
	Session     *Session
	PacketSize  genicam.IntegerFeature
	Firer       TestPacketFirer
	IfaceAddr   net.IP
	Channel     int
	Logger      Logger
}

// Run picks the largest packet size that traverses the path
// unfragmented and is delivered, writes it to the packet-size
// feature, and returns it (spec.md §4.5). exitEarly requests testing
// the currently configured size first and stopping if it succeeds,
// used by the ON_FAILURE* adjustment policies.
func (p *MTUProbe) Run(ctx context.Context, exitEarly bool) (int, error) {
	logger := p.Logger
	if logger == nil {
		logger = DefaultLogger
	}

	minV, err := p.PacketSize.Min(ctx)
	if err != nil {
		return 0, newErr(Unknown, "MTUProbe", err)
	}
	maxV, err := p.PacketSize.Max(ctx)
	if err != nil {
		return 0, newErr(Unknown, "MTUProbe", err)
	}
	inc, err := p.PacketSize.Inc(ctx)
	if err != nil {
		return 0, newErr(Unknown, "MTUProbe", err)
	}
	if inc <= 0 {
		inc = 1
	}

	min := clampInt(minV, MinimumPacketSize, MaximumPacketSize)
	max := clampInt(maxV, MinimumPacketSize, MaximumPacketSize)

	if max < min || inc > max-min {
		current, err := p.PacketSize.Value(ctx)
		if err != nil {
			return 0, newErr(Unknown, "MTUProbe", err)
		}
		return int(current), nil
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: p.IfaceAddr, Port: 0})
	if err != nil {
		return 0, newErr(Unknown, "MTUProbe", err)
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetDontFragment(true); err != nil {
		logger.Printf("gvcp: mtu probe: SetDontFragment failed: %v", err)
	}
	defer pc.SetDontFragment(false)

	hostPort := conn.LocalAddr().(*net.UDPAddr).Port
	if err := p.Session.WriteRegister(ctx, streamHostPortRegister(p.Channel), uint32(hostPort)); err != nil {
		return 0, err
	}
	if err := p.Session.WriteRegister(ctx, streamDestAddrRegister(p.Channel), ipToUint32(p.IfaceAddr)); err != nil {
		return 0, err
	}

	if exitEarly {
		current, err := p.PacketSize.Value(ctx)
		if err == nil && p.probeSize(ctx, conn, int(current)) {
			return int(current), nil
		}
	}

	accepted := min
	current := min
	prev := -1
	for current != prev && min+int(inc) < max {
		prev = current
		candidate := min + roundDownToInc(int64((max-min)/2+1), inc)
		if candidate <= min {
			candidate = min + int(inc)
		}
		if candidate >= max {
			candidate = max
		}
		current = candidate

		if err := p.PacketSize.SetValue(ctx, int64(current)); err != nil {
			return 0, newErr(Unknown, "MTUProbe", err)
		}
		if p.probeSize(ctx, conn, current) {
			accepted = current
			min = current
		} else {
			max = current
		}
	}

	if err := p.PacketSize.SetValue(ctx, int64(accepted)); err != nil {
		return 0, newErr(Unknown, "MTUProbe", err)
	}
	return accepted, nil
}

// probeSize fires the test packet up to testPacketRetries times and
// reports whether an acceptably-sized datagram arrived within
// testPacketWait (spec.md §4.5 step 5).
func (p *MTUProbe) probeSize(ctx context.Context, conn *net.UDPConn, size int) bool {
	want := size - udpOverhead
	buf := make([]byte, MaximumPacketSize)

	for attempt := 0; attempt < testPacketRetries; attempt++ {
		if err := p.Firer.Fire(ctx); err != nil {
			continue
		}
		if err := conn.SetReadDeadline(time.Now().Add(testPacketWait)); err != nil {
			continue
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		if n == want {
			return true
		}
		// wrong-sized datagram: discard and retry (spec.md §4.5 step 5).
	}
	return false
}

func clampInt(v int64, lo, hi int) int {
	iv := int(v)
	if iv < lo {
		return lo
	}
	if iv > hi {
		return hi
	}
	return iv
}

// roundDownToInc rounds v down to the nearest multiple of inc.
func roundDownToInc(v int64, inc int64) int {
	if inc <= 0 {
		return int(v)
	}
	return int((v / inc) * inc)
}

func ipToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}
