package aravis

import (
	"context"
	"fmt"

	"github.com/OverviewCorporation/aravis/genicam"
	"github.com/OverviewCorporation/aravis/gvcp"
	"github.com/OverviewCorporation/aravis/stream"
)

// CreateStream delegates stream creation to the external streaming
// receiver (spec.md §4.7). It requires control privilege, consults
// the packet-size-adjustment policy, runs the MTU probe when the
// policy calls for it, and hands the negotiated packet size to the
// receiver.
func (d *Device) CreateStream(ctx context.Context, channel int) (stream.Stream, error) {
	if !d.IsController() {
		return nil, gvcp.NewError(gvcp.NotController, "CreateStream", nil)
	}
	if d.receiver == nil {
		return nil, gvcp.NewError(gvcp.Unknown, "CreateStream", fmt.Errorf("no stream receiver configured"))
	}

	evaluator := d.Evaluator()
	if evaluator == nil {
		return nil, gvcp.NewError(gvcp.GenICamNotFound, "CreateStream", nil)
	}

	count, err := d.session.ReadRegister(ctx, gvcp.RegNumStreamChannels)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, gvcp.NewError(gvcp.NoStreamChannel, "CreateStream", nil)
	}

	packetSize, err := d.negotiatePacketSize(ctx, evaluator, channel)
	if err != nil {
		return nil, err
	}

	cfg := stream.Config{
		DeviceAddress: d.deviceAddr.String(),
		HostAddress:   d.ifaceAddr.String(),
		PacketSize:    packetSize,
		ChannelIndex:  channel,
		Options:       stream.Options(d.cfg.StreamOptions),
	}

	s, err := d.receiver.Create(ctx, cfg)
	if err != nil {
		return nil, gvcp.NewError(gvcp.Unknown, "CreateStream", err)
	}

	d.mu.Lock()
	d.activeStream = s
	d.mu.Unlock()
	d.session.MarkFirstStreamCreated()
	return s, nil
}

// negotiatePacketSize consults the packet-size-adjustment policy
// (spec.md §6) and runs the MTU probe when called for.
func (d *Device) negotiatePacketSize(ctx context.Context, evaluator genicam.Evaluator, channel int) (int, error) {
	sizeFeature, err := evaluator.Integer("GevSCPSPacketSize")
	if err != nil {
		return 0, gvcp.NewError(gvcp.Unknown, "CreateStream", err)
	}

	policy := d.cfg.PacketSizeAdjustment
	firstStream := !d.session.FirstStreamCreated()

	runProbe := false
	exitEarly := false
	switch policy {
	case gvcp.PacketSizeNever:
		runProbe = false
	case gvcp.PacketSizeOnce:
		runProbe = firstStream
	case gvcp.PacketSizeAlways:
		runProbe = true
	case gvcp.PacketSizeOnFailure:
		runProbe = true
		exitEarly = true
	default: // PacketSizeOnFailureOnce
		runProbe = firstStream
		exitEarly = true
	}

	if !runProbe {
		current, err := sizeFeature.Value(ctx)
		if err != nil {
			return 0, gvcp.NewError(gvcp.Unknown, "CreateStream", err)
		}
		return int(current), nil
	}

	firer, err := d.testPacketFirer(evaluator)
	if err != nil {
		return 0, gvcp.NewError(gvcp.Unknown, "CreateStream", err)
	}

	probe := &gvcp.MTUProbe{
		Session:    d.session,
		PacketSize: sizeFeature,
		Firer:      firer,
		IfaceAddr:  d.ifaceAddr,
		Channel:    channel,
		Logger:     d.logger,
	}
	return probe.Run(ctx, exitEarly)
}

// testPacketFirer prefers a command-style fire-test-packet feature
// and falls back to a boolean toggle (spec.md §4.5 step 5).
func (d *Device) testPacketFirer(evaluator genicam.Evaluator) (gvcp.TestPacketFirer, error) {
	if cmd, err := evaluator.Command("GevSCPSFireTestPacket"); err == nil {
		return gvcp.NewCommandFirer(cmd), nil
	}
	if b, err := evaluator.Boolean("GevSCPSFireTestPacket"); err == nil {
		return gvcp.NewToggleFirer(b), nil
	}
	return nil, fmt.Errorf("device has no fire-test-packet feature")
}
