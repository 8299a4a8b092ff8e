package aravis

import (
	"context"
	"net"

	"github.com/OverviewCorporation/aravis/bootstrap"
	"github.com/OverviewCorporation/aravis/gvcp"
	"github.com/OverviewCorporation/aravis/hostnet"
)

// NewDevice runs the construction sequence of spec.md §4.7: validate
// addresses, bind the control socket, load the schema (fatal on
// failure), take control (advisory), spawn the heartbeat, then probe
// device-mode and capability registers.
func NewDevice(ctx context.Context, ifaceAddr, deviceAddr net.IP, opts ...Option) (*Device, error) {
	d := &Device{
		cfg:              gvcp.DefaultConfig(),
		logger:           gvcp.DefaultLogger,
		httpFetcher:      bootstrap.DefaultHTTPFetcher{},
		ifaceAddr:        ifaceAddr,
		deviceAddr:       deviceAddr,
	}
	for _, opt := range opts {
		opt(d)
	}

	if ifaceAddr == nil || ifaceAddr.To4() == nil {
		return nil, gvcp.NewError(gvcp.InvalidParameter, "NewDevice", nil)
	}
	if deviceAddr == nil || deviceAddr.To4() == nil {
		return nil, gvcp.NewError(gvcp.InvalidParameter, "NewDevice", nil)
	}
	if d.evaluatorFactory == nil {
		return nil, gvcp.NewError(gvcp.InvalidParameter, "NewDevice", nil)
	}

	if _, err := hostnet.ResolveBindAddr(ifaceAddr); err != nil {
		// Netlink may be unavailable in the caller's environment
		// (non-Linux, sandboxed); this check is a diagnostic aid, not
		// a hard dependency of the protocol, so a failure here only
		// warns (spec.md §4.7 requires address *validity*, not that
		// the host OS expose netlink).
		d.logger.Printf("gvcp: warning: could not confirm %v is a local interface address: %v", ifaceAddr, err)
	}

	session, err := gvcp.Dial(ifaceAddr, deviceAddr, d.cfg, d.logger, d.metrics)
	if err != nil {
		return nil, err
	}
	d.session = session

	schema, err := d.loadSchema(ctx)
	if err != nil {
		session.Close()
		return nil, err
	}
	d.mu.Lock()
	d.schema = schema
	d.mu.Unlock()

	if err := session.TakeControl(ctx); err != nil {
		d.logger.Printf("gvcp: warning: take-control failed during construction: %v", err)
	}
	session.StartHeartbeat()

	if err := d.probeDeviceMode(ctx); err != nil {
		d.logger.Printf("gvcp: warning: device-mode probe failed: %v", err)
	}
	if err := d.probeCapability(ctx); err != nil {
		d.logger.Printf("gvcp: warning: capability probe failed: %v", err)
	}

	d.mu.Lock()
	d.initialized = true
	d.mu.Unlock()
	return d, nil
}

func (d *Device) loadSchema(ctx context.Context) (*bootstrap.CachedSchema, error) {
	b := bootstrap.New(d.session, d.logger)
	b.HTTPFetcher = d.httpFetcher

	readSlot := func(ctx context.Context, slot int) (string, error) {
		addr := gvcp.RegFirstURL
		if slot == 1 {
			addr = gvcp.RegSecondURL
		}
		data, err := d.session.ReadMemory(ctx, addr, bootstrap.XMLURLSize)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	schema, err := b.Load(ctx, readSlot, d.evaluatorFactory)
	if err != nil {
		return nil, gvcp.NewError(gvcp.GenICamNotFound, "NewDevice", err)
	}
	return schema, nil
}

func (d *Device) probeDeviceMode(ctx context.Context) error {
	mode, err := d.session.ReadRegister(ctx, gvcp.RegDeviceMode)
	if err != nil {
		return err
	}
	bigEndian := mode&gvcp.DeviceModeBigEndian != 0
	d.session.SetDeviceFlags(bigEndian, d.session.SupportsPacketResend(), d.session.SupportsWriteMemory())
	return nil
}

func (d *Device) probeCapability(ctx context.Context) error {
	capability, err := d.session.ReadRegister(ctx, gvcp.RegCapability)
	if err != nil {
		return err
	}
	packetResend := capability&gvcp.CapabilityPacketResend != 0
	writeMemory := capability&gvcp.CapabilityWriteMemory != 0
	d.session.SetDeviceFlags(d.session.BigEndian(), packetResend, writeMemory)
	return nil
}

// Close tears the session down: cancel the heartbeat, release
// control, close the stream (if any), close the socket. Idempotent
// (spec.md §4.7).
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.torndown {
		d.mu.Unlock()
		return nil
	}
	d.torndown = true
	activeStream := d.activeStream
	d.activeStream = nil
	d.schema = nil
	d.mu.Unlock()

	d.session.StopHeartbeat()
	if d.session.IsController() {
		if err := d.session.LeaveControl(ctx); err != nil {
			d.logger.Printf("gvcp: warning: leave-control failed during teardown: %v", err)
		}
	}
	if activeStream != nil {
		if err := activeStream.Close(); err != nil {
			d.logger.Printf("gvcp: warning: stream close failed during teardown: %v", err)
		}
	}
	return d.session.Close()
}
