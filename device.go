// Package aravis is the device session facade (spec.md §4.7): it
// constructs a control channel, uses it to discover capability and
// fetch the GenICam schema, keeps a control-privilege lease alive,
// and exposes memory I/O, MTU probing, stream creation and IP
// configuration to applications. The orchestration shape — one
// session struct built up in independently-fallible stages — is
// grounded on the teacher's cmd/gnbsim.go (GnbsimSession / initConfig
// / initRAN / initUEs) and example/example.go's testSession wrapper.
package aravis

import (
	"context"
	"net"
	"sync"

	"github.com/OverviewCorporation/aravis/bootstrap"
	"github.com/OverviewCorporation/aravis/genicam"
	"github.com/OverviewCorporation/aravis/gvcp"
	"github.com/OverviewCorporation/aravis/stream"
)

// Device is a single GigE Vision device session: one control channel,
// its privilege lease and heartbeat, its fetched schema, and (once
// created) one active stream.
type Device struct {
	session *gvcp.Session
	cfg     gvcp.Config
	logger  gvcp.Logger
	metrics *gvcp.Metrics

	receiver         stream.Receiver
	evaluatorFactory bootstrap.EvaluatorFactory
	httpFetcher      bootstrap.HTTPFetcher

	ifaceAddr  net.IP
	deviceAddr net.IP

	mu       sync.Mutex
	schema   *bootstrap.CachedSchema
	initialized bool
	torndown bool

	activeStream stream.Stream
}

// Option configures NewDevice.
type Option func(*Device)

// WithLogger overrides the default stdlib-log-backed Logger.
func WithLogger(l gvcp.Logger) Option { return func(d *Device) { d.logger = l } }

// WithMetrics attaches a Prometheus metrics set to the session.
func WithMetrics(m *gvcp.Metrics) Option { return func(d *Device) { d.metrics = m } }

// WithConfig overrides gvcp.DefaultConfig().
func WithConfig(c gvcp.Config) Option { return func(d *Device) { d.cfg = c } }

// WithStreamReceiver supplies the external streaming receiver used by
// CreateStream.
func WithStreamReceiver(r stream.Receiver) Option { return func(d *Device) { d.receiver = r } }

// WithEvaluatorFactory supplies the constructor for the external
// GenICam evaluator. Required: construction fails without one.
func WithEvaluatorFactory(f bootstrap.EvaluatorFactory) Option {
	return func(d *Device) { d.evaluatorFactory = f }
}

// WithHTTPFetcher overrides the default net/http-backed fetcher used
// when the schema URL scheme is "http".
func WithHTTPFetcher(f bootstrap.HTTPFetcher) Option {
	return func(d *Device) { d.httpFetcher = f }
}

// Session exposes the underlying control channel for callers that
// need primitives Device doesn't wrap directly (e.g. the BigEndian,
// SupportsPacketResend and SupportsWriteMemory device flags).
func (d *Device) Session() *gvcp.Session { return d.session }

// Schema returns the cached XML bytes and digest fetched during
// construction (invariant I5: populated once, never mutated).
func (d *Device) Schema() *bootstrap.CachedSchema {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schema
}

// Evaluator returns the external GenICam evaluator constructed from
// the fetched schema, or nil if construction is incomplete.
func (d *Device) Evaluator() genicam.Evaluator {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.schema == nil {
		return nil
	}
	return d.schema.Evaluator
}

// IsController reports whether this device currently holds control
// privilege.
func (d *Device) IsController() bool { return d.session.IsController() }

// ReadMemory reads size bytes from the device starting at address,
// chunked automatically (spec.md §4.3).
func (d *Device) ReadMemory(ctx context.Context, address uint32, size int) ([]byte, error) {
	return d.session.ReadMemory(ctx, address, size)
}

// WriteMemory writes buf to the device starting at address, chunked
// automatically.
func (d *Device) WriteMemory(ctx context.Context, address uint32, buf []byte) error {
	return d.session.WriteMemory(ctx, address, buf)
}

// ReadRegister reads a single 4-byte register.
func (d *Device) ReadRegister(ctx context.Context, address uint32) (uint32, error) {
	return d.session.ReadRegister(ctx, address)
}

// WriteRegister writes a single 4-byte register.
func (d *Device) WriteRegister(ctx context.Context, address, value uint32) error {
	return d.session.WriteRegister(ctx, address, value)
}

// SetControlLostListener registers the callback invoked when the
// heartbeat observes that control privilege was lost (spec.md §4.4).
func (d *Device) SetControlLostListener(l gvcp.ControlLostListener) {
	d.session.SetControlLostListener(l)
}

// Stats returns a point-in-time snapshot of the session's counters.
func (d *Device) Stats() gvcp.Stats { return d.session.Stats() }
