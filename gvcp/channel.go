package gvcp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// startIdentifier is the spec-mandated seed (spec.md §3): starting
// near the top of the 16-bit range exercises wraparound early.
const startIdentifier = 65300

// ControlLostListener is notified, out-of-band, when the heartbeat
// observes that control privilege has been lost (spec.md §4.4, §7).
type ControlLostListener func()

// Session owns the single UDP socket used for the command/ack
// exchange with one device, and the mutable state around it (spec.md
// §3). It is safe for concurrent use: exchange, ReadMemory,
// WriteMemory and the heartbeat all serialize through the same mutex.
type Session struct {
	cfg    Config
	logger Logger
	metric *Metrics

	conn       *net.UDPConn
	deviceAddr *net.UDPAddr

	mu      sync.Mutex
	lastID  uint16
	scratch []byte

	isController atomic.Bool

	// guarded by mu
	bigEndian            bool
	supportsPacketResend bool
	supportsWriteMemory  bool
	firstStreamCreated   bool

	leaseCancel context.CancelFunc
	leaseDone   chan struct{}
	listener    ControlLostListener

	stats Stats
}

// Stats is a point-in-time snapshot of a Session's counters,
// independent of the Prometheus wiring in metrics.go, for callers who
// don't run a metrics server (SPEC_FULL.md §8).
type Stats struct {
	IdentifiersIssued uint64
	Retries           uint64
	Timeouts          uint64
	ProtocolErrors    uint64
}

// Dial binds a UDP socket on ifaceAddr and prepares a Session talking
// to the device's control port (3956) at deviceAddr. It performs no
// protocol exchange; callers read capability/device-mode registers
// afterward (spec.md §4.7 construction sequence).
func Dial(ifaceAddr, deviceAddr net.IP, cfg Config, logger Logger, metric *Metrics) (*Session, error) {
	if ifaceAddr == nil || ifaceAddr.To4() == nil {
		return nil, newErr(InvalidParameter, "Dial", nil)
	}
	if deviceAddr == nil || deviceAddr.To4() == nil {
		return nil, newErr(InvalidParameter, "Dial", nil)
	}
	if logger == nil {
		logger = DefaultLogger
	}

	laddr := &net.UDPAddr{IP: ifaceAddr, Port: 0}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, newErr(Unknown, "Dial", err)
	}

	s := &Session{
		cfg:        cfg,
		logger:     logger,
		metric:     metric,
		conn:       conn,
		deviceAddr: &net.UDPAddr{IP: deviceAddr, Port: ControlPort},
		lastID:     startIdentifier - 1,
		scratch:    make([]byte, cfg.bufferSize()),
	}
	return s, nil
}

// ControlPort is the fixed GVCP control port (spec.md §3, §6).
const ControlPort = 3956

// Close releases the socket. It does not touch the privilege lease;
// callers stop that via StopHeartbeat first.
func (s *Session) Close() error {
	return s.conn.Close()
}

// IsController reports whether this session currently believes it
// holds control privilege. Read without the exchange lock (spec.md §5
// tolerates a stale read here).
func (s *Session) IsController() bool { return s.isController.Load() }

func (s *Session) SupportsPacketResend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supportsPacketResend
}

func (s *Session) SupportsWriteMemory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supportsWriteMemory
}

func (s *Session) BigEndian() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bigEndian
}

func (s *Session) SetDeviceFlags(bigEndian, packetResend, writeMemory bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bigEndian = bigEndian
	s.supportsPacketResend = packetResend
	s.supportsWriteMemory = writeMemory
}

func (s *Session) FirstStreamCreated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstStreamCreated
}

func (s *Session) MarkFirstStreamCreated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firstStreamCreated = true
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ReadRegister reads a single 4-byte register (spec.md §4.1, §4.2).
func (s *Session) ReadRegister(ctx context.Context, address uint32) (uint32, error) {
	ack, err := s.exchange(ctx, CmdReadRegister, func(id uint16) []byte {
		return encodeReadRegisterRequest(id, address)
	}, registerSize)
	if err != nil {
		return 0, err
	}
	value, decErr := readPayloadUint32(ack.payload)
	if decErr != nil {
		return 0, newErr(ProtocolError, "ReadRegister", decErr)
	}
	return value, nil
}

// WriteRegister writes a single 4-byte register.
func (s *Session) WriteRegister(ctx context.Context, address, value uint32) error {
	_, err := s.exchange(ctx, CmdWriteRegister, func(id uint16) []byte {
		return encodeWriteRegisterRequest(id, address, value)
	}, 0)
	return err
}

// readMemoryChunk issues one READ_MEMORY exchange for at most
// DataSizeMax bytes; Session.ReadMemory chunks larger ranges into
// calls to this (spec.md §4.3).
func (s *Session) readMemoryChunk(ctx context.Context, address uint32, size int) ([]byte, error) {
	ack, err := s.exchange(ctx, CmdReadMemory, func(id uint16) []byte {
		return encodeReadMemoryRequest(id, address, size)
	}, size)
	if err != nil {
		return nil, err
	}
	if len(ack.payload) < size {
		return nil, newErr(ProtocolError, "ReadMemory", nil)
	}
	out := make([]byte, size)
	copy(out, ack.payload[:size])
	return out, nil
}

// writeMemoryChunk issues one WRITE_MEMORY exchange for at most
// DataSizeMax bytes.
func (s *Session) writeMemoryChunk(ctx context.Context, address uint32, data []byte) error {
	_, err := s.exchange(ctx, CmdWriteMemory, func(id uint16) []byte {
		return encodeWriteMemoryRequest(id, address, data)
	}, 0)
	return err
}

// exchange implements the retry/pending-ack state machine of
// spec.md §4.2. buildFn receives the identifier to embed in the
// request and is called once per attempt, so every genuine retransmit
// carries a fresh identifier while the receive-loop iterations of one
// attempt keep the same one (Open Question (a): the identifier is not
// advanced by a pending-ack extension, only by a genuine retransmit).
func (s *Session) exchange(ctx context.Context, cmd uint16, buildFn func(id uint16) []byte, minPayload int) (ackFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.lastID = nextIdentifier(s.lastID)
	id := s.lastID
	s.stats.IdentifiersIssued++
	req := buildFn(id)
	wantAck := expectedAck(cmd)
	cmdName := commandName(cmd)

	var lastErr error
	for attempt := 0; attempt < s.cfg.Retries; attempt++ {
		if attempt > 0 {
			s.stats.Retries++
			s.metric.observeRetry(cmdName)
			s.lastID = nextIdentifier(s.lastID)
			id = s.lastID
			s.stats.IdentifiersIssued++
			req = buildFn(id)
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		if _, err := s.conn.WriteToUDP(req, s.deviceAddr); err != nil {
			s.logger.Printf("gvcp: warning: send failed (attempt %d): %v", attempt, err)
			lastErr = err
			continue
		}

		deadline := time.Now().Add(s.cfg.timeout())
		ack, conclusive, err := s.receiveUntil(deadline, wantAck, id, cmdName)
		if err != nil {
			lastErr = err
			continue // local/timeout error: proceed to next retry
		}
		if conclusive {
			return s.finishExchange(ack, minPayload, cmdName, start)
		}
	}

	s.stats.Timeouts++
	s.metric.observeExchange(cmdName, "timeout", time.Since(start).Seconds())
	return ackFrame{}, newErr(Timeout, "Exchange", lastErr)
}

// receiveUntil drains datagrams until a conclusive ack (normal or
// error, matching command+id) arrives, the deadline expires, or a
// PENDING_ACK extends the deadline. Late/mismatched frames are
// discarded silently and the loop continues within the deadline
// (spec.md §4.2 "mismatch" and "tie-breaks").
func (s *Session) receiveUntil(deadline time.Time, wantAck uint16, wantID uint16, cmdName string) (ackFrame, bool, error) {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ackFrame{}, false, newErr(Timeout, "receiveUntil", nil)
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(remaining)); err != nil {
			return ackFrame{}, false, newErr(Unknown, "receiveUntil", err)
		}

		n, _, err := s.conn.ReadFromUDP(s.scratch)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return ackFrame{}, false, newErr(Timeout, "receiveUntil", nil)
			}
			return ackFrame{}, false, newErr(Unknown, "receiveUntil", err)
		}

		frame := parseAck(s.scratch[:n])

		switch frame.typ {
		case TypePendingAck:
			deadline = time.Now().Add(time.Duration(frame.extensionMS) * time.Millisecond)
			s.metric.observePendingExtension(cmdName)
			continue
		case TypeErrorAck:
			if frame.command == wantAck && frame.id == wantID {
				return frame, true, nil
			}
			continue
		case TypeNormalAck:
			if frame.command == wantAck && frame.id == wantID {
				return frame, true, nil
			}
			continue
		default:
			continue // unknown-error or mismatch: keep waiting
		}
	}
}

func (s *Session) finishExchange(ack ackFrame, minPayload int, cmdName string, start time.Time) (ackFrame, error) {
	if ack.typ == TypeErrorAck {
		s.stats.ProtocolErrors++
		s.metric.observeExchange(cmdName, "protocol-error", time.Since(start).Seconds())
		return ackFrame{}, newErr(ProtocolError, "Exchange", errStr(gvcpErrorText(ack.errorFlags)))
	}
	if len(ack.payload) < minPayload {
		s.metric.observeExchange(cmdName, "protocol-error", time.Since(start).Seconds())
		return ackFrame{}, newErr(ProtocolError, "Exchange", nil)
	}
	s.metric.observeExchange(cmdName, "success", time.Since(start).Seconds())
	return ack, nil
}

func commandName(cmd uint16) string {
	switch cmd {
	case CmdReadRegister:
		return "read-register"
	case CmdWriteRegister:
		return "write-register"
	case CmdReadMemory:
		return "read-memory"
	case CmdWriteMemory:
		return "write-memory"
	default:
		return "unknown"
	}
}

// errStr is a tiny string-backed error type so finishExchange can wrap
// the decoded error-flags text without importing errors in this file.
type errStr string

func (e errStr) Error() string { return string(e) }
