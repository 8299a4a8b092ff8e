// Package gvcptest provides a loopback UDP device simulator used by
// this module's own tests. Grounded on the teacher's own test
// harnesses, which dial real sockets (example/example.go's
// setupSCTP/recvfromAMF, cmd/gnbsim_sctp.go's send/recv) rather than
// mocking an interface: GVCP tests here do the same over UDP.
package gvcptest

import (
	"net"
	"time"
)

// Simulator is a bare UDP endpoint standing in for a device: tests
// drive it by receiving a request and writing back whatever bytes
// they want, in whatever order and timing they want.
type Simulator struct {
	conn *net.UDPConn
}

// NewSimulator binds an ephemeral UDP socket on loopback.
func NewSimulator() (*Simulator, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		return nil, err
	}
	return &Simulator{conn: conn}, nil
}

// Addr returns the simulator's bound address — the "device" address a
// Session under test should dial.
func (s *Simulator) Addr() *net.UDPAddr { return s.conn.LocalAddr().(*net.UDPAddr) }

// Close releases the socket.
func (s *Simulator) Close() error { return s.conn.Close() }

// Recv waits up to timeout for one datagram and returns its bytes and
// sender address.
func (s *Simulator) Recv(timeout time.Duration) ([]byte, *net.UDPAddr, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, nil, err
	}
	buf := make([]byte, 2048)
	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	return buf[:n], from, nil
}

// Send writes buf to addr.
func (s *Simulator) Send(addr *net.UDPAddr, buf []byte) error {
	_, err := s.conn.WriteToUDP(buf, addr)
	return err
}
