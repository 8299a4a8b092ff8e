package gvcp

import (
	"encoding/binary"
	"testing"
)

func TestNextIdentifierSkipsZeroOnWraparound(t *testing.T) {
	cases := []struct {
		prev uint16
		want uint16
	}{
		{prev: 1, want: 2},
		{prev: 65300, want: 65301},
		{prev: 0xfffe, want: 0xffff},
		{prev: 0xffff, want: 1}, // wraps past zero
	}
	for _, c := range cases {
		got := nextIdentifier(c.prev)
		if got != c.want {
			t.Errorf("nextIdentifier(%d) = %d, want %d", c.prev, got, c.want)
		}
	}
}

func TestEncodeReadRegisterRequest(t *testing.T) {
	buf := encodeReadRegisterRequest(42, 0x00000a00)
	if len(buf) != headerSize+registerSize {
		t.Fatalf("len = %d, want %d", len(buf), headerSize+registerSize)
	}
	if cmd := binary.BigEndian.Uint16(buf[2:4]); cmd != CmdReadRegister {
		t.Errorf("command = 0x%04x, want 0x%04x", cmd, CmdReadRegister)
	}
	if id := binary.BigEndian.Uint16(buf[6:8]); id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
	if addr := binary.BigEndian.Uint32(buf[headerSize:]); addr != 0x00000a00 {
		t.Errorf("address = 0x%08x, want 0x00000a00", addr)
	}
}

func TestEncodeWriteRegisterRequest(t *testing.T) {
	buf := encodeWriteRegisterRequest(7, 0x100, 0xdeadbeef)
	if got := binary.BigEndian.Uint32(buf[headerSize : headerSize+4]); got != 0x100 {
		t.Errorf("address = 0x%x, want 0x100", got)
	}
	if got := binary.BigEndian.Uint32(buf[headerSize+4 : headerSize+8]); got != 0xdeadbeef {
		t.Errorf("value = 0x%x, want 0xdeadbeef", got)
	}
}

func TestEncodeWriteMemoryRequest(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	buf := encodeWriteMemoryRequest(3, 0x200, data)
	length := binary.BigEndian.Uint16(buf[4:6])
	if int(length) != registerSize+len(data) {
		t.Errorf("length field = %d, want %d", length, registerSize+len(data))
	}
	got := buf[headerSize+registerSize:]
	for i, b := range data {
		if got[i] != b {
			t.Errorf("payload[%d] = %d, want %d", i, got[i], b)
		}
	}
}

func buildAckFrame(command, id uint16, status byte, body []byte) []byte {
	buf := make([]byte, headerSize, headerSize+len(body))
	buf[0] = status
	buf[1] = 0x00
	binary.BigEndian.PutUint16(buf[2:4], command)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(body)))
	binary.BigEndian.PutUint16(buf[6:8], id)
	buf = append(buf, body...)
	return buf
}

func TestParseAckNormal(t *testing.T) {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, 0x12345678)
	frame := parseAck(buildAckFrame(ackReadRegister, 9, 0x00, payload))

	if frame.typ != TypeNormalAck {
		t.Fatalf("typ = %v, want TypeNormalAck", frame.typ)
	}
	if frame.command != ackReadRegister || frame.id != 9 {
		t.Errorf("command/id = %d/%d, want %d/9", frame.command, frame.id, ackReadRegister)
	}
	got, err := readPayloadUint32(frame.payload)
	if err != nil {
		t.Fatalf("readPayloadUint32: %v", err)
	}
	if got != 0x12345678 {
		t.Errorf("payload = 0x%x, want 0x12345678", got)
	}
}

func TestParseAckError(t *testing.T) {
	body := make([]byte, 2)
	binary.BigEndian.PutUint16(body, ErrFlagAccessDenied)
	frame := parseAck(buildAckFrame(ackWriteRegister, 1, statusErrorBit, body))

	if frame.typ != TypeErrorAck {
		t.Fatalf("typ = %v, want TypeErrorAck", frame.typ)
	}
	if frame.errorFlags != ErrFlagAccessDenied {
		t.Errorf("errorFlags = 0x%x, want 0x%x", frame.errorFlags, ErrFlagAccessDenied)
	}
}

func TestParseAckPending(t *testing.T) {
	ext := make([]byte, 4)
	binary.BigEndian.PutUint32(ext, 250)
	frame := parseAck(buildAckFrame(CmdPendingAck, 5, 0x00, ext))

	if frame.typ != TypePendingAck {
		t.Fatalf("typ = %v, want TypePendingAck", frame.typ)
	}
	if frame.extensionMS != 250 {
		t.Errorf("extensionMS = %d, want 250", frame.extensionMS)
	}
}

func TestParseAckMalformedIsMismatch(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00, 0x00, 0x00},                 // too short for header
		buildAckFrame(ackReadRegister, 1, 0x00, nil)[:headerSize-1], // truncated header
	}
	for i, buf := range cases {
		frame := parseAck(buf)
		if frame.typ != TypeMismatch {
			t.Errorf("case %d: typ = %v, want TypeMismatch", i, frame.typ)
		}
	}
}

func TestParseAckShortBodyIsMismatch(t *testing.T) {
	frame := buildAckFrame(ackReadMemory, 2, 0x00, []byte{1, 2, 3, 4})
	binary.BigEndian.PutUint16(frame[4:6], 100) // claim 100 bytes but only send 4
	got := parseAck(frame)
	if got.typ != TypeMismatch {
		t.Errorf("typ = %v, want TypeMismatch", got.typ)
	}
}

func TestExpectedAck(t *testing.T) {
	cases := map[uint16]uint16{
		CmdReadRegister:  ackReadRegister,
		CmdWriteRegister: ackWriteRegister,
		CmdReadMemory:    ackReadMemory,
		CmdWriteMemory:   ackWriteMemory,
		cmdDiscovery:     0,
	}
	for cmd, want := range cases {
		if got := expectedAck(cmd); got != want {
			t.Errorf("expectedAck(0x%04x) = 0x%04x, want 0x%04x", cmd, got, want)
		}
	}
}
