package gvcp

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/OverviewCorporation/aravis/gvcptest"
)

func TestChunkCount(t *testing.T) {
	cases := []struct {
		size int
		want int
	}{
		{0, 0},
		{-1, 0},
		{1, 1},
		{DataSizeMax, 1},
		{DataSizeMax + 1, 2},
		{DataSizeMax * 3, 3},
		{DataSizeMax*3 + 17, 4},
	}
	for _, c := range cases {
		if got := chunkCount(c.size); got != c.want {
			t.Errorf("chunkCount(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

// memoryDevice serves READ_MEMORY/WRITE_MEMORY requests against an
// in-memory byte buffer, splitting across whatever chunk sizes the
// client sends, so ReadMemory/WriteMemory's chunking loop can be
// exercised end-to-end over a real socket.
func memoryDevice(t *testing.T, sim *gvcptest.Simulator, backing []byte, stop <-chan struct{}) {
	t.Helper()
	for {
		select {
		case <-stop:
			return
		default:
		}
		buf, from, err := sim.Recv(100 * time.Millisecond)
		if err != nil {
			continue
		}
		command, id := requestHeader(buf)
		body := buf[headerSize:]
		switch command {
		case CmdReadMemory:
			address := binary.BigEndian.Uint32(body[0:4])
			size := binary.BigEndian.Uint32(body[4:8])
			payload := backing[address : address+size]
			sim.Send(from, buildAckFrame(ackReadMemory, id, 0x00, payload))
		case CmdWriteMemory:
			address := binary.BigEndian.Uint32(body[0:4])
			data := body[4:]
			copy(backing[address:], data)
			sim.Send(from, buildAckFrame(ackWriteMemory, id, 0x00, nil))
		}
	}
}

func TestReadMemoryChunksAcrossDataSizeMax(t *testing.T) {
	sim, err := gvcptest.NewSimulator()
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	defer sim.Close()

	size := DataSizeMax*2 + 13
	backing := make([]byte, size)
	for i := range backing {
		backing[i] = byte(i)
	}

	stop := make(chan struct{})
	defer close(stop)
	go memoryDevice(t, sim, backing, stop)

	s := testSession(t, sim, fastConfig())
	got, err := s.ReadMemory(context.Background(), 0, size)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if !bytes.Equal(got, backing) {
		t.Errorf("ReadMemory returned mismatched bytes")
	}
}

func TestWriteMemoryChunksAcrossDataSizeMax(t *testing.T) {
	sim, err := gvcptest.NewSimulator()
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	defer sim.Close()

	size := DataSizeMax*2 + 13
	backing := make([]byte, size)

	stop := make(chan struct{})
	defer close(stop)
	go memoryDevice(t, sim, backing, stop)

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(255 - i)
	}

	s := testSession(t, sim, fastConfig())
	if err := s.WriteMemory(context.Background(), 0, data); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}
	if !bytes.Equal(backing, data) {
		t.Errorf("device backing store doesn't match written data")
	}
}

func TestReadMemoryZeroFillsOnFailure(t *testing.T) {
	sim, err := gvcptest.NewSimulator()
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	defer sim.Close()
	// No responder: every chunk attempt times out.

	cfg := fastConfig()
	cfg.Retries = 1
	s := testSession(t, sim, cfg)

	got, err := s.ReadMemory(context.Background(), 0, DataSizeMax+10)
	if err == nil {
		t.Fatal("ReadMemory: want error, got nil")
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("got[%d] = %d, want 0 (zero-filled on failure)", i, b)
		}
	}
}
