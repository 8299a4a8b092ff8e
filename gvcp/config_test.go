package gvcp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Retries != 6 {
		t.Errorf("Retries = %d, want 6", cfg.Retries)
	}
	if cfg.TimeoutMS != 500 {
		t.Errorf("TimeoutMS = %d, want 500", cfg.TimeoutMS)
	}
	if cfg.HeartbeatPeriodUS != 1_000_000 {
		t.Errorf("HeartbeatPeriodUS = %d, want 1000000", cfg.HeartbeatPeriodUS)
	}
	if cfg.PacketSizeAdjustment != PacketSizeOnFailureOnce {
		t.Errorf("PacketSizeAdjustment = %v, want PacketSizeOnFailureOnce", cfg.PacketSizeAdjustment)
	}
}

func TestLoadConfigOverlaysPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"gvcp_n_retries": 3}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Retries != 3 {
		t.Errorf("Retries = %d, want 3 (overridden)", cfg.Retries)
	}
	if cfg.TimeoutMS != 500 {
		t.Errorf("TimeoutMS = %d, want 500 (default preserved)", cfg.TimeoutMS)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("LoadConfig: want error for missing file, got nil")
	}
}

func TestBufferSizeFloorsToMaxAckFrameSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 10
	if got := cfg.bufferSize(); got != maxAckFrameSize {
		t.Errorf("bufferSize() = %d, want %d", got, maxAckFrameSize)
	}
}

func TestPacketSizeAdjustmentString(t *testing.T) {
	cases := map[PacketSizeAdjustment]string{
		PacketSizeNever:         "never",
		PacketSizeOnce:          "once",
		PacketSizeAlways:        "always",
		PacketSizeOnFailure:     "on-failure",
		PacketSizeOnFailureOnce: "on-failure-once",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", p, got, want)
		}
	}
}
