package gvcp

import (
	"encoding/json"
	"os"
	"time"
)

// PacketSizeAdjustment selects whether the MTU probe runs when a
// stream is created (first stream only, or every stream), per spec.md
// §6.
type PacketSizeAdjustment int

const (
	// PacketSizeOnFailureOnce is the default: adjust only if the
	// currently configured size fails, and only on the first stream.
	PacketSizeOnFailureOnce PacketSizeAdjustment = iota
	PacketSizeNever
	PacketSizeOnce
	PacketSizeAlways
	PacketSizeOnFailure
)

func (p PacketSizeAdjustment) String() string {
	switch p {
	case PacketSizeNever:
		return "never"
	case PacketSizeOnce:
		return "once"
	case PacketSizeAlways:
		return "always"
	case PacketSizeOnFailure:
		return "on-failure"
	default:
		return "on-failure-once"
	}
}

// Config holds the tunable knobs of a Session, loadable from a JSON
// file the way the teacher's NewNGAP(jsonFile) loads an NGAP config
// (encoding/ngap/ngap.go), and overridable by command-line flags in
// cmd/aravis-probe.
type Config struct {
	Retries                int                  `json:"gvcp_n_retries"`
	TimeoutMS              int                  `json:"gvcp_timeout_ms"`
	HeartbeatPeriodUS      int                  `json:"heartbeat_period_us"`
	BufferSize             int                  `json:"buffer_size"`
	PacketSizeAdjustment   PacketSizeAdjustment `json:"packet_size_adjustment"`
	StreamOptions          uint32               `json:"stream_options"`
	HeartbeatRetryDelayMS  int                  `json:"heartbeat_retry_delay_ms"`
	HeartbeatRetryBudgetS  int                  `json:"heartbeat_retry_budget_s"`
}

// DefaultConfig returns the spec-mandated defaults (spec.md §3, §6).
func DefaultConfig() Config {
	return Config{
		Retries:               6,
		TimeoutMS:             500,
		HeartbeatPeriodUS:     1_000_000,
		BufferSize:            maxAckFrameSize,
		PacketSizeAdjustment:  PacketSizeOnFailureOnce,
		StreamOptions:         0,
		HeartbeatRetryDelayMS: 10,
		HeartbeatRetryBudgetS: 5,
	}
}

// LoadConfig reads a JSON config file and overlays it on top of
// DefaultConfig, so a partial file only needs to set the fields it
// wants to change.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, newErr(Unknown, "LoadConfig", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, newErr(InvalidParameter, "LoadConfig", err)
	}
	return cfg, nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c Config) heartbeatPeriod() time.Duration {
	return time.Duration(c.HeartbeatPeriodUS) * time.Microsecond
}

func (c Config) heartbeatRetryDelay() time.Duration {
	return time.Duration(c.HeartbeatRetryDelayMS) * time.Millisecond
}

func (c Config) heartbeatRetryBudget() time.Duration {
	return time.Duration(c.HeartbeatRetryBudgetS) * time.Second
}

func (c Config) bufferSize() int {
	if c.BufferSize < maxAckFrameSize {
		return maxAckFrameSize
	}
	return c.BufferSize
}
