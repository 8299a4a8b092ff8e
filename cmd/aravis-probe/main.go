// Command aravis-probe is an operator tool exercising the device
// session facade directly: it connects to one GVCP device, prints its
// current IP configuration, the digest of its fetched schema and the
// session's exchange counters, then tears down. Grounded on the teacher's cmd/gnbsim.go (flag-driven
// main spawning one session struct) and example/example.go's
// flag.String/flag.Int usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/OverviewCorporation/aravis"
	"github.com/OverviewCorporation/aravis/genicam"
	"github.com/OverviewCorporation/aravis/gvcp"
)

func main() {
	ifaceIP := flag.String("iface", "", "local interface IPv4 address to bind")
	deviceIP := flag.String("device", "", "device IPv4 address")
	retries := flag.Int("retries", 6, "GVCP exchange retry count")
	timeoutMS := flag.Int("timeout-ms", 500, "GVCP per-attempt timeout in milliseconds")
	configPath := flag.String("config", "", "optional JSON config file (overrides retries/timeout-ms)")
	flag.Parse()

	if *ifaceIP == "" || *deviceIP == "" {
		log.Fatalf("both -iface and -device are required")
	}

	cfg := gvcp.DefaultConfig()
	if *configPath != "" {
		loaded, err := gvcp.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg.Retries = *retries
		cfg.TimeoutMS = *timeoutMS
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dev, err := aravis.NewDevice(ctx,
		net.ParseIP(*ifaceIP), net.ParseIP(*deviceIP),
		aravis.WithConfig(cfg),
		aravis.WithEvaluatorFactory(noopEvaluatorFactory),
	)
	if err != nil {
		log.Fatalf("failed to construct device: %v", err)
	}
	defer dev.Close(ctx)

	addr, mask, gateway, err := dev.CurrentIP(ctx)
	if err != nil {
		log.Printf("warning: failed to read current IP: %v", err)
	} else {
		fmt.Printf("current IP: %v  mask: %v  gateway: %v\n", addr, mask, gateway)
	}

	schema := dev.Schema()
	if schema != nil {
		fmt.Printf("schema digest: %s (%d bytes)\n", schema.Digest, len(schema.XML))
	}

	stats := dev.Stats()
	fmt.Printf("identifiers issued: %d  retries: %d  timeouts: %d  protocol errors: %d\n",
		stats.IdentifiersIssued, stats.Retries, stats.Timeouts, stats.ProtocolErrors)
}

// noopEvaluatorFactory is a placeholder evaluator for the CLI tool:
// the real evaluator lives outside this module's scope (spec.md §1),
// so the probe tool only demonstrates construction and register I/O.
func noopEvaluatorFactory(xml []byte, defaults []genicam.NodeDefault) (genicam.Evaluator, error) {
	return noopEvaluator{}, nil
}

type noopEvaluator struct{}

func (noopEvaluator) Integer(name string) (genicam.IntegerFeature, error) {
	return nil, fmt.Errorf("feature %q not available: no evaluator configured", name)
}
func (noopEvaluator) Boolean(name string) (genicam.BooleanFeature, error) {
	return nil, fmt.Errorf("feature %q not available: no evaluator configured", name)
}
func (noopEvaluator) Command(name string) (genicam.CommandFeature, error) {
	return nil, fmt.Errorf("feature %q not available: no evaluator configured", name)
}
func (noopEvaluator) String(name string) (genicam.StringFeature, error) {
	return nil, fmt.Errorf("feature %q not available: no evaluator configured", name)
}
