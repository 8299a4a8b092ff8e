// Command example is a minimal end-to-end usage program: construct a
// Device, take control, read a register, read IP configuration, tear
// down. Grounded on the teacher's own example/example.go, which wraps
// a session struct and calls a sequence of t.*() methods against it.
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

type testSession struct {
	dev *aravis.Device
}

func newTest(ctx context.Context, ifaceIP, deviceIP net.IP) (*testSession, error) {
	dev, err := aravis.NewDevice(ctx, ifaceIP, deviceIP,
		aravis.WithEvaluatorFactory(func(xml []byte, defaults []genicam.NodeDefault) (genicam.Evaluator, error) {
			return stubEvaluator{}, nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return &testSession{dev: dev}, nil
}

func (t *testSession) readCurrentIPAddress(ctx context.Context) {
	value, err := t.dev.ReadRegister(ctx, gvcp.RegCurrentIPAddress)
	if err != nil {
		log.Printf("read current IP address register: %v", err)
		return
	}
	log.Printf("current IP address register: 0x%08x", value)
}

func (t *testSession) printIPConfig(ctx context.Context) {
	addr, mask, gateway, err := t.dev.CurrentIP(ctx)
	if err != nil {
		log.Printf("read IP config: %v", err)
		return
	}
	fmt.Printf("address=%v mask=%v gateway=%v\n", addr, mask, gateway)
}

func main() {
	ifaceIP := flag.String("iface", "127.0.0.1", "local interface IPv4 address")
	deviceIP := flag.String("device", "", "device IPv4 address")
	flag.Parse()

	if *deviceIP == "" {
		log.Fatalf("-device is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t, err := newTest(ctx, net.ParseIP(*ifaceIP), net.ParseIP(*deviceIP))
	if err != nil {
		log.Fatalf("failed to construct device: %v", err)
	}
	defer t.dev.Close(ctx)

	t.readCurrentIPAddress(ctx)
	t.printIPConfig(ctx)
}

// stubEvaluator is a placeholder for the external GenICam evaluator
// this example doesn't implement; it exists only so NewDevice has a
// required EvaluatorFactory to call.
type stubEvaluator struct{}

func (stubEvaluator) Integer(name string) (genicam.IntegerFeature, error) {
	return nil, fmt.Errorf("stub evaluator: no features available")
}
func (stubEvaluator) Boolean(name string) (genicam.BooleanFeature, error) {
	return nil, fmt.Errorf("stub evaluator: no features available")
}
func (stubEvaluator) Command(name string) (genicam.CommandFeature, error) {
	return nil, fmt.Errorf("stub evaluator: no features available")
}
func (stubEvaluator) String(name string) (genicam.StringFeature, error) {
	return nil, fmt.Errorf("stub evaluator: no features available")
}
