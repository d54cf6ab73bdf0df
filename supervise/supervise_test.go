package supervise

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/services/power"
	"reactor-sys-go/types"
)

type fixedClock struct{ dt types.DateTime }

func (c fixedClock) Read() (types.DateTime, error) { return c.dt, nil }
func (c fixedClock) Write(types.DateTime) error    { return nil }

type fixedNet struct{ epoch int64 }

func (n fixedNet) FetchEpoch() (int64, error) { return n.epoch, nil }

type upProbe struct{}

func (upProbe) LinkUp() bool { return true }

type okConf struct{}

func (okConf) Apply() error { return nil }

type steadyRails struct{}

func (steadyRails) Read() (power.Rails, error) {
	return power.Rails{VPSU: 24, V20: 20, V5: 5}, nil
}

// syncLog is a log sink backed by a locked buffer so the test can read
// it while the system is still running.
type syncLog struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *syncLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *syncLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func TestSystemRunsAndStops(t *testing.T) {
	out := &syncLog{}
	log := diag.New(out, diag.LevelDebug)

	hw := Hardware{
		Clock:    fixedClock{dt: types.DateTime{Year: 2026, Month: 8, Day: 31, Hour: 9}},
		NetTime:  fixedNet{epoch: 1700000000},
		Settings: func() *types.NetworkConfig { c := types.DefaultNetworkConfig(); return &c }(),
		Probe:    upProbe{},
		Conf:     okConf{},
		Rails:    steadyRails{},
	}
	cfg := Config{
		LinkPeriod: 5 * time.Millisecond,
		Power:      power.Config{Period: 5 * time.Millisecond, Samples: 1, SampleGap: time.Millisecond},
	}

	sys := New(log, hw, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sys.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !strings.Contains(out.String(), "system initialisation complete") {
		select {
		case <-deadline:
			t.Fatalf("initialisation never completed:\n%s", out.String())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Both one-time setups must have run before the completion line.
	got := out.String()
	if !strings.Contains(got, "core 0 setup complete") || !strings.Contains(got, "core 1 setup complete") {
		t.Fatalf("missing setup lines:\n%s", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestSystemAdoptsHardwareTimeAtBoot(t *testing.T) {
	log := diag.New(io.Discard, diag.LevelError)
	boot := types.DateTime{Year: 2026, Month: 8, Day: 31, Hour: 9}
	hw := Hardware{
		Clock:    fixedClock{dt: boot},
		NetTime:  fixedNet{epoch: 1700000000},
		Settings: func() *types.NetworkConfig { c := types.DefaultNetworkConfig(); return &c }(),
		Probe:    upProbe{},
		Conf:     okConf{},
		Rails:    steadyRails{},
	}
	sys := New(log, hw, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sys.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		dt, err := sys.Time.Now()
		if err == nil && dt.Equal(boot) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("boot time never adopted")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
