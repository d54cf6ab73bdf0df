// Host-side simulation of the supervisory core: fake RTC, network time
// and power rails behind the real components, console on stdin.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/services/power"
	"reactor-sys-go/supervise"
	"reactor-sys-go/types"
	"reactor-sys-go/x/timex"
)

// simClock behaves like a battery-backed RTC: it keeps an offset from
// the host clock and advances on its own.
type simClock struct {
	mu  sync.Mutex
	off int64 // seconds relative to host time
}

func (c *simClock) Read() (types.DateTime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return timex.EpochToDateTime(time.Now().Unix() + c.off), nil
}

func (c *simClock) Write(dt types.DateTime) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.off = timex.DateTimeToEpoch(dt) - time.Now().Unix()
	return nil
}

// simNet serves the host's own clock as the network time source.
type simNet struct{}

func (simNet) FetchEpoch() (int64, error) { return time.Now().Unix(), nil }

// simProbe flaps the link down for a few seconds every minute so the
// monitor's reconfiguration path is visible.
type simProbe struct{ start time.Time }

func (p *simProbe) LinkUp() bool {
	return int(time.Since(p.start).Seconds())%60 < 55
}

type simConf struct{ log *diag.Sink }

func (c *simConf) Apply() error {
	c.log.Infof("hostsim: network configuration applied")
	return nil
}

// simRails reports nominal voltages with a little noise.
type simRails struct{}

func (simRails) Read() (power.Rails, error) {
	jitter := func(v float32) float32 { return v + (rand.Float32()-0.5)*0.2 }
	return power.Rails{VPSU: jitter(24.0), V20: jitter(20.0), V5: jitter(5.0)}, nil
}

// simStrip swallows pixel writes; the board state is inspectable via
// the console's status command.
type simStrip struct{ px [types.LEDCount]types.Colour }

func (s *simStrip) SetPixel(i int, c types.Colour) { s.px[i] = c }
func (s *simStrip) Show() error                    { return nil }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := diag.New(os.Stdout, diag.LevelDebug)
	cfg := types.DefaultNetworkConfig()
	cfg.NTPOn = true

	sys := supervise.New(log, supervise.Hardware{
		Clock:    &simClock{},
		NetTime:  simNet{},
		Settings: &cfg,
		Probe:    &simProbe{start: time.Now()},
		Conf:     &simConf{log: log},
		Rails:    simRails{},
		Strip:    &simStrip{},
		Console:  os.Stdin,
		NetSummary: func() string {
			return "IP address: 192.168.1.100, Gateway: 192.168.1.1 (simulated)"
		},
	}, supervise.Config{})

	// The rendezvous has no timeout; surface a stall instead.
	go func() {
		wctx, wcancel := context.WithTimeout(ctx, 10*time.Second)
		defer wcancel()
		if !sys.Barrier.WaitContext(wctx) && ctx.Err() == nil {
			log.Warningf("hostsim: startup rendezvous still pending after 10s")
		}
	}()

	sys.Run(ctx)
}
