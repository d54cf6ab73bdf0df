// supervise/supervise.go
package supervise

import (
	"context"
	"io"
	"sync"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/guard"
	"reactor-sys-go/netmon"
	"reactor-sys-go/services/indicator"
	"reactor-sys-go/services/ipc"
	"reactor-sys-go/services/power"
	"reactor-sys-go/services/terminal"
	"reactor-sys-go/statusd"
	"reactor-sys-go/timed"
	"reactor-sys-go/types"
)

// Hardware bundles the external collaborators, injected once at boot.
// Optional fields may be nil; the matching service is then skipped.
type Hardware struct {
	Clock    timed.Clock
	NetTime  timed.NetTime
	Settings timed.Settings

	Probe netmon.LinkProber
	Conf  netmon.Configurer

	Rails power.Sampler
	Strip indicator.Strip

	Console    io.Reader        // nil disables the terminal
	IPCDial    ipc.Dialler      // nil disables the inter-processor link
	Reboot     terminal.Rebooter
	NetSummary func() string
}

type Config struct {
	LinkPeriod time.Duration // control-loop cadence for the link monitor
	Time       timed.Config
	Power      power.Config
	Indicator  indicator.Config
	IPC        ipc.Config
}

func (c Config) withDefaults() Config {
	if c.LinkPeriod <= 0 {
		c.LinkPeriod = 100 * time.Millisecond
	}
	return c
}

// System owns every shared-state component, constructed exactly once
// and handed to the tasks that need them. Nothing here is reachable
// through package globals.
type System struct {
	Log     *diag.Sink
	Time    *timed.Authority
	Status  *statusd.Board
	Link    *netmon.Monitor
	Barrier *guard.Barrier

	cfg Config
	hw  Hardware
}

func New(log *diag.Sink, hw Hardware, cfg Config) *System {
	cfg = cfg.withDefaults()
	board := statusd.New(log)
	return &System{
		Log:     log,
		Time:    timed.New(cfg.Time, hw.Clock, hw.NetTime, hw.Settings, log),
		Status:  board,
		Link:    netmon.New(hw.Probe, hw.Conf, board, log),
		Barrier: guard.NewBarrier(),
		cfg:     cfg,
		hw:      hw,
	}
}

// Run brings up both execution contexts and blocks until ctx ends.
// Each context performs its one-time initialization, signals the
// startup barrier, and only then lets its steady-state tasks loop;
// tasks that depend on the other context gate on the barrier
// themselves.
func (s *System) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runNet(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runRT(ctx)
	}()

	// Post-rendezvous step: a forced network sync, as the last act of
	// system initialization.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if !s.Barrier.WaitContext(ctx) {
			return
		}
		_ = s.Time.SyncFromNetwork(true)
		s.Log.Infof("supervise: system initialisation complete")
	}()

	wg.Wait()
}

// runNet is execution context 0: link supervision, network time and
// the inter-processor link.
func (s *System) runNet(ctx context.Context) {
	var wg sync.WaitGroup

	if s.hw.IPCDial != nil {
		link := ipc.New(s.cfg.IPC, s.hw.IPCDial, s.Time, s.Status, s.Log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			link.Run(ctx, s.Barrier)
		}()
	}

	s.Log.Infof("supervise: core 0 setup complete")
	s.Barrier.Ready(guard.ContextNet)

	// The link monitor is the context's own steady-state loop; network
	// time handling is its dependent work and is skipped entirely
	// while the link is down.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if !s.Barrier.WaitContext(ctx) {
			return
		}
		s.Link.Run(ctx, s.cfg.LinkPeriod, func() {
			_ = s.Time.SyncFromNetwork(false)
		})
	}()

	wg.Wait()
}

// runRT is execution context 1: hardware clock, power rails,
// indicator strip and the console.
func (s *System) runRT(ctx context.Context) {
	_ = s.Time.Initialize()
	_ = s.Status.SetIndicator(types.LEDSystem, types.ColourStartup)
	// Modbus and MQTT have no tasks yet; show them dark, not stale.
	_ = s.Status.SetIndicator(types.LEDModbus, types.ColourOff)
	_ = s.Status.SetIndicator(types.LEDMQTT, types.ColourOff)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.Barrier.WaitContext(ctx) {
			s.Time.RunRefresh(ctx)
		}
	}()

	mon := power.New(s.cfg.Power, s.hw.Rails, s.Status, s.Log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.Run(ctx, s.Barrier)
	}()

	if s.hw.Strip != nil {
		leds := indicator.New(s.cfg.Indicator, s.hw.Strip, s.Status, s.Log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Barrier.WaitContext(ctx) {
				leds.Run(ctx)
			}
		}()
	}

	if s.hw.Console != nil {
		term := terminal.New(s.hw.Console, s.Log, s.Time, s.Status, s.Link, s.hw.Reboot)
		term.NetSummary = s.hw.NetSummary
		wg.Add(1)
		go func() {
			defer wg.Done()
			term.Run(ctx, s.Barrier)
		}()
	}

	s.Log.Infof("supervise: core 1 setup complete")
	s.Barrier.Ready(guard.ContextRT)

	wg.Wait()
}
