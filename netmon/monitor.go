// netmon/monitor.go
package netmon

import (
	"context"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/errcode"
	"reactor-sys-go/guard"
	"reactor-sys-go/statusd"
	"reactor-sys-go/types"
)

// -----------------------------------------------------------------------------
// Collaborator contracts
// -----------------------------------------------------------------------------

// LinkProber reports the physical link status of the interface.
type LinkProber interface {
	LinkUp() bool
}

// Configurer (re)applies the network configuration: DHCP renew or
// static re-bind, replacing any prior binding.
type Configurer interface {
	Apply() error
}

// -----------------------------------------------------------------------------
// Monitor
// -----------------------------------------------------------------------------

// Monitor is the {Down, Up} link state machine, evaluated once per
// control-loop iteration. A Down→Up transition re-applies the network
// configuration; if that fails the link stays up in a degraded state
// rather than bouncing, which would otherwise loop reconfiguration
// forever. An Up→Down transition darkens the dependent indicators and
// suppresses dependent work until the link returns.
type Monitor struct {
	probe LinkProber
	conf  Configurer
	board *statusd.Board
	log   *diag.Sink

	// The console's ps command reads the state from the other
	// execution context while Tick writes it, so it lives behind a
	// cell. Every critical section is a single assignment or copy;
	// the blocking acquire cannot stall.
	state *guard.Cell[types.Link]
	seen  bool // false until the first Tick; touched only by Tick
}

func New(probe LinkProber, conf Configurer, board *statusd.Board, log *diag.Sink) *Monitor {
	return &Monitor{
		probe: probe,
		conf:  conf,
		board: board,
		log:   log,
		state: guard.NewCell(types.LinkDown),
	}
}

// State returns the last evaluated link state. Safe from any task.
func (m *Monitor) State() types.Link {
	m.state.AcquireBlocking()
	defer m.state.Release()
	return *m.state.Value()
}

func (m *Monitor) setState(s types.Link) {
	m.state.AcquireBlocking()
	*m.state.Value() = s
	m.state.Release()
}

// Up reports whether dependent periodic work (time sync, web traffic,
// anything network-facing) should run this iteration. Degraded counts
// as up: the link is physically present.
func (m *Monitor) Up() bool {
	s := m.State()
	return s == types.LinkUp || s == types.LinkDegraded
}

// Tick samples the probe and applies at most one transition. The very
// first observation of an up link runs the Up path's one-time actions
// exactly once; a first observation of a down link is ordinary steady
// Down with no transition logged.
func (m *Monitor) Tick() {
	up := m.probe.LinkUp()
	first := !m.seen
	m.seen = true

	switch {
	case up && (first || m.State() == types.LinkDown):
		m.cameUp()
	case !up && !first && m.Up():
		m.wentDown()
	case !up:
		m.setState(types.LinkDown)
	}
}

func (m *Monitor) cameUp() {
	if err := m.conf.Apply(); err != nil {
		m.log.Errorf("netmon: failed to apply network configuration: %v",
			&errcode.E{C: errcode.ConfigApplyFailed, Msg: err.Error(), Err: err})
		m.setState(types.LinkDegraded)
	} else {
		m.log.Infof("netmon: link up, configuration applied")
		m.setState(types.LinkUp)
	}
	// Clear the down indicators even when degraded: the link itself is
	// present and the web server LED reflects that.
	_ = m.board.SetIndicator(types.LEDWebServer, types.ColourOK)
}

func (m *Monitor) wentDown() {
	m.setState(types.LinkDown)
	_ = m.board.SetIndicator(types.LEDWebServer, types.ColourOff)
	_ = m.board.SetIndicator(types.LEDMQTT, types.ColourOff)
	m.log.Infof("netmon: link disconnected, waiting for reconnect")
}

// Run evaluates the state machine on a fixed cadence and, while the
// link is up, invokes the dependent-work callback. While down the
// callback is skipped entirely, not merely delayed.
func (m *Monitor) Run(ctx context.Context, period time.Duration, dependent func()) {
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.Tick()
			if m.Up() && dependent != nil {
				dependent()
			}
		}
	}
}
