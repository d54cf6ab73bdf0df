// services/terminal/service.go
package terminal

import (
	"bufio"
	"context"
	"io"
	"runtime"

	"github.com/google/shlex"

	"reactor-sys-go/diag"
	"reactor-sys-go/guard"
	"reactor-sys-go/netmon"
	"reactor-sys-go/statusd"
	"reactor-sys-go/timed"
)

// Rebooter restarts the controller. Optional; without it the reboot
// command only reports that it is unavailable.
type Rebooter interface {
	Reboot()
}

// Service is the serial console task. Lines are tokenized with shlex
// so quoted arguments survive; replies go through the diagnostic sink
// like every other task's output.
type Service struct {
	in     io.Reader
	log    *diag.Sink
	clock  *timed.Authority
	board  *statusd.Board
	link   *netmon.Monitor
	reboot Rebooter
	// NetSummary, when set, backs the "ip" command with the current
	// interface binding from the network collaborator.
	NetSummary func() string
}

func New(in io.Reader, log *diag.Sink, clock *timed.Authority, board *statusd.Board, link *netmon.Monitor, reboot Rebooter) *Service {
	return &Service{in: in, log: log, clock: clock, board: board, link: link, reboot: reboot}
}

// Run waits on the startup barrier, then serves console commands until
// ctx ends or the input closes.
func (s *Service) Run(ctx context.Context, barrier *guard.Barrier) {
	if !barrier.WaitContext(ctx) {
		return
	}
	s.log.Infof("terminal: task started")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			s.handle(line)
		}
	}
}

func (s *Service) handle(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		s.log.Warningf("terminal: bad input: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}
	s.log.Infof("terminal: received: %s", line)

	switch args[0] {
	case "ps":
		s.log.Infof("terminal: %d goroutines, link %s", runtime.NumGoroutine(), s.link.State())
	case "time":
		dt, err := s.clock.Now()
		if err != nil {
			s.log.Errorf("terminal: failed to get current time: %v", err)
			return
		}
		s.log.Infof("terminal: %s", dt)
	case "status":
		st, err := s.board.Snapshot()
		if err != nil {
			s.log.Errorf("terminal: failed to get status: %v", err)
			return
		}
		s.log.Infof("terminal: PSU %.2fV ok=%t, 20V %.2fV ok=%t, 5V %.2fV ok=%t",
			st.VPSU, st.PSUOK, st.V20, st.V20OK, st.V5, st.V5OK)
	case "sync":
		if err := s.clock.SyncFromNetwork(true); err != nil {
			s.log.Errorf("terminal: sync failed: %v", err)
		}
	case "ip":
		if s.NetSummary == nil {
			s.log.Infof("terminal: no network information available")
			return
		}
		s.log.Infof("terminal: %s", s.NetSummary())
	case "reboot":
		if s.reboot == nil {
			s.log.Warningf("terminal: reboot not supported on this target")
			return
		}
		s.log.Infof("terminal: rebooting now...")
		s.reboot.Reboot()
	default:
		s.log.Infof("terminal: unknown command: %s", args[0])
		s.log.Infof("terminal: available commands: ps, time, status, sync, ip, reboot")
	}
}
