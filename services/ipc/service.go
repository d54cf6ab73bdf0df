// services/ipc/service.go
package ipc

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/guard"
	"reactor-sys-go/statusd"
	"reactor-sys-go/timed"
	"reactor-sys-go/types"
	"reactor-sys-go/x/timex"
)

// Dialler opens the serial link to the I/O controller. Injected by the
// platform bootstrap; host builds and tests supply pipes.
type Dialler func(ctx context.Context) (io.ReadWriteCloser, error)

type Config struct {
	Publish   time.Duration // snapshot cadence
	RedialMin time.Duration
	RedialMax time.Duration
}

func (c Config) withDefaults() Config {
	if c.Publish <= 0 {
		c.Publish = 1 * time.Second
	}
	if c.RedialMin <= 0 {
		c.RedialMin = 250 * time.Millisecond
	}
	if c.RedialMax < c.RedialMin {
		c.RedialMax = 5 * time.Second
	}
	return c
}

// Snapshot payloads, JSON on the wire.

type timeSnapshot struct {
	Time string `json:"time"` // "YYYY-MM-DD hh:mm:ss"
	TsMs int64  `json:"ts_ms"`
}

type statusSnapshot struct {
	VPSU  float32                `json:"vpsu"`
	V20   float32                `json:"v20"`
	V5    float32                `json:"v5"`
	PSUOK bool                   `json:"psu_ok"`
	V20OK bool                   `json:"v20_ok"`
	V5OK  bool                   `json:"v5_ok"`
	LED   [types.LEDCount]uint32 `json:"led"`
	TsMs  int64                  `json:"ts_ms"`
}

// Service owns the inter-processor link: it dials, publishes time and
// status snapshots on a fixed cadence, and redials with backoff when
// the link drops. Inbound frames are drained; the I/O controller only
// acks today.
type Service struct {
	cfg   Config
	dial  Dialler
	clock *timed.Authority
	board *statusd.Board
	log   *diag.Sink
}

func New(cfg Config, dial Dialler, clock *timed.Authority, board *statusd.Board, log *diag.Sink) *Service {
	return &Service{cfg: cfg.withDefaults(), dial: dial, clock: clock, board: board, log: log}
}

// Run waits on the startup barrier, then supervises the link until ctx
// ends.
func (s *Service) Run(ctx context.Context, barrier *guard.Barrier) {
	if !barrier.WaitContext(ctx) {
		return
	}
	s.log.Infof("ipc: inter-processor link task started")

	backoff := backoffSeq(s.cfg.RedialMin, s.cfg.RedialMax)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := s.dial(ctx)
		if err != nil {
			delay := backoff()
			s.log.Warningf("ipc: dial failed: %v (retry in %s)", err, delay)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.log.Infof("ipc: link established")
		backoff = backoffSeq(s.cfg.RedialMin, s.cfg.RedialMax)
		if err := s.handleLink(ctx, rwc); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.log.Warningf("ipc: link lost: %v (retry in %s)", err, delay)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		_ = rwc.Close()
		return
	}
}

// handleLink owns one active link lifetime.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			switch f.Type {
			case frameAck:
				// Nothing to do yet.
			default:
				s.log.Debugf("ipc: ignoring frame type 0x%02x", f.Type)
			}
		}
	}()

	tick := time.NewTicker(s.cfg.Publish)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err := <-errCh:
			return err
		case <-tick.C:
			if err := s.publish(wr); err != nil {
				return err
			}
		}
	}
}

// publish sends one time frame and one status frame. A busy lock on
// either authority just skips that frame for this cycle.
func (s *Service) publish(wr *framedWriter) error {
	if dt, err := s.clock.Now(); err == nil {
		p, err := json.Marshal(timeSnapshot{Time: dt.String(), TsMs: timex.NowMs()})
		if err == nil {
			if err := wr.WriteFrame(Frame{Type: frameTime, Payload: p}); err != nil {
				return err
			}
		}
	}
	st, err := s.board.Snapshot()
	if err != nil {
		return nil
	}
	snap := statusSnapshot{
		VPSU: st.VPSU, V20: st.V20, V5: st.V5,
		PSUOK: st.PSUOK, V20OK: st.V20OK, V5OK: st.V5OK,
		TsMs: timex.NowMs(),
	}
	for i, c := range st.LED {
		snap.LED[i] = uint32(c)
	}
	p, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return wr.WriteFrame(Frame{Type: frameStatus, Payload: p})
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
