// services/indicator/service.go
package indicator

import (
	"context"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/statusd"
	"reactor-sys-go/types"
)

// Strip is the physical indicator-light hardware. This service is its
// single owner: every other task changes a light only through the
// status board's guarded setter, never the strip itself.
type Strip interface {
	SetPixel(index int, colour types.Colour)
	Show() error
}

type Config struct {
	Refresh     time.Duration // strip refresh cadence
	BlinkPeriod time.Duration // system LED half-period
}

func (c Config) withDefaults() Config {
	if c.Refresh <= 0 {
		c.Refresh = 20 * time.Millisecond
	}
	if c.BlinkPeriod <= 0 {
		c.BlinkPeriod = 500 * time.Millisecond
	}
	return c
}

// Service refreshes the strip from the status board. LEDs 0..2 mirror
// their board colour; the system LED (index 3) blinks its colour at
// the blink period so a frozen scheduler is visible at a glance.
type Service struct {
	cfg   Config
	strip Strip
	board *statusd.Board
	log   *diag.Sink
}

func New(cfg Config, strip Strip, board *statusd.Board, log *diag.Sink) *Service {
	return &Service{cfg: cfg.withDefaults(), strip: strip, board: board, log: log}
}

func (s *Service) Run(ctx context.Context) {
	s.log.Infof("indicator: LED status task started")

	perHalf := int(s.cfg.BlinkPeriod / s.cfg.Refresh)
	if perHalf < 1 {
		perHalf = 1
	}

	// Last known colours survive a busy board lock; the system LED
	// falls back to a warning colour so contention is never shown as
	// a steady green.
	var leds [types.LEDCount]types.Colour
	sysColour := types.ColourWarning
	count := 0
	blink := false

	tick := time.NewTicker(s.cfg.Refresh)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		if st, err := s.board.Snapshot(); err == nil {
			leds = st.LED
			sysColour = st.LED[types.LEDSystem]
		}
		for i := 0; i < types.LEDSystem; i++ {
			s.strip.SetPixel(i, leds[i])
		}

		count++
		if count >= perHalf {
			count = 0
			blink = !blink
		}
		if blink {
			s.strip.SetPixel(types.LEDSystem, sysColour)
		} else {
			s.strip.SetPixel(types.LEDSystem, types.ColourOff)
		}
		if err := s.strip.Show(); err != nil {
			s.log.Debugf("indicator: strip write failed: %v", err)
		}
	}
}
