// services/power/service.go
package power

import (
	"context"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/guard"
	"reactor-sys-go/statusd"
	"reactor-sys-go/types"
	"reactor-sys-go/x/mathx"
)

// Rails is one instantaneous reading of the three supply rails.
type Rails struct {
	VPSU float32
	V20  float32
	V5   float32
}

// Sampler reads the rail feedback dividers. The ADC itself is an
// external collaborator; this service only averages and judges.
type Sampler interface {
	Read() (Rails, error)
}

// Band is a rail's configured [min, max] window.
type Band struct {
	Min, Max float32
}

type Config struct {
	Period    time.Duration // between measurement rounds
	Samples   int           // readings averaged per round
	SampleGap time.Duration // pause between readings
	PSU       Band
	V20       Band
	V5        Band
}

func (c Config) withDefaults() Config {
	if c.Period <= 0 {
		c.Period = 1 * time.Second
	}
	if c.Samples <= 0 {
		c.Samples = 10
	}
	if c.SampleGap <= 0 {
		c.SampleGap = 10 * time.Millisecond
	}
	if c.PSU == (Band{}) {
		c.PSU = Band{Min: 21.6, Max: 26.4}
	}
	if c.V20 == (Band{}) {
		c.V20 = Band{Min: 18.0, Max: 22.0}
	}
	if c.V5 == (Band{}) {
		c.V5 = Band{Min: 4.5, Max: 5.5}
	}
	return c
}

// Service is the power-monitoring task: each round it averages a burst
// of samples per rail, derives the in-range flags, drives the system
// indicator and publishes the result on the status board.
type Service struct {
	cfg     Config
	sampler Sampler
	board   *statusd.Board
	log     *diag.Sink

	// Flags start false: rails are unknown/unsafe until measured.
	psuOK, v20OK, v5OK bool
}

func New(cfg Config, sampler Sampler, board *statusd.Board, log *diag.Sink) *Service {
	return &Service{cfg: cfg.withDefaults(), sampler: sampler, board: board, log: log}
}

// Run waits for the startup barrier, then measures on a fixed cadence
// until ctx ends.
func (s *Service) Run(ctx context.Context, barrier *guard.Barrier) {
	if !barrier.WaitContext(ctx) {
		return
	}
	s.log.Infof("power: monitoring task started")

	tick := time.NewTicker(s.cfg.Period)
	defer tick.Stop()
	for {
		s.measure(ctx)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (s *Service) measure(ctx context.Context) {
	var sum Rails
	for i := 0; i < s.cfg.Samples; i++ {
		r, err := s.sampler.Read()
		if err != nil {
			s.log.Warningf("power: rail read failed: %v", err)
			return
		}
		sum.VPSU += r.VPSU
		sum.V20 += r.V20
		sum.V5 += r.V5
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.SampleGap):
		}
	}
	n := float32(s.cfg.Samples)
	vpsu, v20, v5 := sum.VPSU/n, sum.V20/n, sum.V5/n

	s.psuOK = s.judge("PSU", vpsu, s.cfg.PSU, s.psuOK)
	s.v20OK = s.judge("20V", v20, s.cfg.V20, s.v20OK)
	s.v5OK = s.judge("5V", v5, s.cfg.V5, s.v5OK)

	colour := types.ColourOK
	if !s.psuOK || !s.v20OK || !s.v5OK {
		colour = types.ColourWarning
	}
	if err := s.board.SetIndicator(types.LEDSystem, colour); err != nil {
		s.log.Warningf("power: system indicator update skipped: %v", err)
	}
	if err := s.board.SetRails(vpsu, v20, v5, s.psuOK, s.v20OK, s.v5OK); err != nil {
		s.log.Warningf("power: status update skipped: %v", err)
	}
}

// judge returns the new in-range flag, warning once on the transition
// out of range.
func (s *Service) judge(rail string, v float32, band Band, wasOK bool) bool {
	if mathx.Between(v, band.Min, band.Max) {
		return true
	}
	if wasOK {
		s.log.Warningf("power: %s voltage out of range: %.2f V", rail, v)
	}
	return false
}
