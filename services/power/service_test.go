package power

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/guard"
	"reactor-sys-go/statusd"
	"reactor-sys-go/types"
)

func newReadyBarrier() *guard.Barrier {
	b := guard.NewBarrier()
	b.Ready(guard.ContextNet)
	b.Ready(guard.ContextRT)
	return b
}

type fixedSampler struct {
	rails Rails
	err   error
}

func (s *fixedSampler) Read() (Rails, error) { return s.rails, s.err }

func quiet() *diag.Sink { return diag.New(io.Discard, diag.LevelError) }

func testPowerConfig() Config {
	return Config{Samples: 2, SampleGap: time.Millisecond}
}

func TestMeasurePublishesHealthyRails(t *testing.T) {
	sampler := &fixedSampler{rails: Rails{VPSU: 24, V20: 20, V5: 5}}
	board := statusd.New(quiet())
	s := New(testPowerConfig(), sampler, board, quiet())

	s.measure(context.Background())

	st, _ := board.Snapshot()
	if !st.PSUOK || !st.V20OK || !st.V5OK {
		t.Fatalf("flags = %t/%t/%t, want all true", st.PSUOK, st.V20OK, st.V5OK)
	}
	if st.VPSU != 24 || st.V20 != 20 || st.V5 != 5 {
		t.Fatalf("voltages = %.2f/%.2f/%.2f", st.VPSU, st.V20, st.V5)
	}
	if st.LED[types.LEDSystem] != types.ColourOK {
		t.Fatal("system indicator should be OK")
	}
}

func TestMeasureAverages(t *testing.T) {
	sampler := &alternatingSampler{lo: Rails{VPSU: 23, V20: 19, V5: 4.8}, hi: Rails{VPSU: 25, V20: 21, V5: 5.2}}
	board := statusd.New(quiet())
	s := New(testPowerConfig(), sampler, board, quiet())

	s.measure(context.Background())

	st, _ := board.Snapshot()
	if !near(st.VPSU, 24) || !near(st.V20, 20) || !near(st.V5, 5) {
		t.Fatalf("averages = %.2f/%.2f/%.2f, want 24/20/5", st.VPSU, st.V20, st.V5)
	}
}

func near(got, want float32) bool {
	d := got - want
	return d > -0.001 && d < 0.001
}

type alternatingSampler struct {
	lo, hi Rails
	n      int
}

func (s *alternatingSampler) Read() (Rails, error) {
	s.n++
	if s.n%2 == 1 {
		return s.lo, nil
	}
	return s.hi, nil
}

func TestMeasureFlagsOutOfRangeRail(t *testing.T) {
	sampler := &fixedSampler{rails: Rails{VPSU: 24, V20: 20, V5: 6.2}}
	board := statusd.New(quiet())
	s := New(testPowerConfig(), sampler, board, quiet())

	s.measure(context.Background())

	st, _ := board.Snapshot()
	if !st.PSUOK || !st.V20OK || st.V5OK {
		t.Fatalf("flags = %t/%t/%t", st.PSUOK, st.V20OK, st.V5OK)
	}
	if st.LED[types.LEDSystem] != types.ColourWarning {
		t.Fatal("system indicator should warn")
	}
}

func TestOutOfRangeWarnsOnceOnTransition(t *testing.T) {
	var buf bytes.Buffer
	log := diag.New(&buf, diag.LevelWarning)
	sampler := &fixedSampler{rails: Rails{VPSU: 24, V20: 20, V5: 5}}
	s := New(testPowerConfig(), sampler, statusd.New(quiet()), log)

	s.measure(context.Background()) // healthy, arms the flag
	sampler.rails.V5 = 6.2
	s.measure(context.Background()) // transition, warns
	s.measure(context.Background()) // still bad, silent

	if n := strings.Count(buf.String(), "5V voltage out of range"); n != 1 {
		t.Fatalf("warned %d times, want 1:\n%s", n, buf.String())
	}
}

func TestSamplerErrorSkipsRound(t *testing.T) {
	sampler := &fixedSampler{err: errors.New("adc fault")}
	board := statusd.New(quiet())
	s := New(testPowerConfig(), sampler, board, quiet())

	s.measure(context.Background())

	st, _ := board.Snapshot()
	if st.VPSU != 0 || st.PSUOK {
		t.Fatal("failed round must leave the board untouched")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sampler := &fixedSampler{rails: Rails{VPSU: 24, V20: 20, V5: 5}}
	cfg := testPowerConfig()
	cfg.Period = 5 * time.Millisecond
	s := New(cfg, sampler, statusd.New(quiet()), quiet())

	b := newReadyBarrier()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, b)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
