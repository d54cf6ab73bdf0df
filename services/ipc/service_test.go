package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/guard"
	"reactor-sys-go/statusd"
	"reactor-sys-go/timed"
	"reactor-sys-go/types"
)

type fixedClock struct{ dt types.DateTime }

func (c fixedClock) Read() (types.DateTime, error) { return c.dt, nil }
func (c fixedClock) Write(types.DateTime) error    { return nil }

type noNet struct{}

func (noNet) FetchEpoch() (int64, error) { return 0, io.EOF }

type offSettings struct{}

func (offSettings) NTPEnabled() bool       { return false }
func (offSettings) DSTEnabled() bool       { return false }
func (offSettings) TimezoneOffset() string { return "+00:00" }

func quiet() *diag.Sink { return diag.New(io.Discard, diag.LevelError) }

func newReadyBarrier() *guard.Barrier {
	b := guard.NewBarrier()
	b.Ready(guard.ContextNet)
	b.Ready(guard.ContextRT)
	return b
}

func testAuthority(t *testing.T, dt types.DateTime) *timed.Authority {
	t.Helper()
	a := timed.New(timed.Config{}, fixedClock{dt: dt}, noNet{}, offSettings{}, quiet())
	if err := a.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return a
}

func TestPublishEmitsTimeAndStatusFrames(t *testing.T) {
	dt := types.DateTime{Year: 2026, Month: 8, Day: 31, Hour: 9, Minute: 15, Second: 0}
	clock := testAuthority(t, dt)
	board := statusd.New(quiet())
	if err := board.SetRails(24.5, 20.1, 5.0, true, true, true); err != nil {
		t.Fatalf("set rails: %v", err)
	}
	_ = board.SetIndicator(types.LEDSystem, types.ColourOK)

	var buf bytes.Buffer
	svc := New(Config{}, nil, clock, board, quiet())
	if err := svc.publish(newFramedWriter(&buf)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	rd := newFramedReader(&buf)
	f, err := rd.ReadFrame()
	if err != nil {
		t.Fatalf("read time frame: %v", err)
	}
	if f.Type != frameTime {
		t.Fatalf("first frame type 0x%02X, want time", f.Type)
	}
	var ts timeSnapshot
	if err := json.Unmarshal(f.Payload, &ts); err != nil {
		t.Fatalf("time payload: %v", err)
	}
	if ts.Time != dt.String() {
		t.Fatalf("time = %q, want %q", ts.Time, dt.String())
	}

	f, err = rd.ReadFrame()
	if err != nil {
		t.Fatalf("read status frame: %v", err)
	}
	if f.Type != frameStatus {
		t.Fatalf("second frame type 0x%02X, want status", f.Type)
	}
	var ss statusSnapshot
	if err := json.Unmarshal(f.Payload, &ss); err != nil {
		t.Fatalf("status payload: %v", err)
	}
	if ss.VPSU != 24.5 || !ss.PSUOK || !ss.V20OK || !ss.V5OK {
		t.Fatalf("status = %+v", ss)
	}
	if ss.LED[types.LEDSystem] != uint32(types.ColourOK) {
		t.Fatalf("system LED = %06X", ss.LED[types.LEDSystem])
	}
}

func TestRunPublishesOverLinkAndCloses(t *testing.T) {
	clock := testAuthority(t, types.DateTime{Year: 2026, Month: 1, Day: 1})
	board := statusd.New(quiet())

	local, remote := net.Pipe()
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) { return local, nil }

	cfg := Config{Publish: 10 * time.Millisecond}
	svc := New(cfg, dial, clock, board, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, newReadyBarrier())
		close(done)
	}()

	rd := newFramedReader(remote)
	sawTime, sawStatus := false, false
	for !sawTime || !sawStatus {
		f, err := rd.ReadFrame()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		switch f.Type {
		case frameTime:
			sawTime = true
		case frameStatus:
			sawStatus = true
		}
	}

	cancel()
	for {
		f, err := rd.ReadFrame()
		if err != nil {
			t.Fatalf("read while draining: %v", err)
		}
		if f.Type == frameClose {
			break
		}
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestRunRedialsWithBackoff(t *testing.T) {
	clock := testAuthority(t, types.DateTime{Year: 2026, Month: 1, Day: 1})
	board := statusd.New(quiet())

	dials := make(chan struct{}, 16)
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		dials <- struct{}{}
		return nil, io.ErrClosedPipe
	}

	cfg := Config{RedialMin: time.Millisecond, RedialMax: 5 * time.Millisecond}
	svc := New(cfg, dial, clock, board, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx, newReadyBarrier())

	for i := 0; i < 3; i++ {
		select {
		case <-dials:
		case <-time.After(time.Second):
			t.Fatalf("only %d dial attempts observed", i)
		}
	}
}

func TestBackoffSequenceDoubledAndCapped(t *testing.T) {
	next := backoffSeq(250*time.Millisecond, time.Second)
	want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := next(); got != w {
			t.Fatalf("step %d = %s, want %s", i, got, w)
		}
	}
}
