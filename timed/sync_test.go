package timed

import (
	"testing"
	"time"

	"reactor-sys-go/errcode"
	"reactor-sys-go/x/timex"
)

// stepClock lets tests move the throttle's idea of the current time.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time          { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

const syncEpoch = int64(1700000000)

func newSyncAuthority(net *fakeNet, set fakeSettings) (*Authority, *stepClock) {
	a := New(testConfig(), &fakeRTC{}, net, set, quiet())
	sc := &stepClock{t: time.Unix(0, 0).Add(time.Hour)}
	a.now = sc.now
	return a, sc
}

func TestSyncDisabledIsNoOp(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch}
	a, _ := newSyncAuthority(net, fakeSettings{ntp: false})
	if err := a.SyncFromNetwork(true); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if net.calls != 0 {
		t.Fatalf("fetched %d times with NTP disabled", net.calls)
	}
}

func TestSyncThrottlesUnforcedCalls(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch}
	a, clk := newSyncAuthority(net, fakeSettings{ntp: true, tz: "+00:00"})

	if err := a.SyncFromNetwork(false); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	clk.advance(30 * time.Second)
	if err := a.SyncFromNetwork(false); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if net.calls != 1 {
		t.Fatalf("fetches = %d after two calls inside the window, want 1", net.calls)
	}

	clk.advance(31 * time.Second)
	if err := a.SyncFromNetwork(false); err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if net.calls != 2 {
		t.Fatalf("fetches = %d after the window passed, want 2", net.calls)
	}
}

func TestSyncForceBypassesThrottle(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch}
	a, clk := newSyncAuthority(net, fakeSettings{ntp: true, tz: "+00:00"})

	if err := a.SyncFromNetwork(false); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	clk.advance(time.Second)
	if err := a.SyncFromNetwork(true); err != nil {
		t.Fatalf("forced sync: %v", err)
	}
	if net.calls != 2 {
		t.Fatalf("fetches = %d, want 2", net.calls)
	}
}

func TestSyncRecordsFailedAttempt(t *testing.T) {
	net := &fakeNet{fails: 100}
	a, clk := newSyncAuthority(net, fakeSettings{ntp: true, tz: "+00:00"})

	err := a.SyncFromNetwork(false)
	if !errcode.Is(err, errcode.NetTimeUnavailable) {
		t.Fatalf("err = %v, want %v", err, errcode.NetTimeUnavailable)
	}
	// First try plus the configured retries.
	if net.calls != 4 {
		t.Fatalf("fetches = %d, want 4", net.calls)
	}

	// The failed attempt still counts against the throttle.
	clk.advance(time.Second)
	if err := a.SyncFromNetwork(false); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if net.calls != 4 {
		t.Fatalf("fetches = %d after throttled call, want 4", net.calls)
	}
}

func TestSyncRetriesFetch(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch, fails: 2}
	a, _ := newSyncAuthority(net, fakeSettings{ntp: true, tz: "+00:00"})

	if err := a.SyncFromNetwork(true); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if net.calls != 3 {
		t.Fatalf("fetches = %d, want 3", net.calls)
	}
}

func TestSyncAppliesTimezoneAndDST(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch}
	a, _ := newSyncAuthority(net, fakeSettings{ntp: true, dst: true, tz: "+02:00"})

	if err := a.SyncFromNetwork(true); err != nil {
		t.Fatalf("sync: %v", err)
	}
	want := timex.EpochToDateTime(syncEpoch + 2*3600 + 3600)
	got, err := a.Now()
	if err != nil {
		t.Fatalf("now: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("now = %s, want %s", got, want)
	}
}

func TestSyncNegativeOffset(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch}
	a, _ := newSyncAuthority(net, fakeSettings{ntp: true, tz: "-05:30"})

	if err := a.SyncFromNetwork(true); err != nil {
		t.Fatalf("sync: %v", err)
	}
	want := timex.EpochToDateTime(syncEpoch - (5*3600 + 30*60))
	got, _ := a.Now()
	if !got.Equal(want) {
		t.Fatalf("now = %s, want %s", got, want)
	}
}

func TestSyncBadTimezoneFallsBackToUTC(t *testing.T) {
	net := &fakeNet{epoch: syncEpoch}
	a, _ := newSyncAuthority(net, fakeSettings{ntp: true, tz: "garbage"})

	if err := a.SyncFromNetwork(true); err != nil {
		t.Fatalf("sync: %v", err)
	}
	want := timex.EpochToDateTime(syncEpoch)
	got, _ := a.Now()
	if !got.Equal(want) {
		t.Fatalf("now = %s, want %s", got, want)
	}
}
