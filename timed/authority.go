// timed/authority.go
package timed

import (
	"context"
	"sync"
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/errcode"
	"reactor-sys-go/guard"
	"reactor-sys-go/types"
)

// -----------------------------------------------------------------------------
// Collaborator contracts
// -----------------------------------------------------------------------------

// Clock is the hardware real-time clock chip.
type Clock interface {
	Read() (types.DateTime, error)
	Write(types.DateTime) error
}

// NetTime is the network time source.
type NetTime interface {
	// FetchEpoch returns the current instant as Unix seconds (UTC).
	FetchEpoch() (int64, error)
}

// Settings is the slice of the network configuration the authority
// consumes: whether network sync runs and how to shift the result.
type Settings interface {
	NTPEnabled() bool
	DSTEnabled() bool
	TimezoneOffset() string // "+HH:MM" / "-HH:MM"
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

type Config struct {
	LockWait        time.Duration // bounded wait for read/commit acquires
	CommitAttempts  int           // write-then-verify attempts
	CommitBackoff   time.Duration // delay between verify attempts
	MinSyncInterval time.Duration // spacing between network syncs
	FetchRetries    int           // extra fetch attempts after the first
	FetchRetryDelay time.Duration
	RefreshPeriod   time.Duration // hardware-poll cadence
	RefreshWait     time.Duration // short lock wait for the poll task
}

func (c Config) withDefaults() Config {
	if c.LockWait <= 0 {
		c.LockWait = 100 * time.Millisecond
	}
	if c.CommitAttempts <= 0 {
		c.CommitAttempts = 3
	}
	if c.CommitBackoff <= 0 {
		c.CommitBackoff = 100 * time.Millisecond
	}
	if c.MinSyncInterval <= 0 {
		c.MinSyncInterval = 60 * time.Second
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = 3
	}
	if c.FetchRetryDelay <= 0 {
		c.FetchRetryDelay = 10 * time.Millisecond
	}
	if c.RefreshPeriod <= 0 {
		c.RefreshPeriod = 1 * time.Second
	}
	if c.RefreshWait <= 0 {
		c.RefreshWait = 100 * time.Millisecond
	}
	return c
}

// -----------------------------------------------------------------------------
// Authority
// -----------------------------------------------------------------------------

// Authority owns the single in-memory wall-clock value and its
// reconciliation against the hardware clock and the network time
// source. All access goes through the guarded cell; no caller ever
// holds a direct mutable reference.
type Authority struct {
	cfg  Config
	cell *guard.Cell[types.DateTime]
	clk  Clock
	net  NetTime
	set  Settings
	log  *diag.Sink

	syncMu      sync.Mutex
	lastAttempt time.Time
	now         func() time.Time
}

func New(cfg Config, clk Clock, net NetTime, set Settings, log *diag.Sink) *Authority {
	return &Authority{
		cfg:  cfg.withDefaults(),
		cell: guard.NewCell(types.DateTime{}),
		clk:  clk,
		net:  net,
		set:  set,
		log:  log,
		now:  time.Now,
	}
}

// Now returns a copy of the current value. Side-effect-free; a busy
// lock surfaces as errcode.LockTimeout and the caller skips its cycle.
func (a *Authority) Now() (types.DateTime, error) {
	var dt types.DateTime
	if err := a.cell.With(a.cfg.LockWait, func(v *types.DateTime) { dt = *v }); err != nil {
		return types.DateTime{}, err
	}
	return dt, nil
}

// Commit writes candidate to the hardware clock with a bounded
// write-then-verify retry loop and adopts it as the in-memory value
// only once a readback matched on every field. The lock is held for
// the whole sequence: a half-written clock must never be observable.
// On exhausted retries the in-memory value is left unchanged and
// errcode.VerifyFailed is returned.
func (a *Authority) Commit(dt types.DateTime) error {
	if err := a.cell.Acquire(a.cfg.LockWait); err != nil {
		a.log.Errorf("timed: failed to take time lock for commit")
		return err
	}
	defer a.cell.Release()

	for attempt := 1; attempt <= a.cfg.CommitAttempts; attempt++ {
		a.log.Infof("timed: attempt %d: setting hardware clock to %s", attempt, dt)
		ok := false
		if err := a.clk.Write(dt); err != nil {
			a.log.Errorf("timed: hardware clock write failed: %v", err)
		} else if got, err := a.clk.Read(); err != nil {
			a.log.Errorf("timed: failed to read hardware clock during verification: %v", err)
		} else if got.Equal(dt) {
			ok = true
		} else {
			a.log.Errorf("timed: clock verification failed, current %s, expected %s", got, dt)
		}
		if ok {
			*a.cell.Value() = dt
			a.log.Infof("timed: time set to %s", dt)
			return nil
		}
		if attempt < a.cfg.CommitAttempts {
			time.Sleep(a.cfg.CommitBackoff)
		}
	}
	a.log.Errorf("timed: failed to set hardware clock after %d attempts", a.cfg.CommitAttempts)
	return errcode.VerifyFailed
}

// Initialize reads the hardware clock once at boot and adopts the
// value directly, skipping the verify loop. Failure is logged but not
// fatal: the zero value stays and the periodic refresh catches up.
func (a *Authority) Initialize() error {
	dt, err := a.clk.Read()
	if err != nil {
		a.log.Errorf("timed: hardware clock init failed: %v", err)
		return &errcode.E{C: errcode.HardwareRead, Op: "init", Err: err}
	}
	a.cell.AcquireBlocking()
	*a.cell.Value() = dt
	a.cell.Release()
	a.log.Infof("timed: current date and time is %s", dt)
	return nil
}

// RunRefresh polls the hardware clock on a fixed cadence and
// overwrites the in-memory value whenever the lock is free within a
// short bounded wait. A busy lock or a failed read skips the cycle;
// this task must never block.
func (a *Authority) RunRefresh(ctx context.Context) {
	a.log.Infof("timed: hardware clock refresh task started")
	tick := time.NewTicker(a.cfg.RefreshPeriod)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			dt, err := a.clk.Read()
			if err != nil {
				a.log.Debugf("timed: refresh read failed: %v", err)
				continue
			}
			_ = a.cell.With(a.cfg.RefreshWait, func(v *types.DateTime) { *v = dt })
		}
	}
}
