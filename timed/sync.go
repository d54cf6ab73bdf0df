// timed/sync.go
package timed

import (
	"time"

	"reactor-sys-go/errcode"
	"reactor-sys-go/x/timex"
)

// dstOffsetSeconds is the fixed shift applied when daylight saving is
// enabled in the network configuration.
const dstOffsetSeconds = 3600

// SyncFromNetwork fetches the current instant from the network time
// source, shifts it by the configured timezone (plus DST when
// enabled), and commits the result. Calls are throttled to one per
// MinSyncInterval unless force is set; the attempt timestamp is
// recorded whether or not the fetch succeeds, so a failing source is
// not hammered on repeated triggers.
func (a *Authority) SyncFromNetwork(force bool) error {
	if !a.set.NTPEnabled() {
		return nil
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if since := a.now().Sub(a.lastAttempt); !force && !a.lastAttempt.IsZero() && since < a.cfg.MinSyncInterval {
		a.log.Infof("timed: %ds since last network sync - skipping", int(since.Seconds()))
		return nil
	}
	a.lastAttempt = a.now()

	epoch, err := a.fetchEpoch()
	if err != nil {
		a.log.Errorf("timed: failed to get time from network source, giving up")
		return errcode.NetTimeUnavailable
	}

	off, err := timex.ParseTZOffset(a.set.TimezoneOffset())
	if err != nil {
		a.log.Warningf("timed: bad timezone %q: %v", a.set.TimezoneOffset(), err)
		off = 0
	}
	if a.set.DSTEnabled() {
		off += dstOffsetSeconds
	}

	dt := timex.EpochToDateTime(epoch + int64(off))
	if err := a.Commit(dt); err != nil {
		a.log.Errorf("timed: failed to update time from network source")
		return err
	}
	a.log.Infof("timed: time updated from network time source")
	return nil
}

// fetchEpoch queries the source, retrying a few times with a short
// delay before giving up.
func (a *Authority) fetchEpoch() (int64, error) {
	epoch, err := a.net.FetchEpoch()
	if err == nil {
		return epoch, nil
	}
	a.log.Warningf("timed: failed to get time from network source, retrying")
	for i := 0; i < a.cfg.FetchRetries; i++ {
		time.Sleep(a.cfg.FetchRetryDelay)
		if epoch, err = a.net.FetchEpoch(); err == nil {
			return epoch, nil
		}
	}
	return 0, err
}
