package diary

import (
	"context"
	"os"
	"os/signal"
	"time"
)

// Lock reasons.
const (
	ReasonManual = "manual"
	ReasonSignal = "signal"
	ReasonReset  = "reset"
	ReasonMove   = "directory change"
)

// LockEvent is emitted when an unlocked diary locks.
type LockEvent struct {
	Reason string
	At     time.Time
}

// Listener for lock events.
// Listeners are called without holding the state lock.
type Listener func(e LockEvent)

// AddListener registers a lock event listener.
func (d *Diary) AddListener(l Listener) {
	d.lmtx.Lock()
	defer d.lmtx.Unlock()
	d.listeners = append(d.listeners, l)
}

func (d *Diary) emit(e LockEvent) {
	d.lmtx.Lock()
	listeners := append([]Listener{}, d.listeners...)
	d.lmtx.Unlock()
	for _, l := range listeners {
		l(e)
	}
}

// AutoLock locks if unlocked, for an external reason such as the session
// locking or the system suspending.
// Returns true if the diary was unlocked.
func (d *Diary) AutoLock(reason string) (bool, error) {
	if reason == "" {
		reason = "external"
	}
	return d.lockWithReason(reason)
}

// WatchSignals locks the diary when the process receives any of sigs,
// until ctx is done.
func (d *Diary) WatchSignals(ctx context.Context, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				logger.Infof("Received %s", sig)
				if _, err := d.AutoLock(ReasonSignal + ": " + sig.String()); err != nil {
					logger.Errorf("Failed to lock: %v", err)
				}
			}
		}
	}()
}
