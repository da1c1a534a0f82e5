// Package supervisor reports process lifecycle to systemd. Outside systemd
// (no NOTIFY_SOCKET) every call is a no-op.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/services/publisher"
)

// NotifyFunc sends a state string to the service manager.
type NotifyFunc func(state string) (bool, error)

// WatchdogFunc reports the watchdog interval, zero when disabled.
type WatchdogFunc func() (time.Duration, error)

// Notifier wraps sd_notify.
type Notifier struct {
	notify   NotifyFunc
	watchdog WatchdogFunc
	clock    clock.Clock
	log      *zap.Logger
}

// Option customizes a Notifier.
type Option func(*Notifier)

func WithNotify(f NotifyFunc) Option { return func(n *Notifier) { n.notify = f } }

func WithWatchdog(f WatchdogFunc) Option { return func(n *Notifier) { n.watchdog = f } }

func WithClock(c clock.Clock) Option { return func(n *Notifier) { n.clock = c } }

// New returns a Notifier talking to systemd.
func New(log *zap.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		notify:   func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		watchdog: func() (time.Duration, error) { return daemon.SdWatchdogEnabled(false) },
		clock:    clock.New(),
		log:      log,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.log.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify", zap.String("state", state))
	}
}

// Ready tells systemd startup is complete.
func (n *Notifier) Ready() { n.send(daemon.SdNotifyReady) }

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Notify publishes a tick outcome as the unit's status line.
func (n *Notifier) Notify(_ context.Context, o publisher.Outcome) error {
	status := fmt.Sprintf("STATUS=sampled %d interfaces", o.Interfaces)
	if o.Err != nil {
		status = "STATUS=sampling failed: " + domain.ErrorKind(o.Err)
	}
	n.send(status)
	return nil
}

// Watchdog pings systemd at half the configured watchdog interval until ctx
// is done. It returns immediately when the watchdog is not enabled.
func (n *Notifier) Watchdog(ctx context.Context) error {
	every, err := n.watchdog()
	if err != nil {
		n.log.Warn("watchdog settings unreadable", zap.Error(err))
		return nil
	}
	if every <= 0 {
		return nil
	}
	t := n.clock.Ticker(every / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
