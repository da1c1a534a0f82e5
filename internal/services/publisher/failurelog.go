package publisher

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

const (
	defaultLogEvery = 10
	defaultLogQuiet = 10 * time.Minute
)

// failureLog writes at most one warning per `every` consecutive identical failures
// (or per `quiet` period) and a single line when sampling recovers.
type failureLog struct {
	since   time.Time
	log     *zap.Logger
	gate    *rate.Sometimes
	lastMsg string
	streak  int
	every   int
	quiet   time.Duration
	mu      sync.Mutex
}

func newFailureLog(log *zap.Logger, every int, quiet time.Duration) *failureLog {
	if every < 1 {
		every = 1
	}
	return &failureLog{log: log, every: every, quiet: quiet}
}

func (f *failureLog) failure(err error, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg := err.Error()
	if f.streak == 0 {
		f.since = now
	}
	if f.gate == nil || msg != f.lastMsg {
		f.gate = &rate.Sometimes{First: 1, Every: f.every, Interval: f.quiet}
		f.lastMsg = msg
	}
	f.streak++

	f.gate.Do(func() {
		f.log.Warn("sampling failed, keeping previous values",
			zap.Error(err),
			zap.String("kind", domain.ErrorKind(err)),
			zap.Int("consecutive_failures", f.streak),
			zap.Time("failing_since", f.since),
		)
	})
}

func (f *failureLog) success(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streak == 0 {
		return
	}
	f.log.Info("sampling recovered",
		zap.Int("failed_ticks", f.streak),
		zap.Duration("outage", now.Sub(f.since)),
	)
	f.streak = 0
	f.gate = nil
	f.lastMsg = ""
}
