// Package persist saves registry snapshots to a state store, either after
// every successful tick or on a fixed interval, and once more on shutdown.
package persist

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
	"github.com/vshulcz/vnstat-exporter/internal/services/publisher"
)

// Snapshotter is the registry view the flusher saves.
type Snapshotter interface {
	Snapshot() []domain.InterfaceState
	Restore([]domain.InterfaceState) int
}

type Flusher struct {
	store    ports.StateStore
	src      Snapshotter
	clock    clock.Clock
	log      *zap.Logger
	interval time.Duration
}

type Option func(*Flusher)

func WithClock(c clock.Clock) Option { return func(f *Flusher) { f.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(f *Flusher) { f.log = l } }

// New returns a Flusher. interval 0 means save after every successful tick.
func New(store ports.StateStore, src Snapshotter, interval time.Duration, opts ...Option) *Flusher {
	f := &Flusher{store: store, src: src, interval: interval, clock: clock.New(), log: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Restore loads saved counters into the registry.
func (f *Flusher) Restore(ctx context.Context) error {
	states, err := f.store.Load(ctx)
	if err != nil {
		return err
	}
	n := f.src.Restore(states)
	f.log.Info("state restored", zap.Int("interfaces", n))
	return nil
}

// Save writes the current snapshot.
func (f *Flusher) Save(ctx context.Context) error {
	return f.store.Save(ctx, f.src.Snapshot())
}

// Notify saves after successful ticks when running in synchronous mode.
func (f *Flusher) Notify(ctx context.Context, o publisher.Outcome) error {
	if f.interval > 0 || o.Err != nil {
		return nil
	}
	return f.Save(ctx)
}

// Run saves every interval until ctx is done, then saves once more with a
// fresh context. It returns immediately after the final save in synchronous mode.
func (f *Flusher) Run(ctx context.Context) error {
	if f.interval > 0 {
		t := f.clock.Ticker(f.interval)
		defer t.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-t.C:
				if err := f.Save(ctx); err != nil && ctx.Err() == nil {
					f.log.Warn("periodic state save failed", zap.Error(err))
				}
			}
		}
	} else {
		<-ctx.Done()
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := f.Save(sctx); err != nil {
		f.log.Warn("final state save failed", zap.Error(err))
		return nil
	}
	f.log.Info("state saved")
	return nil
}
