// Package publisher drives the sampling loop: on every tick it asks the sampler
// for a batch and folds successful batches into the registry.
package publisher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vshulcz/vnstat-exporter/internal/ports"
	"github.com/vshulcz/vnstat-exporter/pkg/observer"
)

// State is the loop's current phase.
type State int32

const (
	Idle State = iota
	Sampling
	Updating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Updating:
		return "updating"
	default:
		return "unknown"
	}
}

// Outcome describes one finished tick.
type Outcome struct {
	At         time.Time
	Err        error
	Duration   time.Duration
	Interfaces int
}

// Publisher runs Sampler -> Sink on a fixed interval.
type Publisher struct {
	sampler     ports.Sampler
	sink        ports.Sink
	events      observer.Publisher[Outcome]
	clock       clock.Clock
	log         *zap.Logger
	failures    *failureLog
	inst        *instruments
	interval    time.Duration
	timeout     time.Duration
	state       atomic.Int32
	lastSuccess atomic.Pointer[time.Time]
}

type options struct {
	clock    clock.Clock
	log      *zap.Logger
	reg      prometheus.Registerer
	events   observer.Publisher[Outcome]
	logEvery int
	logQuiet time.Duration
}

// Option customizes a Publisher.
type Option func(*options)

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithRegisterer registers the exporter's self metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option { return func(o *options) { o.reg = reg } }

// WithObserver receives every tick outcome.
func WithObserver(p observer.Publisher[Outcome]) Option { return func(o *options) { o.events = p } }

// WithFailureLogging logs one warning per `every` consecutive failures or per `quiet` period.
func WithFailureLogging(every int, quiet time.Duration) Option {
	return func(o *options) { o.logEvery, o.logQuiet = every, quiet }
}

// New returns a Publisher. timeout bounds each Sample call and is capped at interval.
func New(s ports.Sampler, sink ports.Sink, interval, timeout time.Duration, opts ...Option) *Publisher {
	o := options{
		clock:    clock.New(),
		log:      zap.NewNop(),
		logEvery: defaultLogEvery,
		logQuiet: defaultLogQuiet,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Publisher{
		sampler:  s,
		sink:     sink,
		events:   o.events,
		clock:    o.clock,
		log:      o.log,
		failures: newFailureLog(o.log, o.logEvery, o.logQuiet),
		inst:     newInstruments(o.reg),
		interval: interval,
		timeout:  timeout,
	}
}

// Run samples immediately and then on every interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	t := p.clock.Ticker(p.interval)
	defer t.Stop()

	p.log.Info("publisher started", zap.Duration("interval", p.interval), zap.Duration("timeout", p.timeout))
	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("publisher stopped")
			return nil
		case <-t.C:
			p.Tick(ctx)
		}
	}
}

// Tick performs a single Idle -> Sampling -> (Updating) -> Idle cycle.
func (p *Publisher) Tick(ctx context.Context) Outcome {
	p.state.Store(int32(Sampling))
	start := p.clock.Now()

	sctx, cancel := context.WithTimeout(ctx, p.timeout)
	samples, err := p.sampler.Sample(sctx)
	cancel()

	out := Outcome{At: start, Duration: p.clock.Since(start), Err: err, Interfaces: len(samples)}
	if err != nil {
		p.state.Store(int32(Idle))
		if ctx.Err() != nil {
			// shutting down; not a source failure
			return out
		}
		p.failures.failure(err, p.clock.Now())
		p.finish(ctx, out)
		return out
	}

	p.state.Store(int32(Updating))
	p.sink.Update(samples)
	p.state.Store(int32(Idle))

	now := p.clock.Now()
	p.lastSuccess.Store(&now)
	p.failures.success(now)
	p.log.Debug("sampled", zap.Int("interfaces", out.Interfaces), zap.Duration("duration", out.Duration))
	p.finish(ctx, out)
	return out
}

func (p *Publisher) finish(ctx context.Context, out Outcome) {
	p.inst.observe(out)
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, out); err != nil {
		p.log.Warn("tick observer failed", zap.Error(err))
	}
}

// State reports the loop's current phase.
func (p *Publisher) State() State {
	return State(p.state.Load())
}

// LastSuccess is the time of the last successful sample, zero if none yet.
func (p *Publisher) LastSuccess() time.Time {
	if t := p.lastSuccess.Load(); t != nil {
		return *t
	}
	return time.Time{}
}
