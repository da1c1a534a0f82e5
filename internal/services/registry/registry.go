// Package registry keeps the latest per-interface traffic counters and exposes
// them as Prometheus metrics through an owned, non-global registry.
package registry

import (
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
)

// DecreasePolicy decides what happens when a source counter goes down.
type DecreasePolicy string

const (
	// ResetOnDecrease exports the lower value and counts a counter reset.
	ResetOnDecrease DecreasePolicy = "reset"
	// ClampOnDecrease keeps exporting the previous value until the source passes it again.
	ClampOnDecrease DecreasePolicy = "clamp"
)

type metricSet struct {
	periods  map[domain.Period]domain.Traffic
	updated  time.Time
	rx       uint64
	tx       uint64
	rxResets uint64
	txResets uint64
}

// Registry maps interface names to metric sets. Sets are created on first
// sight and never removed.
type Registry struct {
	sets   map[string]*metricSet
	prom   *prometheus.Registry
	policy DecreasePolicy
	mu     sync.RWMutex
}

var _ ports.Sink = (*Registry)(nil)

// Option customizes a Registry.
type Option func(*Registry)

// WithDecreasePolicy sets the counter decrease policy. Unknown values fall back to ResetOnDecrease.
func WithDecreasePolicy(p DecreasePolicy) Option {
	return func(r *Registry) {
		if p == ClampOnDecrease {
			r.policy = ClampOnDecrease
			return
		}
		r.policy = ResetOnDecrease
	}
}

// New returns an empty Registry with its own Prometheus registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sets:   make(map[string]*metricSet),
		prom:   prometheus.NewRegistry(),
		policy: ResetOnDecrease,
	}
	for _, o := range opts {
		o(r)
	}
	r.prom.MustRegister(collector{r: r})
	return r
}

// Update folds a batch of samples into the registry under one write lock.
func (r *Registry) Update(samples []domain.InterfaceSample) {
	if len(samples) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		set, ok := r.sets[s.Name]
		if !ok {
			set = &metricSet{periods: make(map[domain.Period]domain.Traffic, len(s.Periods))}
			r.sets[s.Name] = set
			set.rx, set.tx = s.RX, s.TX
		} else {
			set.rx, set.rxResets = r.fold(set.rx, s.RX, set.rxResets)
			set.tx, set.txResets = r.fold(set.tx, s.TX, set.txResets)
		}
		if !s.Timestamp.IsZero() {
			set.updated = s.Timestamp
		}
		maps.Copy(set.periods, s.Periods)
	}
}

func (r *Registry) fold(prev, next, resets uint64) (uint64, uint64) {
	if next >= prev {
		return next, resets
	}
	if r.policy == ClampOnDecrease {
		return prev, resets
	}
	return next, resets + 1
}

// Restore seeds the registry with persisted totals. Interfaces already known are left alone.
func (r *Registry) Restore(states []domain.InterfaceState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, st := range states {
		if st.Name == "" {
			continue
		}
		if _, ok := r.sets[st.Name]; ok {
			continue
		}
		r.sets[st.Name] = &metricSet{
			periods: make(map[domain.Period]domain.Traffic),
			updated: st.Updated,
			rx:      st.RX,
			tx:      st.TX,
		}
		n++
	}
	return n
}

// Snapshot returns the exported totals of every known interface, sorted by name.
func (r *Registry) Snapshot() []domain.InterfaceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.InterfaceState, 0, len(r.sets))
	for _, name := range slices.Sorted(maps.Keys(r.sets)) {
		set := r.sets[name]
		out = append(out, domain.InterfaceState{Name: name, RX: set.rx, TX: set.tx, Updated: set.updated})
	}
	return out
}

// Interfaces returns every interface name seen so far, sorted.
func (r *Registry) Interfaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sets))
}

// Registerer lets callers add their own collectors next to the traffic metrics.
func (r *Registry) Registerer() prometheus.Registerer { return r.prom }

// Gatherer is what the HTTP layer serves.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.prom }

// Render writes the current state in the text exposition format.
func (r *Registry) Render(w io.Writer) error {
	mfs, err := r.prom.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
