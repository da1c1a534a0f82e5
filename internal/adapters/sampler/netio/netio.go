// Package netio samples interface byte counters straight from the kernel via gopsutil.
// It reports lifetime totals only; no period series are available.
package netio

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
)

// CountersFunc returns per-interface IO counters.
type CountersFunc func(ctx context.Context) ([]net.IOCountersStat, error)

// Sampler reads kernel interface counters.
type Sampler struct {
	counters CountersFunc
	now      func() time.Time
	allow    map[string]struct{}
}

var _ ports.Sampler = (*Sampler)(nil)

// New returns a Sampler. An empty interfaces list keeps every interface.
func New(interfaces []string) *Sampler {
	s := &Sampler{
		counters: func(ctx context.Context) ([]net.IOCountersStat, error) {
			return net.IOCountersWithContext(ctx, true)
		},
		now: time.Now,
	}
	if len(interfaces) > 0 {
		s.allow = make(map[string]struct{}, len(interfaces))
		for _, n := range interfaces {
			s.allow[n] = struct{}{}
		}
	}
	return s
}

// Sample reads the counters once.
func (s *Sampler) Sample(ctx context.Context) ([]domain.InterfaceSample, error) {
	stats, err := s.counters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read interface counters: %v", domain.ErrSourceUnavailable, err)
	}
	now := s.now()
	out := make([]domain.InterfaceSample, 0, len(stats))
	for _, st := range stats {
		if st.Name == "" {
			return nil, fmt.Errorf("%w: interface without a name", domain.ErrParse)
		}
		if s.allow != nil {
			if _, ok := s.allow[st.Name]; !ok {
				continue
			}
		}
		out = append(out, domain.InterfaceSample{
			Name:      st.Name,
			RX:        st.BytesRecv,
			TX:        st.BytesSent,
			Timestamp: now,
		})
	}
	return out, nil
}
