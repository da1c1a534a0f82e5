package ports

import (
	"context"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

// Sampler reads one snapshot of per-interface counters from the source.
type Sampler interface {
	Sample(ctx context.Context) ([]domain.InterfaceSample, error)
}

// Sink receives successfully sampled batches.
type Sink interface {
	Update(samples []domain.InterfaceSample)
}
