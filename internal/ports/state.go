package ports

import (
	"context"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

// StateStore keeps the last exported totals across restarts.
type StateStore interface {
	Save(ctx context.Context, states []domain.InterfaceState) error
	Load(ctx context.Context) ([]domain.InterfaceState, error)
}
