package repository

import (
	"context"

	"github.com/perkwell/payout/internal/domain/model"
)

// MethodRepository stores payout method configuration. Read often,
// written rarely by admins.
type MethodRepository interface {
	List(ctx context.Context) ([]model.MethodConfig, error)
	Get(ctx context.Context, method model.PayoutMethod) (*model.MethodConfig, error)
	Upsert(ctx context.Context, cfg *model.MethodConfig) error
}
