package repository

import (
	"context"

	"github.com/perkwell/payout/internal/domain/model"
)

// AccountRepository describes persistence operations for member accounts.
// Balance mutations are deliberately absent: points move only inside the
// same transaction that changes a withdrawal's status.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	Create(ctx context.Context, verified bool, level int) (*model.Account, error)
	AddPoints(ctx context.Context, id int64, amount int64) error
}
