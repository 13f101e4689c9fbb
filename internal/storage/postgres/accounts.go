package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT id, balance, yield_balance, verified, level, created_at FROM accounts WHERE id=$1`
	var a model.Account
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Balance, &a.YieldBalance, &a.Verified, &a.Level, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, verified bool, level int) (*model.Account, error) {
	const query = `INSERT INTO accounts (verified, level) VALUES ($1, $2) RETURNING id, created_at`
	a := model.Account{Verified: verified, Level: level}
	if err := r.storage.pool.QueryRow(ctx, query, verified, level).Scan(&a.ID, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddPoints credits earned points outside the withdrawal flow (accrual
// side of the platform). Withdrawal-coupled balance movement never goes
// through here.
func (r *accountRepository) AddPoints(ctx context.Context, id int64, amount int64) error {
	const query = `UPDATE accounts SET balance = balance + $2 WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}
