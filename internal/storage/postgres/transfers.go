package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

const transferColumns = `id, reference, withdrawal_id, source, amount, fee, net,
    recipient_acct, recipient_bank, status, provider_ref, error_message,
    retry_count, transferred_at, settled_at, created_at`

func scanTransfer(row pgx.Row) (*model.FundTransfer, error) {
	var t model.FundTransfer
	err := row.Scan(&t.ID, &t.Reference, &t.WithdrawalID, &t.Source, &t.Amount, &t.Fee, &t.Net,
		&t.RecipientAcct, &t.RecipientBank, &t.Status, &t.ProviderRef, &t.ErrorMessage,
		&t.RetryCount, &t.TransferredAt, &t.SettledAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepository) Create(ctx context.Context, t *model.FundTransfer) (*model.FundTransfer, error) {
	const insert = `INSERT INTO fund_transfers
                        (reference, withdrawal_id, source, amount, fee, net, recipient_acct, recipient_bank, status)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                    RETURNING ` + transferColumns

	// Net is recomputed here, never trusted from upstream input.
	net := t.Amount - t.Fee

	created, err := scanTransfer(r.storage.pool.QueryRow(ctx, insert,
		t.Reference, t.WithdrawalID, t.Source, t.Amount, t.Fee, net,
		t.RecipientAcct, t.RecipientBank, model.TransferStatusPending))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrTransferInFlight
		}
		return nil, err
	}
	return created, nil
}

func (r *transferRepository) GetByID(ctx context.Context, id int64) (*model.FundTransfer, error) {
	const query = `SELECT ` + transferColumns + ` FROM fund_transfers WHERE id=$1`
	t, err := scanTransfer(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *transferRepository) GetByReference(ctx context.Context, reference string) (*model.FundTransfer, error) {
	const query = `SELECT ` + transferColumns + ` FROM fund_transfers WHERE reference=$1`
	t, err := scanTransfer(r.storage.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *transferRepository) SumPending(ctx context.Context, source model.TransferSource) (int64, error) {
	const query = `SELECT COALESCE(SUM(net), 0) FROM fund_transfers WHERE status=$1 AND source=$2`
	var total int64
	if err := r.storage.pool.QueryRow(ctx, query, model.TransferStatusPending, source).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *transferRepository) ClaimBatch(ctx context.Context, source model.TransferSource, limit int) ([]model.FundTransfer, error) {
	const selectQuery = `SELECT ` + transferColumns + ` FROM fund_transfers
                         WHERE status=$1 AND source=$2
                         ORDER BY created_at
                         LIMIT $3
                         FOR UPDATE SKIP LOCKED`

	var transfers []model.FundTransfer
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, model.TransferStatusPending, source, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTransfer(rows)
			if err != nil {
				return err
			}
			transfers = append(transfers, *t)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range transfers {
			t := &transfers[i]
			if _, err := tx.Exec(ctx,
				`UPDATE fund_transfers SET status='processing', transferred_at=NOW() WHERE id=$1`, t.ID); err != nil {
				return err
			}
			t.Status = model.TransferStatusProcessing

			if t.WithdrawalID != nil {
				// Tolerates 0 rows: the withdrawal may already be
				// processing from an earlier requeued attempt.
				if _, err := tx.Exec(ctx,
					`UPDATE withdrawal_requests SET status='processing', updated_at=NOW()
                     WHERE id=$1 AND status='approved'`, *t.WithdrawalID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *transferRepository) MarkAcknowledged(ctx context.Context, id int64, providerRef string) error {
	const update = `UPDATE fund_transfers SET provider_ref=$2 WHERE id=$1 AND status='processing'`
	tag, err := r.storage.pool.Exec(ctx, update, id, providerRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrConflict
	}
	return nil
}

func (r *transferRepository) MarkSuccessful(ctx context.Context, id int64, settledAt time.Time) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const update = `UPDATE fund_transfers
                        SET status='successful', settled_at=$2
                        WHERE id=$1 AND status='processing'
                        RETURNING withdrawal_id`
		var withdrawalID *int64
		err := tx.QueryRow(ctx, update, id, settledAt).Scan(&withdrawalID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrConflict
			}
			return err
		}

		if withdrawalID != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE withdrawal_requests SET status='completed', updated_at=NOW()
                 WHERE id=$1 AND status='processing'`, *withdrawalID); err != nil {
				return err
			}
			if err := appendAudit(ctx, tx, *withdrawalID, "system", "complete", ""); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *transferRepository) Requeue(ctx context.Context, id int64, errMsg string) error {
	const update = `UPDATE fund_transfers
                    SET status='pending', retry_count=retry_count+1, error_message=$2, provider_ref=''
                    WHERE id=$1 AND status='processing'`
	tag, err := r.storage.pool.Exec(ctx, update, id, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrConflict
	}
	return nil
}

// RecoverOrphaned requeues transfers a previous process claimed but
// never sent. Runs at startup before any worker exists, so a processing
// row without a provider reference can only be an orphan; rows that
// already reached the provider keep waiting for the webhook verdict.
func (r *transferRepository) RecoverOrphaned(ctx context.Context) (int64, error) {
	const update = `UPDATE fund_transfers SET status='pending', transferred_at=NULL
                    WHERE status='processing' AND provider_ref=''`
	tag, err := r.storage.pool.Exec(ctx, update)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *transferRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const update = `UPDATE fund_transfers
                        SET status='failed', error_message=$2, retry_count=retry_count+1, settled_at=NOW()
                        WHERE id=$1 AND status='processing'
                        RETURNING withdrawal_id`
		var withdrawalID *int64
		err := tx.QueryRow(ctx, update, id, errMsg).Scan(&withdrawalID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrConflict
			}
			return err
		}

		if withdrawalID == nil {
			return nil
		}

		const failWithdrawal = `UPDATE withdrawal_requests SET status='failed', updated_at=NOW()
                                WHERE id=$1 AND status='processing'
                                RETURNING account_id, amount`
		var accountID, amount int64
		err = tx.QueryRow(ctx, failWithdrawal, *withdrawalID).Scan(&accountID, &amount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Already failed by a concurrent path; compensation ran there.
				return nil
			}
			return err
		}

		// Exactly one compensating credit of the reserved points.
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2 WHERE id=$1`, accountID, amount); err != nil {
			return err
		}
		return appendAudit(ctx, tx, *withdrawalID, "system", "fail", errMsg)
	})
}
