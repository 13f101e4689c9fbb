package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

const withdrawalColumns = `id, account_id, amount, method, details, status, fee, net, admin_notes, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	var details []byte
	err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &w.Method, &details, &w.Status, &w.Fee, &w.Net, &w.AdminNotes, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &w.Details); err != nil {
			return nil, fmt.Errorf("decode payout details: %w", err)
		}
	}
	return &w, nil
}

func appendAudit(ctx context.Context, tx pgx.Tx, withdrawalID int64, actor, action, notes string) error {
	const query = `INSERT INTO withdrawal_audit (withdrawal_id, actor, action, notes) VALUES ($1, $2, $3, $4)`
	_, err := tx.Exec(ctx, query, withdrawalID, actor, action, notes)
	return err
}

// lockBalance reads the account balance with a row lock inside tx.
func lockBalance(ctx context.Context, tx pgx.Tx, accountID int64) (int64, error) {
	const query = `SELECT balance FROM accounts WHERE id=$1 FOR UPDATE`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (r *withdrawalRepository) CreatePending(ctx context.Context, accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails) (*model.Withdrawal, error) {
	var created *model.Withdrawal
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		balance, err := lockBalance(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if balance < amount {
			return domainErrors.ErrInsufficientBalance
		}

		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance - $2 WHERE id=$1`, accountID, amount); err != nil {
			return err
		}

		encoded, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode payout details: %w", err)
		}

		const insert = `INSERT INTO withdrawal_requests (account_id, amount, method, details, status)
                        VALUES ($1, $2, $3, $4, $5)
                        RETURNING ` + withdrawalColumns
		created, err = scanWithdrawal(tx.QueryRow(ctx, insert, accountID, amount, method, encoded, model.WithdrawalStatusPending))
		if err != nil {
			return err
		}

		return appendAudit(ctx, tx, created.ID, fmt.Sprintf("account:%d", accountID), "submit", "")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *withdrawalRepository) CreateInternal(ctx context.Context, accountID, amount int64) (*model.Withdrawal, error) {
	var created *model.Withdrawal
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		balance, err := lockBalance(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if balance < amount {
			return domainErrors.ErrInsufficientBalance
		}

		// Debit primary and credit yield in the one statement so the two
		// balances can never diverge.
		const move = `UPDATE accounts SET balance = balance - $2, yield_balance = yield_balance + $2 WHERE id=$1`
		if _, err := tx.Exec(ctx, move, accountID, amount); err != nil {
			return err
		}

		const insert = `INSERT INTO withdrawal_requests (account_id, amount, method, details, status, fee, net)
                        VALUES ($1, $2, $3, '{}', $4, 0, $2)
                        RETURNING ` + withdrawalColumns
		created, err = scanWithdrawal(tx.QueryRow(ctx, insert, accountID, amount, model.MethodInternal, model.WithdrawalStatusCompleted))
		if err != nil {
			return err
		}

		return appendAudit(ctx, tx, created.ID, fmt.Sprintf("account:%d", accountID), "internal_transfer", "")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1`
	w, err := scanWithdrawal(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *withdrawalRepository) listWithQuery(ctx context.Context, query string, args ...any) ([]model.Withdrawal, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *withdrawalRepository) ListByAccount(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
                   WHERE account_id=$1 ORDER BY created_at DESC`
	return r.listWithQuery(ctx, query, accountID)
}

func (r *withdrawalRepository) ListPending(ctx context.Context, limit int) ([]model.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
                   WHERE status=$1 ORDER BY created_at LIMIT $2`
	return r.listWithQuery(ctx, query, model.WithdrawalStatusPending, limit)
}

func (r *withdrawalRepository) PeriodUsage(ctx context.Context, accountID int64, now time.Time) (*model.PeriodUsage, error) {
	const query = `SELECT
                       COALESCE(SUM(amount) FILTER (WHERE created_at >= $2), 0),
                       COALESCE(SUM(amount) FILTER (WHERE created_at >= $3), 0),
                       COALESCE(SUM(amount) FILTER (WHERE created_at >= $4), 0)
                   FROM withdrawal_requests
                   WHERE account_id=$1 AND status NOT IN ('rejected', 'failed')`
	var usage model.PeriodUsage
	err := r.storage.pool.QueryRow(ctx, query,
		accountID,
		now.Add(-24*time.Hour),
		now.AddDate(0, 0, -7),
		now.AddDate(0, -1, 0),
	).Scan(&usage.Daily, &usage.Weekly, &usage.Monthly)
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// casConflict distinguishes a lost race from a missing row after a
// guarded UPDATE touched nothing.
func casConflict(ctx context.Context, tx pgx.Tx, id int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawal_requests WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domainErrors.ErrNotFound
	}
	return domainErrors.ErrConflict
}

func (r *withdrawalRepository) Approve(ctx context.Context, id int64, fee, net int64, actor, notes string, transfer *model.FundTransfer) (*model.FundTransfer, error) {
	var created *model.FundTransfer
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const update = `UPDATE withdrawal_requests
                        SET status=$2, fee=$3, net=$4, admin_notes=$5, updated_at=NOW()
                        WHERE id=$1 AND status=$6`
		tag, err := tx.Exec(ctx, update, id, model.WithdrawalStatusApproved, fee, net, notes, model.WithdrawalStatusPending)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return casConflict(ctx, tx, id)
		}

		// The transfer is born in the same transaction; if its insert
		// fails the withdrawal rolls back to pending instead of sitting
		// approved with reserved points and nothing to dispatch.
		const insert = `INSERT INTO fund_transfers
                            (reference, withdrawal_id, source, amount, fee, net, recipient_acct, recipient_bank, status)
                        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                        RETURNING ` + transferColumns
		created, err = scanTransfer(tx.QueryRow(ctx, insert,
			transfer.Reference, transfer.WithdrawalID, transfer.Source, transfer.Amount, transfer.Fee, transfer.Amount-transfer.Fee,
			transfer.RecipientAcct, transfer.RecipientBank, model.TransferStatusPending))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domainErrors.ErrTransferInFlight
			}
			return err
		}

		return appendAudit(ctx, tx, id, actor, "approve", notes)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *withdrawalRepository) Reject(ctx context.Context, id int64, actor, notes string) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const update = `UPDATE withdrawal_requests
                        SET status=$2, admin_notes=$3, updated_at=NOW()
                        WHERE id=$1 AND status=$4
                        RETURNING account_id, amount`
		var accountID, amount int64
		err := tx.QueryRow(ctx, update, id, model.WithdrawalStatusRejected, notes, model.WithdrawalStatusPending).Scan(&accountID, &amount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return casConflict(ctx, tx, id)
			}
			return err
		}

		// Compensating restore of the reserved points, same transaction.
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2 WHERE id=$1`, accountID, amount); err != nil {
			return err
		}
		return appendAudit(ctx, tx, id, actor, "reject", notes)
	})
}

func (r *withdrawalRepository) AuditTrail(ctx context.Context, id int64) ([]model.AuditEntry, error) {
	const query = `SELECT id, withdrawal_id, actor, action, notes, created_at
                   FROM withdrawal_audit WHERE withdrawal_id=$1 ORDER BY created_at, id`
	rows, err := r.storage.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.WithdrawalID, &e.Actor, &e.Action, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
