package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

func newMockStorage(t *testing.T) (*Storage, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	storage := &Storage{pool: mock, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	return storage, mock
}

func expectMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// transferRow builds a result row matching the transfer column list.
func transferRow(id, withdrawalID int64) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "reference", "withdrawal_id", "source", "amount", "fee", "net",
		"recipient_acct", "recipient_bank", "status", "provider_ref", "error_message",
		"retry_count", "transferred_at", "settled_at", "created_at",
	}).AddRow(id, "ref-1", &withdrawalID, model.TransferSourceWithdrawal, int64(1500), int64(75), int64(1425),
		"0123456789", "044", model.TransferStatusPending, "", "",
		0, (*time.Time)(nil), (*time.Time)(nil), now)
}

func TestTransferCreateDuplicateLiveRow(t *testing.T) {
	storage, mock := newMockStorage(t)

	wid := int64(4)
	mock.ExpectQuery("INSERT INTO fund_transfers").
		WithArgs("ref-1", &wid, model.TransferSourceWithdrawal, int64(1500), int64(75), int64(1425),
			"", "", model.TransferStatusPending).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := storage.Transfers().Create(context.Background(), &model.FundTransfer{
		Reference:    "ref-1",
		WithdrawalID: &wid,
		Source:       model.TransferSourceWithdrawal,
		Amount:       1500,
		Fee:          75,
	})
	if !errors.Is(err, domainErrors.ErrTransferInFlight) {
		t.Fatalf("expected in-flight error on unique violation, got %v", err)
	}
	expectMet(t, mock)
}

func TestTransferGetByReferenceNotFound(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery("FROM fund_transfers WHERE reference").
		WithArgs("ref-404").
		WillReturnError(pgx.ErrNoRows)

	_, err := storage.Transfers().GetByReference(context.Background(), "ref-404")
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	expectMet(t, mock)
}

func TestTransferSumPending(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(model.TransferStatusPending, model.TransferSourceWithdrawal).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(4250)))

	total, err := storage.Transfers().SumPending(context.Background(), model.TransferSourceWithdrawal)
	if err != nil {
		t.Fatalf("sum pending failed: %v", err)
	}
	if total != 4250 {
		t.Fatalf("expected 4250, got %d", total)
	}
	expectMet(t, mock)
}

func TestTransferMarkAcknowledged(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec("UPDATE fund_transfers SET provider_ref").
		WithArgs(int64(1), "prov-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := storage.Transfers().MarkAcknowledged(context.Background(), 1, "prov-1"); err != nil {
		t.Fatalf("mark acknowledged failed: %v", err)
	}
	expectMet(t, mock)
}

func TestTransferMarkAcknowledgedConflict(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec("UPDATE fund_transfers SET provider_ref").
		WithArgs(int64(1), "prov-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := storage.Transfers().MarkAcknowledged(context.Background(), 1, "prov-1"); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("guarded update touching nothing must conflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestTransferRequeueConflict(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec("UPDATE fund_transfers").
		WithArgs(int64(1), "timeout").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := storage.Transfers().Requeue(context.Background(), 1, "timeout"); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestTransferMarkSuccessfulCompletesWithdrawal(t *testing.T) {
	storage, mock := newMockStorage(t)
	settledAt := time.Now()

	wid := int64(5)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE fund_transfers").
		WithArgs(int64(1), settledAt).
		WillReturnRows(pgxmock.NewRows([]string{"withdrawal_id"}).AddRow(&wid))
	mock.ExpectExec("UPDATE withdrawal_requests SET status='completed'").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO withdrawal_audit").
		WithArgs(int64(5), "system", "complete", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := storage.Transfers().MarkSuccessful(context.Background(), 1, settledAt); err != nil {
		t.Fatalf("mark successful failed: %v", err)
	}
	expectMet(t, mock)
}

func TestTransferMarkSuccessfulConflictRollsBack(t *testing.T) {
	storage, mock := newMockStorage(t)
	settledAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE fund_transfers").
		WithArgs(int64(1), settledAt).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	if err := storage.Transfers().MarkSuccessful(context.Background(), 1, settledAt); !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected conflict for a non-processing transfer, got %v", err)
	}
	expectMet(t, mock)
}

func TestTransferMarkFailedCompensatesBalance(t *testing.T) {
	storage, mock := newMockStorage(t)

	wid := int64(5)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE fund_transfers").
		WithArgs(int64(1), "provider fault").
		WillReturnRows(pgxmock.NewRows([]string{"withdrawal_id"}).AddRow(&wid))
	mock.ExpectQuery("UPDATE withdrawal_requests SET status='failed'").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "amount"}).AddRow(int64(9), int64(1500)))
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(int64(9), int64(1500)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO withdrawal_audit").
		WithArgs(int64(5), "system", "fail", "provider fault").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := storage.Transfers().MarkFailed(context.Background(), 1, "provider fault"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	expectMet(t, mock)
}

func TestTransferRecoverOrphaned(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec("UPDATE fund_transfers SET status='pending'").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := storage.Transfers().RecoverOrphaned(context.Background())
	if err != nil {
		t.Fatalf("recover orphaned failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 requeued rows, got %d", n)
	}
	expectMet(t, mock)
}

func TestTransferMarkFailedSkipsDoubleCompensation(t *testing.T) {
	// The withdrawal already left 'processing' on another path, so no
	// second balance credit may happen.
	storage, mock := newMockStorage(t)

	wid := int64(5)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE fund_transfers").
		WithArgs(int64(1), "provider fault").
		WillReturnRows(pgxmock.NewRows([]string{"withdrawal_id"}).AddRow(&wid))
	mock.ExpectQuery("UPDATE withdrawal_requests SET status='failed'").
		WithArgs(int64(5)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	if err := storage.Transfers().MarkFailed(context.Background(), 1, "provider fault"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	expectMet(t, mock)
}
