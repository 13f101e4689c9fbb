package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perkwell/payout/internal/domain/repository"
)

// DBPool is the subset of pgxpool.Pool the storage layer uses. Keeping
// it an interface lets tests substitute a pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   DBPool
	logger *slog.Logger
}

type accountRepository struct {
	storage *Storage
}

type withdrawalRepository struct {
	storage *Storage
}

type transferRepository struct {
	storage *Storage
}

type methodRepository struct {
	storage *Storage
}

type scheduleRepository struct {
	storage *Storage
}

type revenueRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Accounts() repository.AccountRepository {
	return &accountRepository{storage: s}
}

func (s *Storage) Withdrawals() repository.WithdrawalRepository {
	return &withdrawalRepository{storage: s}
}

func (s *Storage) Transfers() repository.TransferRepository {
	return &transferRepository{storage: s}
}

func (s *Storage) Methods() repository.MethodRepository {
	return &methodRepository{storage: s}
}

func (s *Storage) Schedules() repository.ScheduleRepository {
	return &scheduleRepository{storage: s}
}

func (s *Storage) Revenue() repository.RevenueRepository {
	return &revenueRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id SERIAL PRIMARY KEY,
            balance BIGINT NOT NULL DEFAULT 0,
            yield_balance BIGINT NOT NULL DEFAULT 0,
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            level INT NOT NULL DEFAULT 1,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payout_methods (
            method TEXT PRIMARY KEY,
            enabled BOOLEAN NOT NULL DEFAULT TRUE,
            min_amount BIGINT NOT NULL CHECK (min_amount >= 0),
            max_amount BIGINT NOT NULL,
            fee_percent DOUBLE PRECISION NOT NULL CHECK (fee_percent >= 0 AND fee_percent <= 100),
            currencies TEXT[] NOT NULL DEFAULT '{}',
            countries TEXT[] NOT NULL DEFAULT '{}',
            processing_time TEXT NOT NULL DEFAULT '',
            CHECK (min_amount <= max_amount)
        )`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
            id SERIAL PRIMARY KEY,
            account_id BIGINT NOT NULL REFERENCES accounts(id),
            amount BIGINT NOT NULL CHECK (amount >= 0),
            method TEXT NOT NULL,
            details JSONB NOT NULL DEFAULT '{}',
            status TEXT NOT NULL,
            fee BIGINT,
            net BIGINT,
            admin_notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS withdrawal_audit (
            id SERIAL PRIMARY KEY,
            withdrawal_id BIGINT NOT NULL REFERENCES withdrawal_requests(id),
            actor TEXT NOT NULL,
            action TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS fund_transfers (
            id SERIAL PRIMARY KEY,
            reference TEXT UNIQUE NOT NULL,
            withdrawal_id BIGINT REFERENCES withdrawal_requests(id),
            source TEXT NOT NULL,
            amount BIGINT NOT NULL,
            fee BIGINT NOT NULL,
            net BIGINT NOT NULL,
            recipient_acct TEXT NOT NULL DEFAULT '',
            recipient_bank TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            provider_ref TEXT NOT NULL DEFAULT '',
            error_message TEXT NOT NULL DEFAULT '',
            retry_count INT NOT NULL DEFAULT 0,
            transferred_at TIMESTAMPTZ,
            settled_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS settlement_schedules (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            frequency TEXT NOT NULL,
            day_of_week INT NOT NULL DEFAULT 0,
            day_of_month INT NOT NULL DEFAULT 1,
            time_of_day TEXT NOT NULL DEFAULT '00:00',
            minimum_amount BIGINT NOT NULL DEFAULT 0,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            last_run TIMESTAMPTZ,
            next_run TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS revenue_ledger (
            day DATE PRIMARY KEY,
            payments_total BIGINT NOT NULL DEFAULT 0,
            fees_total BIGINT NOT NULL DEFAULT 0,
            withdrawals_total BIGINT NOT NULL DEFAULT 0,
            payment_count INT NOT NULL DEFAULT 0,
            withdrawal_count INT NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		// At most one live transfer per withdrawal guarantees
		// at-most-one in-flight provider call per request.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transfers_live
            ON fund_transfers(withdrawal_id)
            WHERE status IN ('pending', 'processing') AND withdrawal_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_account ON withdrawal_requests(account_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawal_requests(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_status ON fund_transfers(status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
