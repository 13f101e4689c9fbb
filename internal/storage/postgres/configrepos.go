package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

// --- MethodRepository implementation ---

const methodColumns = `method, enabled, min_amount, max_amount, fee_percent, currencies, countries, processing_time`

func scanMethod(row pgx.Row) (*model.MethodConfig, error) {
	var m model.MethodConfig
	err := row.Scan(&m.Method, &m.Enabled, &m.MinAmount, &m.MaxAmount, &m.FeePercent, &m.Currencies, &m.Countries, &m.ProcessingTime)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *methodRepository) List(ctx context.Context) ([]model.MethodConfig, error) {
	const query = `SELECT ` + methodColumns + ` FROM payout_methods ORDER BY method`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.MethodConfig
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *methodRepository) Get(ctx context.Context, method model.PayoutMethod) (*model.MethodConfig, error) {
	const query = `SELECT ` + methodColumns + ` FROM payout_methods WHERE method=$1`
	m, err := scanMethod(r.storage.pool.QueryRow(ctx, query, method))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *methodRepository) Upsert(ctx context.Context, cfg *model.MethodConfig) error {
	if cfg.MinAmount > cfg.MaxAmount || cfg.FeePercent < 0 || cfg.FeePercent > 100 {
		return domainErrors.ErrInvalidAmount
	}
	const query = `INSERT INTO payout_methods (` + methodColumns + `)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   ON CONFLICT (method) DO UPDATE SET
                       enabled=EXCLUDED.enabled,
                       min_amount=EXCLUDED.min_amount,
                       max_amount=EXCLUDED.max_amount,
                       fee_percent=EXCLUDED.fee_percent,
                       currencies=EXCLUDED.currencies,
                       countries=EXCLUDED.countries,
                       processing_time=EXCLUDED.processing_time`
	_, err := r.storage.pool.Exec(ctx, query,
		cfg.Method, cfg.Enabled, cfg.MinAmount, cfg.MaxAmount, cfg.FeePercent,
		cfg.Currencies, cfg.Countries, cfg.ProcessingTime)
	return err
}

// --- ScheduleRepository implementation ---

const scheduleColumns = `id, name, frequency, day_of_week, day_of_month, time_of_day, minimum_amount, active, last_run, next_run`

func scanSchedule(row pgx.Row) (*model.SettlementSchedule, error) {
	var s model.SettlementSchedule
	var dow int
	err := row.Scan(&s.ID, &s.Name, &s.Frequency, &dow, &s.DayOfMonth, &s.TimeOfDay, &s.MinimumAmount, &s.Active, &s.LastRun, &s.NextRun)
	if err != nil {
		return nil, err
	}
	s.DayOfWeek = time.Weekday(dow)
	return &s, nil
}

func (r *scheduleRepository) listWithQuery(ctx context.Context, query string, args ...any) ([]model.SettlementSchedule, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SettlementSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *scheduleRepository) List(ctx context.Context) ([]model.SettlementSchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM settlement_schedules ORDER BY id`
	return r.listWithQuery(ctx, query)
}

func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]model.SettlementSchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM settlement_schedules
                   WHERE active AND (next_run IS NULL OR next_run <= $1)
                   ORDER BY id`
	return r.listWithQuery(ctx, query, now)
}

func (r *scheduleRepository) Get(ctx context.Context, id int64) (*model.SettlementSchedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM settlement_schedules WHERE id=$1`
	s, err := scanSchedule(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) Create(ctx context.Context, s *model.SettlementSchedule) (*model.SettlementSchedule, error) {
	const query = `INSERT INTO settlement_schedules
                       (name, frequency, day_of_week, day_of_month, time_of_day, minimum_amount, active, next_run)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   RETURNING ` + scheduleColumns
	return scanSchedule(r.storage.pool.QueryRow(ctx, query,
		s.Name, s.Frequency, int(s.DayOfWeek), s.DayOfMonth, s.TimeOfDay, s.MinimumAmount, s.Active, s.NextRun))
}

func (r *scheduleRepository) Update(ctx context.Context, s *model.SettlementSchedule) error {
	const query = `UPDATE settlement_schedules
                   SET name=$2, frequency=$3, day_of_week=$4, day_of_month=$5,
                       time_of_day=$6, minimum_amount=$7, active=$8, next_run=$9
                   WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query,
		s.ID, s.Name, s.Frequency, int(s.DayOfWeek), s.DayOfMonth, s.TimeOfDay, s.MinimumAmount, s.Active, s.NextRun)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *scheduleRepository) SetRunTimes(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	const query = `UPDATE settlement_schedules SET last_run=$2, next_run=$3 WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id, lastRun, nextRun)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// --- RevenueRepository implementation ---

func (r *revenueRepository) SummarizeDay(ctx context.Context, day time.Time) (*model.RevenueLedgerEntry, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	const query = `SELECT
                       COALESCE(SUM(net) FILTER (WHERE source='payment'), 0),
                       COALESCE(SUM(fee), 0),
                       COALESCE(SUM(net) FILTER (WHERE source='withdrawal'), 0),
                       COUNT(*) FILTER (WHERE source='payment'),
                       COUNT(*) FILTER (WHERE source='withdrawal')
                   FROM fund_transfers
                   WHERE status='successful' AND settled_at >= $1 AND settled_at < $2`

	entry := model.RevenueLedgerEntry{Date: dayStart}
	err := r.storage.pool.QueryRow(ctx, query, dayStart, dayEnd).Scan(
		&entry.PaymentsTotal, &entry.FeesTotal, &entry.WithdrawalsTotal,
		&entry.PaymentCount, &entry.WithdrawalCount)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *revenueRepository) UpsertDay(ctx context.Context, entry *model.RevenueLedgerEntry) error {
	const query = `INSERT INTO revenue_ledger
                       (day, payments_total, fees_total, withdrawals_total, payment_count, withdrawal_count, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, NOW())
                   ON CONFLICT (day) DO UPDATE SET
                       payments_total=EXCLUDED.payments_total,
                       fees_total=EXCLUDED.fees_total,
                       withdrawals_total=EXCLUDED.withdrawals_total,
                       payment_count=EXCLUDED.payment_count,
                       withdrawal_count=EXCLUDED.withdrawal_count,
                       updated_at=NOW()`
	_, err := r.storage.pool.Exec(ctx, query,
		entry.Date, entry.PaymentsTotal, entry.FeesTotal, entry.WithdrawalsTotal,
		entry.PaymentCount, entry.WithdrawalCount)
	return err
}

func (r *revenueRepository) List(ctx context.Context, from, to time.Time) ([]model.RevenueLedgerEntry, error) {
	const query = `SELECT day, payments_total, fees_total, withdrawals_total, payment_count, withdrawal_count, updated_at
                   FROM revenue_ledger WHERE day >= $1 AND day <= $2 ORDER BY day`
	rows, err := r.storage.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.RevenueLedgerEntry
	for rows.Next() {
		var e model.RevenueLedgerEntry
		if err := rows.Scan(&e.Date, &e.PaymentsTotal, &e.FeesTotal, &e.WithdrawalsTotal, &e.PaymentCount, &e.WithdrawalCount, &e.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
