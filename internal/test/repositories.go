package test

import (
	"context"
	"time"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/domain/repository"
)

// AccountRepositoryStub stores accounts in-memory for tests.
type AccountRepositoryStub struct {
	GetByIDFn func(context.Context, int64) (*model.Account, error)
	Accounts  map[int64]*model.Account
	Next      int64
	Err       error
}

// NewAccountRepositoryStub constructs the stub with initialized maps.
func NewAccountRepositoryStub() *AccountRepositoryStub {
	return &AccountRepositoryStub{Accounts: make(map[int64]*model.Account), Next: 1}
}

// GetByID fetches an account or returns not found.
func (s *AccountRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if account, ok := s.Accounts[id]; ok {
		return account, nil
	}
	return nil, domainErrors.ErrNotFound
}

// Create registers a new account.
func (s *AccountRepositoryStub) Create(ctx context.Context, verified bool, level int) (*model.Account, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Accounts == nil {
		s.Accounts = make(map[int64]*model.Account)
	}
	if s.Next == 0 {
		s.Next = 1
	}
	account := &model.Account{ID: s.Next, Verified: verified, Level: level, CreatedAt: time.Now()}
	s.Next++
	s.Accounts[account.ID] = account
	return account, nil
}

// AddPoints credits the primary balance.
func (s *AccountRepositoryStub) AddPoints(ctx context.Context, id int64, amount int64) error {
	if s.Err != nil {
		return s.Err
	}
	account, ok := s.Accounts[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	account.Balance += amount
	return nil
}

// WithdrawalRepositoryStub keeps withdrawal rows in-memory and applies
// the same compare-and-swap rules as the real repository.
type WithdrawalRepositoryStub struct {
	CreatePendingFn func(context.Context, int64, int64, model.PayoutMethod, model.PayoutDetails) (*model.Withdrawal, error)
	ApproveFn       func(context.Context, int64, int64, int64, string, string, *model.FundTransfer) (*model.FundTransfer, error)
	RejectFn        func(context.Context, int64, string, string) error
	PeriodUsageFn   func(context.Context, int64, time.Time) (*model.PeriodUsage, error)
	ListPendingFn   func(context.Context, int) ([]model.Withdrawal, error)

	// Transfers receives the row Approve creates, mirroring the single
	// transaction of the real repository.
	Transfers *TransferRepositoryStub

	Items map[int64]*model.Withdrawal
	Trail []model.AuditEntry
	Usage model.PeriodUsage
	Next  int64
	Err   error
}

// NewWithdrawalRepositoryStub constructs the stub with initialized maps.
func NewWithdrawalRepositoryStub() *WithdrawalRepositoryStub {
	return &WithdrawalRepositoryStub{Items: make(map[int64]*model.Withdrawal), Next: 1}
}

func (s *WithdrawalRepositoryStub) insert(accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails, status model.WithdrawalStatus) *model.Withdrawal {
	if s.Items == nil {
		s.Items = make(map[int64]*model.Withdrawal)
	}
	if s.Next == 0 {
		s.Next = 1
	}
	w := &model.Withdrawal{
		ID:        s.Next,
		AccountID: accountID,
		Amount:    amount,
		Method:    method,
		Details:   details,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.Next++
	s.Items[w.ID] = w
	return w
}

// CreatePending inserts a pending withdrawal.
func (s *WithdrawalRepositoryStub) CreatePending(ctx context.Context, accountID, amount int64, method model.PayoutMethod, details model.PayoutDetails) (*model.Withdrawal, error) {
	if s.CreatePendingFn != nil {
		return s.CreatePendingFn(ctx, accountID, amount, method, details)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	w := s.insert(accountID, amount, method, details, model.WithdrawalStatusPending)
	s.Trail = append(s.Trail, model.AuditEntry{WithdrawalID: w.ID, Actor: "system", Action: "submit"})
	return w, nil
}

// CreateInternal inserts an already-completed internal withdrawal.
func (s *WithdrawalRepositoryStub) CreateInternal(ctx context.Context, accountID, amount int64) (*model.Withdrawal, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	w := s.insert(accountID, amount, model.MethodInternal, model.PayoutDetails{}, model.WithdrawalStatusCompleted)
	zero := int64(0)
	net := amount
	w.Fee = &zero
	w.Net = &net
	s.Trail = append(s.Trail, model.AuditEntry{WithdrawalID: w.ID, Actor: "system", Action: "internal_transfer"})
	return w, nil
}

// GetByID fetches one withdrawal or returns not found.
func (s *WithdrawalRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Withdrawal, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if w, ok := s.Items[id]; ok {
		copied := *w
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ListByAccount returns the account's withdrawals.
func (s *WithdrawalRepositoryStub) ListByAccount(ctx context.Context, accountID int64) ([]model.Withdrawal, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Withdrawal
	for _, w := range s.Items {
		if w.AccountID == accountID {
			out = append(out, *w)
		}
	}
	return out, nil
}

// ListPending returns pending withdrawals up to limit.
func (s *WithdrawalRepositoryStub) ListPending(ctx context.Context, limit int) ([]model.Withdrawal, error) {
	if s.ListPendingFn != nil {
		return s.ListPendingFn(ctx, limit)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Withdrawal
	for _, w := range s.Items {
		if w.Status == model.WithdrawalStatusPending && len(out) < limit {
			out = append(out, *w)
		}
	}
	return out, nil
}

// PeriodUsage returns the configured rolling usage.
func (s *WithdrawalRepositoryStub) PeriodUsage(ctx context.Context, accountID int64, now time.Time) (*model.PeriodUsage, error) {
	if s.PeriodUsageFn != nil {
		return s.PeriodUsageFn(ctx, accountID, now)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	usage := s.Usage
	return &usage, nil
}

// Approve moves pending to approved with a fee snapshot and creates the
// fund transfer. A failing transfer insert leaves the withdrawal
// untouched, like the rolled-back transaction of the real repository.
func (s *WithdrawalRepositoryStub) Approve(ctx context.Context, id int64, fee, net int64, actor, notes string, transfer *model.FundTransfer) (*model.FundTransfer, error) {
	if s.ApproveFn != nil {
		return s.ApproveFn(ctx, id, fee, net, actor, notes, transfer)
	}
	w, ok := s.Items[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if w.Status != model.WithdrawalStatusPending {
		return nil, domainErrors.ErrConflict
	}

	var created *model.FundTransfer
	if transfer != nil && s.Transfers != nil {
		var err error
		created, err = s.Transfers.Create(ctx, transfer)
		if err != nil {
			return nil, err
		}
	}

	w.Status = model.WithdrawalStatusApproved
	w.Fee = &fee
	w.Net = &net
	w.AdminNotes = notes
	w.UpdatedAt = time.Now()
	s.Trail = append(s.Trail, model.AuditEntry{WithdrawalID: id, Actor: actor, Action: "approve", Notes: notes})
	return created, nil
}

// Reject moves pending to rejected.
func (s *WithdrawalRepositoryStub) Reject(ctx context.Context, id int64, actor, notes string) error {
	if s.RejectFn != nil {
		return s.RejectFn(ctx, id, actor, notes)
	}
	w, ok := s.Items[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if w.Status != model.WithdrawalStatusPending {
		return domainErrors.ErrConflict
	}
	w.Status = model.WithdrawalStatusRejected
	w.AdminNotes = notes
	w.UpdatedAt = time.Now()
	s.Trail = append(s.Trail, model.AuditEntry{WithdrawalID: id, Actor: actor, Action: "reject", Notes: notes})
	return nil
}

// AuditTrail returns the withdrawal's transition log.
func (s *WithdrawalRepositoryStub) AuditTrail(ctx context.Context, id int64) ([]model.AuditEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.AuditEntry
	for _, e := range s.Trail {
		if e.WithdrawalID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// TransferRepositoryStub keeps fund transfers in-memory with the live
// uniqueness rule of the real table.
type TransferRepositoryStub struct {
	CreateFn     func(context.Context, *model.FundTransfer) (*model.FundTransfer, error)
	SumPendingFn func(context.Context, model.TransferSource) (int64, error)
	ClaimBatchFn func(context.Context, model.TransferSource, int) ([]model.FundTransfer, error)

	Items map[int64]*model.FundTransfer
	Next  int64
	Err   error
}

// NewTransferRepositoryStub constructs the stub with initialized maps.
func NewTransferRepositoryStub() *TransferRepositoryStub {
	return &TransferRepositoryStub{Items: make(map[int64]*model.FundTransfer), Next: 1}
}

func (s *TransferRepositoryStub) live(withdrawalID int64) bool {
	for _, t := range s.Items {
		if t.WithdrawalID != nil && *t.WithdrawalID == withdrawalID &&
			(t.Status == model.TransferStatusPending || t.Status == model.TransferStatusProcessing) {
			return true
		}
	}
	return false
}

// Create inserts a pending transfer enforcing one live row per withdrawal.
func (s *TransferRepositoryStub) Create(ctx context.Context, t *model.FundTransfer) (*model.FundTransfer, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, t)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Items == nil {
		s.Items = make(map[int64]*model.FundTransfer)
	}
	if s.Next == 0 {
		s.Next = 1
	}
	if t.WithdrawalID != nil && s.live(*t.WithdrawalID) {
		return nil, domainErrors.ErrTransferInFlight
	}
	stored := *t
	stored.ID = s.Next
	stored.Status = model.TransferStatusPending
	stored.Net = stored.Amount - stored.Fee
	stored.CreatedAt = time.Now()
	s.Next++
	s.Items[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

// GetByID fetches one transfer or returns not found.
func (s *TransferRepositoryStub) GetByID(ctx context.Context, id int64) (*model.FundTransfer, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if t, ok := s.Items[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByReference fetches one transfer by reference code.
func (s *TransferRepositoryStub) GetByReference(ctx context.Context, reference string) (*model.FundTransfer, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	for _, t := range s.Items {
		if t.Reference == reference {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// SumPending aggregates net amounts of pending transfers.
func (s *TransferRepositoryStub) SumPending(ctx context.Context, source model.TransferSource) (int64, error) {
	if s.SumPendingFn != nil {
		return s.SumPendingFn(ctx, source)
	}
	if s.Err != nil {
		return 0, s.Err
	}
	var total int64
	for _, t := range s.Items {
		if t.Source == source && t.Status == model.TransferStatusPending {
			total += t.Net
		}
	}
	return total, nil
}

// ClaimBatch marks pending transfers processing and returns them.
func (s *TransferRepositoryStub) ClaimBatch(ctx context.Context, source model.TransferSource, limit int) ([]model.FundTransfer, error) {
	if s.ClaimBatchFn != nil {
		return s.ClaimBatchFn(ctx, source, limit)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.FundTransfer
	for _, t := range s.Items {
		if len(out) >= limit {
			break
		}
		if t.Source == source && t.Status == model.TransferStatusPending {
			t.Status = model.TransferStatusProcessing
			out = append(out, *t)
		}
	}
	return out, nil
}

// MarkAcknowledged records the provider reference.
func (s *TransferRepositoryStub) MarkAcknowledged(ctx context.Context, id int64, providerRef string) error {
	t, ok := s.Items[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if t.Status != model.TransferStatusProcessing {
		return domainErrors.ErrConflict
	}
	t.ProviderRef = providerRef
	now := time.Now()
	t.TransferredAt = &now
	return nil
}

// MarkSuccessful finishes a processing transfer.
func (s *TransferRepositoryStub) MarkSuccessful(ctx context.Context, id int64, settledAt time.Time) error {
	t, ok := s.Items[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if t.Status != model.TransferStatusProcessing {
		return domainErrors.ErrConflict
	}
	t.Status = model.TransferStatusSuccessful
	t.SettledAt = &settledAt
	return nil
}

// Requeue returns a processing transfer to pending with a bumped retry count.
func (s *TransferRepositoryStub) Requeue(ctx context.Context, id int64, errMsg string) error {
	t, ok := s.Items[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if t.Status != model.TransferStatusProcessing {
		return domainErrors.ErrConflict
	}
	t.Status = model.TransferStatusPending
	t.RetryCount++
	t.ErrorMessage = errMsg
	t.ProviderRef = ""
	return nil
}

// RecoverOrphaned requeues processing transfers that never reached the
// provider.
func (s *TransferRepositoryStub) RecoverOrphaned(ctx context.Context) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, t := range s.Items {
		if t.Status == model.TransferStatusProcessing && t.ProviderRef == "" {
			t.Status = model.TransferStatusPending
			n++
		}
	}
	return n, nil
}

// MarkFailed terminally fails a processing transfer.
func (s *TransferRepositoryStub) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	t, ok := s.Items[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if t.Status != model.TransferStatusProcessing {
		return domainErrors.ErrConflict
	}
	t.Status = model.TransferStatusFailed
	t.ErrorMessage = errMsg
	return nil
}

// MethodRepositoryStub serves payout method configuration from a map.
type MethodRepositoryStub struct {
	GetFn   func(context.Context, model.PayoutMethod) (*model.MethodConfig, error)
	Configs map[model.PayoutMethod]*model.MethodConfig
	Err     error
}

// NewMethodRepositoryStub constructs a stub preloaded with enabled
// defaults for every method.
func NewMethodRepositoryStub() *MethodRepositoryStub {
	return &MethodRepositoryStub{
		Configs: map[model.PayoutMethod]*model.MethodConfig{
			model.MethodBankTransfer: {Method: model.MethodBankTransfer, Enabled: true, MinAmount: 100, MaxAmount: 100_000, FeePercent: 5},
			model.MethodCrypto:       {Method: model.MethodCrypto, Enabled: true, MinAmount: 100, MaxAmount: 100_000, FeePercent: 2.5},
			model.MethodGiftCard:     {Method: model.MethodGiftCard, Enabled: true, MinAmount: 100, MaxAmount: 50_000, FeePercent: 0},
			model.MethodInternal:     {Method: model.MethodInternal, Enabled: true, MinAmount: 1, MaxAmount: 1_000_000, FeePercent: 0},
		},
	}
}

// List returns every configured method.
func (s *MethodRepositoryStub) List(ctx context.Context) ([]model.MethodConfig, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.MethodConfig
	for _, cfg := range s.Configs {
		out = append(out, *cfg)
	}
	return out, nil
}

// Get returns one method's configuration or not found.
func (s *MethodRepositoryStub) Get(ctx context.Context, method model.PayoutMethod) (*model.MethodConfig, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, method)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if cfg, ok := s.Configs[method]; ok {
		copied := *cfg
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// Upsert replaces one method's configuration.
func (s *MethodRepositoryStub) Upsert(ctx context.Context, cfg *model.MethodConfig) error {
	if s.Err != nil {
		return s.Err
	}
	if s.Configs == nil {
		s.Configs = make(map[model.PayoutMethod]*model.MethodConfig)
	}
	copied := *cfg
	s.Configs[cfg.Method] = &copied
	return nil
}

// ScheduleRepositoryStub keeps settlement schedules in-memory.
type ScheduleRepositoryStub struct {
	ListDueFn func(context.Context, time.Time) ([]model.SettlementSchedule, error)

	Items    map[int64]*model.SettlementSchedule
	RunTimes []ScheduleRunCall
	Next     int64
	Err      error
}

// ScheduleRunCall records one SetRunTimes invocation.
type ScheduleRunCall struct {
	ID      int64
	LastRun time.Time
	NextRun time.Time
}

// NewScheduleRepositoryStub constructs the stub with initialized maps.
func NewScheduleRepositoryStub() *ScheduleRepositoryStub {
	return &ScheduleRepositoryStub{Items: make(map[int64]*model.SettlementSchedule), Next: 1}
}

// List returns every schedule.
func (s *ScheduleRepositoryStub) List(ctx context.Context) ([]model.SettlementSchedule, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.SettlementSchedule
	for _, sched := range s.Items {
		out = append(out, *sched)
	}
	return out, nil
}

// ListDue returns active schedules whose next run has arrived.
func (s *ScheduleRepositoryStub) ListDue(ctx context.Context, now time.Time) ([]model.SettlementSchedule, error) {
	if s.ListDueFn != nil {
		return s.ListDueFn(ctx, now)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.SettlementSchedule
	for _, sched := range s.Items {
		if sched.Active && sched.NextRun != nil && !sched.NextRun.After(now) {
			out = append(out, *sched)
		}
	}
	return out, nil
}

// Get returns one schedule or not found.
func (s *ScheduleRepositoryStub) Get(ctx context.Context, id int64) (*model.SettlementSchedule, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if sched, ok := s.Items[id]; ok {
		copied := *sched
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// Create stores a new schedule.
func (s *ScheduleRepositoryStub) Create(ctx context.Context, sched *model.SettlementSchedule) (*model.SettlementSchedule, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Items == nil {
		s.Items = make(map[int64]*model.SettlementSchedule)
	}
	if s.Next == 0 {
		s.Next = 1
	}
	stored := *sched
	stored.ID = s.Next
	s.Next++
	s.Items[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

// Update replaces an existing schedule.
func (s *ScheduleRepositoryStub) Update(ctx context.Context, sched *model.SettlementSchedule) error {
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.Items[sched.ID]; !ok {
		return domainErrors.ErrNotFound
	}
	copied := *sched
	s.Items[sched.ID] = &copied
	return nil
}

// SetRunTimes records last/next run after a settlement cycle.
func (s *ScheduleRepositoryStub) SetRunTimes(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	if s.Err != nil {
		return s.Err
	}
	sched, ok := s.Items[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	sched.LastRun = &lastRun
	sched.NextRun = &nextRun
	s.RunTimes = append(s.RunTimes, ScheduleRunCall{ID: id, LastRun: lastRun, NextRun: nextRun})
	return nil
}

// RevenueRepositoryStub lets tests control ledger derivation.
type RevenueRepositoryStub struct {
	SummarizeFn func(context.Context, time.Time) (*model.RevenueLedgerEntry, error)
	Entries     []model.RevenueLedgerEntry
	Upserted    []model.RevenueLedgerEntry
	Err         error
}

// SummarizeDay derives the configured entry for the day.
func (s *RevenueRepositoryStub) SummarizeDay(ctx context.Context, day time.Time) (*model.RevenueLedgerEntry, error) {
	if s.SummarizeFn != nil {
		return s.SummarizeFn(ctx, day)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &model.RevenueLedgerEntry{Date: day}, nil
}

// UpsertDay records the written rollup.
func (s *RevenueRepositoryStub) UpsertDay(ctx context.Context, entry *model.RevenueLedgerEntry) error {
	if s.Err != nil {
		return s.Err
	}
	s.Upserted = append(s.Upserted, *entry)
	return nil
}

// List returns configured ledger rows.
func (s *RevenueRepositoryStub) List(ctx context.Context, from, to time.Time) ([]model.RevenueLedgerEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Entries, nil
}

// FactoryStub aggregates repository stubs behind the factory interface.
type FactoryStub struct {
	AccountRepo    *AccountRepositoryStub
	WithdrawalRepo *WithdrawalRepositoryStub
	TransferRepo   *TransferRepositoryStub
	MethodRepo     *MethodRepositoryStub
	ScheduleRepo   *ScheduleRepositoryStub
	RevenueRepo    *RevenueRepositoryStub
}

// NewFactoryStub constructs a factory with fresh stubs.
func NewFactoryStub() *FactoryStub {
	f := &FactoryStub{
		AccountRepo:    NewAccountRepositoryStub(),
		WithdrawalRepo: NewWithdrawalRepositoryStub(),
		TransferRepo:   NewTransferRepositoryStub(),
		MethodRepo:     NewMethodRepositoryStub(),
		ScheduleRepo:   NewScheduleRepositoryStub(),
		RevenueRepo:    &RevenueRepositoryStub{},
	}
	f.WithdrawalRepo.Transfers = f.TransferRepo
	return f
}

func (f *FactoryStub) Accounts() repository.AccountRepository       { return f.AccountRepo }
func (f *FactoryStub) Withdrawals() repository.WithdrawalRepository { return f.WithdrawalRepo }
func (f *FactoryStub) Transfers() repository.TransferRepository     { return f.TransferRepo }
func (f *FactoryStub) Methods() repository.MethodRepository         { return f.MethodRepo }
func (f *FactoryStub) Schedules() repository.ScheduleRepository     { return f.ScheduleRepo }
func (f *FactoryStub) Revenue() repository.RevenueRepository        { return f.RevenueRepo }
