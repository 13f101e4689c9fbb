package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/perkwell/payout/internal/adapter/provider"
	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
	testhelpers "github.com/perkwell/payout/internal/test"
	"github.com/perkwell/payout/internal/usecase"
)

func newFacadeFixture(maxRetries int) (*PayoutFacade, *testhelpers.FactoryStub, *testhelpers.PublisherStub) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := testhelpers.NewFactoryStub()
	factory.AccountRepo.Accounts[1] = &model.Account{ID: 1, Balance: 50_000, Verified: true, Level: 1}
	publisher := &testhelpers.PublisherStub{}

	withdrawals := usecase.NewWithdrawalUseCase(factory, usecase.NewValidator(), publisher, logger)
	revenue := usecase.NewRevenueUseCase(factory, logger)
	facade := NewPayoutFacade(withdrawals, revenue, factory, &testhelpers.ProviderClientStub{}, publisher, logger, maxRetries)
	return facade, factory, publisher
}

func seedProcessingTransfer(factory *testhelpers.FactoryStub, retries int) *model.FundTransfer {
	t := &model.FundTransfer{
		ID:          1,
		Reference:   "ref-1",
		ProviderRef: "prov-1",
		Source:      model.TransferSourceWithdrawal,
		Amount:      1500,
		Fee:         75,
		Net:         1425,
		Status:      model.TransferStatusProcessing,
		RetryCount:  retries,
	}
	factory.TransferRepo.Items[t.ID] = t
	factory.TransferRepo.Next = 2
	return t
}

func TestCallbackCompletesTransfer(t *testing.T) {
	facade, factory, publisher := newFacadeFixture(3)
	seedProcessingTransfer(factory, 0)

	if err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-1", provider.StatusCompleted, 1425); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored := factory.TransferRepo.Items[1]
	if stored.Status != model.TransferStatusSuccessful {
		t.Fatalf("expected successful transfer, got %s", stored.Status)
	}
	if stored.SettledAt == nil {
		t.Fatal("settlement time must be recorded")
	}
	if len(publisher.Published()) != 1 {
		t.Fatalf("expected one change event, got %d", len(publisher.Published()))
	}
}

func TestCallbackAmountMismatchMovesNothing(t *testing.T) {
	facade, factory, publisher := newFacadeFixture(3)
	seedProcessingTransfer(factory, 0)

	err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-1", provider.StatusCompleted, 1500)
	if !errors.Is(err, ErrCallbackMismatch) {
		t.Fatalf("expected mismatch error for gross amount, got %v", err)
	}
	if factory.TransferRepo.Items[1].Status != model.TransferStatusProcessing {
		t.Fatal("a mismatched callback must not move the transfer")
	}
	if len(publisher.Published()) != 0 {
		t.Fatal("nothing may be published on a mismatch")
	}
}

func TestCallbackProviderRefMismatch(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	seedProcessingTransfer(factory, 0)

	err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-other", provider.StatusCompleted, 1425)
	if !errors.Is(err, ErrCallbackMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestCallbackDuplicateTerminalVerdict(t *testing.T) {
	facade, factory, publisher := newFacadeFixture(3)
	tr := seedProcessingTransfer(factory, 0)
	tr.Status = model.TransferStatusSuccessful

	if err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-1", provider.StatusCompleted, 1425); err != nil {
		t.Fatalf("duplicate verdict must be acknowledged, got %v", err)
	}
	if len(publisher.Published()) != 0 {
		t.Fatal("a duplicate verdict must not republish")
	}
}

func TestCallbackFailureBelowCeilingRequeues(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	seedProcessingTransfer(factory, 0)

	if err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-1", provider.StatusFailed, 1425); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored := factory.TransferRepo.Items[1]
	if stored.Status != model.TransferStatusPending {
		t.Fatalf("expected requeued transfer, got %s", stored.Status)
	}
	if stored.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", stored.RetryCount)
	}
}

func TestCallbackFailureAtCeilingTerminates(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	seedProcessingTransfer(factory, 2)

	if err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-1", provider.StatusFailed, 1425); err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if factory.TransferRepo.Items[1].Status != model.TransferStatusFailed {
		t.Fatalf("expected terminal failure, got %s", factory.TransferRepo.Items[1].Status)
	}
}

func TestCallbackUnknownStatus(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	seedProcessingTransfer(factory, 0)

	err := facade.HandleProviderCallback(context.Background(), "ref-1", "prov-1", "settling", 1425)
	if !errors.Is(err, ErrCallbackMismatch) {
		t.Fatalf("expected mismatch for unknown status, got %v", err)
	}
}

func TestCallbackUnknownReference(t *testing.T) {
	facade, _, _ := newFacadeFixture(3)
	err := facade.HandleProviderCallback(context.Background(), "ref-404", "", provider.StatusCompleted, 1425)
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecoverAbandonedTransfersRequeues(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	factory.TransferRepo.Items[1] = &model.FundTransfer{
		ID: 1, Reference: "ref-1", Source: model.TransferSourceWithdrawal,
		Status: model.TransferStatusProcessing,
	}
	factory.TransferRepo.Items[2] = &model.FundTransfer{
		ID: 2, Reference: "ref-2", ProviderRef: "prov-2", Source: model.TransferSourceWithdrawal,
		Status: model.TransferStatusProcessing,
	}
	factory.TransferRepo.Next = 3

	if err := facade.RecoverAbandonedTransfers(context.Background()); err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if got := factory.TransferRepo.Items[1].Status; got != model.TransferStatusPending {
		t.Fatalf("claimed-but-unsent transfer must be requeued, got %s", got)
	}
	if got := factory.TransferRepo.Items[2].Status; got != model.TransferStatusProcessing {
		t.Fatalf("a transfer awaiting its webhook verdict must stay put, got %s", got)
	}
}

func TestCreateScheduleRejectsMalformed(t *testing.T) {
	facade, _, _ := newFacadeFixture(3)
	_, err := facade.CreateSchedule(context.Background(), &model.SettlementSchedule{
		Frequency: "hourly",
		TimeOfDay: "10:00",
		Active:    true,
	})
	if !errors.Is(err, domainErrors.ErrScheduleMalformed) {
		t.Fatalf("malformed schedule must be rejected at write time, got %v", err)
	}
}

func TestCreateScheduleDerivesNextRun(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	created, err := facade.CreateSchedule(context.Background(), &model.SettlementSchedule{
		Frequency:     model.FrequencyDaily,
		TimeOfDay:     "02:00",
		MinimumAmount: 1_000,
		Active:        true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.NextRun == nil || !created.NextRun.After(time.Now()) {
		t.Fatalf("next run must be derived in the future, got %v", created.NextRun)
	}
	if len(factory.ScheduleRepo.Items) != 1 {
		t.Fatal("schedule row must be stored")
	}
}

func TestStatsTrackerRefreshAndEvents(t *testing.T) {
	facade, factory, _ := newFacadeFixture(3)
	tracker := NewStatsTracker(facade)

	if _, _, err := facade.SubmitWithdrawal(context.Background(), 1, 1500, model.MethodBankTransfer, model.PayoutDetails{
		Bank: &model.BankDetails{
			AccountNumber: "0123456789",
			BankCode:      "044",
			AccountName:   "Ada Okafor",
		},
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	factory.TransferRepo.Items[9] = &model.FundTransfer{
		ID: 9, Source: model.TransferSourceWithdrawal, Net: 777, Status: model.TransferStatusPending,
	}

	tracker.HandleEvent(model.ChangeEvent{Table: model.TableWithdrawals, Kind: model.ChangeInsert})

	stats := tracker.Snapshot()
	if stats.ObservedEvents != 1 {
		t.Fatalf("expected one observed event, got %d", stats.ObservedEvents)
	}
	if stats.PendingWithdrawals != 1 {
		t.Fatalf("expected one pending withdrawal, got %d", stats.PendingWithdrawals)
	}
	if stats.PendingSettlement != 777 {
		t.Fatalf("expected pending settlement 777, got %d", stats.PendingSettlement)
	}
	if stats.RefreshedAt.IsZero() {
		t.Fatal("refresh timestamp must be set")
	}
}
