package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perkwell/payout/internal/app"
	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/server/http/dto"
	testhelpers "github.com/perkwell/payout/internal/test"
	"github.com/perkwell/payout/internal/usecase"
)

type triggerStub struct {
	RunFn func(ctx context.Context, scheduleID int64) error
	Calls []int64
}

func (s *triggerStub) RunNow(ctx context.Context, scheduleID int64) error {
	s.Calls = append(s.Calls, scheduleID)
	if s.RunFn != nil {
		return s.RunFn(ctx, scheduleID)
	}
	return nil
}

type routerFixture struct {
	engine  *httptest.Server
	factory *testhelpers.FactoryStub
	trigger *triggerStub
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := testhelpers.NewFactoryStub()
	factory.AccountRepo.Accounts[1] = &model.Account{ID: 1, Balance: 50_000, Verified: true, Level: 1}
	factory.AccountRepo.Accounts[2] = &model.Account{ID: 2, Balance: 10_000, Verified: false, Level: 1}
	publisher := &testhelpers.PublisherStub{}

	withdrawals := usecase.NewWithdrawalUseCase(factory, usecase.NewValidator(), publisher, logger)
	revenue := usecase.NewRevenueUseCase(factory, logger)
	facade := app.NewPayoutFacade(withdrawals, revenue, factory, &testhelpers.ProviderClientStub{}, publisher, logger, 3)

	trigger := &triggerStub{}
	engine := Setup(facade, trigger, app.NewStatsTracker(facade), logger)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &routerFixture{engine: server, factory: factory, trigger: trigger}
}

func (f *routerFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.engine.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func asUser(id string) map[string]string  { return map[string]string{"X-User-ID": id} }
func asAdmin(name string) map[string]string { return map[string]string{"X-Actor": name} }

func submitPayload() dto.SubmitWithdrawalRequest {
	return dto.SubmitWithdrawalRequest{
		Amount: 1500,
		Method: string(model.MethodBankTransfer),
		Details: model.PayoutDetails{
			Bank: &model.BankDetails{
				AccountNumber: "0123456789",
				BankCode:      "044",
				AccountName:   "Ada Okafor",
			},
		},
	}
}

func TestBalanceRequiresIdentity(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodGet, "/api/user/balance", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity header, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/user/balance", nil, asUser("1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with identity, got %d", resp.StatusCode)
	}
	var balance dto.BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != 50_000 || !balance.Verified {
		t.Fatalf("unexpected balance payload %+v", balance)
	}
}

func TestSubmitWithdrawal(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/api/user/withdrawals", submitPayload(), asUser("1"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created dto.WithdrawalResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}
	if created.Status != string(model.WithdrawalStatusPending) {
		t.Fatalf("expected pending, got %q", created.Status)
	}
	if created.Fee != nil {
		t.Fatal("fee must not be present before the decision")
	}
}

func TestSubmitValidationFailureReturnsFindings(t *testing.T) {
	f := newRouterFixture(t)

	payload := submitPayload()
	payload.Amount = 50 // below the bank transfer minimum
	resp := f.do(t, http.MethodPost, "/api/user/withdrawals", payload, asUser("1"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var validation dto.ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&validation); err != nil {
		t.Fatalf("decode findings: %v", err)
	}
	if len(validation.Findings) == 0 {
		t.Fatal("expected at least one finding")
	}
}

func TestHistoryEmptyIsNoContent(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/api/user/withdrawals", nil, asUser("1"))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for empty history, got %d", resp.StatusCode)
	}
}

func TestGetForeignWithdrawalIsNotFound(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/api/user/withdrawals", submitPayload(), asUser("1"))
	var created dto.WithdrawalResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}

	resp = f.do(t, http.MethodGet, "/api/user/withdrawals/1", nil, asUser("2"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("another account's withdrawal must look missing, got %d", resp.StatusCode)
	}
}

func TestApproveWithdrawal(t *testing.T) {
	f := newRouterFixture(t)

	f.do(t, http.MethodPost, "/api/user/withdrawals", submitPayload(), asUser("1"))

	resp := f.do(t, http.MethodPost, "/api/admin/withdrawals/1/approve", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor header, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/admin/withdrawals/1/approve", nil, asAdmin("admin-7"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var approved dto.WithdrawalResponse
	if err := json.NewDecoder(resp.Body).Decode(&approved); err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}
	if approved.Status != string(model.WithdrawalStatusApproved) {
		t.Fatalf("expected approved, got %q", approved.Status)
	}
	if approved.Fee == nil || *approved.Fee != 75 || approved.Net == nil || *approved.Net != 1425 {
		t.Fatalf("expected fee snapshot 75/1425, got %+v", approved)
	}
}

func TestApproveDecidedWithdrawalConflicts(t *testing.T) {
	f := newRouterFixture(t)

	f.do(t, http.MethodPost, "/api/user/withdrawals", submitPayload(), asUser("1"))
	f.do(t, http.MethodPost, "/api/admin/withdrawals/1/reject", dto.DecisionRequest{Notes: "fraud"}, asAdmin("admin-7"))

	resp := f.do(t, http.MethodPost, "/api/admin/withdrawals/1/approve", nil, asAdmin("admin-8"))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 approving a rejected withdrawal, got %d", resp.StatusCode)
	}
}

func TestProviderCallback(t *testing.T) {
	f := newRouterFixture(t)
	f.factory.TransferRepo.Items[1] = &model.FundTransfer{
		ID: 1, Reference: "ref-1", Source: model.TransferSourceWithdrawal,
		Amount: 1500, Fee: 75, Net: 1425,
		Status: model.TransferStatusProcessing,
	}
	f.factory.TransferRepo.Next = 2

	// Mismatched amount: untrusted input, nothing moves.
	resp := f.do(t, http.MethodPost, "/api/provider/callback", dto.ProviderCallbackRequest{
		Reference: "ref-1", Status: "completed", Amount: 1500,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched amount, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/provider/callback", dto.ProviderCallbackRequest{
		Reference: "ref-1", Status: "completed", Amount: 1425,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if f.factory.TransferRepo.Items[1].Status != model.TransferStatusSuccessful {
		t.Fatalf("transfer not settled: %s", f.factory.TransferRepo.Items[1].Status)
	}
}

func TestRunScheduleNow(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/api/admin/schedules/5/run", nil, asAdmin("admin-7"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(f.trigger.Calls) != 1 || f.trigger.Calls[0] != 5 {
		t.Fatalf("trigger not invoked for schedule 5: %+v", f.trigger.Calls)
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodGet, "/api/admin/stats", nil, asAdmin("admin-7"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats app.PipelineStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
}
