package usecase

import (
	"testing"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

func findingByCode(findings []Finding, code string) *Finding {
	for i := range findings {
		if findings[i].Code == code {
			return &findings[i]
		}
	}
	return nil
}

func validBankDetails() model.PayoutDetails {
	return model.PayoutDetails{Bank: &model.BankDetails{
		AccountNumber: "0123456789",
		BankCode:      "044",
		AccountName:   "Ada Okafor",
	}}
}

func draft(amount int64) Draft {
	return Draft{
		Account: &model.Account{ID: 1, Balance: 50_000, Verified: true, Level: 1},
		Amount:  amount,
		Method:  model.MethodBankTransfer,
		Details: validBankDetails(),
		Now:     time.Now(),
	}
}

func TestValidateBelowMethodMinimum(t *testing.T) {
	v := NewValidator()
	cfg := bankConfig(5)

	findings := v.Validate(draft(50), cfg)
	if !HasErrors(findings) {
		t.Fatal("expected error findings for amount below method minimum")
	}
	f := findingByCode(findings, "method_min")
	if f == nil || f.Level != FindingError {
		t.Fatalf("expected method_min error finding, got %+v", f)
	}
	// The rest of the checklist still ran.
	if balance := findingByCode(findings, "balance"); balance == nil || balance.Level != FindingSuccess {
		t.Fatalf("expected balance success finding, got %+v", balance)
	}
}

func TestValidateDisabledMethodFailsClosed(t *testing.T) {
	v := NewValidator()
	cfg := bankConfig(5)
	cfg.Enabled = false

	findings := v.Validate(draft(1500), cfg)
	f := findingByCode(findings, "method_enabled")
	if f == nil || f.Level != FindingError {
		t.Fatalf("expected method_enabled error finding, got %+v", f)
	}
}

func TestValidateInsufficientBalance(t *testing.T) {
	v := NewValidator()
	d := draft(1500)
	d.Account.Balance = 1000

	findings := v.Validate(d, bankConfig(5))
	f := findingByCode(findings, "balance")
	if f == nil || f.Level != FindingError {
		t.Fatalf("expected balance error finding, got %+v", f)
	}
}

func TestValidateDailyLimitScalesWithLevel(t *testing.T) {
	v := NewValidator()
	cfg := bankConfig(5)
	cfg.MaxAmount = 1_000_000

	// Level 1 verified: daily limit 10_000.
	d := draft(12_000)
	d.Account.Balance = 1_000_000
	findings := v.Validate(d, cfg)
	if f := findingByCode(findings, "limit_daily"); f == nil || f.Level != FindingError {
		t.Fatalf("expected daily limit breach at level 1, got %+v", f)
	}

	// Level 2 verified: daily limit 15_000, so 12_000 passes.
	d.Account.Level = 2
	findings = v.Validate(d, cfg)
	if f := findingByCode(findings, "limit_daily"); f == nil || f.Level != FindingSuccess {
		t.Fatalf("expected daily limit pass at level 2, got %+v", f)
	}
}

func TestValidateUnverifiedGetsBaseline(t *testing.T) {
	p := DefaultLimitPolicy
	acc := &model.Account{Verified: false, Level: 5}
	if limit := p.LimitFor(p.DailyBase, acc); limit != p.DailyBase {
		t.Fatalf("unverified account must get baseline limit, got %d", limit)
	}
}

func TestValidateLimitCountsExistingUsage(t *testing.T) {
	v := NewValidator()
	cfg := bankConfig(5)
	d := draft(5000)
	d.Usage = model.PeriodUsage{Daily: 8000, Weekly: 8000, Monthly: 8000}

	findings := v.Validate(d, cfg)
	if f := findingByCode(findings, "limit_daily"); f == nil || f.Level != FindingError {
		t.Fatalf("expected daily limit breach with prior usage, got %+v", f)
	}
	if f := findingByCode(findings, "limit_weekly"); f == nil || f.Level != FindingSuccess {
		t.Fatalf("expected weekly limit pass, got %+v", f)
	}
}

func TestValidateBankDetails(t *testing.T) {
	v := NewValidator()
	cfg := bankConfig(5)

	cases := []struct {
		name    string
		details model.PayoutDetails
		wantErr bool
	}{
		{"complete", validBankDetails(), false},
		{"missing", model.PayoutDetails{}, true},
		{"short account number", model.PayoutDetails{Bank: &model.BankDetails{AccountNumber: "123", BankCode: "044", AccountName: "A"}}, true},
		{"unresolved name", model.PayoutDetails{Bank: &model.BankDetails{AccountNumber: "0123456789", BankCode: "044"}}, true},
	}
	for _, tc := range cases {
		d := draft(1500)
		d.Details = tc.details
		findings := v.Validate(d, cfg)
		f := findingByCode(findings, "details")
		if f == nil {
			t.Fatalf("%s: missing details finding", tc.name)
		}
		if tc.wantErr && f.Level != FindingError {
			t.Fatalf("%s: expected details error, got %+v", tc.name, f)
		}
		if !tc.wantErr && f.Level != FindingSuccess {
			t.Fatalf("%s: expected details success, got %+v", tc.name, f)
		}
	}
}

func TestValidateCryptoAndGiftCardDetails(t *testing.T) {
	v := NewValidator()

	d := draft(1500)
	d.Method = model.MethodCrypto
	d.Details = model.PayoutDetails{Crypto: &model.CryptoDetails{Address: "0xabc", Network: "ethereum"}}
	cfg := &model.MethodConfig{Method: model.MethodCrypto, Enabled: true, MinAmount: 100, MaxAmount: 100_000}
	if findings := v.Validate(d, cfg); HasErrors(findings) {
		t.Fatalf("expected valid crypto draft, got %+v", findings)
	}

	d.Details = model.PayoutDetails{Crypto: &model.CryptoDetails{Address: "0xabc"}}
	if findings := v.Validate(d, cfg); !HasErrors(findings) {
		t.Fatal("expected error for missing network")
	}

	d.Method = model.MethodGiftCard
	d.Details = model.PayoutDetails{GiftCard: &model.GiftCardDetails{SKU: "AMZN-50"}}
	cfg = &model.MethodConfig{Method: model.MethodGiftCard, Enabled: true, MinAmount: 100, MaxAmount: 50_000}
	if findings := v.Validate(d, cfg); !HasErrors(findings) {
		t.Fatal("expected error for missing delivery email")
	}
}

func TestValidateInternalNeedsNoDetails(t *testing.T) {
	v := NewValidator()
	d := draft(1500)
	d.Method = model.MethodInternal
	d.Details = model.PayoutDetails{}
	cfg := &model.MethodConfig{Method: model.MethodInternal, Enabled: true, MinAmount: 1, MaxAmount: 1_000_000}

	if findings := v.Validate(d, cfg); HasErrors(findings) {
		t.Fatalf("internal transfer should not require details, got %+v", findings)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Findings: []Finding{
		{Level: FindingSuccess, Code: "balance", Message: "sufficient balance"},
		{Level: FindingError, Code: "method_min", Message: "amount below minimum of 100 for bank_transfer"},
	}}
	if got := err.Error(); got != "validation failed: amount below minimum of 100 for bank_transfer" {
		t.Fatalf("unexpected message: %q", got)
	}
}
