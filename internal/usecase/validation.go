package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// FindingLevel tags a validation finding.
type FindingLevel string

const (
	FindingError   FindingLevel = "error"
	FindingSuccess FindingLevel = "success"
)

// Finding is one itemized validation result. A request may proceed only
// when no error-level findings exist.
type Finding struct {
	Level   FindingLevel `json:"level"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
}

// ValidationError carries the full findings list back to the caller.
// It is never retried automatically.
type ValidationError struct {
	Findings []Finding
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, f := range e.Findings {
		if f.Level == FindingError {
			parts = append(parts, f.Message)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any error-level finding exists.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Level == FindingError {
			return true
		}
	}
	return false
}

// LimitPolicy defines baseline rolling withdrawal limits. Verified
// accounts scale each baseline by 1 + 0.5*(level-1).
type LimitPolicy struct {
	DailyBase   int64
	WeeklyBase  int64
	MonthlyBase int64
}

// DefaultLimitPolicy mirrors the platform's published tier table.
var DefaultLimitPolicy = LimitPolicy{
	DailyBase:   10_000,
	WeeklyBase:  50_000,
	MonthlyBase: 150_000,
}

// LimitFor returns the effective limit of one window for an account.
func (p LimitPolicy) LimitFor(base int64, acc *model.Account) int64 {
	if !acc.Verified {
		return base
	}
	level := acc.Level
	if level < 1 {
		level = 1
	}
	return int64(float64(base) * (1 + 0.5*float64(level-1)))
}

// Validator checks a draft withdrawal against balance, method rules and
// rolling period limits. It never mutates state and is run both at
// submission and again immediately before dispatch.
type Validator struct {
	Limits            LimitPolicy
	BankAccountLength int
}

// NewValidator constructs a validator with platform defaults.
func NewValidator() *Validator {
	return &Validator{Limits: DefaultLimitPolicy, BankAccountLength: 10}
}

// Draft is a candidate withdrawal before any row exists.
type Draft struct {
	Account *model.Account
	Amount  int64
	Method  model.PayoutMethod
	Details model.PayoutDetails
	Usage   model.PeriodUsage
	Now     time.Time
}

// Validate evaluates the rules in order and returns every finding.
func (v *Validator) Validate(d Draft, cfg *model.MethodConfig) []Finding {
	var findings []Finding
	add := func(ok bool, code, errMsg, okMsg string) {
		if ok {
			findings = append(findings, Finding{Level: FindingSuccess, Code: code, Message: okMsg})
		} else {
			findings = append(findings, Finding{Level: FindingError, Code: code, Message: errMsg})
		}
	}

	// Disabled methods fail closed before any amount rule runs.
	add(cfg.Enabled, "method_enabled",
		fmt.Sprintf("payout method %s is disabled", cfg.Method),
		"payout method available")

	add(d.Amount > 0, "amount_positive",
		"amount must be greater than zero",
		"amount is positive")

	add(d.Amount <= d.Account.Balance, "balance",
		fmt.Sprintf("amount %d exceeds available balance %d", d.Amount, d.Account.Balance),
		"sufficient balance")

	add(d.Amount >= cfg.MinAmount, "method_min",
		fmt.Sprintf("amount below minimum of %d for %s", cfg.MinAmount, cfg.Method),
		"above method minimum")

	add(d.Amount <= cfg.MaxAmount, "method_max",
		fmt.Sprintf("amount above maximum of %d for %s", cfg.MaxAmount, cfg.Method),
		"below method maximum")

	findings = append(findings, v.limitFindings(d)...)
	findings = append(findings, v.detailFindings(d)...)
	return findings
}

func (v *Validator) limitFindings(d Draft) []Finding {
	windows := []struct {
		code  string
		base  int64
		used  int64
		label string
	}{
		{"limit_daily", v.Limits.DailyBase, d.Usage.Daily, "daily"},
		{"limit_weekly", v.Limits.WeeklyBase, d.Usage.Weekly, "weekly"},
		{"limit_monthly", v.Limits.MonthlyBase, d.Usage.Monthly, "monthly"},
	}

	findings := make([]Finding, 0, len(windows))
	for _, w := range windows {
		limit := v.Limits.LimitFor(w.base, d.Account)
		remaining := limit - w.used
		if remaining < 0 {
			remaining = 0
		}
		if d.Amount > remaining {
			findings = append(findings, Finding{
				Level:   FindingError,
				Code:    w.code,
				Message: fmt.Sprintf("amount %d exceeds remaining %s limit %d", d.Amount, w.label, remaining),
			})
		} else {
			findings = append(findings, Finding{
				Level:   FindingSuccess,
				Code:    w.code,
				Message: fmt.Sprintf("within %s limit", w.label),
			})
		}
	}
	return findings
}

func (v *Validator) detailFindings(d Draft) []Finding {
	fail := func(code, msg string) []Finding {
		return []Finding{{Level: FindingError, Code: code, Message: msg}}
	}
	ok := func(code, msg string) []Finding {
		return []Finding{{Level: FindingSuccess, Code: code, Message: msg}}
	}

	switch d.Method {
	case model.MethodInternal:
		// Internal transfers require only an amount.
		return ok("details", "no payout details required")
	case model.MethodBankTransfer:
		b := d.Details.Bank
		switch {
		case b == nil:
			return fail("details", "bank details required")
		case len(b.AccountNumber) != v.BankAccountLength:
			return fail("details", fmt.Sprintf("account number must be %d digits", v.BankAccountLength))
		case b.BankCode == "":
			return fail("details", "bank code required")
		case b.AccountName == "":
			return fail("details", "account name must be resolved before submission")
		}
		return ok("details", "bank details complete")
	case model.MethodCrypto:
		c := d.Details.Crypto
		switch {
		case c == nil:
			return fail("details", "wallet details required")
		case c.Address == "":
			return fail("details", "wallet address required")
		case c.Network == "":
			return fail("details", "network required")
		}
		return ok("details", "wallet details complete")
	case model.MethodGiftCard:
		g := d.Details.GiftCard
		switch {
		case g == nil:
			return fail("details", "gift card details required")
		case g.SKU == "":
			return fail("details", "gift card SKU required")
		case g.DeliveryEmail == "":
			return fail("details", "delivery email required")
		}
		return ok("details", "gift card details complete")
	}
	return fail("details", fmt.Sprintf("unknown payout method %s", d.Method))
}
