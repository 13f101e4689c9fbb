package dto

import (
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// RevenueEntryResponse is one calendar day of the revenue ledger.
type RevenueEntryResponse struct {
	Date             string    `json:"date"`
	PaymentsTotal    int64     `json:"payments_total"`
	FeesTotal        int64     `json:"fees_total"`
	WithdrawalsTotal int64     `json:"withdrawals_total"`
	PaymentCount     int       `json:"payment_count"`
	WithdrawalCount  int       `json:"withdrawal_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewRevenueEntryResponse maps a ledger entry onto its wire form.
func NewRevenueEntryResponse(e model.RevenueLedgerEntry) RevenueEntryResponse {
	return RevenueEntryResponse{
		Date:             e.Date.Format("2006-01-02"),
		PaymentsTotal:    e.PaymentsTotal,
		FeesTotal:        e.FeesTotal,
		WithdrawalsTotal: e.WithdrawalsTotal,
		PaymentCount:     e.PaymentCount,
		WithdrawalCount:  e.WithdrawalCount,
		UpdatedAt:        e.UpdatedAt,
	}
}

// NewRevenueEntryResponses maps ledger entries onto their wire form.
func NewRevenueEntryResponses(entries []model.RevenueLedgerEntry) []RevenueEntryResponse {
	resp := make([]RevenueEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, NewRevenueEntryResponse(e))
	}
	return resp
}

// RollupRequest triggers a revenue rollup for one day.
type RollupRequest struct {
	Date string `json:"date"`
}
