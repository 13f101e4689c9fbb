package dto

import (
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// SubmitWithdrawalRequest describes a withdrawal submission payload.
type SubmitWithdrawalRequest struct {
	Amount  int64               `json:"amount"`
	Method  string              `json:"method"`
	Details model.PayoutDetails `json:"details"`
}

// FindingResponse is one validation finding surfaced to the caller.
type FindingResponse struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResponse carries the full finding set of a rejected draft.
type ValidationResponse struct {
	Findings []FindingResponse `json:"findings"`
}

// WithdrawalResponse describes one withdrawal request.
type WithdrawalResponse struct {
	ID         int64               `json:"id"`
	AccountID  int64               `json:"account_id"`
	Amount     int64               `json:"amount"`
	Method     string              `json:"method"`
	Status     string              `json:"status"`
	Fee        *int64              `json:"fee,omitempty"`
	Net        *int64              `json:"net,omitempty"`
	Details    model.PayoutDetails `json:"details"`
	AdminNotes string              `json:"admin_notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// NewWithdrawalResponse maps a withdrawal onto its wire form.
func NewWithdrawalResponse(w model.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:         w.ID,
		AccountID:  w.AccountID,
		Amount:     w.Amount,
		Method:     string(w.Method),
		Status:     string(w.Status),
		Fee:        w.Fee,
		Net:        w.Net,
		Details:    w.Details,
		AdminNotes: w.AdminNotes,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

// NewWithdrawalResponses maps a withdrawal list onto its wire form.
func NewWithdrawalResponses(ws []model.Withdrawal) []WithdrawalResponse {
	resp := make([]WithdrawalResponse, 0, len(ws))
	for _, w := range ws {
		resp = append(resp, NewWithdrawalResponse(w))
	}
	return resp
}
