package dto

import (
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// DecisionRequest carries optional notes for a single approve/reject.
type DecisionRequest struct {
	Notes string `json:"notes"`
}

// BulkDecisionRequest applies one decision across a set of withdrawals.
type BulkDecisionRequest struct {
	IDs      []int64 `json:"ids"`
	Decision string  `json:"decision"`
	Notes    string  `json:"notes"`
}

// AuditEntryResponse is one immutable withdrawal transition record.
type AuditEntryResponse struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAuditEntryResponses maps an audit trail onto its wire form.
func NewAuditEntryResponses(entries []model.AuditEntry) []AuditEntryResponse {
	resp := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, AuditEntryResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			Action:    e.Action,
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}
