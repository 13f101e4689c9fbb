package model

import "time"

// AuditEntry is an immutable record of a withdrawal transition.
type AuditEntry struct {
	ID           int64
	WithdrawalID int64
	Actor        string
	Action       string
	Notes        string
	CreatedAt    time.Time
}
