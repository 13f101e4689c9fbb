package model

import "encoding/json"

// ChangeKind classifies a row mutation carried by the change feed.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change feed table names.
const (
	TableWithdrawals = "withdrawal_requests"
	TableTransfers   = "fund_transfers"
)

// ChangeEvent notifies consumers that a withdrawal or transfer row changed.
// Old and New hold JSON snapshots of the row before and after.
type ChangeEvent struct {
	Table string          `json:"table"`
	Kind  ChangeKind      `json:"kind"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}
