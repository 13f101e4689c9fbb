package dto

// BalanceResponse describes a member account's point balances.
type BalanceResponse struct {
	Balance      int64 `json:"balance"`
	YieldBalance int64 `json:"yield_balance"`
	Verified     bool  `json:"verified"`
	Level        int   `json:"level"`
}
