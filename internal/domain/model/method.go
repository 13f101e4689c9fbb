package model

// PayoutMethod identifies how a withdrawal is paid out.
type PayoutMethod string

const (
	MethodBankTransfer PayoutMethod = "bank_transfer"
	MethodCrypto       PayoutMethod = "crypto"
	MethodGiftCard     PayoutMethod = "gift_card"
	// MethodInternal moves points to the member's yield balance without
	// involving any external provider.
	MethodInternal PayoutMethod = "internal"
)

// MethodConfig holds admin-owned configuration for a payout method.
type MethodConfig struct {
	Method         PayoutMethod
	Enabled        bool
	MinAmount      int64
	MaxAmount      int64
	FeePercent     float64
	Currencies     []string
	Countries      []string
	ProcessingTime string
}

// External reports whether the method requires a provider transfer.
func (m PayoutMethod) External() bool {
	return m != MethodInternal
}
