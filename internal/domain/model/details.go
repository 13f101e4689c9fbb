package model

// PayoutDetails is a tagged union of method-specific payout fields.
// Exactly one variant matching the withdrawal method must be set.
type PayoutDetails struct {
	Bank     *BankDetails     `json:"bank,omitempty"`
	Crypto   *CryptoDetails   `json:"crypto,omitempty"`
	GiftCard *GiftCardDetails `json:"gift_card,omitempty"`
}

// BankDetails carries fields required for a bank transfer payout.
type BankDetails struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
}

// CryptoDetails carries fields required for a crypto payout.
type CryptoDetails struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// GiftCardDetails carries fields required for a gift card payout.
type GiftCardDetails struct {
	SKU           string `json:"sku"`
	DeliveryEmail string `json:"delivery_email"`
}

// Variant returns the details variant matching the method, or nil when
// the method requires no details or the matching variant is absent.
func (d PayoutDetails) Variant(method PayoutMethod) any {
	switch method {
	case MethodBankTransfer:
		if d.Bank != nil {
			return d.Bank
		}
	case MethodCrypto:
		if d.Crypto != nil {
			return d.Crypto
		}
	case MethodGiftCard:
		if d.GiftCard != nil {
			return d.GiftCard
		}
	}
	return nil
}
