package dto

// ProviderCallbackRequest is the provider's webhook verdict about a
// previously dispatched transfer.
type ProviderCallbackRequest struct {
	Reference   string `json:"reference"`
	ProviderRef string `json:"provider_ref"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
}
