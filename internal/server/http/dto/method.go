package dto

import "github.com/perkwell/payout/internal/domain/model"

// MethodResponse describes one payout method's configuration.
type MethodResponse struct {
	Method         string   `json:"method"`
	Enabled        bool     `json:"enabled"`
	MinAmount      int64    `json:"min_amount"`
	MaxAmount      int64    `json:"max_amount"`
	FeePercent     float64  `json:"fee_percent"`
	Currencies     []string `json:"currencies"`
	Countries      []string `json:"countries"`
	ProcessingTime string   `json:"processing_time"`
}

// MethodUpsertRequest replaces one method's configuration.
type MethodUpsertRequest struct {
	Enabled        bool     `json:"enabled"`
	MinAmount      int64    `json:"min_amount"`
	MaxAmount      int64    `json:"max_amount"`
	FeePercent     float64  `json:"fee_percent"`
	Currencies     []string `json:"currencies"`
	Countries      []string `json:"countries"`
	ProcessingTime string   `json:"processing_time"`
}

// NewMethodResponses maps method configurations onto their wire form.
func NewMethodResponses(cfgs []model.MethodConfig) []MethodResponse {
	resp := make([]MethodResponse, 0, len(cfgs))
	for _, cfg := range cfgs {
		resp = append(resp, MethodResponse{
			Method:         string(cfg.Method),
			Enabled:        cfg.Enabled,
			MinAmount:      cfg.MinAmount,
			MaxAmount:      cfg.MaxAmount,
			FeePercent:     cfg.FeePercent,
			Currencies:     cfg.Currencies,
			Countries:      cfg.Countries,
			ProcessingTime: cfg.ProcessingTime,
		})
	}
	return resp
}
