package provider

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/perkwell/payout/internal/config"
)

// Module wires the payout provider client for dependency injection.
var Module = fx.Provide(NewClient)

// NewClient builds the HTTP provider client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) (Client, error) {
	client, err := NewHTTPClient(cfg.ProviderAddress, cfg.ProviderTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	return client, nil
}
