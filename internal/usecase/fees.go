package usecase

import (
	"math"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

// ComputeFee calculates processing fee and net payout for a gross point
// amount under the given method configuration. Pure and deterministic:
// identical inputs always produce identical outputs, which audit replay
// relies on.
//
// External methods pay ceil(gross * feePercent / 100); the internal
// transfer method is free. fee + net always equals gross.
func ComputeFee(gross int64, cfg *model.MethodConfig) (fee, net int64, err error) {
	if gross <= 0 {
		return 0, 0, domainErrors.ErrInvalidAmount
	}
	if gross < cfg.MinAmount || gross > cfg.MaxAmount {
		return 0, 0, domainErrors.ErrInvalidAmount
	}

	if cfg.Method == model.MethodInternal {
		return 0, gross, nil
	}

	// Fee percent is expressed in basis points for exact integer math.
	basisPoints := int64(math.Round(cfg.FeePercent * 100))
	fee = (gross*basisPoints + 9999) / 10000
	return fee, gross - fee, nil
}
