package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/server/http/dto"
	"github.com/perkwell/payout/internal/server/http/middleware"
	"github.com/perkwell/payout/internal/usecase"
)

// CurrentAccountID extracts the member account id from context.
func CurrentAccountID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.AccountIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

// CurrentActor extracts the acting admin identifier from context.
func CurrentActor(c *gin.Context) string {
	val, ok := c.Get(middleware.ActorContextKey)
	if !ok {
		return ""
	}
	actor, _ := val.(string)
	return actor
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.Status(http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP statuses. Validation
// failures carry their findings so the caller can fix the draft.
func respondError(c *gin.Context, err error) {
	var validation *usecase.ValidationError
	if errors.As(err, &validation) {
		findings := make([]dto.FindingResponse, 0, len(validation.Findings))
		for _, f := range validation.Findings {
			findings = append(findings, dto.FindingResponse{
				Level:   string(f.Level),
				Code:    f.Code,
				Message: f.Message,
			})
		}
		c.JSON(http.StatusUnprocessableEntity, dto.ValidationResponse{Findings: findings})
		return
	}

	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, domainErrors.ErrInsufficientBalance):
		c.Status(http.StatusPaymentRequired)
	case errors.Is(err, domainErrors.ErrConflict), errors.Is(err, domainErrors.ErrTransferInFlight):
		c.Status(http.StatusConflict)
	case errors.Is(err, domainErrors.ErrInvalidAmount),
		errors.Is(err, domainErrors.ErrMethodDisabled),
		errors.Is(err, domainErrors.ErrScheduleMalformed):
		c.Status(http.StatusUnprocessableEntity)
	default:
		c.Status(http.StatusInternalServerError)
	}
}
