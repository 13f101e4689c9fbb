package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perkwell/payout/internal/app"
	"github.com/perkwell/payout/internal/server/http/dto"
)

// ProviderHandler receives webhook verdicts from the payout provider.
type ProviderHandler struct {
	facade CallbackFacade
}

// NewProviderHandler constructs ProviderHandler.
func NewProviderHandler(facade CallbackFacade) *ProviderHandler {
	return &ProviderHandler{facade: facade}
}

// Callback handles POST /api/provider/callback.
func (h *ProviderHandler) Callback(c *gin.Context) {
	var req dto.ProviderCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reference == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	err := h.facade.HandleProviderCallback(
		c.Request.Context(),
		req.Reference,
		req.ProviderRef,
		req.Status,
		req.Amount,
	)
	if err != nil {
		if errors.Is(err, app.ErrCallbackMismatch) {
			c.Status(http.StatusBadRequest)
			return
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
