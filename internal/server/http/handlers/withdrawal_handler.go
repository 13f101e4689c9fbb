package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/server/http/dto"
)

// WithdrawalHandler serves the member-facing withdrawal endpoints.
type WithdrawalHandler struct {
	facade AccountFacade
}

// NewWithdrawalHandler constructs WithdrawalHandler.
func NewWithdrawalHandler(facade AccountFacade) *WithdrawalHandler {
	return &WithdrawalHandler{facade: facade}
}

// Balance handles GET /api/user/balance.
func (h *WithdrawalHandler) Balance(c *gin.Context) {
	account, err := h.facade.Account(c.Request.Context(), CurrentAccountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{
		Balance:      account.Balance,
		YieldBalance: account.YieldBalance,
		Verified:     account.Verified,
		Level:        account.Level,
	})
}

// Submit handles POST /api/user/withdrawals.
func (h *WithdrawalHandler) Submit(c *gin.Context) {
	var req dto.SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	w, _, err := h.facade.SubmitWithdrawal(
		c.Request.Context(),
		CurrentAccountID(c),
		req.Amount,
		model.PayoutMethod(req.Method),
		req.Details,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewWithdrawalResponse(*w))
}

// History handles GET /api/user/withdrawals.
func (h *WithdrawalHandler) History(c *gin.Context) {
	withdrawals, err := h.facade.WithdrawalHistory(c.Request.Context(), CurrentAccountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(withdrawals) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, dto.NewWithdrawalResponses(withdrawals))
}

// Get handles GET /api/user/withdrawals/:id. A withdrawal owned by
// another account is indistinguishable from a missing one.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	w, err := h.facade.Withdrawal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if w.AccountID != CurrentAccountID(c) {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewWithdrawalResponse(*w))
}

// Methods handles GET /api/methods.
func (h *WithdrawalHandler) Methods(c *gin.Context) {
	methods, err := h.facade.Methods(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMethodResponses(methods))
}
