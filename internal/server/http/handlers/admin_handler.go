package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perkwell/payout/internal/domain/model"
	"github.com/perkwell/payout/internal/scheduler"
	"github.com/perkwell/payout/internal/server/http/dto"
	"github.com/perkwell/payout/internal/usecase"
)

const defaultPendingLimit = 100

// AdminHandler serves the back-office endpoints.
type AdminHandler struct {
	facade  AdminFacade
	trigger SettlementTrigger
	stats   StatsSource
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade, trigger SettlementTrigger, stats StatsSource) *AdminHandler {
	return &AdminHandler{facade: facade, trigger: trigger, stats: stats}
}

// Pending handles GET /api/admin/withdrawals/pending.
func (h *AdminHandler) Pending(c *gin.Context) {
	limit := defaultPendingLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.Status(http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	withdrawals, err := h.facade.PendingWithdrawals(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWithdrawalResponses(withdrawals))
}

// Approve handles POST /api/admin/withdrawals/:id/approve.
func (h *AdminHandler) Approve(c *gin.Context) {
	h.decide(c, h.facade.ApproveWithdrawal)
}

// Reject handles POST /api/admin/withdrawals/:id/reject.
func (h *AdminHandler) Reject(c *gin.Context) {
	h.decide(c, h.facade.RejectWithdrawal)
}

func (h *AdminHandler) decide(c *gin.Context, apply func(ctx context.Context, id int64, actor, notes string) (*model.Withdrawal, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	w, err := apply(c.Request.Context(), id, CurrentActor(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWithdrawalResponse(*w))
}

// Bulk handles POST /api/admin/withdrawals/bulk.
func (h *AdminHandler) Bulk(c *gin.Context) {
	var req dto.BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.facade.BulkDecide(
		c.Request.Context(),
		req.IDs,
		usecase.Decision(req.Decision),
		CurrentActor(c),
		req.Notes,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Audit handles GET /api/admin/withdrawals/:id/audit.
func (h *AdminHandler) Audit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	trail, err := h.facade.AuditTrail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuditEntryResponses(trail))
}

// UpsertMethod handles PUT /api/admin/methods/:method.
func (h *AdminHandler) UpsertMethod(c *gin.Context) {
	var req dto.MethodUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	cfg := &model.MethodConfig{
		Method:         model.PayoutMethod(c.Param("method")),
		Enabled:        req.Enabled,
		MinAmount:      req.MinAmount,
		MaxAmount:      req.MaxAmount,
		FeePercent:     req.FeePercent,
		Currencies:     req.Currencies,
		Countries:      req.Countries,
		ProcessingTime: req.ProcessingTime,
	}
	if err := h.facade.UpsertMethod(c.Request.Context(), cfg); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Schedules handles GET /api/admin/schedules.
func (h *AdminHandler) Schedules(c *gin.Context) {
	schedules, err := h.facade.Schedules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewScheduleResponses(schedules))
}

// CreateSchedule handles POST /api/admin/schedules.
func (h *AdminHandler) CreateSchedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	created, err := h.facade.CreateSchedule(c.Request.Context(), req.Model(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewScheduleResponse(*created))
}

// UpdateSchedule handles PUT /api/admin/schedules/:id.
func (h *AdminHandler) UpdateSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.facade.UpdateSchedule(c.Request.Context(), req.Model(id)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// RunSchedule handles POST /api/admin/schedules/:id/run, the manual
// settlement trigger.
func (h *AdminHandler) RunSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.trigger.RunNow(c.Request.Context(), id)
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.Is(err, scheduler.ErrBelowMinimum):
		c.JSON(http.StatusConflict, gin.H{"error": "pending aggregate below schedule minimum"})
	case errors.Is(err, scheduler.ErrRunInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "settlement run already in flight"})
	case errors.Is(err, scheduler.ErrScheduleInactive):
		c.JSON(http.StatusConflict, gin.H{"error": "schedule is inactive"})
	default:
		respondError(c, err)
	}
}

// Revenue handles GET /api/admin/revenue?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *AdminHandler) Revenue(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	entries, err := h.facade.Revenue(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewRevenueEntryResponses(entries))
}

// Rollup handles POST /api/admin/revenue/rollup.
func (h *AdminHandler) Rollup(c *gin.Context) {
	var req dto.RollupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	entry, err := h.facade.RollupRevenueDay(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewRevenueEntryResponse(*entry))
}

// Stats handles GET /api/admin/stats, the feed-derived pipeline view.
func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}
