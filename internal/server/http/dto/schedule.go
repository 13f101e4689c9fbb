package dto

import (
	"time"

	"github.com/perkwell/payout/internal/domain/model"
)

// ScheduleRequest creates or replaces a settlement schedule.
type ScheduleRequest struct {
	Name          string `json:"name"`
	Frequency     string `json:"frequency"`
	DayOfWeek     int    `json:"day_of_week"`
	DayOfMonth    int    `json:"day_of_month"`
	TimeOfDay     string `json:"time_of_day"`
	MinimumAmount int64  `json:"minimum_amount"`
	Active        bool   `json:"active"`
}

// Model converts the request into the domain schedule.
func (r ScheduleRequest) Model(id int64) *model.SettlementSchedule {
	return &model.SettlementSchedule{
		ID:            id,
		Name:          r.Name,
		Frequency:     model.ScheduleFrequency(r.Frequency),
		DayOfWeek:     time.Weekday(r.DayOfWeek),
		DayOfMonth:    r.DayOfMonth,
		TimeOfDay:     r.TimeOfDay,
		MinimumAmount: r.MinimumAmount,
		Active:        r.Active,
	}
}

// ScheduleResponse describes one settlement schedule.
type ScheduleResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Frequency     string     `json:"frequency"`
	DayOfWeek     int        `json:"day_of_week"`
	DayOfMonth    int        `json:"day_of_month"`
	TimeOfDay     string     `json:"time_of_day"`
	MinimumAmount int64      `json:"minimum_amount"`
	Active        bool       `json:"active"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
}

// NewScheduleResponse maps a schedule onto its wire form.
func NewScheduleResponse(s model.SettlementSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:            s.ID,
		Name:          s.Name,
		Frequency:     string(s.Frequency),
		DayOfWeek:     int(s.DayOfWeek),
		DayOfMonth:    s.DayOfMonth,
		TimeOfDay:     s.TimeOfDay,
		MinimumAmount: s.MinimumAmount,
		Active:        s.Active,
		LastRun:       s.LastRun,
		NextRun:       s.NextRun,
	}
}

// NewScheduleResponses maps a schedule list onto its wire form.
func NewScheduleResponses(ss []model.SettlementSchedule) []ScheduleResponse {
	resp := make([]ScheduleResponse, 0, len(ss))
	for _, s := range ss {
		resp = append(resp, NewScheduleResponse(s))
	}
	return resp
}
