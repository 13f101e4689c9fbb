package model

import "time"

// ScheduleFrequency defines how often a settlement schedule fires.
type ScheduleFrequency string

const (
	FrequencyDaily   ScheduleFrequency = "daily"
	FrequencyWeekly  ScheduleFrequency = "weekly"
	FrequencyMonthly ScheduleFrequency = "monthly"
)

// SettlementSchedule drives batched execution of pending fund transfers.
// NextRun is always derivable from Frequency plus the last run; an
// inactive schedule never triggers.
type SettlementSchedule struct {
	ID            int64
	Name          string
	Frequency     ScheduleFrequency
	DayOfWeek     time.Weekday // weekly only
	DayOfMonth    int          // monthly only, 1-28
	TimeOfDay     string       // "15:04"
	MinimumAmount int64
	Active        bool
	LastRun       *time.Time
	NextRun       *time.Time
}
