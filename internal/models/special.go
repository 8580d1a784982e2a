package models

import (
	"strconv"
	"strings"
	"time"
)

// SpecialAccountingRule is a time-of-day/day-of-week window attached to a
// plan. While a window matches, accounted traffic is scaled by the ratios
// and authorization can be blocked outright.
type SpecialAccountingRule struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PlanID uint `gorm:"not null;index" json:"plan_id"`

	StartTime  string `gorm:"size:5;not null" json:"start_time"` // "HH:MM"
	EndTime    string `gorm:"size:5;not null" json:"end_time"`
	DaysOfWeek string `gorm:"size:20;not null" json:"days_of_week"` // comma-separated 0-6, Sunday=0

	// Usage-ratio multipliers applied to accounted deltas. RatioUl scales
	// input octets and RatioDl scales output octets.
	RatioDl   float64 `gorm:"default:1" json:"ratio_dl"`
	RatioUl   float64 `gorm:"default:1" json:"ratio_ul"`
	RatioTime float64 `gorm:"default:1" json:"ratio_time"`

	// AuthAllowed false rejects authorization attempts inside the window.
	AuthAllowed bool `gorm:"default:true" json:"auth_allowed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SpecialAccountingRule) TableName() string {
	return "special_accounting_rules"
}

// Matches reports whether t falls inside the rule's window. Windows whose
// end time precedes the start time span midnight.
func (r *SpecialAccountingRule) Matches(t time.Time) bool {
	if !r.matchesDay(int(t.Weekday())) {
		return false
	}

	start, okStart := parseMinutes(r.StartTime)
	end, okEnd := parseMinutes(r.EndTime)
	if !okStart || !okEnd {
		return false
	}

	current := t.Hour()*60 + t.Minute()
	if start <= end {
		return current >= start && current < end
	}
	// Crosses midnight, e.g. 22:00 to 06:00
	return current >= start || current < end
}

func (r *SpecialAccountingRule) matchesDay(weekday int) bool {
	for _, part := range strings.Split(r.DaysOfWeek, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && day == weekday {
			return true
		}
	}
	return false
}

func parseMinutes(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
