package models

import (
	"time"

	"gorm.io/gorm"
)

// ServicePlan represents a service plan. Read-only to the AAA engine; owned
// by the plan management workflow.
type ServicePlan struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID uint   `gorm:"not null;index" json:"tenant_id"`
	Name     string `gorm:"size:100;not null" json:"name"`

	// Speed in kbit/s
	RateDl int64 `gorm:"default:0" json:"rate_dl"`
	RateUl int64 `gorm:"default:0" json:"rate_ul"`

	// MikroTik burst parameters (kbit/s, threshold kbit/s, time seconds)
	BurstEnabled     bool  `gorm:"default:false" json:"burst_enabled"`
	BurstDl          int64 `gorm:"default:0" json:"burst_dl"`
	BurstUl          int64 `gorm:"default:0" json:"burst_ul"`
	BurstThresholdDl int64 `gorm:"default:0" json:"burst_threshold_dl"`
	BurstThresholdUl int64 `gorm:"default:0" json:"burst_threshold_ul"`
	BurstTimeDl      int   `gorm:"default:0" json:"burst_time_dl"`
	BurstTimeUl      int   `gorm:"default:0" json:"burst_time_ul"`
	Priority         int   `gorm:"default:8" json:"priority"`

	// Cisco policy hooks
	CiscoPolicyDl string `gorm:"size:100" json:"cisco_policy_dl"`
	CiscoPolicyUl string `gorm:"size:100" json:"cisco_policy_ul"`

	// Which limits are enforced for subscribers on this plan
	CapDownload bool `gorm:"default:false" json:"cap_download"`
	CapUpload   bool `gorm:"default:false" json:"cap_upload"`
	CapTotal    bool `gorm:"default:false" json:"cap_total"`
	CapExpiry   bool `gorm:"default:true" json:"cap_expiry"`
	CapTime     bool `gorm:"default:false" json:"cap_time"`

	// Daily quotas, 0 = unlimited
	DailyDlMb     int64 `gorm:"default:0" json:"daily_dl_mb"`
	DailyUlMb     int64 `gorm:"default:0" json:"daily_ul_mb"`
	DailyTotalMb  int64 `gorm:"default:0" json:"daily_total_mb"`
	DailyTimeSecs int64 `gorm:"default:0" json:"daily_time_secs"`

	// IP assignment
	PoolName       string `gorm:"size:100" json:"pool_name"`
	IgnoreStaticIP bool   `gorm:"default:false" json:"ignore_static_ip"`

	// Fallback plans substituted when the corresponding limit trips.
	NextDisabledID *uint `json:"next_disabled_id"`
	NextExpiredID  *uint `json:"next_expired_id"`
	NextDailyID    *uint `json:"next_daily_id"`

	Attributes []PlanAttribute `gorm:"foreignKey:PlanID" json:"attributes,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ServicePlan) TableName() string {
	return "service_plans"
}

// DailyDlLimitBytes returns the plan's daily download quota in bytes,
// 0 when unlimited.
func (p *ServicePlan) DailyDlLimitBytes() int64 {
	return p.DailyDlMb * 1048576
}

// PlanAttribute is a custom RADIUS reply attribute attached to a plan.
type PlanAttribute struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PlanID uint   `gorm:"not null;index" json:"plan_id"`
	Name   string `gorm:"size:64;not null" json:"name"`
	Value  string `gorm:"size:253;not null" json:"value"`
}

func (PlanAttribute) TableName() string {
	return "plan_attributes"
}
