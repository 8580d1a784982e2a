package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// SubscriberStatus represents the lifecycle state of a subscriber account.
type SubscriberStatus string

const (
	SubscriberStatusActive   SubscriberStatus = "active"
	SubscriberStatusDisabled SubscriberStatus = "disabled"
	SubscriberStatusExpired  SubscriberStatus = "expired"
)

// Subscriber represents a PPPoE/Hotspot subscriber account.
type Subscriber struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID uint   `gorm:"not null;index;uniqueIndex:idx_sub_tenant_username" json:"tenant_id"`
	Username string `gorm:"size:100;not null;uniqueIndex:idx_sub_tenant_username" json:"username"`

	// Credentials. PasswordPlain wins when set (PAP literal compare);
	// PasswordHash is a bcrypt hash used otherwise.
	PasswordPlain string `gorm:"size:255" json:"-"`
	PasswordHash  string `gorm:"size:255" json:"-"`

	// State
	Enabled bool             `gorm:"default:true" json:"enabled"`
	Status  SubscriberStatus `gorm:"size:20;default:active" json:"status"`

	// Plan
	PlanID *uint        `gorm:"index" json:"plan_id"`
	Plan   *ServicePlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`

	// Remaining quotas. Negative values mean "already exhausted, the last
	// overage was allowed through".
	DlLimitBytes    Bytes `gorm:"type:numeric(40,0);default:0" json:"dl_limit_bytes"`
	UlLimitBytes    Bytes `gorm:"type:numeric(40,0);default:0" json:"ul_limit_bytes"`
	TotalLimitBytes Bytes `gorm:"type:numeric(40,0);default:0" json:"total_limit_bytes"`
	TimeLimitSecs   int64 `gorm:"default:0" json:"time_limit_secs"`

	ExpiryDate time.Time `json:"expiry_date"`

	// Daily usage counters, reset lazily on the first authorize of each day.
	DailyDlUsed    Bytes      `gorm:"type:numeric(40,0);default:0" json:"daily_dl_used"`
	DailyUlUsed    Bytes      `gorm:"type:numeric(40,0);default:0" json:"daily_ul_used"`
	DailyTotalUsed Bytes      `gorm:"type:numeric(40,0);default:0" json:"daily_total_used"`
	DailyTimeUsed  int64      `gorm:"default:0" json:"daily_time_used"`
	DailyResetAt   *time.Time `json:"daily_reset_at"`

	// MAC binding. MacCpe is learned from the first Calling-Station-Id seen
	// when MacLock is on and no MAC is stored yet.
	MacLock bool   `gorm:"default:false" json:"mac_lock"`
	MacCpe  string `gorm:"size:50;index" json:"mac_cpe"`

	// SimUse is the maximum number of concurrent sessions, 0 = unlimited.
	SimUse int `gorm:"default:1" json:"sim_use"`

	// IP assignment
	IPMode   IPMode `gorm:"size:20;default:pool" json:"ip_mode"`
	StaticIP string `gorm:"size:50" json:"static_ip"`

	Attributes []SubscriberAttribute `gorm:"foreignKey:SubscriberID" json:"attributes,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IPMode selects how the subscriber's framed IP is assigned.
type IPMode string

const (
	IPModeStatic IPMode = "static"
	IPModePool   IPMode = "pool"
)

func (Subscriber) TableName() string {
	return "subscribers"
}

// IsExpired returns true if the subscription has passed its expiry date.
func (s *Subscriber) IsExpired(now time.Time) bool {
	return now.After(s.ExpiryDate)
}

// SubscriberAttribute is a custom RADIUS reply attribute attached to one
// subscriber. Merged after the plan's attributes, so it overrides them.
type SubscriberAttribute struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SubscriberID uint   `gorm:"not null;index" json:"subscriber_id"`
	Name         string `gorm:"size:64;not null" json:"name"`
	Value        string `gorm:"size:253;not null" json:"value"`
}

func (SubscriberAttribute) TableName() string {
	return "subscriber_attributes"
}

// NormalizeMAC strips separator characters and uppercases a MAC address so
// that NAS-reported and stored values compare reliably.
func NormalizeMAC(mac string) string {
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	return strings.ToUpper(mac)
}
