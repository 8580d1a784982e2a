package models

import "time"

// RadPostAuth is the post-authentication audit trail: one row per authorize
// outcome, successful or not.
type RadPostAuth struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"size:100;not null;index" json:"username"`
	Reply            string    `gorm:"size:64" json:"reply"`
	NasIPAddress     string    `gorm:"size:50" json:"nas_ip_address"`
	CallingStationID string    `gorm:"size:50" json:"calling_station_id"`
	AuthDate         time.Time `gorm:"autoCreateTime;index" json:"auth_date"`
}

func (RadPostAuth) TableName() string {
	return "radpostauth"
}
