package models

import (
	"time"

	"gorm.io/gorm"
)

// NasType represents the vendor type of a NAS device.
type NasType string

const (
	NasTypeMikrotik   NasType = "mikrotik"
	NasTypeCisco      NasType = "cisco"
	NasTypeChillispot NasType = "chillispot"
	NasTypeStarOS     NasType = "staros"
	NasTypePfsense    NasType = "pfsense"
	NasTypeOther      NasType = "other"
)

// CiscoBandwidthMode selects how bandwidth is pushed to Cisco gear.
type CiscoBandwidthMode string

const (
	CiscoModePolicyMap CiscoBandwidthMode = "policy-map"
	CiscoModeRateLimit CiscoBandwidthMode = "rate-limit"
)

// NasDevice represents a NAS/router. Every AAA request is attributed to a
// NAS by source IP, which also determines the tenant.
type NasDevice struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	TenantID  uint    `gorm:"not null;index" json:"tenant_id"`
	Name      string  `gorm:"size:100;not null" json:"name"`
	IPAddress string  `gorm:"size:50;not null;uniqueIndex" json:"ip_address"`
	Type      NasType `gorm:"size:20;default:mikrotik" json:"type"`

	// RADIUS
	Secret  string `gorm:"size:100;not null" json:"-"`
	CoaPort int    `gorm:"default:0" json:"coa_port"`

	// Cisco
	BandwidthMode CiscoBandwidthMode `gorm:"size:20;default:policy-map" json:"bandwidth_mode"`

	// MikroTik API
	ApiUsername string `gorm:"size:100" json:"api_username"`
	ApiPassword string `gorm:"size:255" json:"-"`
	ApiPort     int    `gorm:"default:8728" json:"api_port"`
	ApiVersion  string `gorm:"size:20" json:"api_version"` // "6.45.1+" or older

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (NasDevice) TableName() string {
	return "nas_devices"
}

// DisconnectPort returns the UDP port Disconnect-Requests are sent to.
// MikroTik listens on 1700, everything else on the RFC port 3799. An
// explicit CoaPort overrides both.
func (n *NasDevice) DisconnectPort() int {
	if n.CoaPort > 0 {
		return n.CoaPort
	}
	if n.Type == NasTypeMikrotik {
		return 1700
	}
	return 3799
}
