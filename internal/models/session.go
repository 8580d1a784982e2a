package models

import (
	"math/big"
	"time"
)

// RadAcct represents one RADIUS accounting session. A row is created on
// Accounting-Start, refreshed on Interim-Update and closed on Stop (or
// bulk-closed when the NAS signals Accounting-On/Off after a reboot).
type RadAcct struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	AcctSessionID string `gorm:"size:64;not null;index" json:"acct_session_id"`
	AcctUniqueID  string `gorm:"size:64;uniqueIndex" json:"acct_unique_id"`
	Username      string `gorm:"size:100;not null;index" json:"username"`
	TenantID      uint   `gorm:"not null;index" json:"tenant_id"`
	SubscriberID  *uint  `gorm:"index" json:"subscriber_id"`
	NasID         *uint  `json:"nas_id"`
	NasIPAddress  string `gorm:"size:50;not null;index" json:"nas_ip_address"`

	AcctStartTime  *time.Time `gorm:"index" json:"acct_start_time"`
	AcctUpdateTime *time.Time `json:"acct_update_time"`
	AcctStopTime   *time.Time `gorm:"index" json:"acct_stop_time"`

	AcctSessionTime int64 `gorm:"default:0" json:"acct_session_time"`

	// Raw counters exactly as last reported by the NAS. The 32-bit octet
	// counters wrap at 4 GiB; the gigaword counters count the wraps.
	AcctInputOctets     int64 `gorm:"default:0" json:"acct_input_octets"`
	AcctOutputOctets    int64 `gorm:"default:0" json:"acct_output_octets"`
	AcctInputGigawords  int64 `gorm:"default:0" json:"acct_input_gigawords"`
	AcctOutputGigawords int64 `gorm:"default:0" json:"acct_output_gigawords"`

	CallingStationID   string `gorm:"size:50;index" json:"calling_station_id"`
	FramedIPAddress    string `gorm:"size:50" json:"framed_ip_address"`
	NasPortID          string `gorm:"size:50" json:"nas_port_id"`
	AcctTerminateCause string `gorm:"size:32" json:"acct_terminate_cause"`
}

func (RadAcct) TableName() string {
	return "radacct"
}

// TotalInput reconstructs the true 64-bit-class input total from the
// wrapped octet counter and its gigaword count.
func (s *RadAcct) TotalInput() *big.Int {
	return CounterTotal(s.AcctInputOctets, s.AcctInputGigawords)
}

// TotalOutput reconstructs the true output total.
func (s *RadAcct) TotalOutput() *big.Int {
	return CounterTotal(s.AcctOutputOctets, s.AcctOutputGigawords)
}

// CounterTotal combines a wrapped 32-bit octet counter with its gigaword
// wrap count: octets + gigawords * 2^32.
func CounterTotal(octets, gigawords int64) *big.Int {
	total := new(big.Int).Lsh(big.NewInt(gigawords), 32)
	return total.Add(total, big.NewInt(octets))
}
