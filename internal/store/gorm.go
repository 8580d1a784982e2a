// Package store provides the gorm-backed implementations of the AAA
// engine's repository ports, plus a Redis read-through cache for
// subscriber lookups.
package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/radgate/backend/internal/models"
)

// Subscribers is the gorm SubscriberStore.
type Subscribers struct {
	db *gorm.DB
}

func NewSubscribers(db *gorm.DB) *Subscribers {
	return &Subscribers{db: db}
}

func (s *Subscribers) FindByUsernameAndTenant(username string, tenantID uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := s.db.Preload("Plan").Preload("Plan.Attributes").Preload("Attributes").
		Where("username = ? AND tenant_id = ?", username, tenantID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Subscribers) FindByUsername(username string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := s.db.Preload("Plan").Where("username = ?", username).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateQuotas persists the fields the engine mutates: quota balances,
// daily counters and the learned MAC.
func (s *Subscribers) UpdateQuotas(sub *models.Subscriber) error {
	return s.db.Model(&models.Subscriber{}).Where("id = ?", sub.ID).Updates(map[string]interface{}{
		"dl_limit_bytes":    sub.DlLimitBytes,
		"ul_limit_bytes":    sub.UlLimitBytes,
		"total_limit_bytes": sub.TotalLimitBytes,
		"time_limit_secs":   sub.TimeLimitSecs,
		"daily_dl_used":     sub.DailyDlUsed,
		"daily_ul_used":     sub.DailyUlUsed,
		"daily_total_used":  sub.DailyTotalUsed,
		"daily_time_used":   sub.DailyTimeUsed,
		"daily_reset_at":    sub.DailyResetAt,
		"mac_cpe":           sub.MacCpe,
	}).Error
}

// Plans is the gorm PlanStore.
type Plans struct {
	db *gorm.DB
}

func NewPlans(db *gorm.DB) *Plans {
	return &Plans{db: db}
}

func (p *Plans) FindByID(id uint) (*models.ServicePlan, error) {
	var plan models.ServicePlan
	err := p.db.Preload("Attributes").First(&plan, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// NasDevices is the gorm NasStore.
type NasDevices struct {
	db *gorm.DB
}

func NewNasDevices(db *gorm.DB) *NasDevices {
	return &NasDevices{db: db}
}

func (n *NasDevices) FindByIP(ip string) (*models.NasDevice, error) {
	var nas models.NasDevice
	err := n.db.Where("ip_address = ?", ip).First(&nas).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &nas, nil
}

func (n *NasDevices) FindByID(id uint) (*models.NasDevice, error) {
	var nas models.NasDevice
	err := n.db.First(&nas, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &nas, nil
}

// SpecialAccounting is the gorm SpecialAccountingStore.
type SpecialAccounting struct {
	db *gorm.DB
}

func NewSpecialAccounting(db *gorm.DB) *SpecialAccounting {
	return &SpecialAccounting{db: db}
}

func (s *SpecialAccounting) FindByPlan(planID uint) ([]models.SpecialAccountingRule, error) {
	var rules []models.SpecialAccountingRule
	if err := s.db.Where("plan_id = ?", planID).Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Sessions is the gorm SessionStore.
type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Create(session *models.RadAcct) error {
	return s.db.Create(session).Error
}

func (s *Sessions) FindOpenBySessionID(sessionID string) (*models.RadAcct, error) {
	var session models.RadAcct
	err := s.db.Where("acct_session_id = ? AND acct_stop_time IS NULL", sessionID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Sessions) Update(session *models.RadAcct) error {
	return s.db.Save(session).Error
}

func (s *Sessions) CountOpen(username string, tenantID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.RadAcct{}).
		Where("username = ? AND tenant_id = ? AND acct_stop_time IS NULL", username, tenantID).
		Count(&count).Error
	return count, err
}

func (s *Sessions) FindOpenByUsername(username string) ([]models.RadAcct, error) {
	var sessions []models.RadAcct
	err := s.db.Where("username = ? AND acct_stop_time IS NULL", username).
		Find(&sessions).Error
	return sessions, err
}

func (s *Sessions) BulkCloseByNas(nasIP, cause string) (int64, error) {
	result := s.db.Model(&models.RadAcct{}).
		Where("nas_ip_address = ? AND acct_stop_time IS NULL", nasIP).
		Updates(map[string]interface{}{
			"acct_stop_time":       time.Now(),
			"acct_terminate_cause": cause,
		})
	return result.RowsAffected, result.Error
}

// Audit is the gorm AuditSink.
type Audit struct {
	db *gorm.DB
}

func NewAudit(db *gorm.DB) *Audit {
	return &Audit{db: db}
}

func (a *Audit) Record(entry *models.RadPostAuth) error {
	return a.db.Create(entry).Error
}
