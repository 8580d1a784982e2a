package aaa

import "github.com/radgate/backend/internal/models"

// The engine talks to the surrounding system only through these ports.
// Production wiring lives in internal/store; tests inject fakes.

// SubscriberStore resolves and mutates subscriber records.
type SubscriberStore interface {
	// FindByUsernameAndTenant returns nil, nil when no such subscriber
	// exists for the tenant.
	FindByUsernameAndTenant(username string, tenantID uint) (*models.Subscriber, error)
	// FindByUsername is the tenant-unscoped lookup used by the
	// password-only authenticate endpoint when the NAS is unknown.
	FindByUsername(username string) (*models.Subscriber, error)
	// UpdateQuotas persists the subscriber's quota, daily-counter and
	// MAC-binding fields.
	UpdateQuotas(sub *models.Subscriber) error
}

// PlanStore resolves service plans, including fallback references.
type PlanStore interface {
	// FindByID returns nil, nil when the plan does not exist.
	FindByID(id uint) (*models.ServicePlan, error)
}

// NasStore resolves NAS devices by source IP.
type NasStore interface {
	// FindByIP returns nil, nil when no NAS is registered for the IP.
	FindByIP(ip string) (*models.NasDevice, error)
}

// SpecialAccountingStore resolves time-window rules for a plan.
type SpecialAccountingStore interface {
	FindByPlan(planID uint) ([]models.SpecialAccountingRule, error)
}

// SessionStore owns the radacct session rows.
type SessionStore interface {
	Create(s *models.RadAcct) error
	// FindOpenBySessionID returns nil, nil when no open (stop-time-null)
	// session carries the accounting session id.
	FindOpenBySessionID(sessionID string) (*models.RadAcct, error)
	Update(s *models.RadAcct) error
	CountOpen(username string, tenantID uint) (int64, error)
	// BulkCloseByNas closes every open session on the NAS IP with the
	// given terminate cause and returns how many rows it touched.
	BulkCloseByNas(nasIP, cause string) (int64, error)
}

// AuditSink records post-auth outcomes.
type AuditSink interface {
	Record(entry *models.RadPostAuth) error
}
