package aaa

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/radgate/backend/internal/models"
)

// Reply-Message values for every rejecting step. FreeRADIUS forwards them
// verbatim to the NAS, so they are part of the external contract.
const (
	RejectUnknownNas       = "Unknown NAS"
	RejectUserNotFound     = "User not found"
	RejectDisabled         = "Account disabled"
	RejectNoPlan           = "No service plan assigned"
	RejectExpired          = "Account expired"
	RejectDownloadLimit    = "Download limit exceeded"
	RejectUploadLimit      = "Upload limit exceeded"
	RejectTotalLimit       = "Total limit exceeded"
	RejectTimeLimit        = "Time limit exceeded"
	RejectDailyDownload    = "Daily download limit exceeded"
	RejectMaxSessions      = "Maximum sessions exceeded"
	RejectMacMismatch      = "MAC address mismatch"
	RejectTimeWindowDenied = "Access not allowed at this time"
	RejectBadPassword      = "Wrong password"
)

// AuthRequest carries the fields FreeRADIUS forwards for an
// authorize/authenticate call.
type AuthRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	NasIP          string `json:"nas_ip"`
	NasPortID      string `json:"nas_port_id"`
	CallingStation string `json:"calling_station"`
	CalledStation  string `json:"called_station"`
}

// Decision is the outcome of an authorize call: either an accept with reply
// attributes, or a reject with a human-readable reason.
type Decision struct {
	Accept     bool
	Reason     string
	Attributes map[string]string
}

func reject(reason string) Decision {
	return Decision{Reason: reason}
}

// Engine is the authorize/authenticate/accounting decision state machine.
// It is stateless between calls; all session and quota state lives behind
// the injected ports.
type Engine struct {
	subscribers SubscriberStore
	plans       PlanStore
	nas         NasStore
	special     SpecialAccountingStore
	sessions    SessionStore
	audit       AuditSink

	// Now is the clock used for expiry, daily-reset and time-window
	// decisions. Tests override it.
	Now func() time.Time
}

// NewEngine wires the engine to its ports.
func NewEngine(subs SubscriberStore, plans PlanStore, nas NasStore, special SpecialAccountingStore, sessions SessionStore, audit AuditSink) *Engine {
	return &Engine{
		subscribers: subs,
		plans:       plans,
		nas:         nas,
		special:     special,
		sessions:    sessions,
		audit:       audit,
		Now:         time.Now,
	}
}

// Authorize runs the full decision pipeline for an Access-Request. The
// first rejecting step wins; fallback plans are followed at most once.
func (e *Engine) Authorize(req AuthRequest) (Decision, error) {
	now := e.Now()

	nas, err := e.nas.FindByIP(req.NasIP)
	if err != nil {
		return Decision{}, err
	}
	if nas == nil {
		log.Printf("Auth reject (unknown NAS): nas=%s user=%s", req.NasIP, req.Username)
		return reject(RejectUnknownNas), nil
	}

	sub, err := e.subscribers.FindByUsernameAndTenant(req.Username, nas.TenantID)
	if err != nil {
		return Decision{}, err
	}
	if sub == nil {
		log.Printf("Auth reject (user not found): %s", req.Username)
		return reject(RejectUserNotFound), nil
	}

	if !sub.Enabled {
		log.Printf("Auth reject (not enabled): %s", req.Username)
		return reject(RejectDisabled), nil
	}

	plan, err := e.resolvePlan(sub.PlanID, sub.Plan)
	if err != nil {
		return Decision{}, err
	}

	// substituted marks that a fallback plan replaced the original; no
	// further cap checks run against the substitute.
	substituted := false

	if sub.Status == models.SubscriberStatusDisabled {
		fallback, err := e.fallbackPlan(plan, planNextDisabled)
		if err != nil {
			return Decision{}, err
		}
		if fallback == nil {
			log.Printf("Auth reject (disabled): %s", req.Username)
			return reject(RejectDisabled), nil
		}
		plan = fallback
		substituted = true
		log.Printf("Auth: %s disabled, substituting plan %q", req.Username, plan.Name)
	}

	if plan == nil {
		log.Printf("Auth reject (no plan): %s", req.Username)
		return reject(RejectNoPlan), nil
	}

	if !substituted && plan.CapExpiry && sub.IsExpired(now) {
		fallback, err := e.fallbackPlan(plan, planNextExpired)
		if err != nil {
			return Decision{}, err
		}
		if fallback == nil {
			log.Printf("Auth reject (expired): %s", req.Username)
			return reject(RejectExpired), nil
		}
		plan = fallback
		substituted = true
		log.Printf("Auth: %s expired, substituting plan %q", req.Username, plan.Name)
	}

	if !substituted {
		if plan.CapDownload && sub.DlLimitBytes.Exhausted() {
			fallback, err := e.fallbackPlan(plan, planNextExpired)
			if err != nil {
				return Decision{}, err
			}
			if fallback == nil {
				log.Printf("Auth reject (download limit): %s", req.Username)
				return reject(RejectDownloadLimit), nil
			}
			plan = fallback
			substituted = true
			log.Printf("Auth: %s out of download quota, substituting plan %q", req.Username, plan.Name)
		}
	}
	if !substituted {
		if plan.CapUpload && sub.UlLimitBytes.Exhausted() {
			log.Printf("Auth reject (upload limit): %s", req.Username)
			return reject(RejectUploadLimit), nil
		}
		if plan.CapTotal && sub.TotalLimitBytes.Exhausted() {
			log.Printf("Auth reject (total limit): %s", req.Username)
			return reject(RejectTotalLimit), nil
		}
		if plan.CapTime && sub.TimeLimitSecs <= 0 {
			log.Printf("Auth reject (time limit): %s", req.Username)
			return reject(RejectTimeLimit), nil
		}
	}

	// Lazy per-request daily reset; there is no midnight cron.
	if e.resetDailyCounters(sub, now) {
		if err := e.subscribers.UpdateQuotas(sub); err != nil {
			return Decision{}, err
		}
	}

	if !substituted && plan.DailyDlMb > 0 {
		limit := models.NewBytes(plan.DailyDlLimitBytes())
		if sub.DailyDlUsed.Cmp(&limit.Int) >= 0 {
			fallback, err := e.fallbackPlan(plan, planNextDaily)
			if err != nil {
				return Decision{}, err
			}
			if fallback == nil {
				log.Printf("Auth reject (daily download limit): %s", req.Username)
				return reject(RejectDailyDownload), nil
			}
			plan = fallback
			log.Printf("Auth: %s out of daily quota, substituting plan %q", req.Username, plan.Name)
		}
	}

	if sub.SimUse > 0 {
		count, err := e.sessions.CountOpen(sub.Username, sub.TenantID)
		if err != nil {
			return Decision{}, err
		}
		if count >= int64(sub.SimUse) {
			log.Printf("Auth reject (sim-use): %s has %d open sessions, limit %d", req.Username, count, sub.SimUse)
			return reject(RejectMaxSessions), nil
		}
	}

	if sub.MacLock {
		calling := models.NormalizeMAC(req.CallingStation)
		stored := models.NormalizeMAC(sub.MacCpe)
		if stored != "" && stored != calling {
			log.Printf("Auth reject (MAC mismatch): %s expected=%s got=%s", req.Username, sub.MacCpe, req.CallingStation)
			return reject(RejectMacMismatch), nil
		}
		if stored == "" && req.CallingStation != "" {
			// Auto-lock on first use.
			sub.MacCpe = req.CallingStation
			if err := e.subscribers.UpdateQuotas(sub); err != nil {
				return Decision{}, err
			}
			log.Printf("Auth: locked MAC %s for %s", req.CallingStation, req.Username)
		}
	}

	rules, err := e.special.FindByPlan(plan.ID)
	if err != nil {
		return Decision{}, err
	}
	for i := range rules {
		if rules[i].Matches(now) && !rules[i].AuthAllowed {
			log.Printf("Auth reject (time window): %s", req.Username)
			return reject(RejectTimeWindowDenied), nil
		}
	}

	attrs := BuildReply(sub, plan, nas, now)
	log.Printf("Auth accept: %s plan=%q nas=%s", req.Username, plan.Name, nas.IPAddress)
	return Decision{Accept: true, Attributes: attrs}, nil
}

// Authenticate is the password-only endpoint: no quota logic, just a
// credential check. The lookup is tenant-scoped when the NAS is known.
func (e *Engine) Authenticate(req AuthRequest) (bool, error) {
	var sub *models.Subscriber
	var err error

	if req.NasIP != "" {
		nas, nerr := e.nas.FindByIP(req.NasIP)
		if nerr != nil {
			return false, nerr
		}
		if nas != nil {
			sub, err = e.subscribers.FindByUsernameAndTenant(req.Username, nas.TenantID)
		} else {
			sub, err = e.subscribers.FindByUsername(req.Username)
		}
	} else {
		sub, err = e.subscribers.FindByUsername(req.Username)
	}
	if err != nil {
		return false, err
	}
	if sub == nil {
		log.Printf("Authenticate reject (user not found): %s", req.Username)
		return false, nil
	}

	if sub.PasswordPlain != "" {
		if sub.PasswordPlain != req.Password {
			log.Printf("Authenticate reject (wrong password): %s", req.Username)
			return false, nil
		}
		return true, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(sub.PasswordHash), []byte(req.Password)) != nil {
		log.Printf("Authenticate reject (wrong password hash): %s", req.Username)
		return false, nil
	}
	return true, nil
}

// PostAuthEntry is what FreeRADIUS reports after it has sent its reply.
type PostAuthEntry struct {
	Username       string `json:"username"`
	Reply          string `json:"reply"`
	NasIP          string `json:"nas_ip"`
	CallingStation string `json:"calling_station"`
}

// PostAuth records the final outcome of an authentication exchange.
func (e *Engine) PostAuth(entry PostAuthEntry) error {
	return e.audit.Record(&models.RadPostAuth{
		Username:         entry.Username,
		Reply:            entry.Reply,
		NasIPAddress:     entry.NasIP,
		CallingStationID: entry.CallingStation,
	})
}

type fallbackKind int

const (
	planNextDisabled fallbackKind = iota
	planNextExpired
	planNextDaily
)

// fallbackPlan resolves the plan's fallback reference of the given kind.
// Returns nil when the reference is unset or dangling, in which case the
// caller rejects with its own message instead of looping further.
func (e *Engine) fallbackPlan(plan *models.ServicePlan, kind fallbackKind) (*models.ServicePlan, error) {
	if plan == nil {
		return nil, nil
	}
	var ref *uint
	switch kind {
	case planNextDisabled:
		ref = plan.NextDisabledID
	case planNextExpired:
		ref = plan.NextExpiredID
	case planNextDaily:
		ref = plan.NextDailyID
	}
	if ref == nil {
		return nil, nil
	}
	return e.plans.FindByID(*ref)
}

func (e *Engine) resolvePlan(id *uint, preloaded *models.ServicePlan) (*models.ServicePlan, error) {
	if preloaded != nil {
		return preloaded, nil
	}
	if id == nil {
		return nil, nil
	}
	return e.plans.FindByID(*id)
}

// resetDailyCounters zeroes the four daily counters when the stored reset
// marker is not from today. Returns true when something changed.
func (e *Engine) resetDailyCounters(sub *models.Subscriber, now time.Time) bool {
	if sub.DailyResetAt != nil && sameDay(*sub.DailyResetAt, now) {
		return false
	}
	sub.DailyDlUsed.SetInt64(0)
	sub.DailyUlUsed.SetInt64(0)
	sub.DailyTotalUsed.SetInt64(0)
	sub.DailyTimeUsed = 0
	reset := now
	sub.DailyResetAt = &reset
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
