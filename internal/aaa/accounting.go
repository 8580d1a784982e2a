package aaa

import (
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radgate/backend/internal/models"
)

// TerminateCauseNasReboot closes sessions orphaned by an Accounting-On/Off:
// the NAS rebooted and lost all session state.
const TerminateCauseNasReboot = "NAS-Reboot"

// AcctRequest carries an accounting packet as forwarded by FreeRADIUS.
type AcctRequest struct {
	StatusType      string `json:"status_type"`
	Username        string `json:"username"`
	SessionID       string `json:"session_id"`
	NasIP           string `json:"nas_ip"`
	NasPortID       string `json:"nas_port_id"`
	FramedIP        string `json:"framed_ip"`
	CallingStation  string `json:"calling_station"`
	SessionTime     int64  `json:"session_time"`
	InputOctets     int64  `json:"input_octets"`
	OutputOctets    int64  `json:"output_octets"`
	InputGigawords  int64  `json:"input_gigawords"`
	OutputGigawords int64  `json:"output_gigawords"`
	TerminateCause  string `json:"terminate_cause"`
}

// Accounting dispatches on the normalized status type. It never returns a
// rejection: accounting must not block the NAS, so malformed input is
// logged and ignored and unknown interim sessions self-heal into starts.
func (e *Engine) Accounting(req AcctRequest) error {
	switch normalizeStatusType(req.StatusType) {
	case "start":
		return e.acctStart(req)
	case "interimupdate":
		return e.acctInterim(req)
	case "stop":
		return e.acctStop(req)
	case "accountingon", "accountingoff":
		return e.acctNasReboot(req)
	default:
		log.Printf("Acct: ignoring unknown status type %q for %s", req.StatusType, req.Username)
		return nil
	}
}

// normalizeStatusType lowercases and strips separators so "Interim-Update",
// "interim_update" and "InterimUpdate" all dispatch the same way.
func normalizeStatusType(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

func (e *Engine) acctStart(req AcctRequest) error {
	session, err := e.newSession(req, e.Now())
	if err != nil {
		return err
	}
	if err := e.sessions.Create(session); err != nil {
		return err
	}
	log.Printf("Acct: session start %s user=%s nas=%s", req.SessionID, req.Username, req.NasIP)
	return nil
}

func (e *Engine) acctInterim(req AcctRequest) error {
	now := e.Now()

	session, err := e.sessions.FindOpenBySessionID(req.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		// Missed Start (server restart, NAS hiccup): create the row with
		// an estimated start time and count the full totals as the delta.
		estimated := now.Add(-time.Duration(req.SessionTime) * time.Second)
		session, err = e.newSession(req, estimated)
		if err != nil {
			return err
		}
		e.storeCounters(session, req, now)
		if err := e.sessions.Create(session); err != nil {
			return err
		}
		log.Printf("Acct: interim for unknown session %s, created as start (user=%s uptime=%ds)",
			req.SessionID, req.Username, req.SessionTime)
		return e.applyUsage(session, models.CounterTotal(req.InputOctets, req.InputGigawords),
			models.CounterTotal(req.OutputOctets, req.OutputGigawords), req.SessionTime)
	}

	inDelta, outDelta, timeDelta := counterDeltas(session, req)
	e.storeCounters(session, req, now)
	if err := e.sessions.Update(session); err != nil {
		return err
	}
	return e.applyUsage(session, inDelta, outDelta, timeDelta)
}

func (e *Engine) acctStop(req AcctRequest) error {
	now := e.Now()

	session, err := e.sessions.FindOpenBySessionID(req.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		log.Printf("Acct: stop for unknown session %s (user=%s), ignored", req.SessionID, req.Username)
		return nil
	}

	inDelta, outDelta, timeDelta := counterDeltas(session, req)
	e.storeCounters(session, req, now)
	session.AcctStopTime = &now
	session.AcctTerminateCause = req.TerminateCause
	if err := e.sessions.Update(session); err != nil {
		return err
	}
	log.Printf("Acct: session stop %s user=%s cause=%s", req.SessionID, req.Username, req.TerminateCause)
	return e.applyUsage(session, inDelta, outDelta, timeDelta)
}

func (e *Engine) acctNasReboot(req AcctRequest) error {
	closed, err := e.sessions.BulkCloseByNas(req.NasIP, TerminateCauseNasReboot)
	if err != nil {
		return err
	}
	log.Printf("Acct: NAS %s signaled accounting on/off, closed %d open sessions", req.NasIP, closed)
	return nil
}

func (e *Engine) newSession(req AcctRequest, start time.Time) (*models.RadAcct, error) {
	var tenantID uint
	var subscriberID *uint

	nas, err := e.nas.FindByIP(req.NasIP)
	if err != nil {
		return nil, err
	}
	var nasID *uint
	if nas != nil {
		nasID = &nas.ID
		tenantID = nas.TenantID
		sub, err := e.subscribers.FindByUsernameAndTenant(req.Username, nas.TenantID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			subscriberID = &sub.ID
			tenantID = sub.TenantID
		}
	}

	return &models.RadAcct{
		AcctSessionID:    req.SessionID,
		AcctUniqueID:     uuid.NewString(),
		Username:         req.Username,
		TenantID:         tenantID,
		SubscriberID:     subscriberID,
		NasID:            nasID,
		NasIPAddress:     req.NasIP,
		NasPortID:        req.NasPortID,
		AcctStartTime:    &start,
		CallingStationID: req.CallingStation,
		FramedIPAddress:  req.FramedIP,
	}, nil
}

func (e *Engine) storeCounters(session *models.RadAcct, req AcctRequest, now time.Time) {
	session.AcctInputOctets = req.InputOctets
	session.AcctOutputOctets = req.OutputOctets
	session.AcctInputGigawords = req.InputGigawords
	session.AcctOutputGigawords = req.OutputGigawords
	session.AcctSessionTime = req.SessionTime
	session.AcctUpdateTime = &now
}

// counterDeltas reconstructs true 64-bit totals from the wrapped counters
// and returns the growth since the session's last report. A negative delta
// means the NAS reset its counters mid-session; the new total is then taken
// as the delta instead of going negative.
func counterDeltas(session *models.RadAcct, req AcctRequest) (in, out *big.Int, secs int64) {
	newIn := models.CounterTotal(req.InputOctets, req.InputGigawords)
	newOut := models.CounterTotal(req.OutputOctets, req.OutputGigawords)

	in = new(big.Int).Sub(newIn, session.TotalInput())
	if in.Sign() < 0 {
		in = newIn
	}
	out = new(big.Int).Sub(newOut, session.TotalOutput())
	if out.Sign() < 0 {
		out = newOut
	}

	secs = req.SessionTime - session.AcctSessionTime
	if secs < 0 {
		secs = req.SessionTime
	}
	return in, out, secs
}

// applyUsage charges byte and time deltas to the subscriber's quotas,
// scaled by any matching special accounting window.
func (e *Engine) applyUsage(session *models.RadAcct, inDelta, outDelta *big.Int, timeDelta int64) error {
	sub, err := e.subscribers.FindByUsernameAndTenant(session.Username, session.TenantID)
	if err != nil || sub == nil {
		return err
	}
	plan, err := e.resolvePlan(sub.PlanID, sub.Plan)
	if err != nil || plan == nil {
		return err
	}

	ratioDl, ratioUl, ratioTime := 1.0, 1.0, 1.0
	rules, err := e.special.FindByPlan(plan.ID)
	if err != nil {
		return err
	}
	now := e.Now()
	for i := range rules {
		if rules[i].Matches(now) {
			ratioDl = rules[i].RatioDl
			ratioUl = rules[i].RatioUl
			ratioTime = rules[i].RatioTime
			break
		}
	}

	// Input octets (subscriber upload) scale by RatioUl, output octets
	// (subscriber download) by RatioDl. Billing depends on this pairing.
	upload := scaleBytes(inDelta, ratioUl)
	download := scaleBytes(outDelta, ratioDl)
	secs := int64(float64(timeDelta) * ratioTime)

	total := new(big.Int).Add(download, upload)

	// Remaining quotas only move when the plan enforces the cap; uncapped
	// fields stay untouched and mean "not tracked".
	if plan.CapDownload {
		sub.DlLimitBytes.Sub(&sub.DlLimitBytes.Int, download)
	}
	if plan.CapUpload {
		sub.UlLimitBytes.Sub(&sub.UlLimitBytes.Int, upload)
	}
	if plan.CapTotal {
		sub.TotalLimitBytes.Sub(&sub.TotalLimitBytes.Int, total)
	}
	if plan.CapTime {
		sub.TimeLimitSecs -= secs
	}

	// Daily counters accumulate regardless of cap flags.
	e.resetDailyCounters(sub, now)
	sub.DailyDlUsed.Add(&sub.DailyDlUsed.Int, download)
	sub.DailyUlUsed.Add(&sub.DailyUlUsed.Int, upload)
	sub.DailyTotalUsed.Add(&sub.DailyTotalUsed.Int, total)
	sub.DailyTimeUsed += secs

	return e.subscribers.UpdateQuotas(sub)
}

// scaleBytes multiplies a byte delta by a usage ratio, rounding toward zero.
func scaleBytes(delta *big.Int, ratio float64) *big.Int {
	if ratio == 1.0 {
		return new(big.Int).Set(delta)
	}
	product := new(big.Float).Mul(new(big.Float).SetInt(delta), big.NewFloat(ratio))
	scaled, _ := product.Int(nil)
	return scaled
}
