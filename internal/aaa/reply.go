package aaa

import (
	"fmt"
	"time"

	"github.com/radgate/backend/internal/models"
)

// Reply attribute names as FreeRADIUS expects them.
const (
	AttrMikrotikRateLimit = "Mikrotik-Rate-Limit"
	AttrCiscoAVPair       = "Cisco-AVPair"
	AttrWisprDown         = "WISPr-Bandwidth-Max-Down"
	AttrWisprUp           = "WISPr-Bandwidth-Max-Up"
	AttrFramedIPAddress   = "Framed-IP-Address"
	AttrFramedPool        = "Framed-Pool"
	AttrSessionTimeout    = "Session-Timeout"
	AttrInterimInterval   = "Acct-Interim-Interval"
)

// interimIntervalSecs is how often the NAS is asked to send interim
// accounting updates.
const interimIntervalSecs = 300

// BuildReply turns a resolved (subscriber, plan, nas) triple into the
// vendor-specific RADIUS reply attribute map. Pure: no I/O, no mutation.
func BuildReply(sub *models.Subscriber, plan *models.ServicePlan, nas *models.NasDevice, now time.Time) map[string]string {
	attrs := make(map[string]string)

	buildBandwidth(attrs, plan, nas)
	buildFramedIP(attrs, sub, plan)
	buildTimeouts(attrs, sub, plan, now)

	// Plan attributes first, then subscriber attributes: later entries
	// with the same name win.
	for _, a := range plan.Attributes {
		attrs[a.Name] = a.Value
	}
	for _, a := range sub.Attributes {
		attrs[a.Name] = a.Value
	}

	return attrs
}

func buildBandwidth(attrs map[string]string, plan *models.ServicePlan, nas *models.NasDevice) {
	if plan.RateDl == 0 && plan.RateUl == 0 {
		return
	}

	switch nas.Type {
	case models.NasTypeMikrotik:
		if plan.BurstEnabled {
			attrs[AttrMikrotikRateLimit] = fmt.Sprintf("%dk/%dk %dk/%dk %dk/%dk %d/%d %d",
				plan.RateUl, plan.RateDl,
				plan.BurstUl, plan.BurstDl,
				plan.BurstThresholdUl, plan.BurstThresholdDl,
				plan.BurstTimeUl, plan.BurstTimeDl,
				plan.Priority)
		} else {
			attrs[AttrMikrotikRateLimit] = fmt.Sprintf("%dk/%dk", plan.RateUl, plan.RateDl)
		}

	case models.NasTypeCisco:
		if nas.BandwidthMode == models.CiscoModePolicyMap {
			// Both directions write the same key: when both policy names
			// are configured the upload policy overwrites the download
			// one. Long-standing behavior that deployments rely on.
			if plan.CiscoPolicyDl != "" {
				attrs[AttrCiscoAVPair] = "ip:sub-qos-policy-out=" + plan.CiscoPolicyDl
			}
			if plan.CiscoPolicyUl != "" {
				attrs[AttrCiscoAVPair] = "ip:sub-qos-policy-in=" + plan.CiscoPolicyUl
			}
		} else {
			bps := plan.RateUl * 1000
			burst := bps / 10
			if burst < 8000 {
				burst = 8000
			}
			attrs[AttrCiscoAVPair] = fmt.Sprintf(
				"lcp:interface-config#1=rate-limit output %d %d %d conform-action transmit exceed-action drop",
				bps, burst, burst)
		}

	default:
		// chillispot, pfsense, staros and anything else speak WISPr,
		// in bits per second.
		if plan.RateDl > 0 {
			attrs[AttrWisprDown] = fmt.Sprintf("%d", plan.RateDl*1000)
		}
		if plan.RateUl > 0 {
			attrs[AttrWisprUp] = fmt.Sprintf("%d", plan.RateUl*1000)
		}
	}
}

func buildFramedIP(attrs map[string]string, sub *models.Subscriber, plan *models.ServicePlan) {
	if !plan.IgnoreStaticIP && sub.IPMode == models.IPModeStatic && sub.StaticIP != "" {
		attrs[AttrFramedIPAddress] = sub.StaticIP
		return
	}
	if plan.PoolName != "" {
		attrs[AttrFramedPool] = plan.PoolName
	}
}

// buildTimeouts emits Session-Timeout as the minimum of whichever timeout
// candidates are positive: remaining time quota, seconds to expiry, and
// remaining daily time quota.
func buildTimeouts(attrs map[string]string, sub *models.Subscriber, plan *models.ServicePlan, now time.Time) {
	var candidates []int64

	if plan.CapTime && sub.TimeLimitSecs > 0 {
		candidates = append(candidates, sub.TimeLimitSecs)
	}
	if plan.CapExpiry {
		if remaining := int64(sub.ExpiryDate.Sub(now).Seconds()); remaining > 0 {
			candidates = append(candidates, remaining)
		}
	}
	if plan.DailyTimeSecs > 0 {
		if remaining := plan.DailyTimeSecs - sub.DailyTimeUsed; remaining > 0 {
			candidates = append(candidates, remaining)
		}
	}

	var min int64
	for _, c := range candidates {
		if min == 0 || c < min {
			min = c
		}
	}
	if min > 0 {
		attrs[AttrSessionTimeout] = fmt.Sprintf("%d", min)
	}

	attrs[AttrInterimInterval] = fmt.Sprintf("%d", interimIntervalSecs)
}
