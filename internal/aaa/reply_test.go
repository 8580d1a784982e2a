package aaa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/radgate/backend/internal/models"
)

var replyNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func replySubscriber() *models.Subscriber {
	return &models.Subscriber{
		Username:   "alice",
		ExpiryDate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IPMode:     models.IPModePool,
	}
}

func mikrotikNas() *models.NasDevice {
	return &models.NasDevice{Type: models.NasTypeMikrotik}
}

func TestReplyMikrotikRateLimit(t *testing.T) {
	plan := &models.ServicePlan{RateDl: 51200, RateUl: 10240}

	attrs := BuildReply(replySubscriber(), plan, mikrotikNas(), replyNow)
	assert.Equal(t, "10240k/51200k", attrs[AttrMikrotikRateLimit])
}

func TestReplyMikrotikBurst(t *testing.T) {
	plan := &models.ServicePlan{
		RateDl: 51200, RateUl: 10240,
		BurstEnabled:     true,
		BurstDl:          102400,
		BurstUl:          20480,
		BurstThresholdDl: 40960,
		BurstThresholdUl: 8192,
		BurstTimeDl:      16,
		BurstTimeUl:      16,
		Priority:         4,
	}

	attrs := BuildReply(replySubscriber(), plan, mikrotikNas(), replyNow)
	assert.Equal(t,
		"10240k/51200k 20480k/102400k 8192k/40960k 16/16 4",
		attrs[AttrMikrotikRateLimit])
}

func TestReplyNoBandwidthWithoutRates(t *testing.T) {
	plan := &models.ServicePlan{}

	attrs := BuildReply(replySubscriber(), plan, mikrotikNas(), replyNow)
	assert.NotContains(t, attrs, AttrMikrotikRateLimit)
	assert.NotContains(t, attrs, AttrWisprDown)
}

func TestReplyCiscoPolicyMapUploadWins(t *testing.T) {
	// Both policies write the same Cisco-AVPair key; the upload policy is
	// the one that survives.
	nas := &models.NasDevice{Type: models.NasTypeCisco, BandwidthMode: models.CiscoModePolicyMap}
	plan := &models.ServicePlan{
		RateDl:        51200,
		RateUl:        10240,
		CiscoPolicyDl: "SHAPE-50M",
		CiscoPolicyUl: "POLICE-10M",
	}

	attrs := BuildReply(replySubscriber(), plan, nas, replyNow)
	assert.Equal(t, "ip:sub-qos-policy-in=POLICE-10M", attrs[AttrCiscoAVPair])
}

func TestReplyCiscoPolicyMapDownloadOnly(t *testing.T) {
	nas := &models.NasDevice{Type: models.NasTypeCisco, BandwidthMode: models.CiscoModePolicyMap}
	plan := &models.ServicePlan{RateDl: 51200, CiscoPolicyDl: "SHAPE-50M"}

	attrs := BuildReply(replySubscriber(), plan, nas, replyNow)
	assert.Equal(t, "ip:sub-qos-policy-out=SHAPE-50M", attrs[AttrCiscoAVPair])
}

func TestReplyCiscoRateLimit(t *testing.T) {
	nas := &models.NasDevice{Type: models.NasTypeCisco, BandwidthMode: models.CiscoModeRateLimit}
	plan := &models.ServicePlan{RateDl: 51200, RateUl: 10240}

	attrs := BuildReply(replySubscriber(), plan, nas, replyNow)
	// bps = 10240k, burst = bps/10
	assert.Equal(t,
		"lcp:interface-config#1=rate-limit output 10240000 1024000 1024000 conform-action transmit exceed-action drop",
		attrs[AttrCiscoAVPair])
}

func TestReplyCiscoRateLimitBurstFloor(t *testing.T) {
	nas := &models.NasDevice{Type: models.NasTypeCisco, BandwidthMode: models.CiscoModeRateLimit}
	plan := &models.ServicePlan{RateDl: 512, RateUl: 64}

	attrs := BuildReply(replySubscriber(), plan, nas, replyNow)
	assert.Equal(t,
		"lcp:interface-config#1=rate-limit output 64000 8000 8000 conform-action transmit exceed-action drop",
		attrs[AttrCiscoAVPair])
}

func TestReplyWisprBitsPerSecond(t *testing.T) {
	nas := &models.NasDevice{Type: models.NasTypeChillispot}
	plan := &models.ServicePlan{RateDl: 51200, RateUl: 10240}

	attrs := BuildReply(replySubscriber(), plan, nas, replyNow)
	assert.Equal(t, "51200000", attrs[AttrWisprDown])
	assert.Equal(t, "10240000", attrs[AttrWisprUp])
}

func TestReplyStaticIPBeatsPool(t *testing.T) {
	sub := replySubscriber()
	sub.IPMode = models.IPModeStatic
	sub.StaticIP = "100.64.9.9"
	plan := &models.ServicePlan{PoolName: "pppoe-pool"}

	attrs := BuildReply(sub, plan, mikrotikNas(), replyNow)
	assert.Equal(t, "100.64.9.9", attrs[AttrFramedIPAddress])
	assert.NotContains(t, attrs, AttrFramedPool)
}

func TestReplyIgnoreStaticIP(t *testing.T) {
	sub := replySubscriber()
	sub.IPMode = models.IPModeStatic
	sub.StaticIP = "100.64.9.9"
	plan := &models.ServicePlan{PoolName: "pppoe-pool", IgnoreStaticIP: true}

	attrs := BuildReply(sub, plan, mikrotikNas(), replyNow)
	assert.NotContains(t, attrs, AttrFramedIPAddress)
	assert.Equal(t, "pppoe-pool", attrs[AttrFramedPool])
}

func TestReplySessionTimeoutMinimum(t *testing.T) {
	// Three candidates: time quota 1800, expiry in 3600s, daily remaining
	// 7200. The smallest positive one wins.
	sub := replySubscriber()
	sub.TimeLimitSecs = 1800
	sub.ExpiryDate = replyNow.Add(3600 * time.Second)
	sub.DailyTimeUsed = 3600
	plan := &models.ServicePlan{CapTime: true, CapExpiry: true, DailyTimeSecs: 10800}

	attrs := BuildReply(sub, plan, mikrotikNas(), replyNow)
	assert.Equal(t, "1800", attrs[AttrSessionTimeout])
}

func TestReplyNoSessionTimeoutWithoutCandidates(t *testing.T) {
	plan := &models.ServicePlan{}

	attrs := BuildReply(replySubscriber(), plan, mikrotikNas(), replyNow)
	assert.NotContains(t, attrs, AttrSessionTimeout)
}

func TestReplyInterimIntervalAlwaysPresent(t *testing.T) {
	attrs := BuildReply(replySubscriber(), &models.ServicePlan{}, mikrotikNas(), replyNow)
	assert.Equal(t, "300", attrs[AttrInterimInterval])
}

func TestReplyCustomAttributesSubscriberWins(t *testing.T) {
	sub := replySubscriber()
	sub.Attributes = []models.SubscriberAttribute{
		{Name: "Mikrotik-Address-List", Value: "vip"},
	}
	plan := &models.ServicePlan{
		Attributes: []models.PlanAttribute{
			{Name: "Mikrotik-Address-List", Value: "default"},
			{Name: "Framed-MTU", Value: "1480"},
		},
	}

	attrs := BuildReply(sub, plan, mikrotikNas(), replyNow)
	assert.Equal(t, "vip", attrs["Mikrotik-Address-List"])
	assert.Equal(t, "1480", attrs["Framed-MTU"])
}
