package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radgate/backend/internal/aaa"
	"github.com/radgate/backend/internal/models"
)

// fakeSubscriberStore counts backing-store hits so the tests can tell a
// cache hit from a read-through.
type fakeSubscriberStore struct {
	sub     *models.Subscriber
	lookups int
	updates int
}

func (f *fakeSubscriberStore) FindByUsernameAndTenant(username string, tenantID uint) (*models.Subscriber, error) {
	f.lookups++
	if f.sub != nil && f.sub.Username == username && f.sub.TenantID == tenantID {
		dup := *f.sub
		return &dup, nil
	}
	return nil, nil
}

func (f *fakeSubscriberStore) FindByUsername(username string) (*models.Subscriber, error) {
	f.lookups++
	if f.sub != nil && f.sub.Username == username {
		dup := *f.sub
		return &dup, nil
	}
	return nil, nil
}

func (f *fakeSubscriberStore) UpdateQuotas(sub *models.Subscriber) error {
	f.updates++
	return nil
}

func newCacheFixture(t *testing.T) (*CachedSubscribers, *fakeSubscriberStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	planID := uint(1)
	inner := &fakeSubscriberStore{sub: &models.Subscriber{
		ID:            7,
		TenantID:      1,
		Username:      "alice",
		PasswordPlain: "secret",
		PasswordHash:  "$2a$10$abcdefghijklmnopqrstuv",
		Enabled:       true,
		Status:        models.SubscriberStatusActive,
		PlanID:        &planID,
		DlLimitBytes:  models.NewBytes(5_000_000_000),
		ExpiryDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		MacCpe:        "AA:BB:CC:DD:EE:FF",
		SimUse:        2,
	}}
	return NewCachedSubscribers(inner, rdb), inner, mr
}

func TestCacheHitKeepsCredentials(t *testing.T) {
	// The credential fields carry json:"-" on the model; a cache round trip
	// must still hand them back or every warm-cache authenticate fails.
	cache, inner, _ := newCacheFixture(t)

	first, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, 1, inner.lookups)

	second, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 1, inner.lookups, "second lookup must be served from cache")

	assert.Equal(t, "secret", second.PasswordPlain)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", second.PasswordHash)
}

func TestCacheHitPreservesQuotaFields(t *testing.T) {
	cache, inner, _ := newCacheFixture(t)

	_, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)

	sub, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, 1, inner.lookups)

	assert.Equal(t, int64(5_000_000_000), sub.DlLimitBytes.Int64())
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", sub.MacCpe)
	assert.Equal(t, 2, sub.SimUse)
	require.NotNil(t, sub.PlanID)
	assert.Equal(t, uint(1), *sub.PlanID)
	assert.True(t, sub.Enabled)
}

func TestCacheMissReadsThrough(t *testing.T) {
	cache, inner, _ := newCacheFixture(t)

	sub, err := cache.FindByUsernameAndTenant("nobody", 1)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, 1, inner.lookups)

	// Negative results are not cached.
	sub, err = cache.FindByUsernameAndTenant("nobody", 1)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, 2, inner.lookups)
}

func TestCacheKeyIsTenantScoped(t *testing.T) {
	cache, inner, _ := newCacheFixture(t)

	_, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)

	// Same username under another tenant must not see tenant 1's entry.
	sub, err := cache.FindByUsernameAndTenant("alice", 2)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, 2, inner.lookups)
}

func TestUpdateQuotasInvalidatesCache(t *testing.T) {
	cache, inner, mr := newCacheFixture(t)

	_, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)
	require.True(t, mr.Exists("subscriber:1:alice"))

	require.NoError(t, cache.UpdateQuotas(inner.sub))
	assert.Equal(t, 1, inner.updates)
	assert.False(t, mr.Exists("subscriber:1:alice"))

	// Next lookup goes back to the store.
	_, err = cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lookups)
}

type stubPlanStore struct{}

func (stubPlanStore) FindByID(uint) (*models.ServicePlan, error) { return nil, nil }

type stubNasStore struct{ nas *models.NasDevice }

func (s stubNasStore) FindByIP(ip string) (*models.NasDevice, error) {
	if s.nas != nil && s.nas.IPAddress == ip {
		return s.nas, nil
	}
	return nil, nil
}

type stubSpecialStore struct{}

func (stubSpecialStore) FindByPlan(uint) ([]models.SpecialAccountingRule, error) { return nil, nil }

type stubSessionStore struct{}

func (stubSessionStore) Create(*models.RadAcct) error                        { return nil }
func (stubSessionStore) FindOpenBySessionID(string) (*models.RadAcct, error) { return nil, nil }
func (stubSessionStore) Update(*models.RadAcct) error                        { return nil }
func (stubSessionStore) CountOpen(string, uint) (int64, error)               { return 0, nil }
func (stubSessionStore) BulkCloseByNas(string, string) (int64, error)        { return 0, nil }

type stubAuditSink struct{}

func (stubAuditSink) Record(*models.RadPostAuth) error { return nil }

func TestWarmCacheStillAuthenticates(t *testing.T) {
	// End to end through the engine: warm the cache, then authenticate with
	// the correct password against the cached copy.
	cache, inner, _ := newCacheFixture(t)
	nas := &models.NasDevice{ID: 1, TenantID: 1, IPAddress: "10.0.0.1", Type: models.NasTypeMikrotik}
	engine := aaa.NewEngine(cache, stubPlanStore{}, stubNasStore{nas: nas}, stubSpecialStore{}, stubSessionStore{}, stubAuditSink{})

	_, err := cache.FindByUsernameAndTenant("alice", 1)
	require.NoError(t, err)

	ok, err := engine.Authenticate(aaa.AuthRequest{
		Username: "alice",
		Password: "secret",
		NasIP:    "10.0.0.1",
	})
	require.NoError(t, err)
	assert.True(t, ok, "valid password must authenticate from the cached copy")
	assert.Equal(t, 1, inner.lookups, "authenticate must have hit the cache, not the store")

	ok, err = engine.Authenticate(aaa.AuthRequest{
		Username: "alice",
		Password: "wrong",
		NasIP:    "10.0.0.1",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByUsernameBypassesCache(t *testing.T) {
	// The tenant-unscoped lookup is authenticate-only and rare; it always
	// goes to the backing store.
	cache, inner, _ := newCacheFixture(t)

	sub, err := cache.FindByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "secret", sub.PasswordPlain)

	_, err = cache.FindByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lookups)
}
