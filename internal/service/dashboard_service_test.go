package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/models"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

type fakeActivity struct {
	entries []models.ActivityLogEntry
	err     error
}

func (f *fakeActivity) ListActivity(context.Context, apiclient.Credentials) ([]models.ActivityLogEntry, error) {
	return f.entries, f.err
}

func fixedCount(n int, calls *int32) CountFunc {
	return func(context.Context, apiclient.Credentials) (int, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return n, nil
	}
}

func failingCount(err error) CountFunc {
	return func(context.Context, apiclient.Credentials) (int, error) { return 0, err }
}

func TestDashboardSortsActivityNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	activity := &fakeActivity{entries: []models.ActivityLogEntry{
		{ID: "a", Action: models.ActionCreate, Timestamp: base},
		{ID: "b", Action: models.ActionLogin, Timestamp: base.Add(2 * time.Hour)},
		{ID: "c", Action: models.ActionDelete, Timestamp: base.Add(time.Hour)},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Users: fixedCount(3, nil), Categories: fixedCount(4, nil), Subcategories: fixedCount(5, nil), Items: fixedCount(6, nil),
		Activity: activity,
		Logger:   zap.NewNop(),
	})

	dashboard, err := svc.Load(context.Background(), nil, "u1")
	require.NoError(t, err)
	assert.Empty(t, dashboard.Errors)
	assert.Equal(t, 3, *dashboard.Stats.Users)
	assert.Equal(t, 6, *dashboard.Stats.Items)
	require.Len(t, dashboard.Activity, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{dashboard.Activity[0].ID, dashboard.Activity[1].ID, dashboard.Activity[2].ID})
}

func TestDashboardCardsFailIndependently(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Users: fixedCount(3, nil), Categories: failingCount(errors.New("boom")), Subcategories: fixedCount(5, nil), Items: fixedCount(6, nil),
		Activity: &fakeActivity{err: appErrors.Clone(appErrors.ErrUpstream, "")},
	})

	dashboard, err := svc.Load(context.Background(), nil, "u1")
	require.NoError(t, err)
	assert.Nil(t, dashboard.Stats.Categories)
	assert.Equal(t, 5, *dashboard.Stats.Subcategories)
	assert.Equal(t, []string{MsgStatsFailed, MsgActivityFailed}, dashboard.Errors)
}

func TestDashboardAbortsOnExpiredSession(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Users:    failingCount(appErrors.Clone(appErrors.ErrSessionExpired, "")),
		Activity: &fakeActivity{},
	})

	_, err := svc.Load(context.Background(), nil, "u1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSessionExpired.Code))
}

func TestDashboardCachesCompleteCountsUntilInvalidated(t *testing.T) {
	var calls int32
	cache := NewCacheService(newMemoryCacheRepo(), NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(DashboardServiceParams{
		Users: fixedCount(1, &calls), Categories: fixedCount(2, &calls), Subcategories: fixedCount(3, &calls), Items: fixedCount(4, &calls),
		Activity: &fakeActivity{},
		Cache:    cache,
	})
	ctx := context.Background()

	_, err := svc.Load(ctx, nil, "u1")
	require.NoError(t, err)
	cached, err := svc.Load(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, 4, *cached.Stats.Items)

	svc.InvalidateCounts(ctx)
	_, err = svc.Load(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(8), atomic.LoadInt32(&calls))
}

func TestCountOfCountsListedRecords(t *testing.T) {
	count := CountOf[models.Category](fakeLister[models.Category]{records: make([]models.Category, 7)})
	n, err := count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

type fakeLister[T any] struct {
	records []T
	err     error
}

func (f fakeLister[T]) List(context.Context, apiclient.Credentials) ([]T, error) {
	return f.records, f.err
}
