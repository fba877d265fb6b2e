package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/models"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

// Dashboard notification texts.
const (
	MsgStatsFailed    = "Failed to load dashboard statistics"
	MsgActivityFailed = "Failed to load activity logs"
)

const dashboardCachePrefix = "dash:counts:"

// CountFunc counts one entity collection.
type CountFunc func(ctx context.Context, creds apiclient.Credentials) (int, error)

type collectionLister[T any] interface {
	List(ctx context.Context, creds apiclient.Credentials) ([]T, error)
}

// CountOf adapts a collection resource to a CountFunc.
func CountOf[T any](res collectionLister[T]) CountFunc {
	return func(ctx context.Context, creds apiclient.Credentials) (int, error) {
		records, err := res.List(ctx, creds)
		if err != nil {
			return 0, err
		}
		return len(records), nil
	}
}

type activityLister interface {
	ListActivity(ctx context.Context, creds apiclient.Credentials) ([]models.ActivityLogEntry, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Users         CountFunc
	Categories    CountFunc
	Subcategories CountFunc
	Items         CountFunc
	Activity      activityLister
	Cache         *CacheService
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// DashboardService composes entity counts and the activity feed.
type DashboardService struct {
	counts   [4]CountFunc
	activity activityLister
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		counts:   [4]CountFunc{params.Users, params.Categories, params.Subcategories, params.Items},
		activity: params.Activity,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Load fetches the four counts and the activity feed concurrently. A failed
// card or feed is reported in Errors and leaves the rest intact. An expired
// session aborts the whole load.
func (s *DashboardService) Load(ctx context.Context, creds apiclient.Credentials, userID string) (*models.Dashboard, error) {
	dashboard := &models.Dashboard{GeneratedAt: s.now().UTC()}
	cacheKey := dashboardCachePrefix + userID

	var (
		wg          sync.WaitGroup
		values      [4]*int
		countErrs   [4]error
		activity    []models.ActivityLogEntry
		activityErr error
	)

	cached, hit := s.tryCache(ctx, cacheKey)
	if hit {
		values = [4]*int{cached.Users, cached.Categories, cached.Subcategories, cached.Items}
	} else {
		for i, count := range s.counts {
			if count == nil {
				continue
			}
			wg.Add(1)
			go func(i int, count CountFunc) {
				defer wg.Done()
				n, err := count(ctx, creds)
				if err != nil {
					countErrs[i] = err
					return
				}
				values[i] = &n
			}(i, count)
		}
	}

	if s.activity != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			activity, activityErr = s.activity.ListActivity(ctx, creds)
		}()
	}
	wg.Wait()

	for _, err := range append(countErrs[:], activityErr) {
		if appErrors.HasCode(err, appErrors.ErrSessionExpired.Code) {
			return nil, err
		}
	}

	dashboard.Stats = models.DashboardStats{Users: values[0], Categories: values[1], Subcategories: values[2], Items: values[3]}
	complete := true
	for i, err := range countErrs {
		if err != nil {
			complete = false
			s.logger.Warn("dashboard count failed", zap.Int("card", i), zap.Error(err))
		}
	}
	if !complete {
		dashboard.Errors = append(dashboard.Errors, MsgStatsFailed)
	} else if !hit {
		s.persistCache(ctx, cacheKey, dashboard.Stats)
	}

	if activityErr != nil {
		s.logger.Warn("activity feed failed", zap.Error(activityErr))
		dashboard.Errors = append(dashboard.Errors, MsgActivityFailed)
	} else {
		SortActivity(activity)
		dashboard.Activity = activity
	}
	return dashboard, nil
}

// InvalidateCounts drops every cached count after a create or delete.
func (s *DashboardService) InvalidateCounts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePrefix+"*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// SortActivity orders entries newest first regardless of server order.
func SortActivity(entries []models.ActivityLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

func (s *DashboardService) tryCache(ctx context.Context, key string) (models.DashboardStats, bool) {
	var cached models.DashboardStats
	if s.cache == nil {
		return cached, false
	}
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil || !hit {
		return cached, false
	}
	return cached, true
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
