package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"ratings_dashboard/internal/domain"
)

const (
	datasetKeyPrefix = "dataset:"

	// loadTimeout bounds a shared load, which outlives any single caller.
	loadTimeout = 2 * time.Minute
)

// QueryService answers dashboard queries. The loaded Dataset is memoized in the
// cache under a key derived from the identity of the input files; aggregates are
// recomputed from it on every call.
type QueryService struct {
	finder   domain.Finder
	loader   *Loader
	cache    domain.Cache
	cacheTTL time.Duration
	rescan   *rate.Limiter
	group    singleflight.Group

	mu      sync.Mutex
	lastKey string
	paths   []string
}

// NewQueryService wires the query side. rescanEvery bounds how often the data
// directory is globbed and stat'ed; zero rescans on every call.
func NewQueryService(f domain.Finder, l *Loader, c domain.Cache, ttl, rescanEvery time.Duration) *QueryService {
	lim := rate.NewLimiter(rate.Inf, 1)
	if rescanEvery > 0 {
		lim = rate.NewLimiter(rate.Every(rescanEvery), 1)
	}
	return &QueryService{finder: f, loader: l, cache: c, cacheTTL: ttl, rescan: lim}
}

// Dataset returns the unified dataset for the current file set.
func (s *QueryService) Dataset(ctx context.Context) (domain.Dataset, error) {
	key, paths, err := s.resolve(ctx, false)
	if err != nil {
		return domain.Dataset{}, err
	}
	return s.load(ctx, key, paths)
}

// Reload rescans the data directory and rebuilds the dataset regardless of cache state.
func (s *QueryService) Reload(ctx context.Context) (domain.Dataset, error) {
	key, paths, err := s.resolve(ctx, true)
	if err != nil {
		return domain.Dataset{}, err
	}
	_ = s.cache.Del(ctx, key)
	return s.load(ctx, key, paths)
}

// MonthlyRatings returns the dense long-form monthly series for charting.
func (s *QueryService) MonthlyRatings(ctx context.Context) (domain.MonthlySeries, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return domain.MonthlySeries{}, err
	}
	if ds.Empty() {
		return domain.MonthlySeries{}, domain.ErrEmptyDataset
	}
	agg, err := MonthlyAverage(ds)
	if err != nil {
		return domain.MonthlySeries{}, err
	}
	return Densify(agg)
}

// Flagged returns management-flagged reviews within the optional day range.
func (s *QueryService) Flagged(ctx context.Context, from, to *time.Time) (domain.FlaggedPage, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return domain.FlaggedPage{}, err
	}
	return FlaggedReviews(ds, from, to)
}

func (s *QueryService) load(ctx context.Context, key string, paths []string) (domain.Dataset, error) {
	var ds domain.Dataset
	if ok, _ := s.cache.Get(ctx, key, &ds); ok {
		return ds, nil
	}

	// The load is shared by every caller waiting on key, so it runs detached from
	// any one of them; each caller still gives up when its own ctx is done.
	ch := s.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		ds, err := s.loader.Load(lctx, paths)
		if err != nil {
			return nil, fmt.Errorf("load review files: %w", err)
		}
		ds.Key = key
		if err := s.cache.Set(lctx, key, ds, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("dataset cache set failed")
		}
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return domain.Dataset{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Dataset{}, res.Err
		}
		return res.Val.(domain.Dataset), nil
	}
}

// resolve finds the current file set and its cache key. Between rescans allowed by
// the limiter the previous result is reused. A changed key evicts the old entry.
func (s *QueryService) resolve(ctx context.Context, force bool) (string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := s.rescan.Allow()
	if !force && !allowed && s.lastKey != "" {
		return s.lastKey, s.paths, nil
	}

	paths, err := s.finder.Find(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("find review files: %w", err)
	}
	fp, err := s.finder.Fingerprint(ctx, paths)
	if err != nil {
		return "", nil, fmt.Errorf("fingerprint review files: %w", err)
	}
	key := datasetKeyPrefix + fp

	if s.lastKey != "" && s.lastKey != key {
		_ = s.cache.Del(ctx, s.lastKey)
		log.Info().Str("old", s.lastKey).Str("new", key).Int("files", len(paths)).Msg("review files changed")
	}
	s.lastKey, s.paths = key, paths
	return key, paths, nil
}
