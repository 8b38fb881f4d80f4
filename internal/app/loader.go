package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ratings_dashboard/internal/adapters/observability"
	"ratings_dashboard/internal/domain"
)

// Loader reads review files and folds them into one Dataset.
type Loader struct {
	reader  domain.TableReader
	workers int
}

func NewLoader(r domain.TableReader, workers int) *Loader {
	if workers <= 0 {
		workers = 1
	}
	return &Loader{reader: r, workers: workers}
}

// Load normalizes every path and concatenates the surviving rows in path order.
// Files that are unreadable or lack a mandatory column are skipped, never fatal;
// only context cancellation aborts the load.
func (l *Loader) Load(ctx context.Context, paths []string) (domain.Dataset, error) {
	start := time.Now()

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := l.loadFile(gctx, p)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Dataset{}, err
	}

	ds := domain.Dataset{
		Reviews: []domain.Review{},
		Columns: []string{},
		Files:   []domain.FileOutcome{},
	}
	for _, r := range results {
		ds = merge(ds, r)
	}
	ds.ID = uuid.NewString()
	ds.LoadedAt = time.Now().UTC()

	observability.ObserveLoad(time.Since(start))
	log.Info().
		Str("dataset", ds.ID).
		Int("files", len(paths)).
		Int("rows", len(ds.Reviews)).
		Dur("took", time.Since(start)).
		Msg("review files loaded")
	return ds, nil
}

// loadFile fails only when ctx is done; any other read error skips the file.
func (l *Loader) loadFile(ctx context.Context, path string) (fileResult, error) {
	t, err := l.reader.ReadTable(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return fileResult{}, ctx.Err()
		}
		log.Warn().Err(err).Str("file", path).Msg("review file unreadable; skipped")
		observability.ObserveFile(string(domain.FileSkipped))
		return fileResult{outcome: domain.FileOutcome{
			Path:   path,
			Status: domain.FileSkipped,
			Reason: err.Error(),
		}}, nil
	}

	r := normalizeTable(t)
	observability.ObserveFile(string(r.outcome.Status))
	observability.ObserveRows(r.outcome.Kept, r.outcome.Dropped)
	if r.outcome.Status == domain.FileSkipped {
		log.Warn().Str("file", path).Str("reason", r.outcome.Reason).Msg("review file skipped")
	} else {
		log.Debug().Str("file", path).Int("kept", r.outcome.Kept).Int("dropped", r.outcome.Dropped).Msg("review file normalized")
	}
	return r, nil
}

// merge returns acc with r appended. Neither argument is modified.
func merge(acc domain.Dataset, r fileResult) domain.Dataset {
	reviews := make([]domain.Review, 0, len(acc.Reviews)+len(r.reviews))
	reviews = append(reviews, acc.Reviews...)
	reviews = append(reviews, r.reviews...)

	files := make([]domain.FileOutcome, 0, len(acc.Files)+1)
	files = append(files, acc.Files...)
	files = append(files, r.outcome)

	return domain.Dataset{
		Reviews: reviews,
		Columns: unionColumns(acc.Columns, r.columns),
		Files:   files,
	}
}

func unionColumns(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, cols := range [][]string{a, b} {
		for _, c := range cols {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
