package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ratings_dashboard/internal/app"
	"ratings_dashboard/internal/domain"
)

func newService(fp string, rescan time.Duration) (*app.QueryService, *fakeReader, *fakeFinder, *fakeCache) {
	r := &fakeReader{tables: map[string]domain.Table{
		"ember_deduped.csv": table([]string{"Brand", "Date", "Rating", "MgmtFlag"},
			[]string{"Ember", "2024-01-03", "4", "Yes"},
			[]string{"Ember", "2024-03-09", "5", ""},
		),
	}}
	f := &fakeFinder{paths: []string{"ember_deduped.csv"}, fp: fp}
	c := &fakeCache{}
	return app.NewQueryService(f, app.NewLoader(r, 2), c, 10*time.Minute, rescan), r, f, c
}

func TestDataset_CacheMissThenHit(t *testing.T) {
	q, r, _, c := newService("abc", 0)
	ctx := context.Background()

	ds, err := q.Dataset(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ds.Key != "dataset:abc" || len(ds.Reviews) != 2 {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	if _, ok := c.store["dataset:abc"]; !ok {
		t.Fatalf("dataset not cached")
	}

	again, err := q.Dataset(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.reads != 1 {
		t.Fatalf("second call must be served from cache, reads=%d", r.reads)
	}
	if again.ID != ds.ID || len(again.Reviews) != 2 || !again.Reviews[0].Date.Equal(ds.Reviews[0].Date) {
		t.Fatalf("cached dataset differs: %+v", again)
	}
}

func TestDataset_FileChangeEvictsOldKey(t *testing.T) {
	q, r, f, c := newService("v1", 0)
	ctx := context.Background()

	if _, err := q.Dataset(ctx); err != nil {
		t.Fatalf("err: %v", err)
	}
	f.fp = "v2"
	ds, err := q.Dataset(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ds.Key != "dataset:v2" || r.reads != 2 {
		t.Fatalf("want reload under new key, key=%s reads=%d", ds.Key, r.reads)
	}
	if len(c.deleted) != 1 || c.deleted[0] != "dataset:v1" {
		t.Fatalf("old key not evicted: %v", c.deleted)
	}
	if _, ok := c.store["dataset:v1"]; ok {
		t.Fatalf("old entry still cached")
	}
}

func TestDataset_RescanIsRateLimited(t *testing.T) {
	q, _, f, _ := newService("abc", time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Dataset(ctx); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
	if f.finds != 1 {
		t.Fatalf("want a single scan within the interval, got %d", f.finds)
	}

	if _, err := q.Reload(ctx); err != nil {
		t.Fatalf("err: %v", err)
	}
	if f.finds != 2 {
		t.Fatalf("reload must rescan, finds=%d", f.finds)
	}
}

func TestDataset_CallerCancelDoesNotFailSharedLoad(t *testing.T) {
	r := &gatedReader{
		fakeReader: fakeReader{tables: map[string]domain.Table{
			"ember_deduped.csv": table([]string{"Brand", "Date", "Rating"}, []string{"Ember", "2024-01-03", "4"}),
		}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := &fakeFinder{paths: []string{"ember_deduped.csv"}, fp: "abc"}
	q := app.NewQueryService(f, app.NewLoader(r, 1), &fakeCache{}, time.Minute, time.Hour)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := q.Dataset(ctxA)
		errA <- err
	}()
	<-r.started

	type result struct {
		ds  domain.Dataset
		err error
	}
	resB := make(chan result, 1)
	go func() {
		ds, err := q.Dataset(context.Background())
		resB <- result{ds, err}
	}()
	// let B join the in-flight load before A goes away
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("caller A: want context.Canceled, got %v", err)
	}

	close(r.release)
	select {
	case res := <-resB:
		if res.err != nil {
			t.Fatalf("caller B must not inherit A's cancellation: %v", res.err)
		}
		if len(res.ds.Reviews) != 1 || res.ds.Key != "dataset:abc" {
			t.Fatalf("unexpected dataset %+v", res.ds)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("caller B never returned")
	}
}

func TestReload_RebuildsDataset(t *testing.T) {
	q, r, _, _ := newService("abc", 0)
	ctx := context.Background()

	first, err := q.Dataset(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	second, err := q.Reload(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.reads != 2 || second.ID == first.ID {
		t.Fatalf("reload must rebuild, reads=%d", r.reads)
	}
}

func TestMonthlyRatings(t *testing.T) {
	q, _, _, _ := newService("abc", 0)

	s, err := q.MonthlyRatings(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(s.Months) != 3 || len(s.Brands) != 1 || len(s.Points) != 3 {
		t.Fatalf("unexpected series %+v", s)
	}
	if feb := s.Points[1]; feb.AverageRating == nil || *feb.AverageRating != 4 {
		t.Fatalf("February must carry January forward: %+v", feb)
	}
}

func TestMonthlyRatings_NoData(t *testing.T) {
	q, _, f, _ := newService("abc", 0)
	f.paths = nil

	if _, err := q.MonthlyRatings(context.Background()); !errors.Is(err, domain.ErrEmptyDataset) {
		t.Fatalf("want ErrEmptyDataset, got %v", err)
	}
}

func TestFlagged(t *testing.T) {
	q, _, _, _ := newService("abc", 0)

	page, err := q.Flagged(context.Background(), nil, ptr(day(2024, 2, 1)))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Rating != 4 {
		t.Fatalf("unexpected page %+v", page)
	}
}
