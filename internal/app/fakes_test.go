package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ratings_dashboard/internal/domain"
)

// ---- fakes ----

type fakeReader struct {
	mu     sync.Mutex
	tables map[string]domain.Table
	errs   map[string]error
	reads  int
}

func (f *fakeReader) ReadTable(ctx context.Context, path string) (domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := f.errs[path]; err != nil {
		return domain.Table{}, err
	}
	t, ok := f.tables[path]
	if !ok {
		return domain.Table{}, errors.New("no such file")
	}
	t.Path = path
	return t, nil
}

type fakeFinder struct {
	paths []string
	fp    string
	finds int
}

func (f *fakeFinder) Find(ctx context.Context) ([]string, error) {
	f.finds++
	return f.paths, nil
}

func (f *fakeFinder) Fingerprint(ctx context.Context, paths []string) (string, error) {
	return f.fp, nil
}

// fakeCache stores JSON like the real adapters so round-trips are honest.
type fakeCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// gatedReader blocks every read until release is closed or the read's ctx is done.
type gatedReader struct {
	fakeReader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) ReadTable(ctx context.Context, path string) (domain.Table, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return domain.Table{}, ctx.Err()
	}
	return g.fakeReader.ReadTable(ctx, path)
}

func table(header []string, rows ...[]string) domain.Table {
	return domain.Table{Header: header, Rows: rows}
}

func ptr[T any](v T) *T { return &v }
