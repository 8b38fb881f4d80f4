package domain

import "context"

// Finder resolves which files make up the dataset and identifies the file set.
type Finder interface {
	Find(ctx context.Context) ([]string, error)
	// Fingerprint changes whenever a path is added, removed or modified.
	Fingerprint(ctx context.Context, paths []string) (string, error)
}

type TableReader interface {
	ReadTable(ctx context.Context, path string) (Table, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
