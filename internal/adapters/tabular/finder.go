package tabular

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Finder discovers review exports in a directory by glob pattern,
// e.g. "*_deduped.csv".
type Finder struct {
	dir      string
	patterns []string
}

func NewFinder(dir string, patterns []string) *Finder {
	return &Finder{dir: dir, patterns: patterns}
}

// Find returns the matching regular files, sorted and without duplicates.
func (f *Finder) Find(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range f.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := filepath.Glob(filepath.Join(f.dir, p))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			st, err := os.Stat(m)
			if err != nil || !st.Mode().IsRegular() {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Fingerprint hashes path, size and modification time of every file. A file that
// vanished since Find still contributes a line, so removal changes the result.
func (f *Finder) Fingerprint(ctx context.Context, paths []string) (string, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := sha1.New()
	for _, p := range sorted {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		st, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			fmt.Fprintf(h, "%s|missing\n", p)
		case err != nil:
			return "", fmt.Errorf("stat %s: %w", p, err)
		default:
			fmt.Fprintf(h, "%s|%d|%d\n", p, st.Size(), st.ModTime().UnixNano())
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
