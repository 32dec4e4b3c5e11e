package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore keeps every key in its own file under a directory. Values are
// written to a temp file and renamed into place so readers never observe a
// partial write.
type FSStore struct {
	Dir string
}

// NewFSStore creates the directory if needed and returns a filesystem store.
func NewFSStore(dir string) (*FSStore, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	return &FSStore{Dir: dir}, nil
}

func (f *FSStore) Get(ctx context.Context, key string) (string, error) {
	b, err := os.ReadFile(f.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	return string(b), nil
}

func (f *FSStore) Set(ctx context.Context, key, value string) error {
	path := f.pathFor(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (f *FSStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// pathFor maps a key to a file name. Escaping keeps path separators out of
// file names while leaving the usual key characters readable.
func (f *FSStore) pathFor(key string) string {
	return filepath.Join(f.Dir, url.PathEscape(key))
}
