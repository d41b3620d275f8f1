package tier

import (
	"context"
	"errors"
	"fmt"
	"github.com/zeebo/xxh3"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileExt = ".rec"

// File stores one file per key under a root directory.
// File names are the 128-bit xxh3 of the key, so any key is a safe name.
// Writes go through a temp file and a rename, a reader never sees a torn payload.
type File struct {
	mu    sync.Mutex
	name  string
	root  string
	quota quota
}

// OpenFile creates root if needed and accounts the bytes already stored there.
func OpenFile(name, root string, quotaBytes int64) (*File, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%s: file tier root is required", name)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%s: create tier dir: %w", name, err)
	}

	used, err := dirSize(root)
	if err != nil {
		return nil, fmt.Errorf("%s: scan tier dir: %w", name, err)
	}

	return &File{
		name:  name,
		root:  root,
		quota: quota{limit: quotaBytes, used: used},
	}, nil
}

func (f *File) Name() string { return f.name }
func (f *File) Root() string { return f.root }

func (f *File) Read(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: read %q: %w", f.name, key, err)
	}
	return data, true, nil
}

func (f *File) Write(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	oldSize := fileSize(path)
	newSize := int64(len(data))
	if !f.quota.admit(oldSize, newSize) {
		return fmt.Errorf("%s: write %q (%d bytes): %w", f.name, key, newSize, ErrQuotaExceeded)
	}

	tmp, err := os.CreateTemp(f.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%s: write %q: %w", f.name, key, err)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: write %q: %w", f.name, key, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: write %q: %w", f.name, key, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: write %q: %w", f.name, key, err)
	}

	f.quota.apply(oldSize, newSize)
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	oldSize := fileSize(path)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: delete %q: %w", f.name, key, err)
	}
	f.quota.apply(oldSize, 0)
	return nil
}

// Destroy removes the whole directory.
func (f *File) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.RemoveAll(f.root); err != nil {
		return fmt.Errorf("%s: remove tier dir: %w", f.name, err)
	}
	f.quota.used = 0
	return nil
}

func (f *File) Close() error { return nil }

func (f *File) path(key string) string {
	h := xxh3.HashString128(key)
	return filepath.Join(f.root, fmt.Sprintf("%016x%016x%s", h.Hi, h.Lo, fileExt))
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func dirSize(root string) (int64, error) {
	var total int64
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

var (
	_ Store     = (*File)(nil)
	_ Destroyer = (*File)(nil)
)
