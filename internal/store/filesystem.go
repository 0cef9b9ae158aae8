package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FilesystemStore maps keys onto files under a base directory. It backs the
// single-host deployment topology where workers share a disk with the bridge
// instead of a networked store.
type FilesystemStore struct {
	baseDir string
}

func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

// resolve maps a key to a path, rejecting traversal out of the base dir.
func (fs *FilesystemStore) resolve(key string) (string, error) {
	p := filepath.Join(fs.baseDir, filepath.FromSlash(key))
	base := filepath.Clean(fs.baseDir)
	if p != base && !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q: escapes store root", key)
	}
	return p, nil
}

func (fs *FilesystemStore) Put(ctx context.Context, key string, data []byte) error {
	p, err := fs.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	// Write-then-rename so a concurrent reader never observes a partial
	// object.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (fs *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// GetDelete claims the file by renaming it to a reader-private path before
// reading. Rename is atomic on a single filesystem, so of any number of
// racing readers exactly one wins the claim; the rest see ErrNotFound.
func (fs *FilesystemStore) GetDelete(ctx context.Context, key string) ([]byte, error) {
	p, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}
	claim := fmt.Sprintf("%s.%s.claim", p, uuid.NewString())
	if err := os.Rename(p, claim); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("claim %s: %w", key, err)
	}
	data, err := os.ReadFile(claim)
	if err != nil {
		return nil, fmt.Errorf("read claimed %s: %w", key, err)
	}
	if err := os.Remove(claim); err != nil {
		return nil, fmt.Errorf("remove claimed %s: %w", key, err)
	}
	return data, nil
}

func (fs *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := fs.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func (fs *FilesystemStore) Delete(ctx context.Context, key string) error {
	p, err := fs.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (fs *FilesystemStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(fs.baseDir); err != nil {
		return fmt.Errorf("store root unavailable: %w", err)
	}
	return nil
}
