package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStore stores blobs on the local filesystem under a root directory.
// Intended for development and single-node deployments; production uses
// the S3 store.
type LocalStore struct {
	root   string
	logger zerolog.Logger
}

// NewLocalStore creates a LocalStore rooted at dir, creating it if needed.
func NewLocalStore(dir string, logger zerolog.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &LocalStore{
		root:   abs,
		logger: logger.With().Str("component", "blob_local").Logger(),
	}, nil
}

// resolve maps a key to an absolute path and rejects anything that would
// escape the root.
func (s *LocalStore) resolve(key string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key escapes blob root: %q", key)
	}
	return full, nil
}

// Put stores the bytes under key, creating the namespace directory.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	full, err := s.resolve(key)
	if err != nil {
		return wrapErr(ctx, "put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return wrapErr(ctx, "put", key, err)
	}

	tmp := full + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return wrapErr(ctx, "put", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapErr(ctx, "put", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return wrapErr(ctx, "put", key, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return wrapErr(ctx, "put", key, err)
	}

	s.logger.Debug().Str("key", key).Int64("size", size).Msg("blob stored")
	return nil
}

// Get returns a reader over the bytes at key.
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, wrapErr(ctx, "get", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFoundErr(key)
		}
		return nil, wrapErr(ctx, "get", key, err)
	}
	return f, nil
}

// Delete removes the bytes at key.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return wrapErr(ctx, "delete", key, err)
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFoundErr(key)
		}
		return wrapErr(ctx, "delete", key, err)
	}
	s.logger.Debug().Str("key", key).Msg("blob deleted")
	return nil
}
