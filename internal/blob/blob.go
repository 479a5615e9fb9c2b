// Package blob provides the blob collaborator used for evidence bytes.
// The core never constructs a blob key from untrusted client input: keys
// are server-generated, namespaced by organization, and re-validated on
// every read and delete.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/veridianhq/veridian/internal/apperr"
)

// Store is the byte-storage contract required by the evidence subsystem.
type Store interface {
	// Put stores the bytes under the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns a reader over the bytes at key, or apperr.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the bytes at key, or returns apperr.ErrNotFound.
	Delete(ctx context.Context, key string) error
}

// NewKey generates a blob key for an upload: the organization namespace
// followed by a random name. Only the extension of the client filename is
// retained, and only when it is a plain suffix.
func NewKey(orgID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return orgID.String() + "/" + uuid.New().String() + ext
}

// VerifyNamespace checks that a stored key lies inside the organization's
// namespace. It is called on every read and delete, never inferred from
// the client-supplied identifier alone.
func VerifyNamespace(orgID uuid.UUID, key string) error {
	prefix := orgID.String() + "/"
	if !strings.HasPrefix(key, prefix) {
		return fmt.Errorf("%w: key %q not under %q", apperr.ErrPathSecurity, key, prefix)
	}
	rest := strings.TrimPrefix(key, prefix)
	if rest == "" || strings.Contains(rest, "/") || strings.Contains(rest, "\\") || strings.Contains(rest, "..") {
		return fmt.Errorf("%w: malformed key %q", apperr.ErrPathSecurity, key)
	}
	return nil
}

// notFoundErr reports a missing blob.
func notFoundErr(key string) error {
	return fmt.Errorf("%w: blob %s", apperr.ErrNotFound, key)
}

// wrapErr maps a backend failure onto the error taxonomy, preserving
// context cancellation as a timeout.
func wrapErr(ctx context.Context, op, key string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: blob %s %s: %v", apperr.ErrTimeout, op, key, err)
	}
	return fmt.Errorf("%w: blob %s %s: %v", apperr.ErrStorage, op, key, err)
}
