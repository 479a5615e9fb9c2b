package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/apperr"
)

func newLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestLocalStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t)
	key := NewKey(uuid.New(), "evidence.png")
	payload := "fake png bytes"

	require.NoError(t, store.Put(ctx, key, strings.NewReader(payload), int64(len(payload)), "image/png"))

	r, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, payload, string(got))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLocalStore_GetMissing(t *testing.T) {
	store := newLocalStore(t)
	_, err := store.Get(context.Background(), NewKey(uuid.New(), "missing.pdf"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLocalStore_DeleteMissing(t *testing.T) {
	store := newLocalStore(t)
	err := store.Delete(context.Background(), NewKey(uuid.New(), "missing.pdf"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLocalStore_RejectsEscapingKey(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t)

	err := store.Put(ctx, "../outside.txt", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err)

	_, err = store.Get(ctx, "../outside.txt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t)
	key := NewKey(uuid.New(), "doc.pdf")

	require.NoError(t, store.Put(ctx, key, strings.NewReader("first"), 5, "application/pdf"))
	require.NoError(t, store.Put(ctx, key, strings.NewReader("second"), 6, "application/pdf"))

	r, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "second", string(got))
}
