package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"online-admission/config"
	apperrors "online-admission/errors"
)

func TestLocalPutGetDelete(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	key := DocumentKey("school-1", "prospectus")

	require.NoError(t, s.Put(ctx, key, strings.NewReader("%PDF-1.4 prospectus"), "application/pdf"))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 prospectus", string(body))

	require.NoError(t, s.Put(ctx, key, strings.NewReader("v2"), "application/pdf"))
	rc, err = s.Get(ctx, key)
	require.NoError(t, err)
	body, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "v2", string(body))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Get(ctx, key)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	err = s.Put(context.Background(), "../outside.pdf", strings.NewReader("x"), "")
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))
}

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "schools/s1/documents/undertaking.pdf", DocumentKey("s1", "undertaking"))
	assert.Equal(t, "schools/a_b/documents/_.pdf", DocumentKey("a/b", ".."))
}

func TestNewSelectsDriver(t *testing.T) {
	s, err := New(config.Config{StorageDriver: "local", StorageDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)

	_, err = New(config.Config{StorageDriver: "oss"})
	assert.Error(t, err)

	_, err = New(config.Config{StorageDriver: "s3"})
	assert.Error(t, err)
}
