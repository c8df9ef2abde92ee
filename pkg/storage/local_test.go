package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestLocalWriteReadList(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, s.Write(ctx, "a.webm", strings.NewReader("hello"), 5, "video/webm"))

	rc, err := s.Read(ctx, "a.webm")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	files, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.webm", files[0].Key)
	assert.Equal(t, int64(5), files[0].Size)

	url, err := s.GetURL(ctx, "a.webm", 0)
	require.NoError(t, err)
	assert.Equal(t, "/a.webm", url)
}

func TestLocalMissingKey(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Read(ctx, "nope.webm")
	assert.True(t, errors.Is(err, ErrNotFound))

	ok, err := s.Exists(ctx, "nope.webm")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetURL(ctx, "nope.webm", 0)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalCreateRename(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	f, err := s.Create("x.part")
	require.NoError(t, err)
	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.Rename("x.part", "x.webm"))

	ok, err := s.Exists(ctx, "x.part")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Exists(ctx, "x.webm")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "x.webm"))
	require.NoError(t, s.Delete(ctx, "x.webm"))
}

func TestLocalRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, key := range []string{"../../etc/passwd", "..", "/etc/passwd"} {
		_, err := s.Read(ctx, key)
		assert.True(t, errors.Is(err, ErrInvalidKey), key)

		err = s.Write(ctx, key, strings.NewReader("x"), 1, "")
		assert.True(t, errors.Is(err, ErrInvalidKey), key)
	}
}

func TestLocalListMissingPrefix(t *testing.T) {
	files, err := newLocal(t).List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalBasePathIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := NewLocalStorage(LocalConfig{BasePath: file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create base directory")
}
