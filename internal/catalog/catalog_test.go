package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-relay/pkg/storage"
)

func TestLocalCatalogList(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte{1}, size), 0644))
	}
	write("recording_a_1000.webm", 3)
	write("recording_b_3000.webm", 5)
	write("custom.webm", 1)
	write("recording_c_2000.webm.part", 7)
	write("notes.txt", 2)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	write("nested/recording_d_4000.webm", 1)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir})
	require.NoError(t, err)
	mtime := time.UnixMilli(2500)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "custom.webm"), mtime, mtime))

	recs, err := NewLocalCatalog(store, "webm", "video/webm").List(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 3)
	assert.Equal(t, Recording{Filename: "recording_b_3000.webm", Size: 5, Timestamp: 3000, URL: "/recordings/recording_b_3000.webm"}, recs[0])
	assert.Equal(t, "custom.webm", recs[1].Filename)
	assert.Equal(t, int64(2500), recs[1].Timestamp)
	assert.Equal(t, "recording_a_1000.webm", recs[2].Filename)
}

func TestLocalCatalogServe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recording_a_1000.webm"), []byte("0123456789"), 0644))
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir})
	require.NoError(t, err)
	c := NewLocalCatalog(store, "webm", "video/webm")

	t.Run("full", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/recordings/recording_a_1000.webm", nil)
		require.NoError(t, c.Serve(r.Context(), w, r, "recording_a_1000.webm"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="recording_a_1000.webm"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "0123456789", w.Body.String())
	})

	t.Run("range", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/recordings/recording_a_1000.webm", nil)
		r.Header.Set("Range", "bytes=2-4")
		require.NoError(t, c.Serve(r.Context(), w, r, "recording_a_1000.webm"))

		assert.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "234", w.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		for _, name := range []string{"does-not-exist.webm", "../secret.webm", "recording_a_1000.mp4", ""} {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/recordings/x", nil)
			assert.True(t, errors.Is(c.Serve(r.Context(), w, r, name), ErrNotFound), name)
		}
	})
}

// listStore is a storage.Storage over a fixed object list.
type listStore struct {
	files   []storage.FileInfo
	listErr error
}

func (s *listStore) Write(context.Context, string, io.Reader, int64, string) error { return nil }

func (s *listStore) Read(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func (s *listStore) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []storage.FileInfo
	for _, f := range s.files {
		if strings.HasPrefix(f.Key, prefix) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *listStore) Exists(ctx context.Context, key string) (bool, error) {
	for _, f := range s.files {
		if f.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *listStore) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://cdn.example/" + key, nil
}

func TestBlobCatalogList(t *testing.T) {
	store := &listStore{}
	for i := 1; i <= 5; i++ {
		store.files = append(store.files, storage.FileInfo{
			Key:  fmt.Sprintf("live_recordings/recording_c_%d.webm", i*1000),
			Size: int64(i),
		})
	}
	store.files = append(store.files,
		storage.FileInfo{Key: "other/recording_x_9000.webm"},
		storage.FileInfo{Key: "live_recordings/thumb.jpg"},
	)

	recs, err := NewBlobCatalog(store, "live_recordings", "webm", 3, time.Hour).List(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 3)
	assert.Equal(t, "recording_c_5000.webm", recs[0].Filename)
	assert.Equal(t, "https://cdn.example/live_recordings/recording_c_5000.webm", recs[0].URL)
	assert.Equal(t, int64(5), recs[0].Size)
	assert.Equal(t, "recording_c_3000.webm", recs[2].Filename)
}

func TestBlobCatalogListError(t *testing.T) {
	store := &listStore{listErr: errors.New("unreachable")}
	_, err := NewBlobCatalog(store, "live_recordings", "webm", 0, time.Hour).List(context.Background())
	assert.Error(t, err)
}

func TestBlobCatalogServe(t *testing.T) {
	store := &listStore{files: []storage.FileInfo{{Key: "live_recordings/recording_c_1.webm"}}}
	c := NewBlobCatalog(store, "live_recordings", "webm", 0, time.Hour)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/recordings/recording_c_1.webm", nil)
	require.NoError(t, c.Serve(r.Context(), w, r, "recording_c_1.webm"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://cdn.example/live_recordings/recording_c_1.webm", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	assert.True(t, errors.Is(c.Serve(r.Context(), w, r, "does-not-exist.webm"), ErrNotFound))
}
