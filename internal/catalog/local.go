package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/pkg/storage"
)

// LocalCatalog lists recordings in a flat directory on local disk.
type LocalCatalog struct {
	store       *storage.LocalStorage
	extension   string
	contentType string
}

func NewLocalCatalog(store *storage.LocalStorage, extension, contentType string) *LocalCatalog {
	return &LocalCatalog{
		store:       store,
		extension:   strings.TrimPrefix(extension, "."),
		contentType: contentType,
	}
}

// List returns every recording in the directory. The timestamp comes from
// the file name and falls back to the modification time.
func (c *LocalCatalog) List(ctx context.Context) ([]Recording, error) {
	files, err := c.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}

	recs := make([]Recording, 0, len(files))
	for _, f := range files {
		if !validName(f.Key, c.extension) {
			continue
		}
		ts, ok := domain.ParseRecordingTimestamp(f.Key)
		if !ok {
			ts = f.LastModified.UnixMilli()
		}
		recs = append(recs, Recording{
			Filename:  f.Key,
			Size:      f.Size,
			Timestamp: ts,
			URL:       "/recordings/" + f.Key,
		})
	}

	sortNewestFirst(recs)
	return recs, nil
}

// Serve streams the file, honouring range requests.
func (c *LocalCatalog) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, name string) error {
	if !validName(name, c.extension) {
		return ErrNotFound
	}

	f, err := c.store.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		return ErrNotFound
	}

	w.Header().Set("Content-Type", c.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
	return nil
}
