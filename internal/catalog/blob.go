package catalog

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/pkg/storage"
)

// BlobCatalog lists recordings stored under a folder of an object store.
type BlobCatalog struct {
	store     storage.Storage
	folder    string
	extension string
	limit     int
	urlExpiry time.Duration
	sf        singleflight.Group
}

func NewBlobCatalog(store storage.Storage, folder, extension string, limit int, urlExpiry time.Duration) *BlobCatalog {
	if limit <= 0 {
		limit = 50
	}
	return &BlobCatalog{
		store:     store,
		folder:    strings.Trim(folder, "/"),
		extension: strings.TrimPrefix(extension, "."),
		limit:     limit,
		urlExpiry: urlExpiry,
	}
}

func (c *BlobCatalog) key(name string) string {
	return path.Join(c.folder, name)
}

// List returns the newest recordings in the folder, at most limit of them.
// Concurrent calls share one listing.
func (c *BlobCatalog) List(ctx context.Context) ([]Recording, error) {
	v, err, _ := c.sf.Do("list", func() (interface{}, error) {
		return c.list(ctx)
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]Recording)
	out := make([]Recording, len(shared))
	copy(out, shared)
	return out, nil
}

func (c *BlobCatalog) list(ctx context.Context) ([]Recording, error) {
	prefix := ""
	if c.folder != "" {
		prefix = c.folder + "/"
	}

	files, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}

	recs := make([]Recording, 0, len(files))
	for _, f := range files {
		name := strings.TrimPrefix(f.Key, prefix)
		if !validName(name, c.extension) {
			continue
		}
		ts, ok := domain.ParseRecordingTimestamp(name)
		if !ok {
			ts = f.LastModified.UnixMilli()
		}
		recs = append(recs, Recording{Filename: name, Size: f.Size, Timestamp: ts})
	}

	sortNewestFirst(recs)
	if len(recs) > c.limit {
		recs = recs[:c.limit]
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range recs {
		i := i
		g.Go(func() error {
			url, err := c.store.GetURL(gCtx, c.key(recs[i].Filename), c.urlExpiry)
			if err != nil {
				return fmt.Errorf("failed to resolve url for %s: %w", recs[i].Filename, err)
			}
			recs[i].URL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Serve redirects to the hosted URL of the recording.
func (c *BlobCatalog) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, name string) error {
	if !validName(name, c.extension) {
		return ErrNotFound
	}

	key := c.key(name)
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check recording: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	url, err := c.store.GetURL(ctx, key, c.urlExpiry)
	if err != nil {
		return fmt.Errorf("failed to get recording url: %w", err)
	}

	http.Redirect(w, r, url, http.StatusFound)
	return nil
}
