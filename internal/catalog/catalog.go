package catalog

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
)

// ErrNotFound is returned when a name does not resolve to a recording.
var ErrNotFound = errors.New("recording not found")

// Recording describes one finalized recording.
type Recording struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Timestamp int64  `json:"timestamp"` // unix millis
	URL       string `json:"url"`
}

// Catalog lists finalized recordings and serves their content.
type Catalog interface {
	List(ctx context.Context) ([]Recording, error)
	// Serve writes the recording called name to w, either as content or
	// as a redirect. It returns ErrNotFound for unknown names.
	Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, name string) error
}

// validName accepts plain file names carrying the recording extension.
func validName(name, ext string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, "."+ext)
}

func sortNewestFirst(recs []Recording) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp > recs[j].Timestamp
	})
}
