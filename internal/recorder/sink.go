package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/weiawesome/wes-io-relay/pkg/storage"
)

// ErrUpload marks a failure to hand a finished recording to the blob store.
var ErrUpload = errors.New("upload failed")

// Sink receives the media of one recording.
type Sink interface {
	// Header stores the container header. It is called at most once and
	// may arrive after body chunks.
	Header(data []byte) error
	// Append stores a body chunk.
	Append(data []byte) error
	// Commit writes header + chunks to their final location and returns the
	// stored size and, for hosted content, its URL.
	Commit(ctx context.Context) (size int64, url string, err error)
	// Abort releases the sink without producing a recording.
	Abort()
}

// diskSink marks sinks whose commit only touches local files.
type diskSink interface {
	Sink
	onDisk()
}

// Backend opens sinks for new recordings.
type Backend interface {
	Open(filename string) (Sink, error)
}

// FileBackend writes recordings straight to local disk as chunks arrive.
// In-progress files carry a .part suffix so the catalog never lists them.
type FileBackend struct {
	store       *storage.LocalStorage
	contentType string
}

func NewFileBackend(store *storage.LocalStorage, contentType string) *FileBackend {
	return &FileBackend{store: store, contentType: contentType}
}

const partSuffix = ".part"

func (b *FileBackend) Open(filename string) (Sink, error) {
	f, err := b.store.Create(filename + partSuffix)
	if err != nil {
		return nil, err
	}
	return &fileSink{backend: b, key: filename, file: f}, nil
}

type fileSink struct {
	backend *FileBackend
	key     string
	file    *os.File
	written int64
	// header held back because body bytes were already on disk
	lateHeader []byte
}

func (s *fileSink) Header(data []byte) error {
	if s.written > 0 {
		s.lateHeader = data
		return nil
	}
	return s.Append(data)
}

func (s *fileSink) Append(data []byte) error {
	n, err := s.file.Write(data)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}

func (s *fileSink) Commit(ctx context.Context) (int64, string, error) {
	store := s.backend.store
	part := s.key + partSuffix

	if err := s.file.Close(); err != nil {
		return 0, "", fmt.Errorf("failed to close %s: %w", part, err)
	}

	if s.lateHeader == nil {
		if err := store.Rename(part, s.key); err != nil {
			return 0, "", err
		}
	} else {
		if err := s.prependHeader(ctx, part); err != nil {
			return 0, "", err
		}
	}

	f, err := store.Open(s.key)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, "", fmt.Errorf("failed to stat %s: %w", s.key, err)
	}
	return info.Size(), "", nil
}

// prependHeader rewrites the partial file into its final key with the header first.
func (s *fileSink) prependHeader(ctx context.Context, part string) error {
	store := s.backend.store

	body, err := store.Open(part)
	if err != nil {
		return err
	}
	defer body.Close()

	r := io.MultiReader(bytes.NewReader(s.lateHeader), body)
	if err := store.Write(ctx, s.key, r, int64(len(s.lateHeader))+s.written, s.backend.contentType); err != nil {
		return err
	}
	return store.Delete(ctx, part)
}

func (s *fileSink) onDisk() {}

func (s *fileSink) Abort() {
	s.file.Close()
	s.backend.store.Delete(context.Background(), s.key+partSuffix)
}

// BufferBackend keeps recordings in memory and uploads them on commit.
type BufferBackend struct {
	store       storage.Storage
	folder      string
	contentType string
	urlExpiry   time.Duration
}

func NewBufferBackend(store storage.Storage, folder, contentType string, urlExpiry time.Duration) *BufferBackend {
	return &BufferBackend{
		store:       store,
		folder:      folder,
		contentType: contentType,
		urlExpiry:   urlExpiry,
	}
}

// Key returns the object key a recording is uploaded under.
func (b *BufferBackend) Key(filename string) string {
	return path.Join(b.folder, filename)
}

func (b *BufferBackend) Open(filename string) (Sink, error) {
	return &bufferSink{backend: b, filename: filename}, nil
}

type bufferSink struct {
	backend  *BufferBackend
	filename string
	header   []byte
	chunks   [][]byte
	size     int
}

func (s *bufferSink) Header(data []byte) error {
	s.header = data
	s.size += len(data)
	return nil
}

func (s *bufferSink) Append(data []byte) error {
	s.chunks = append(s.chunks, data)
	s.size += len(data)
	return nil
}

// assemble returns header followed by every chunk in arrival order.
func (s *bufferSink) assemble() []byte {
	buf := make([]byte, 0, s.size)
	buf = append(buf, s.header...)
	for _, c := range s.chunks {
		buf = append(buf, c...)
	}
	return buf
}

func (s *bufferSink) Commit(ctx context.Context) (int64, string, error) {
	b := s.backend
	data := s.assemble()
	s.header, s.chunks = nil, nil

	key := b.Key(s.filename)
	if err := b.store.Write(ctx, key, bytes.NewReader(data), int64(len(data)), b.contentType); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	url, err := b.store.GetURL(ctx, key, b.urlExpiry)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return int64(len(data)), url, nil
}

func (s *bufferSink) Abort() {
	s.header, s.chunks = nil, nil
}
