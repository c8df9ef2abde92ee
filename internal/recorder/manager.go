package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-relay/internal/domain"
	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no active recording")
)

// Result is handed to the completion callback once a recording is finalized.
type Result struct {
	Recording  domain.FinalizedRecording
	ChunkCount int
	Err        error
}

// Recording is the state of one active recording.
type Recording struct {
	ConnectionID string
	Filename     string
	StartedAt    time.Time

	mu         sync.Mutex
	sink       Sink
	chunkCount int
	hasHeader  bool
	closed     bool
	sinkErr    error
}

// ChunkCount returns the number of accepted chunks.
func (r *Recording) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunkCount
}

// Manager owns the recording state of every connection. A connection is
// Idle when it has no entry and Recording while it has one; removing the
// entry moves it to Finalizing.
type Manager struct {
	backend   Backend
	finalizer *Finalizer
	extension string
	now       func() time.Time

	mu         sync.Mutex
	recordings map[string]*Recording // connectionID -> recording
}

// NewManager creates a Manager whose recordings are named with extension.
func NewManager(backend Backend, finalizer *Finalizer, extension string) *Manager {
	return &Manager{
		backend:    backend,
		finalizer:  finalizer,
		extension:  extension,
		now:        time.Now,
		recordings: make(map[string]*Recording),
	}
}

// Start opens a recording for connID. It fails with ErrAlreadyRecording
// while a recording is active and leaves that recording untouched.
func (m *Manager) Start(connID string) (*Recording, error) {
	m.mu.Lock()
	_, busy := m.recordings[connID]
	m.mu.Unlock()
	if busy {
		return nil, ErrAlreadyRecording
	}

	startedAt := m.now()
	filename := domain.RecordingFilename(connID, startedAt, m.extension)

	sink, err := m.backend.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording sink: %w", err)
	}

	rec := &Recording{
		ConnectionID: connID,
		Filename:     filename,
		StartedAt:    startedAt,
		sink:         sink,
	}

	m.mu.Lock()
	if _, busy := m.recordings[connID]; busy {
		m.mu.Unlock()
		sink.Abort()
		return nil, ErrAlreadyRecording
	}
	m.recordings[connID] = rec
	m.mu.Unlock()

	return rec, nil
}

// Chunk stores data in the active recording of connID. The first flagged
// fragment becomes the header; later flagged fragments are ordinary chunks.
// It reports false when connID is not recording. A sink failure does not
// reject the chunk; it fails the recording at finalization instead.
func (m *Manager) Chunk(connID string, data []byte, isFirstFragment bool) bool {
	rec := m.get(connID)
	if rec == nil {
		return false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.closed {
		return false
	}

	if rec.sinkErr == nil {
		var err error
		if isFirstFragment && !rec.hasHeader {
			rec.hasHeader = true
			err = rec.sink.Header(data)
		} else {
			err = rec.sink.Append(data)
		}
		if err != nil {
			rec.sinkErr = err
			l := pkglog.L()
			l.Error().Err(err).Str(pkglog.FieldClientID, connID).Str(pkglog.FieldFilename, rec.Filename).Msg("recording sink write failed")
		}
	}

	rec.chunkCount++
	return true
}

// Stop ends the active recording of connID and queues its finalization.
// onDone runs exactly once, on a finalizer worker or inline when the task
// cannot be queued. A refused local recording is still committed inline; a
// refused buffered one fails with the finalizer's error. Stop reports false, and never calls onDone, when connID
// is not recording.
func (m *Manager) Stop(connID string, onDone func(Result)) bool {
	m.mu.Lock()
	rec, ok := m.recordings[connID]
	delete(m.recordings, connID)
	m.mu.Unlock()
	if !ok {
		return false
	}

	rec.mu.Lock()
	rec.closed = true
	rec.mu.Unlock()

	stoppedAt := m.now()
	finalized := domain.FinalizedRecording{
		ConnectionID: connID,
		Filename:     rec.Filename,
		Duration:     stoppedAt.Sub(rec.StartedAt).Seconds(),
		CreatedAt:    rec.StartedAt,
	}

	task := &FinalizeTask{
		Filename: rec.Filename,
		Run: func(ctx context.Context) {
			onDone(m.finalize(ctx, rec, finalized))
		},
	}

	err := m.finalizer.Submit(task)
	if err == nil {
		return true
	}

	// Local media is already on disk, so a refused task is committed here
	// rather than thrown away. Buffered uploads fail instead.
	if _, ok := rec.sink.(diskSink); ok {
		l := pkglog.L()
		l.Warn().Err(err).Str(pkglog.FieldClientID, connID).Str(pkglog.FieldFilename, rec.Filename).Msg("finalizer refused recording, committing inline")
		onDone(m.finalize(context.Background(), rec, finalized))
		return true
	}

	rec.sink.Abort()
	onDone(Result{Recording: finalized, ChunkCount: rec.chunkCount, Err: err})
	return true
}

// Disconnect stops any active recording of connID.
func (m *Manager) Disconnect(connID string, onDone func(Result)) bool {
	return m.Stop(connID, onDone)
}

// Active returns the recording of connID, or nil when it is idle.
func (m *Manager) Active(connID string) *Recording {
	return m.get(connID)
}

func (m *Manager) get(connID string) *Recording {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordings[connID]
}

func (m *Manager) finalize(ctx context.Context, rec *Recording, out domain.FinalizedRecording) Result {
	res := Result{Recording: out, ChunkCount: rec.chunkCount}

	if rec.sinkErr != nil {
		rec.sink.Abort()
		res.Err = rec.sinkErr
		return res
	}

	size, url, err := rec.sink.Commit(ctx)
	if err != nil {
		rec.sink.Abort()
		res.Err = err
		return res
	}

	res.Recording.Size = size
	res.Recording.URL = url
	return res
}
