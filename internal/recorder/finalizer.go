package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
)

var (
	ErrQueueFull = errors.New("finalize queue is full")
	ErrStopped   = errors.New("finalizer is stopped")
)

// FinalizeTask closes one recording. Run is called once on a worker.
type FinalizeTask struct {
	Filename string
	Run      func(ctx context.Context)
}

// FinalizerConfig holds configuration for the finalizer pool.
type FinalizerConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Finalizer runs finalization tasks on a fixed pool of workers. Tasks are
// never retried.
type Finalizer struct {
	workers int
	timeout time.Duration
	queue   chan *FinalizeTask
	wg      sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewFinalizer creates a new finalizer pool.
func NewFinalizer(cfg FinalizerConfig) *Finalizer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Finalizer{
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		queue:   make(chan *FinalizeTask, cfg.QueueSize),
	}
}

// Start launches the workers.
func (f *Finalizer) Start() {
	for i := 0; i < f.workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
	l := pkglog.L()
	l.Info().Int("workers", f.workers).Msg("finalizer started")
}

// Stop refuses new tasks and waits for queued ones to finish.
func (f *Finalizer) Stop() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped = true
		close(f.queue)
		f.mu.Unlock()

		f.wg.Wait()
		l := pkglog.L()
		l.Info().Msg("finalizer stopped")
	})
}

// Submit queues a task without blocking.
func (f *Finalizer) Submit(task *FinalizeTask) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.stopped {
		return ErrStopped
	}

	select {
	case f.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueLength returns the current number of pending tasks.
func (f *Finalizer) QueueLength() int {
	return len(f.queue)
}

func (f *Finalizer) worker() {
	defer f.wg.Done()

	for task := range f.queue {
		f.run(task)
	}
}

func (f *Finalizer) run(task *FinalizeTask) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l := pkglog.L()
			l.Error().Interface("panic", r).Str(pkglog.FieldFilename, task.Filename).Msg("finalize task panicked")
		}
	}()

	task.Run(ctx)
}
