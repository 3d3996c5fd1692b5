package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Async when its buffer cannot take another job.
var ErrQueueFull = errors.New("archive queue full")

// Async moves archive writes off the request path. Jobs run in submission
// order on a single goroutine, so a delete never overtakes an earlier save of
// the same record.
type Async struct {
	store Store
	ch    chan archiveJob
	log   zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

type archiveJob struct {
	userID, id  string
	title, text string
	delete      bool
}

// NewAsync wraps store with a buffered background queue. Call Start to begin
// draining.
func NewAsync(store Store, bufferSize int, log zerolog.Logger) *Async {
	return &Async{
		store: store,
		ch:    make(chan archiveJob, bufferSize),
		log:   log.With().Str("component", "async-archive").Logger(),
		done:  make(chan struct{}),
	}
}

func (a *Async) Type() string { return a.store.Type() }

// Save queues a save. It only fails when the queue is full or stopped.
func (a *Async) Save(ctx context.Context, userID, id, title, text string) error {
	return a.enqueue(archiveJob{userID: userID, id: id, title: title, text: text})
}

// Delete queues a delete.
func (a *Async) Delete(ctx context.Context, userID, id string) error {
	return a.enqueue(archiveJob{userID: userID, id: id, delete: true})
}

func (a *Async) enqueue(job archiveJob) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		return ErrQueueFull
	}
	select {
	case a.ch <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the drain goroutine.
func (a *Async) Start() {
	go a.worker()
	a.log.Info().Str("type", a.store.Type()).Int("buffer", cap(a.ch)).Msg("async archive started")
}

// Stop refuses new jobs and waits for queued ones to finish.
func (a *Async) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	close(a.ch)
	a.mu.Unlock()
	<-a.done
}

func (a *Async) worker() {
	defer close(a.done)
	for job := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		var err error
		if job.delete {
			err = a.store.Delete(ctx, job.userID, job.id)
		} else {
			err = a.store.Save(ctx, job.userID, job.id, job.title, job.text)
		}
		cancel()
		if err != nil {
			a.log.Error().Err(err).
				Str("user_id", job.userID).
				Str("transcription_id", job.id).
				Bool("delete", job.delete).
				Msg("async archive write failed")
		}
	}
}
