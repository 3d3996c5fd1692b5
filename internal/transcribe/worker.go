package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/i18n"
	"github.com/Gelzieny/tube-link-scribe/internal/metrics"
	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
	"github.com/Gelzieny/tube-link-scribe/internal/youtube"
)

// Job is one pending record to transcribe.
type Job struct {
	TranscriptionID string
	VideoURL        string
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Transcriber Transcriber
	Metadata    MetadataSource // optional
	Results     ResultWriter
	Messages    *i18n.Catalog
	Timeout     time.Duration // per job, 0 = no limit
	Log         zerolog.Logger
}

// Worker turns a Job into a completed or failed record.
type Worker struct {
	opts WorkerOptions
	msgs *i18n.Catalog
	log  zerolog.Logger
}

// NewWorker creates a Worker.
func NewWorker(opts WorkerOptions) *Worker {
	msgs := opts.Messages
	if msgs == nil {
		msgs = i18n.New("")
	}
	return &Worker{opts: opts, msgs: msgs, log: opts.Log}
}

// Process runs the job and writes the outcome back. A transcription failure
// marks the record failed and is returned wrapping scribe.ErrWorkerFailed.
// scribe.ErrTerminal means the record had already been finished elsewhere.
func (w *Worker) Process(ctx context.Context, job Job) error {
	start := time.Now()
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}
	log := w.log.With().Str("transcription_id", job.TranscriptionID).Logger()

	status, err := w.opts.Results.StatusOf(ctx, job.TranscriptionID)
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}
	if status.Terminal() {
		log.Warn().Str("status", string(status)).Msg("transcription already finished, skipping")
		return scribe.ErrTerminal
	}
	log.Info().Str("video_url", job.VideoURL).Msg("processing transcription")

	// 1. Title and channel, best effort
	videoID := youtube.IDOrUnknown(job.VideoURL)
	res := scribe.Result{Title: w.msgs.Default().Sprintf(i18n.PlaceholderTitle, videoID)}
	if w.opts.Metadata != nil {
		md, err := w.opts.Metadata.Lookup(ctx, job.VideoURL)
		if err != nil {
			log.Debug().Err(err).Msg("metadata lookup failed, using placeholder title")
		} else {
			res.Title = md.Title
			res.Channel = md.Channel
		}
	}

	// 2. Transcript
	text, err := w.opts.Transcriber.Transcribe(ctx, job.VideoURL)
	if err != nil {
		log.Warn().Err(err).Msg("transcription failed")
		metrics.WorkerJobDuration.WithLabelValues(string(scribe.StatusFailed)).Observe(time.Since(start).Seconds())
		msg := w.msgs.Default().Sprintf(i18n.ProcessingFailed)
		if _, ferr := w.opts.Results.Fail(context.WithoutCancel(ctx), job.TranscriptionID, msg); ferr != nil {
			if errors.Is(ferr, scribe.ErrTerminal) {
				return ferr
			}
			return fmt.Errorf("mark failed: %w", ferr)
		}
		return fmt.Errorf("%w: %v", scribe.ErrWorkerFailed, err)
	}

	// 3. Write back
	res.Text = text
	if _, err := w.opts.Results.Complete(context.WithoutCancel(ctx), job.TranscriptionID, res); err != nil {
		if errors.Is(err, scribe.ErrTerminal) {
			log.Warn().Msg("transcription already finished, result discarded")
			return err
		}
		return fmt.Errorf("save result: %w", err)
	}

	metrics.WorkerJobDuration.WithLabelValues(string(scribe.StatusCompleted)).Observe(time.Since(start).Seconds())
	log.Info().
		Int("chars", len(text)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("transcription complete")
	return nil
}

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// QueueStats reports the current state of the transcription queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Workers   int   `json:"workers"`
}

// PoolOptions configures the in-process worker pool.
type PoolOptions struct {
	Processor Processor
	Workers   int
	QueueSize int
	Log       zerolog.Logger
}

// Pool is a bounded job queue drained by a fixed number of goroutines.
// It implements scribe.Dispatcher.
type Pool struct {
	jobs   chan Job
	opts   PoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
}

var _ scribe.Dispatcher = (*Pool)(nil)

// NewPool creates a worker pool. Call Start to begin draining.
func NewPool(opts PoolOptions) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:   make(chan Job, opts.QueueSize),
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info().Int("workers", p.opts.Workers).Int("queue_size", p.opts.QueueSize).Msg("transcription worker pool started")
}

// Stop refuses new jobs, lets workers drain the queue and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.log.Info().
		Int64("completed", p.completed.Load()).
		Int64("failed", p.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Enqueue adds a job to the queue. Returns false if the queue is full or the
// pool is stopped.
func (p *Pool) Enqueue(j Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

// Dispatch queues the request. A full or stopped queue is a dispatch error.
func (p *Pool) Dispatch(ctx context.Context, req scribe.DispatchRequest) error {
	if p.Enqueue(Job{TranscriptionID: req.TranscriptionID, VideoURL: req.VideoURL}) {
		return nil
	}
	if p.Stopped() {
		return &DispatchError{Reason: "worker pool stopped", Err: ErrPoolStopped}
	}
	return &DispatchError{Reason: "queue full", Err: ErrQueueFull}
}

// Stopped reports whether Stop has been called.
func (p *Pool) Stopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// Stats returns current queue statistics.
func (p *Pool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(p.jobs),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Workers:   p.opts.Workers,
	}
}

// QueueDepth returns the number of queued jobs.
func (p *Pool) QueueDepth() int { return len(p.jobs) }

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.opts.Workers }

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.log.With().Int("worker", id).Logger()

	for job := range p.jobs {
		if err := p.opts.Processor.Process(p.ctx, job); err != nil {
			p.failed.Add(1)
			log.Warn().Err(err).
				Str("transcription_id", job.TranscriptionID).
				Msg("transcription job failed")
		} else {
			p.completed.Add(1)
		}
	}
}
