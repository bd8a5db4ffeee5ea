// Package analysis runs video analysis jobs in the background. Jobs live in
// the video_analyses table; the in-process queue only carries their ids, so
// a restart picks up every job that was queued or mid-flight.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// Event types sent through the Notifier.
const (
	EventCompleted = "video_analysis.completed"
	EventFailed    = "video_analysis.failed"
)

var (
	ErrQueueFull      = errors.New("analysis queue is full")
	ErrNotCancellable = errors.New("analysis is not queued or processing")
)

// Store defines the DB methods the queue needs. Satisfied by *database.Queries.
type Store interface {
	StartVideoAnalysis(ctx context.Context, id uuid.UUID) (database.VideoAnalysis, error)
	UpdateVideoAnalysisProgress(ctx context.Context, arg database.UpdateVideoAnalysisProgressParams) error
	CompleteVideoAnalysis(ctx context.Context, id uuid.UUID, result []byte) (database.VideoAnalysis, error)
	FailVideoAnalysis(ctx context.Context, id uuid.UUID, reason string) (database.VideoAnalysis, error)
	CancelVideoAnalysis(ctx context.Context, id uuid.UUID) (database.VideoAnalysis, error)
	ListResumableVideoAnalyses(ctx context.Context) ([]database.VideoAnalysis, error)
}

// Notifier pushes a finished job to the user who requested it.
type Notifier interface {
	Notify(userID uuid.UUID, eventType string, payload any)
}

// Queue is a bounded job queue drained by a fixed worker pool.
type Queue struct {
	store     Store
	notifier  Notifier
	workers   int
	stepDelay time.Duration

	jobs chan uuid.UUID

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

// NewQueue creates a queue holding at most capacity pending jobs.
func NewQueue(store Store, notifier Notifier, workers, capacity int, stepDelay time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		store:     store,
		notifier:  notifier,
		workers:   workers,
		stepDelay: stepDelay,
		jobs:      make(chan uuid.UUID, capacity),
		running:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// Enqueue schedules a persisted job. It never blocks: a full queue returns
// ErrQueueFull and leaves the row untouched for the caller to settle.
func (q *Queue) Enqueue(id uuid.UUID) error {
	select {
	case q.jobs <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel marks a queued or running job cancelled and stops its worker.
func (q *Queue) Cancel(ctx context.Context, id uuid.UUID) (database.VideoAnalysis, error) {
	job, err := q.store.CancelVideoAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.VideoAnalysis{}, ErrNotCancellable
		}
		return database.VideoAnalysis{}, fmt.Errorf("cancel analysis: %w", err)
	}

	q.mu.Lock()
	if cancel, ok := q.running[id]; ok {
		cancel()
	}
	q.mu.Unlock()

	log.Printf("analysis %s cancelled", id)
	return job, nil
}

// Run re-enqueues unfinished jobs and processes jobs until ctx is done.
// Jobs interrupted by shutdown stay in processing and resume on the next Run.
func (q *Queue) Run(ctx context.Context) error {
	pending, err := q.store.ListResumableVideoAnalyses(ctx)
	if err != nil {
		return fmt.Errorf("list resumable analyses: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if len(pending) > 0 {
		log.Printf("analysis: resuming %d job(s)", len(pending))
		g.Go(func() error {
			for _, job := range pending {
				select {
				case q.jobs <- job.ID:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case id := <-q.jobs:
					q.process(ctx, id)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) process(ctx context.Context, id uuid.UUID) {
	jobCtx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	if _, busy := q.running[id]; busy {
		// enqueued twice, e.g. by resume and by a retry
		q.mu.Unlock()
		cancel()
		return
	}
	q.running[id] = cancel
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		delete(q.running, id)
		q.mu.Unlock()
		cancel()
	}()

	job, err := q.store.StartVideoAnalysis(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) && ctx.Err() == nil {
			log.Printf("ERROR: start analysis %s: %v", id, err)
		}
		return
	}

	var result Result
	if len(job.Result) > 0 {
		if err := json.Unmarshal(job.Result, &result); err != nil {
			q.fail(ctx, job, fmt.Sprintf("corrupt partial result: %v", err))
			return
		}
	}
	log.Printf("analysis %s processing from step %d/%d", id, len(result.StepsCompleted), len(Steps))

	for step := len(result.StepsCompleted); step < len(Steps); step++ {
		select {
		case <-jobCtx.Done():
			// Cancel already persisted the status; shutdown leaves the job
			// in processing so the next Run resumes it.
			return
		case <-time.After(q.stepDelay):
		}

		analyzeStep(job.ID, step, &result)
		data, err := json.Marshal(result)
		if err != nil {
			q.fail(ctx, job, err.Error())
			return
		}

		if result.Done() {
			done, err := q.store.CompleteVideoAnalysis(context.WithoutCancel(ctx), job.ID, data)
			if err != nil {
				if !errors.Is(err, pgx.ErrNoRows) {
					log.Printf("ERROR: complete analysis %s: %v", id, err)
				}
				return
			}
			log.Printf("analysis %s completed", id)
			q.notifier.Notify(done.RequestedBy, EventCompleted, done)
			return
		}

		err = q.store.UpdateVideoAnalysisProgress(context.WithoutCancel(ctx), database.UpdateVideoAnalysisProgressParams{
			ID:       job.ID,
			Progress: int32(len(result.StepsCompleted) * 100 / len(Steps)),
			Result:   data,
		})
		if err != nil {
			q.fail(ctx, job, err.Error())
			return
		}
	}
}

func (q *Queue) fail(ctx context.Context, job database.VideoAnalysis, reason string) {
	log.Printf("ERROR: analysis %s failed: %s", job.ID, reason)
	failed, err := q.store.FailVideoAnalysis(context.WithoutCancel(ctx), job.ID, reason)
	if err != nil {
		log.Printf("ERROR: mark analysis %s failed: %v", job.ID, err)
		return
	}
	q.notifier.Notify(failed.RequestedBy, EventFailed, failed)
}
