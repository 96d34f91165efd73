// Package worker moves integrity and submission audit events from Redis
// queues into PostgreSQL. The hot path only ever pays for an RPush; batching,
// retries and durability live in the background consumers.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nagendrasomala/quizy-gateway/internal/config"
	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Loop is one background consumer loop. Start blocks until the loop has
// drained and returned after ctx is cancelled.
type Loop interface {
	Start(ctx context.Context)
}

// RunAll starts each loop in its own goroutine and returns a function that
// blocks until every loop has finished its drain pass. Shutdown calls it
// instead of guessing a sleep.
func RunAll(ctx context.Context, loops ...Loop) (wait func()) {
	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l Loop) {
			defer wg.Done()
			l.Start(ctx)
		}(l)
	}
	return wg.Wait
}

// Recorder implements session.Auditor by enqueueing events to Redis lists.
type Recorder struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(rdb *redis.Client, log zerolog.Logger) *Recorder {
	return &Recorder{
		rdb: rdb,
		log: log.With().Str("component", "audit_recorder").Logger(),
	}
}

// Violation queues one integrity event. Enqueue failures are logged, never
// surfaced: audit must not interfere with a live session.
func (r *Recorder) Violation(ev model.ViolationEvent) {
	r.enqueue(config.WorkerKey.PersistViolationsQueue, ev)
}

// Submission queues one completed-submission event.
func (r *Recorder) Submission(ev model.SubmissionEvent) {
	r.enqueue(config.WorkerKey.PersistSubmissionsQueue, ev)
}

func (r *Recorder) enqueue(queue string, ev interface{}) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.Error().Err(err).Str("queue", queue).Msg("Marshal audit event failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.RPush(ctx, queue, data).Err(); err != nil {
		r.log.Error().Err(err).Str("queue", queue).Msg("Enqueue audit event failed")
	}
}
