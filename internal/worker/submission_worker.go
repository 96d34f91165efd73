package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nagendrasomala/quizy-gateway/internal/config"
	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubmissionWorker consumes persist_submissions_queue and records the audit
// trail of completed submissions. The quiz service already holds the
// authoritative score; these rows exist so faculty can cross-check when a
// submission is disputed.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionWorker creates a SubmissionWorker.
func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SubmissionWorker started")

	batch := make([]*model.SubmissionEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(shutdownCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var ev model.SubmissionEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Discarding malformed submission event")
				continue
			}

			batch = append(batch, &ev)
		}
	}
}

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []*model.SubmissionEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk submission insert failed, using fallback")

		for _, ev := range batch {
			if err := w.persistSingle(ctx, ev); err != nil {
				w.log.Error().Err(err).Str("reg_no", ev.RegNo).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(ev)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
			}
		}
	}
}

func (w *SubmissionWorker) bulkInsert(ctx context.Context, batch []*model.SubmissionEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, ev := range batch {
		rows = append(rows, []interface{}{
			ev.QuizID, ev.RegNo, ev.Score, ev.Reason, ev.SubmittedAt,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"quiz_submissions"},
		[]string{"quiz_id", "reg_no", "score", "reason", "submitted_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *SubmissionWorker) persistSingle(ctx context.Context, ev *model.SubmissionEvent) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO quiz_submissions (quiz_id, reg_no, score, reason, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.QuizID, ev.RegNo, ev.Score, ev.Reason, ev.SubmittedAt,
	)
	return err
}
