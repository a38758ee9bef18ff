// Package usage records generative-model usage for cost tracking.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sage-engine/internal/utils"
)

// Record is one model invocation's usage accounting.
type Record struct {
	ID            uuid.UUID
	ServiceName   string
	ModelName     string
	ModelProvider string
	RequestType   string
	TokensInput   int
	TokensOutput  int
	DurationMs    int64
	Success       bool
	ErrorMessage  string
	CreatedAt     time.Time
}

// Recorder accepts usage records. Implementations must not block the
// caller's request path.
type Recorder interface {
	Record(rec Record)
}

// NopRecorder discards records. Used when usage tracking is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(Record) {}

const maxBacklog = 1000

// Tracker buffers usage records in memory and writes them to Postgres in
// the background. When the backlog is full the oldest record is dropped;
// accounting is best-effort and never blocks or fails a request.
type Tracker struct {
	pool *pgxpool.Pool

	mu      sync.Mutex
	backlog []Record
}

// NewTracker creates a usage tracker over the connection pool.
func NewTracker(pool *pgxpool.Pool) *Tracker {
	return &Tracker{pool: pool}
}

// Record enqueues one usage record and kicks off an async flush.
func (t *Tracker) Record(rec Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	if len(t.backlog) >= maxBacklog {
		t.backlog = t.backlog[1:]
	}
	t.backlog = append(t.backlog, rec)
	t.mu.Unlock()

	if t.pool == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.Flush(ctx); err != nil {
			utils.GetLogger().Warn("usage flush failed", zap.Error(err))
		}
	}()
}

// Pending returns the number of buffered records.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.backlog)
}

// Flush writes all buffered records. Records that fail to write are
// re-queued for the next flush.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	pending := t.backlog
	t.backlog = nil
	t.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if t.pool == nil {
		// No database configured; records are dropped after buffering.
		return nil
	}

	for i, rec := range pending {
		_, err := t.pool.Exec(ctx, `
			INSERT INTO llm_usage (
				id, service_name, model_name, model_provider, request_type,
				tokens_input, tokens_output, duration_ms, success, error_message, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.ServiceName, rec.ModelName, rec.ModelProvider, rec.RequestType,
			rec.TokensInput, rec.TokensOutput, rec.DurationMs, rec.Success, rec.ErrorMessage, rec.CreatedAt,
		)
		if err != nil {
			t.mu.Lock()
			t.backlog = append(pending[i:], t.backlog...)
			if len(t.backlog) > maxBacklog {
				t.backlog = t.backlog[len(t.backlog)-maxBacklog:]
			}
			t.mu.Unlock()
			return err
		}
	}
	return nil
}
