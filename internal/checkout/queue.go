// Package checkout hands cart snapshots to whoever fulfils orders. Intents are
// queued in storage and delivered by a background worker, so a slow or
// unreachable receiver never blocks the visitor.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/underworlds/internal/cart"
	"github.com/kalambet/underworlds/internal/storage"
)

// JobType is the job queue type used for checkout intents.
const JobType = "checkout_intent"

// Intent is the payload delivered to a Notifier.
type Intent struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id,omitempty"`
	Items      []cart.Line `json:"items"`
	Count      int         `json:"count"`
	Total      int64       `json:"total"`
	CapturedAt time.Time   `json:"captured_at"`
}

// JobEnqueuer is the part of storage.Store the queue needs.
type JobEnqueuer interface {
	EnqueueJob(job storage.Job) error
}

// Queue implements cart.CheckoutHandler by persisting intents as jobs.
type Queue struct {
	store  JobEnqueuer
	logger *slog.Logger
}

func NewQueue(store JobEnqueuer) *Queue {
	return &Queue{store: store, logger: slog.Default()}
}

// Submit enqueues the snapshot. It returns once the job is stored.
func (q *Queue) Submit(ctx context.Context, snap cart.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	intent := Intent{
		ID:         uuid.New().String(),
		SessionID:  snap.Owner,
		Items:      snap.Items,
		Count:      snap.Count,
		Total:      snap.Total,
		CapturedAt: snap.CapturedAt,
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encoding intent: %w", err)
	}
	if err := q.store.EnqueueJob(storage.Job{
		ID:          intent.ID,
		Type:        JobType,
		PayloadJSON: string(payload),
	}); err != nil {
		return fmt.Errorf("enqueueing checkout intent: %w", err)
	}
	q.logger.Info("checkout intent queued", "intent_id", intent.ID, "session_id", intent.SessionID, "items", intent.Count)
	return nil
}
