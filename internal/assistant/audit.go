package assistant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kalambet/underworlds/internal/storage"
)

// ExchangeSaver is the part of storage.Store the audit recorder needs.
type ExchangeSaver interface {
	SaveExchange(e storage.Exchange) error
}

// StoreRecorder persists exchanges to the operator audit log. Write errors
// are logged and otherwise ignored; the visitor already has their reply.
type StoreRecorder struct {
	store  ExchangeSaver
	logger *slog.Logger
}

func NewStoreRecorder(store ExchangeSaver) *StoreRecorder {
	return &StoreRecorder{store: store, logger: slog.Default()}
}

func (r *StoreRecorder) RecordExchange(_ context.Context, ex Exchange) {
	rec := storage.Exchange{
		ID:        uuid.New().String(),
		SessionID: ex.SessionID,
		CreatedAt: ex.StartedAt,
		UserText:  ex.UserText,
		Reply:     ex.Reply,
		Backend:   ex.Backend,
		Fallback:  ex.Fallback,
		Duration:  ex.Duration,
	}
	if ex.Err != nil {
		rec.Error = ex.Err.Error()
	}
	if err := r.store.SaveExchange(rec); err != nil {
		r.logger.Error("saving exchange", "session_id", ex.SessionID, "error", err)
	}
}
