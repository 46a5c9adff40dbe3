package assistant

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/carebridge/patient-assistant/pkg/logging"
)

// Store is the patient-scoped, append-only conversation record.
type Store interface {
	Append(ctx context.Context, patientID string, turn Turn) error
	QuerySemantic(ctx context.Context, patientID, query string, k int) ([]Turn, error)
	GetAll(ctx context.Context, patientID string, limit int) ([]Turn, error)
	Clear(ctx context.Context, patientID string) error
}

// VectorIndex is the semantic retrieval capability backing the store.
type VectorIndex interface {
	Add(ctx context.Context, patientID, turnID, content string) error
	Query(ctx context.Context, patientID, query string, topK int) ([]string, error)
	Delete(ctx context.Context, patientID string) error
}

var storeTracer = otel.Tracer("assistant.internal.store")

// ConversationStore pairs a durable Redis turn log with a semantic index.
//
// The chat pipeline must survive a dead backend: when either the log or the
// index is unavailable, reads return empty results and writes become no-ops
// with a logged warning instead of failing the user-facing request.
type ConversationStore struct {
	log    *turnLog
	index  VectorIndex
	logger *logging.Logger
}

// NewConversationStore creates a conversation store. Both the Redis client and
// the index may be nil, which puts the store in fully degraded mode.
func NewConversationStore(redisClient *redis.Client, index VectorIndex, logger *logging.Logger) *ConversationStore {
	if logger == nil {
		logger = logging.Default()
	}
	var log *turnLog
	if redisClient != nil {
		log = newTurnLog(redisClient, storeTracer)
	} else {
		logger.Warn("conversation store running without a turn log; history will not persist")
	}
	return &ConversationStore{
		log:    log,
		index:  index,
		logger: logger,
	}
}

// Append records a turn in the log and indexes it for semantic retrieval.
// Backend failures degrade to no-ops so the pipeline keeps going.
func (s *ConversationStore) Append(ctx context.Context, patientID string, turn Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	if s.log == nil {
		s.logger.Warn("turn log unavailable, skipping append", "patient_id", patientID)
	} else if err := s.log.Append(ctx, patientID, turn); err != nil {
		s.logger.Warn("failed to append turn, continuing without persistence",
			"patient_id", patientID, "error", err)
	}

	if s.index == nil {
		return nil
	}
	if err := s.index.Add(ctx, patientID, turn.ID, indexableContent(turn)); err != nil {
		s.logger.Warn("failed to index turn, continuing without semantic recall",
			"patient_id", patientID, "error", err)
	}
	return nil
}

// QuerySemantic returns up to k turns ranked by similarity to queryText.
func (s *ConversationStore) QuerySemantic(ctx context.Context, patientID, query string, k int) ([]Turn, error) {
	if s.index == nil || s.log == nil {
		return nil, nil
	}
	ids, err := s.index.Query(ctx, patientID, query, k)
	if err != nil {
		s.logger.Warn("semantic query failed, returning empty context",
			"patient_id", patientID, "error", err)
		return nil, nil
	}
	if len(ids) == 0 {
		return nil, nil
	}

	all, err := s.log.List(ctx, patientID, 0)
	if err != nil {
		s.logger.Warn("turn log read failed, returning empty context",
			"patient_id", patientID, "error", err)
		return nil, nil
	}

	byID := make(map[string]Turn, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	out := make([]Turn, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetAll returns the unranked log for full reconstruction.
func (s *ConversationStore) GetAll(ctx context.Context, patientID string, limit int) ([]Turn, error) {
	if s.log == nil {
		return nil, nil
	}
	turns, err := s.log.List(ctx, patientID, limit)
	if err != nil {
		s.logger.Warn("turn log read failed, returning empty history",
			"patient_id", patientID, "error", err)
		return nil, nil
	}
	return turns, nil
}

// Clear purges all turns for a patient from the log and the index.
func (s *ConversationStore) Clear(ctx context.Context, patientID string) error {
	if s.index != nil {
		if err := s.index.Delete(ctx, patientID); err != nil {
			return err
		}
	}
	if s.log == nil {
		return nil
	}
	return s.log.Clear(ctx, patientID)
}

// indexableContent renders a turn as the text fed into the embedding model.
func indexableContent(t Turn) string {
	prefix := "User: "
	if t.Role == RoleAssistant {
		prefix = "Assistant: "
	}
	return prefix + t.Content
}
