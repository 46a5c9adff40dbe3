package assistant

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// turnLog is the durable, append-only record of turns, one Redis list per patient.
type turnLog struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func newTurnLog(client *redis.Client, tracer trace.Tracer) *turnLog {
	if client == nil {
		panic("assistant: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("assistant.internal.turnlog")
	}
	return &turnLog{redis: client, tracer: tracer}
}

func turnKey(patientID string) string {
	return fmt.Sprintf("patient_turns:%s", patientID)
}

// Append pushes a turn onto the end of the patient's log.
func (l *turnLog) Append(ctx context.Context, patientID string, turn Turn) error {
	ctx, span := l.tracer.Start(ctx, "assistant.append_turn")
	defer span.End()

	data, err := EncodeTurn(turn)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := l.redis.RPush(ctx, turnKey(patientID), data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to persist turn: %w", err)
	}
	return nil
}

// List returns up to limit of the most recent turns in storage order.
// limit <= 0 returns the full log.
func (l *turnLog) List(ctx context.Context, patientID string, limit int) ([]Turn, error) {
	ctx, span := l.tracer.Start(ctx, "assistant.list_turns")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		length, err := l.redis.LLen(ctx, turnKey(patientID)).Result()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("assistant: failed to measure turn log: %w", err)
		}
		if length > int64(limit) {
			start = length - int64(limit)
		}
	}

	entries, err := l.redis.LRange(ctx, turnKey(patientID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to load turns: %w", err)
	}

	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		// Decode falls back to a display-text turn for non-canonical payloads.
		t, _ := DecodeTurn([]byte(entry))
		if t.PatientID == "" {
			t.PatientID = patientID
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear removes the patient's entire log.
func (l *turnLog) Clear(ctx context.Context, patientID string) error {
	ctx, span := l.tracer.Start(ctx, "assistant.clear_turns")
	defer span.End()

	if err := l.redis.Del(ctx, turnKey(patientID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to clear turns: %w", err)
	}
	return nil
}
