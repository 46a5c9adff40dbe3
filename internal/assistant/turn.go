package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Envelope is the uniform result shape returned by every capability invocation.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Formatted string `json:"formatted,omitempty"`
}

// Turn is one message (user or assistant) in a patient's conversation.
// Turns are immutable once appended; corrections are new turns.
type Turn struct {
	ID           string         `json:"id"`
	PatientID    string         `json:"patientId"`
	Role         string         `json:"role"`
	Content      string         `json:"content"`
	Timestamp    time.Time      `json:"timestamp"`
	Action       string         `json:"action,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	ActionResult *Envelope      `json:"actionResult,omitempty"`
	RawData      any            `json:"rawData,omitempty"`
}

// NewUserTurn creates a user turn with a fresh ID and UTC timestamp.
func NewUserTurn(patientID, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantTurn creates an assistant turn with a fresh ID and UTC timestamp.
func NewAssistantTurn(patientID, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Validate enforces the turn invariants before storage.
func (t Turn) Validate() error {
	if strings.TrimSpace(t.PatientID) == "" {
		return errors.New("assistant: turn patientId is required")
	}
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return fmt.Errorf("assistant: invalid turn role %q", t.Role)
	}
	hasAction := t.Action != "" || t.Parameters != nil || t.ActionResult != nil
	if hasAction {
		if t.Role != RoleAssistant {
			return errors.New("assistant: action fields are only valid on assistant turns")
		}
		if t.Action == "" || t.Parameters == nil || t.ActionResult == nil {
			return errors.New("assistant: action, parameters, and actionResult must be set together")
		}
	}
	return nil
}

// EncodeTurn produces the canonical serialization stored in the turn log.
func EncodeTurn(t Turn) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to encode turn: %w", err)
	}
	return data, nil
}

// DecodeTurn parses the canonical serialization back into a Turn. When the
// payload is not canonical JSON it falls back to a bare display-text turn so
// history projection never loses content.
func DecodeTurn(data []byte) (Turn, error) {
	var t Turn
	if err := json.Unmarshal(data, &t); err == nil && t.ID != "" {
		return t, nil
	}

	raw := strings.TrimSpace(string(data))
	t = Turn{
		ID:      uuid.NewString(),
		Role:    RoleAssistant,
		Content: raw,
	}
	if rest, ok := strings.CutPrefix(raw, "User: "); ok {
		t.Role = RoleUser
		t.Content = rest
	} else if rest, ok := strings.CutPrefix(raw, "Assistant: "); ok {
		t.Content = rest
	}
	return t, fmt.Errorf("assistant: non-canonical turn payload")
}
