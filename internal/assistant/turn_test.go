package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnValidate(t *testing.T) {
	env := &Envelope{Success: true}

	tests := []struct {
		name    string
		mutate  func(*Turn)
		wantErr bool
	}{
		{"valid user turn", func(tr *Turn) {}, false},
		{"missing patient id", func(tr *Turn) { tr.PatientID = " " }, true},
		{"bad role", func(tr *Turn) { tr.Role = "system" }, true},
		{"action on user turn", func(tr *Turn) {
			tr.Action = "list_therapists"
			tr.Parameters = map[string]any{}
			tr.ActionResult = env
		}, true},
		{"action without result", func(tr *Turn) {
			tr.Role = RoleAssistant
			tr.Action = "list_therapists"
			tr.Parameters = map[string]any{}
		}, true},
		{"parameters without action", func(tr *Turn) {
			tr.Role = RoleAssistant
			tr.Parameters = map[string]any{}
		}, true},
		{"complete action triple", func(tr *Turn) {
			tr.Role = RoleAssistant
			tr.Action = "list_therapists"
			tr.Parameters = map[string]any{}
			tr.ActionResult = env
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := NewUserTurn("p-1", "hello")
			tt.mutate(&turn)
			err := turn.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncodeDecodeTurn(t *testing.T) {
	turn := NewAssistantTurn("p-1", "Booked it for you")
	turn.Action = "book_appointment"
	turn.Parameters = map[string]any{"therapistId": "t-1", "duration": float64(60)}
	turn.ActionResult = &Envelope{Success: true, Message: "Appointment booked successfully"}

	data, err := EncodeTurn(turn)
	require.NoError(t, err)

	decoded, err := DecodeTurn(data)
	require.NoError(t, err)
	assert.Equal(t, turn.ID, decoded.ID)
	assert.Equal(t, turn.Content, decoded.Content)
	assert.Equal(t, turn.Action, decoded.Action)
	assert.Equal(t, turn.Parameters, decoded.Parameters)
	require.NotNil(t, decoded.ActionResult)
	assert.True(t, decoded.ActionResult.Success)
}

func TestDecodeTurnFallsBackToDisplayText(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantRole    string
		wantContent string
	}{
		{"user prefix", "User: I need an appointment", RoleUser, "I need an appointment"},
		{"assistant prefix", "Assistant: Here are the therapists", RoleAssistant, "Here are the therapists"},
		{"bare text", "some legacy blob", RoleAssistant, "some legacy blob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := DecodeTurn([]byte(tt.payload))
			assert.Error(t, err)
			assert.Equal(t, tt.wantRole, turn.Role)
			assert.Equal(t, tt.wantContent, turn.Content)
			assert.NotEmpty(t, turn.ID)
		})
	}
}
