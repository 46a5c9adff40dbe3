package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

const defaultWindowSize = 5

// Persona is the assistant's voice, exposed so /chat/tools can report it.
const Persona = "You are a helpful healthcare assistant for a therapy practice. " +
	"You help patients list therapists, book and cancel appointments, and view their profile. " +
	"Be warm, concise, and professional. Never invent medical advice."

// PromptAssembler builds the system prompt and the rolling turn window fed to
// the language model.
type PromptAssembler struct {
	windowSize int
}

// NewPromptAssembler creates a prompt assembler. windowSize <= 0 uses the default of 5.
func NewPromptAssembler(windowSize int) *PromptAssembler {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &PromptAssembler{windowSize: windowSize}
}

// SystemPrompt renders persona, context digest, capability catalog, the
// ACTION/PARAMETERS output contract, and the anti-repetition rules.
func (p *PromptAssembler) SystemPrompt(digest string) string {
	var b strings.Builder
	b.WriteString(Persona)
	b.WriteString("\n\nYou have access to the following context:\n\n")
	b.WriteString(digest)
	b.WriteString("\n\nAvailable actions:\n")
	for i, spec := range Catalog() {
		b.WriteString(fmt.Sprintf("%d. %s - %s", i+1, spec.Name, spec.Description))
		if len(spec.Params) > 0 {
			parts := make([]string, 0, len(spec.Params))
			for _, param := range spec.Params {
				suffix := ""
				if !param.Required {
					suffix = ", optional"
				}
				parts = append(parts, fmt.Sprintf("%s: %s%s", param.Name, param.Type, suffix))
			}
			b.WriteString(" (requires: " + strings.Join(parts, "; ") + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString(`
When you need to fetch data or invoke an action, respond with:
ACTION: action_name
PARAMETERS: {"key": "value"}

Parameters must be valid JSON on a single line. Example:
ACTION: book_appointment
PARAMETERS: {"therapistId": "507f1f77bcf86cd799439011", "appointmentDate": "2026-01-15T10:00:00", "duration": 60}

Otherwise respond in natural language with no ACTION line.

IMPORTANT RULES:
- If the context contains therapist or appointment IDs, use them directly instead of asking again.
- Never ask for information the patient already supplied in the visible conversation.
- Never repeat a list you have already shown in this conversation.`)
	return b.String()
}

// Window returns the last N turns as chat messages. Assistant turns that
// dispatched an action are annotated with it so the model can resolve
// references like "book with Dr. Smith" against previously listed results.
func (p *PromptAssembler) Window(turns []Turn) []ChatMessage {
	start := 0
	if len(turns) > p.windowSize {
		start = len(turns) - p.windowSize
	}

	window := make([]ChatMessage, 0, len(turns)-start)
	for _, t := range turns[start:] {
		role := ChatRoleUser
		content := t.Content
		if t.Role == RoleAssistant {
			role = ChatRoleAssistant
			if t.Action != "" {
				params, _ := json.Marshal(t.Parameters)
				content = fmt.Sprintf("%s\n[action: %s parameters: %s]", content, t.Action, params)
			}
		}
		window = append(window, ChatMessage{Role: role, Content: content})
	}
	return window
}

// PriorAssistantText concatenates the assistant content visible in the window,
// used by the interpreter's repetition guard.
func (p *PromptAssembler) PriorAssistantText(turns []Turn) string {
	start := 0
	if len(turns) > p.windowSize {
		start = len(turns) - p.windowSize
	}
	var b strings.Builder
	for _, t := range turns[start:] {
		if t.Role != RoleAssistant {
			continue
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
