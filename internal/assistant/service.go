package assistant

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebridge/patient-assistant/internal/observability/metrics"
	"github.com/carebridge/patient-assistant/pkg/logging"
)

const apologyAnswer = "I apologize, but I encountered an error processing your request. Please try again."

const unclearAnswer = "I'm not sure what you need. I can help you:\n" +
	"- List therapists\n- Book appointments\n- View your appointments\n- Cancel appointments\n- View your profile"

var serviceTracer = otel.Tracer("assistant.internal.service")

// ChatResponse is the payload returned to the client for one message.
type ChatResponse struct {
	Answer       string         `json:"answer"`
	Action       string         `json:"action,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	ActionResult *Envelope      `json:"actionResult,omitempty"`
	RawData      any            `json:"rawData,omitempty"`
}

// Service runs the conversational action-dispatch pipeline for one message:
// context retrieval, prompt assembly, model invocation, interpretation,
// dispatch, and storage. Every path produces a response; upstream failures
// degrade to an apologetic answer instead of surfacing an error.
type Service struct {
	store       Store
	retriever   *ContextRetriever
	prompts     *PromptAssembler
	gateway     *Gateway
	interpreter *Interpreter
	dispatcher  *Dispatcher
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger
}

// NewService wires the pipeline together.
func NewService(
	store Store,
	retriever *ContextRetriever,
	prompts *PromptAssembler,
	gateway *Gateway,
	interpreter *Interpreter,
	dispatcher *Dispatcher,
	m *metrics.ChatMetrics,
	logger *logging.Logger,
) *Service {
	if store == nil || retriever == nil || prompts == nil || gateway == nil || interpreter == nil || dispatcher == nil {
		panic("assistant: service dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:       store,
		retriever:   retriever,
		prompts:     prompts,
		gateway:     gateway,
		interpreter: interpreter,
		dispatcher:  dispatcher,
		metrics:     m,
		logger:      logger,
	}
}

// HandleMessage processes one user message end to end. It always returns a
// well-formed response; the error taxonomy is folded into the payload.
func (s *Service) HandleMessage(ctx context.Context, patientID, message string) *ChatResponse {
	ctx, span := serviceTracer.Start(ctx, "assistant.handle_message")
	defer span.End()
	span.SetAttributes(attribute.String("assistant.patient_id", patientID))

	// The user turn is recorded up front so it survives downstream failures.
	userTurn := NewUserTurn(patientID, message)
	if err := s.store.Append(ctx, patientID, userTurn); err != nil {
		s.logger.Warn("failed to record user turn", "patient_id", patientID, "error", err)
	}

	digest := s.retriever.BuildDigest(ctx, patientID, message)

	recent, err := s.store.GetAll(ctx, patientID, 20)
	if err != nil {
		recent = nil
	}
	window := s.prompts.Window(recent)
	if len(window) == 0 || window[len(window)-1].Role != ChatRoleUser {
		// Store degraded; the model still needs the live message.
		window = append(window, ChatMessage{Role: ChatRoleUser, Content: message})
	}

	llmStart := time.Now()
	raw, err := s.gateway.Invoke(ctx, s.prompts.SystemPrompt(digest), window)
	s.metrics.ObserveLLMLatency(time.Since(llmStart).Seconds())
	if err != nil {
		span.RecordError(err)
		s.logger.Error("model invocation failed, degrading", "patient_id", patientID, "error", err)
		s.metrics.ObserveRequest("degraded")
		return s.finish(ctx, patientID, &ChatResponse{Answer: apologyAnswer})
	}

	interp := s.interpreter.Interpret(raw, s.prompts.PriorAssistantText(recent))

	resp := &ChatResponse{Answer: interp.Text}
	switch interp.Kind {
	case KindAction:
		// The dispatcher runs at most once per interpreted turn.
		env := s.dispatcher.Dispatch(ctx, patientID, interp.Action, interp.Parameters)
		resp.Action = interp.Action
		resp.Parameters = interp.Parameters
		resp.ActionResult = &env
		resp.RawData = env.Data
		switch {
		case env.Formatted != "":
			resp.Answer = env.Formatted
		case env.Message != "":
			resp.Answer = env.Message
		}
		s.metrics.ObserveRequest("action")
	case KindParseFailure:
		s.metrics.ObserveRequest("parse_failure")
	default:
		s.metrics.ObserveRequest("no_action")
	}
	if resp.Answer == "" {
		resp.Answer = unclearAnswer
	}

	return s.finish(ctx, patientID, resp)
}

// finish records the assistant turn and returns the response. The assistant
// turn carries action, parameters, and actionResult together or not at all.
func (s *Service) finish(ctx context.Context, patientID string, resp *ChatResponse) *ChatResponse {
	turn := NewAssistantTurn(patientID, resp.Answer)
	if resp.Action != "" && resp.ActionResult != nil {
		turn.Action = resp.Action
		turn.Parameters = resp.Parameters
		if turn.Parameters == nil {
			turn.Parameters = map[string]any{}
			resp.Parameters = turn.Parameters
		}
		turn.ActionResult = resp.ActionResult
		turn.RawData = resp.RawData
	}
	if err := s.store.Append(ctx, patientID, turn); err != nil {
		s.logger.Warn("failed to record assistant turn", "patient_id", patientID, "error", err)
	}
	return resp
}
