package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebridge/patient-assistant/pkg/logging"
)

// Chat roles for LLM requests.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one message in an LLM request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest is a provider-neutral completion request.
type LLMRequest struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

// LLMResponse is a provider-neutral completion result.
type LLMResponse struct {
	Text       string
	StopReason string
}

// LLMClient is implemented by each model provider.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// TransientUpstreamError indicates the model could not be reached after the
// gateway exhausted its retry. The pipeline degrades rather than failing.
type TransientUpstreamError struct {
	Err error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("assistant: upstream model unavailable: %v", e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// IsTransientUpstream reports whether err is a TransientUpstreamError.
func IsTransientUpstream(err error) bool {
	var te *TransientUpstreamError
	return errors.As(err, &te)
}

var gatewayTracer = otel.Tracer("assistant.internal.gateway")

const defaultLLMTimeout = 10 * time.Second

// Gateway is the single-call wrapper around the language model. It owns the
// timeout and retry policy: one hard timeout per attempt, exactly one retry,
// then a TransientUpstreamError. It never silently returns empty text.
type Gateway struct {
	client  LLMClient
	timeout time.Duration
	logger  *logging.Logger
}

// NewGateway creates an LLM gateway. timeout <= 0 uses the 10s default.
func NewGateway(client LLMClient, timeout time.Duration, logger *logging.Logger) *Gateway {
	if client == nil {
		panic("assistant: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{client: client, timeout: timeout, logger: logger}
}

// Invoke sends the system prompt plus turn window to the model and returns the
// raw completion text.
func (g *Gateway) Invoke(ctx context.Context, systemPrompt string, window []ChatMessage) (string, error) {
	ctx, span := gatewayTracer.Start(ctx, "assistant.llm_invoke")
	defer span.End()
	span.SetAttributes(attribute.Int("assistant.window_size", len(window)))

	req := LLMRequest{
		System:   []string{systemPrompt},
		Messages: window,
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.Complete(callCtx, req)
		cancel()
		if err == nil {
			text := strings.TrimSpace(resp.Text)
			if text == "" {
				err = errors.New("assistant: model returned empty completion")
			} else {
				return text, nil
			}
		}
		lastErr = err
		if attempt == 0 {
			g.logger.Warn("llm call failed, retrying once", "error", err)
		}
	}

	span.RecordError(lastErr)
	return "", &TransientUpstreamError{Err: lastErr}
}
