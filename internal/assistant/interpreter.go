package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/carebridge/patient-assistant/pkg/logging"
)

// InterpretationKind tags the outcome of parsing a completion.
type InterpretationKind int

const (
	// KindNoAction means the completion is plain conversation.
	KindNoAction InterpretationKind = iota
	// KindAction means an action and parameters were extracted.
	KindAction
	// KindParseFailure means an ACTION token was present but unusable.
	KindParseFailure
)

// Interpretation is the structured reading of a model completion.
type Interpretation struct {
	Kind       InterpretationKind
	Text       string
	Action     string
	Parameters map[string]any
}

var (
	actionRe      = regexp.MustCompile(`(?i)ACTION:\s*(.+)`)
	parametersRe  = regexp.MustCompile(`(?is)PARAMETERS:\s*(.+?)(?:\n\s*\n|\n[A-Z]|\z)`)
	stripActionRe = regexp.MustCompile(`(?i)ACTION:\s*.+`)
	stripParamsRe = regexp.MustCompile(`(?is)PARAMETERS:\s*(\{.*?\}|.+?(\n|\z))`)
	stringPairRe  = regexp.MustCompile(`"([^"]+)"\s*:\s*"([^"]*)"`)
	numberPairRe  = regexp.MustCompile(`"([^"]+)"\s*:\s*(-?\d+(?:\.\d+)?)`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Interpreter turns raw completion text into {text, action?, parameters?}
// using a layered, fault-tolerant grammar. Guards run first; extraction tiers
// fall back from strict JSON to pattern recovery to keyword heuristics.
type Interpreter struct {
	logger *logging.Logger
}

// NewInterpreter creates a response interpreter.
func NewInterpreter(logger *logging.Logger) *Interpreter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Interpreter{logger: logger}
}

// Interpret parses raw completion text. priorAssistantText is the assistant
// content already visible in the rolling window, used by the repetition guard.
// First matching tier wins.
func (i *Interpreter) Interpret(raw, priorAssistantText string) Interpretation {
	text := cleanCompletionText(raw)

	// Tier 1: clarification guard. The assistant is still collecting slots.
	if IsClarification(raw) {
		return Interpretation{Kind: KindNoAction, Text: text}
	}

	// Tier 2: repetition guard. Don't re-fetch a list already shown.
	if RepeatsListing(raw, priorAssistantText) {
		return Interpretation{Kind: KindNoAction, Text: text}
	}

	actionMatch := actionRe.FindStringSubmatch(raw)
	if actionMatch == nil {
		// Tier 7: keyword heuristics as a last resort.
		if action, ok := heuristicIntent(raw); ok {
			return Interpretation{Kind: KindAction, Text: text, Action: action, Parameters: map[string]any{}}
		}
		return Interpretation{Kind: KindNoAction, Text: text}
	}

	action := normalizeActionName(actionMatch[1])
	if action == "" {
		i.logger.Warn("completion carried an empty ACTION token")
		return Interpretation{Kind: KindParseFailure, Text: text}
	}

	params := i.extractParameters(raw)
	if params == nil {
		// Tier 6: no parameters block at all.
		params = map[string]any{}
		if !actionRequiresNoParams(action) {
			i.logger.Debug("action missing parameters block", "action", action)
		}
	}

	return Interpretation{Kind: KindAction, Text: text, Action: action, Parameters: params}
}

// extractParameters runs tiers 3-5: structured block extraction, whitespace
// normalization + JSON parse, then key/value pattern recovery. Returns nil
// when no PARAMETERS block exists, and an empty map when one exists but
// nothing is recoverable.
func (i *Interpreter) extractParameters(raw string) map[string]any {
	paramsMatch := parametersRe.FindStringSubmatch(raw)
	if paramsMatch == nil {
		return nil
	}

	// Tier 4: collapse to a single line and coerce into object shape.
	collapsed := strings.TrimSpace(whitespaceRe.ReplaceAllString(paramsMatch[1], " "))
	if !strings.HasPrefix(collapsed, "{") {
		collapsed = "{" + collapsed + "}"
	}

	params := map[string]any{}
	if err := json.Unmarshal([]byte(collapsed), &params); err == nil {
		return params
	}

	// Tier 5: recover whatever key/value pairs pattern-match.
	recovered := map[string]any{}
	for _, pair := range stringPairRe.FindAllStringSubmatch(paramsMatch[1], -1) {
		recovered[pair[1]] = pair[2]
	}
	for _, pair := range numberPairRe.FindAllStringSubmatch(paramsMatch[1], -1) {
		if _, taken := recovered[pair[1]]; taken {
			continue
		}
		var n float64
		if err := json.Unmarshal([]byte(pair[2]), &n); err == nil {
			recovered[pair[1]] = n
		}
	}
	if len(recovered) > 0 {
		i.logger.Debug("recovered parameters from malformed JSON", "count", len(recovered))
	}
	return recovered
}

// heuristicIntent maps domain keyword combinations to no-argument actions.
func heuristicIntent(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	has := func(keys ...string) bool {
		for _, k := range keys {
			if !strings.Contains(lower, k) {
				return false
			}
		}
		return true
	}
	switch {
	case has("list", "therapist"), has("show", "therapist"), has("available", "therapist"):
		return ActionListTherapists, true
	case has("my", "appointment"):
		return ActionListAppointments, true
	case has("my", "profile"):
		return ActionGetProfile, true
	}
	return "", false
}

// cleanCompletionText strips ACTION/PARAMETERS lines so the user never sees
// the wire format.
func cleanCompletionText(raw string) string {
	cleaned := stripParamsRe.ReplaceAllString(raw, "")
	cleaned = stripActionRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func normalizeActionName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.Trim(name, "[]`*\"'")
	name = strings.TrimSpace(name)
	if idx := strings.IndexAny(name, " \t"); idx > 0 {
		name = name[:idx]
	}
	return name
}
