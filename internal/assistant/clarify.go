package assistant

import (
	"regexp"
	"strings"
)

// ListingKind classifies what kind of listing a completion renders, if any.
type ListingKind int

const (
	ListingNone ListingKind = iota
	ListingTherapists
	ListingAppointments
)

// clarificationPatterns match completions where the assistant is still
// collecting slots and no action should be dispatched yet, even if the text
// happens to include an ACTION: token.
var clarificationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)which\s+therapist`),
	regexp.MustCompile(`(?i)what\s+(date|day|time)`),
	regexp.MustCompile(`(?i)how\s+long\s+should`),
	regexp.MustCompile(`(?i)please\s+provide`),
	regexp.MustCompile(`(?i)\bmissing\b`),
	regexp.MustCompile(`(?i)\brequired\b`),
}

var (
	therapistLineRe   = regexp.MustCompile(`(?m)^\s*-?\s*(Dr\.\s+\S+|ID:\s*\S+,?\s*Name:)`)
	appointmentLineRe = regexp.MustCompile(`(?m)^\s*-\s*ID:\s*\S+.*(Date|Status|Duration):`)
)

// IsClarification reports whether text reads like a clarifying question. A
// completion that simultaneously presents a listing is not a clarification;
// the model is answering, not asking.
func IsClarification(text string) bool {
	matched := false
	for _, re := range clarificationPatterns {
		if re.MatchString(text) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return PresentsListing(text) == ListingNone
}

// PresentsListing detects whether text renders a therapist or appointment list.
func PresentsListing(text string) ListingKind {
	if len(appointmentLineRe.FindAllString(text, 2)) >= 2 {
		return ListingAppointments
	}
	if len(therapistLineRe.FindAllString(text, 2)) >= 2 {
		return ListingTherapists
	}
	return ListingNone
}

// RepeatsListing reports whether text re-renders a listing that a prior
// assistant turn in the visible window already delivered. Dispatching again
// would loop on the same fetch.
func RepeatsListing(text, priorAssistantText string) bool {
	if strings.TrimSpace(priorAssistantText) == "" {
		return false
	}
	kind := PresentsListing(text)
	if kind == ListingNone {
		return false
	}
	return PresentsListing(priorAssistantText) == kind
}
