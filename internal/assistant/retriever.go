package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/carebridge/patient-assistant/internal/directory"
	"github.com/carebridge/patient-assistant/pkg/logging"
)

const (
	defaultContextTopK   = 5
	defaultContextBudget = 4000
)

// ContextRetriever merges semantically relevant past turns with live snapshots
// (appointments, therapist roster, profile) into one bounded text digest.
type ContextRetriever struct {
	store     Store
	directory directory.Service
	topK      int
	budget    int
	logger    *logging.Logger
}

// NewContextRetriever creates a context retriever. topK/budget <= 0 use defaults.
func NewContextRetriever(store Store, dir directory.Service, topK, budget int, logger *logging.Logger) *ContextRetriever {
	if store == nil {
		panic("assistant: store cannot be nil")
	}
	if dir == nil {
		panic("assistant: directory service cannot be nil")
	}
	if topK <= 0 {
		topK = defaultContextTopK
	}
	if budget <= 0 {
		budget = defaultContextBudget
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ContextRetriever{store: store, directory: dir, topK: topK, budget: budget, logger: logger}
}

// BuildDigest assembles the context digest for one user message. The live
// reads share no mutable state, so they run concurrently. Any failed read
// degrades to an empty section.
func (r *ContextRetriever) BuildDigest(ctx context.Context, patientID, message string) string {
	var (
		wg           sync.WaitGroup
		excerpts     []Turn
		appointments []directory.Appointment
		therapists   []directory.Therapist
		patient      *directory.Patient
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		turns, err := r.store.QuerySemantic(ctx, patientID, message, r.topK)
		if err != nil {
			r.logger.Warn("semantic retrieval failed", "patient_id", patientID, "error", err)
			return
		}
		excerpts = turns
	}()
	go func() {
		defer wg.Done()
		appts, err := r.directory.ListAppointments(ctx, patientID)
		if err != nil {
			r.logger.Warn("appointment read failed", "patient_id", patientID, "error", err)
			return
		}
		appointments = appts
	}()
	go func() {
		defer wg.Done()
		roster, err := r.directory.ListTherapists(ctx)
		if err != nil {
			r.logger.Warn("therapist read failed", "error", err)
			return
		}
		therapists = roster
	}()
	go func() {
		defer wg.Done()
		p, err := r.directory.FindPatient(ctx, patientID)
		if err != nil {
			r.logger.Warn("profile read failed", "patient_id", patientID, "error", err)
			return
		}
		patient = p
	}()
	wg.Wait()

	return r.render(patientID, excerpts, appointments, therapists, patient)
}

func (r *ContextRetriever) render(
	patientID string,
	excerpts []Turn,
	appointments []directory.Appointment,
	therapists []directory.Therapist,
	patient *directory.Patient,
) string {
	header := fmt.Sprintf("Patient ID: %s\n", patientID)
	if patient != nil {
		header = fmt.Sprintf("Patient: %s %s (%s)\n", patient.FirstName, patient.LastName, patient.Email)
	}

	var fixed strings.Builder
	if len(appointments) > 0 {
		fixed.WriteString("Current appointments:\n")
		for _, a := range appointments {
			fixed.WriteString(fmt.Sprintf("- ID: %s, Date: %s, Status: %s, Duration: %dmin, Therapist: %s\n",
				a.ID, a.AppointmentDate.Format(time.RFC1123), a.Status, a.Duration, a.TherapistName))
		}
		fixed.WriteString("\n")
	}
	fixed.WriteString("Available therapists:\n")
	if len(therapists) == 0 {
		fixed.WriteString("- none on record\n")
	}
	for _, t := range therapists {
		fixed.WriteString(fmt.Sprintf("- ID: %s, Name: Dr. %s %s, Specialization: %s\n",
			t.ID, t.FirstName, t.LastName, t.Specialization))
	}

	// Excerpts are ranked most-relevant first; trim from the tail until the
	// digest fits the budget.
	for len(excerpts) >= 0 {
		digest := assembleDigest(header, excerpts, fixed.String())
		if len(digest) <= r.budget || len(excerpts) == 0 {
			if len(digest) > r.budget {
				digest = truncateAtRune(digest, r.budget)
			}
			return digest
		}
		excerpts = excerpts[:len(excerpts)-1]
	}
	return header
}

// truncateAtRune cuts s to at most max bytes without splitting a UTF-8 rune.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func assembleDigest(header string, excerpts []Turn, fixed string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	if len(excerpts) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range excerpts {
			b.WriteString(indexableContent(t))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(fixed)
	return b.String()
}
