package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory directory implementation for development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	therapists   []Therapist
	patients     map[string]Patient
	appointments map[string]Appointment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients:     make(map[string]Patient),
		appointments: make(map[string]Appointment),
	}
}

// SeedTherapists replaces the therapist roster.
func (s *MemoryStore) SeedTherapists(therapists []Therapist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.therapists = append([]Therapist(nil), therapists...)
}

// SeedPatient upserts a patient profile.
func (s *MemoryStore) SeedPatient(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
}

// ListTherapists returns the seeded roster.
func (s *MemoryStore) ListTherapists(ctx context.Context) ([]Therapist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Therapist(nil), s.therapists...), nil
}

// FindPatient returns a seeded patient.
func (s *MemoryStore) FindPatient(ctx context.Context, id string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// ListAppointments returns a patient's appointments ordered by date.
func (s *MemoryStore) ListAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	return out, nil
}

// FindAppointment returns a single appointment by ID.
func (s *MemoryStore) FindAppointment(ctx context.Context, id string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// CreateAppointment books a new appointment.
func (s *MemoryStore) CreateAppointment(ctx context.Context, req CreateAppointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := Appointment{
		ID:              uuid.NewString(),
		PatientID:       req.PatientID,
		TherapistID:     req.TherapistID,
		AppointmentDate: req.AppointmentDate,
		Duration:        req.Duration,
		Status:          StatusScheduled,
		Notes:           req.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	for _, t := range s.therapists {
		if t.ID == req.TherapistID {
			a.TherapistName = t.FirstName + " " + t.LastName
			break
		}
	}
	s.appointments[a.ID] = a
	return &a, nil
}

// CancelAppointment marks an appointment cancelled.
func (s *MemoryStore) CancelAppointment(ctx context.Context, id, reason string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = StatusCancelled
	a.CancellationReason = reason
	s.appointments[id] = a
	return &a, nil
}

// SeedAppointment inserts an appointment directly (tests only).
func (s *MemoryStore) SeedAppointment(a Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.appointments[a.ID] = a
}
