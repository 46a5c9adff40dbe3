package directory

import "context"

// Service is the CRUD collaborator the assistant dispatches to. The assistant
// core never talks to storage directly; everything goes through this contract.
type Service interface {
	ListTherapists(ctx context.Context) ([]Therapist, error)
	FindPatient(ctx context.Context, id string) (*Patient, error)
	ListAppointments(ctx context.Context, patientID string) ([]Appointment, error)
	FindAppointment(ctx context.Context, id string) (*Appointment, error)
	CreateAppointment(ctx context.Context, req CreateAppointment) (*Appointment, error)
	CancelAppointment(ctx context.Context, id, reason string) (*Appointment, error)
}
