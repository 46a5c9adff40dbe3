package directory

import (
	"errors"
	"time"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("directory: record not found")

// Therapist is a provider patients can book with.
type Therapist struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
}

// Patient is the profile of an authenticated patient.
type Patient struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Appointment is a booked session between a patient and a therapist.
type Appointment struct {
	ID                 string    `json:"id"`
	PatientID          string    `json:"patientId"`
	TherapistID        string    `json:"therapistId"`
	TherapistName      string    `json:"therapistName,omitempty"`
	AppointmentDate    time.Time `json:"appointmentDate"`
	Duration           int       `json:"duration"`
	Status             string    `json:"status"`
	Notes              string    `json:"notes,omitempty"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// CreateAppointment holds the fields required to book an appointment.
type CreateAppointment struct {
	PatientID       string
	TherapistID     string
	AppointmentDate time.Time
	Duration        int
	Notes           string
}
