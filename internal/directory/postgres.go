package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists therapists, patients, and appointments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed directory store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("directory: db cannot be nil")
	}
	return &PostgresStore{db: db}
}

// ListTherapists returns all therapists ordered by name.
func (s *PostgresStore) ListTherapists(ctx context.Context) ([]Therapist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, specialization, email
		FROM therapists
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, fmt.Errorf("directory: failed to list therapists: %w", err)
	}
	defer rows.Close()

	var therapists []Therapist
	for rows.Next() {
		var t Therapist
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Specialization, &t.Email); err != nil {
			return nil, fmt.Errorf("directory: failed to scan therapist: %w", err)
		}
		therapists = append(therapists, t)
	}
	return therapists, rows.Err()
}

// FindPatient returns a patient profile.
func (s *PostgresStore) FindPatient(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	var phone, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, address
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &phone, &address)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: failed to get patient: %w", err)
	}
	p.Phone = phone.String
	p.Address = address.String
	return &p, nil
}

const appointmentColumns = `
	a.id, a.patient_id, a.therapist_id,
	COALESCE(t.first_name || ' ' || t.last_name, ''),
	a.appointment_date, a.duration, a.status,
	COALESCE(a.notes, ''), COALESCE(a.cancellation_reason, ''), a.created_at`

func scanAppointment(row interface{ Scan(...any) error }) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.PatientID, &a.TherapistID, &a.TherapistName,
		&a.AppointmentDate, &a.Duration, &a.Status,
		&a.Notes, &a.CancellationReason, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAppointments returns a patient's appointments ordered by date.
func (s *PostgresStore) ListAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN therapists t ON t.id = a.therapist_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("directory: failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("directory: failed to scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	return appointments, rows.Err()
}

// FindAppointment returns a single appointment by ID.
func (s *PostgresStore) FindAppointment(ctx context.Context, id string) (*Appointment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN therapists t ON t.id = a.therapist_id
		WHERE a.id = $1
	`, id)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: failed to get appointment: %w", err)
	}
	return a, nil
}

// CreateAppointment books a new appointment.
func (s *PostgresStore) CreateAppointment(ctx context.Context, req CreateAppointment) (*Appointment, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (
			id, patient_id, therapist_id, appointment_date, duration, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, id, req.PatientID, req.TherapistID, req.AppointmentDate, req.Duration, StatusScheduled, req.Notes, now)
	if err != nil {
		return nil, fmt.Errorf("directory: failed to create appointment: %w", err)
	}

	return s.FindAppointment(ctx, id)
}

// CancelAppointment marks an appointment cancelled with the given reason.
func (s *PostgresStore) CancelAppointment(ctx context.Context, id, reason string) (*Appointment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET status = $1, cancellation_reason = $2, updated_at = $3
		WHERE id = $4
	`, StatusCancelled, reason, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("directory: failed to cancel appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("directory: failed to read cancel result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.FindAppointment(ctx, id)
}
