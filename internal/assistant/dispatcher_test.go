package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/patient-assistant/internal/directory"
)

func newTestDirectory() *directory.MemoryStore {
	store := directory.NewMemoryStore()
	store.SeedTherapists([]directory.Therapist{
		{ID: "t-1", FirstName: "Sarah", LastName: "Johnson", Specialization: "CBT", Email: "sarah@example.com"},
		{ID: "t-2", FirstName: "Michael", LastName: "Chen", Specialization: "Family Therapy", Email: "michael@example.com"},
	})
	store.SeedPatient(directory.Patient{
		ID: "p-1", FirstName: "Alex", LastName: "Rivera", Email: "alex@example.com",
	})
	return store
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	env := d.Dispatch(context.Background(), "p-1", "send_rocket", nil)
	assert.False(t, env.Success)
	assert.Equal(t, "Unknown tool: send_rocket", env.Error)
	assert.NotEmpty(t, env.Message)
}

func TestDispatchMissingRequiredParameters(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	tests := []struct {
		name   string
		action string
		params map[string]any
		want   string
	}{
		{"book with nothing", ActionBookAppointment, nil, "Missing required parameters: therapistId, appointmentDate, duration"},
		{"book with blank therapist", ActionBookAppointment, map[string]any{
			"therapistId": "  ", "appointmentDate": "2026-01-15T10:00:00", "duration": float64(60),
		}, "Missing required parameters: therapistId"},
		{"cancel without id", ActionCancelAppointment, map[string]any{}, "Missing required parameters: appointmentId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := d.Dispatch(context.Background(), "p-1", tt.action, tt.params)
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Error)
		})
	}
}

func TestDispatchListTherapists(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionListTherapists, nil)
	require.True(t, env.Success)
	assert.Equal(t, "Found 2 therapists", env.Message)
	assert.Contains(t, env.Formatted, "Dr. Sarah Johnson - CBT")

	therapists, ok := env.Data.([]directory.Therapist)
	require.True(t, ok)
	assert.Len(t, therapists, 2)
}

func TestDispatchBookAppointment(t *testing.T) {
	dir := newTestDirectory()
	d := NewDispatcher(dir, nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionBookAppointment, map[string]any{
		"therapistId":     "t-1",
		"appointmentDate": "2026-02-10T09:30:00",
		"duration":        float64(60),
		"notes":           "first session",
	})
	require.True(t, env.Success, "error: %s", env.Error)
	assert.Equal(t, "Appointment booked successfully", env.Message)

	appt, ok := env.Data.(*directory.Appointment)
	require.True(t, ok)
	assert.Equal(t, "p-1", appt.PatientID)
	assert.Equal(t, "t-1", appt.TherapistID)
	assert.Equal(t, 60, appt.Duration)
	assert.Contains(t, env.Formatted, appt.ID)
}

func TestDispatchBookAppointmentValidation(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{"bad date", map[string]any{
			"therapistId": "t-1", "appointmentDate": "next Tuesday", "duration": float64(60),
		}, "Invalid appointmentDate: must be ISO-8601"},
		{"duration too short", map[string]any{
			"therapistId": "t-1", "appointmentDate": "2026-02-10T09:30:00", "duration": float64(10),
		}, "Invalid duration: must be 15-180 minutes"},
		{"duration too long", map[string]any{
			"therapistId": "t-1", "appointmentDate": "2026-02-10T09:30:00", "duration": float64(240),
		}, "Invalid duration: must be 15-180 minutes"},
		{"fractional duration", map[string]any{
			"therapistId": "t-1", "appointmentDate": "2026-02-10T09:30:00", "duration": 37.5,
		}, "Invalid duration: must be 15-180 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := d.Dispatch(context.Background(), "p-1", ActionBookAppointment, tt.params)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantErr, env.Error)
		})
	}
}

func TestDispatchBookAcceptsStringDuration(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionBookAppointment, map[string]any{
		"therapistId":     "t-1",
		"appointmentDate": "2026-02-10 09:30",
		"duration":        "45",
	})
	require.True(t, env.Success, "error: %s", env.Error)
}

func TestDispatchListAppointments(t *testing.T) {
	dir := newTestDirectory()
	dir.SeedAppointment(directory.Appointment{
		ID: "a-1", PatientID: "p-1", TherapistID: "t-1", TherapistName: "Sarah Johnson",
		AppointmentDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:        60, Status: directory.StatusScheduled,
	})
	d := NewDispatcher(dir, nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionListAppointments, nil)
	require.True(t, env.Success)
	assert.Equal(t, "Found 1 appointments", env.Message)
	assert.Contains(t, env.Formatted, "a-1")
}

func TestDispatchListAppointmentsEmpty(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionListAppointments, nil)
	require.True(t, env.Success)
	assert.Equal(t, "No appointments found", env.Message)
	assert.Equal(t, "You have no upcoming appointments.", env.Formatted)
}

func TestDispatchCancelAppointment(t *testing.T) {
	dir := newTestDirectory()
	dir.SeedAppointment(directory.Appointment{
		ID: "abc123", PatientID: "p-1", TherapistID: "t-1",
		AppointmentDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:        60, Status: directory.StatusScheduled,
	})
	d := NewDispatcher(dir, nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionCancelAppointment, map[string]any{
		"appointmentId": "abc123",
	})
	require.True(t, env.Success, "error: %s", env.Error)
	assert.Equal(t, "Appointment cancelled successfully", env.Message)

	cancelled, ok := env.Data.(*directory.Appointment)
	require.True(t, ok)
	assert.Equal(t, directory.StatusCancelled, cancelled.Status)
	assert.Equal(t, "Cancelled by patient", cancelled.CancellationReason)
}

func TestDispatchCancelEnforcesOwnership(t *testing.T) {
	dir := newTestDirectory()
	dir.SeedAppointment(directory.Appointment{
		ID: "abc123", PatientID: "someone-else", TherapistID: "t-1",
		AppointmentDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:        60, Status: directory.StatusScheduled,
	})
	d := NewDispatcher(dir, nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionCancelAppointment, map[string]any{
		"appointmentId": "abc123",
	})
	assert.False(t, env.Success)
	assert.Equal(t, "You can only cancel your own appointments", env.Error)

	// Not cancelled.
	appt, err := dir.FindAppointment(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, directory.StatusScheduled, appt.Status)
}

func TestDispatchCancelUnknownAppointment(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionCancelAppointment, map[string]any{
		"appointmentId": "nope",
	})
	assert.False(t, env.Success)
	assert.Equal(t, "Appointment not found", env.Error)
}

func TestDispatchGetProfile(t *testing.T) {
	d := NewDispatcher(newTestDirectory(), nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionGetProfile, nil)
	require.True(t, env.Success)
	assert.Contains(t, env.Formatted, "Alex Rivera")
	assert.Contains(t, env.Formatted, "Phone: Not provided")
}

// panickyDirectory blows up on every call to prove the dispatch boundary holds.
type panickyDirectory struct{}

func (panickyDirectory) ListTherapists(context.Context) ([]directory.Therapist, error) {
	panic("boom")
}
func (panickyDirectory) FindPatient(context.Context, string) (*directory.Patient, error) {
	panic("boom")
}
func (panickyDirectory) ListAppointments(context.Context, string) ([]directory.Appointment, error) {
	panic("boom")
}
func (panickyDirectory) FindAppointment(context.Context, string) (*directory.Appointment, error) {
	panic("boom")
}
func (panickyDirectory) CreateAppointment(context.Context, directory.CreateAppointment) (*directory.Appointment, error) {
	panic("boom")
}
func (panickyDirectory) CancelAppointment(context.Context, string, string) (*directory.Appointment, error) {
	panic("boom")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	d := NewDispatcher(panickyDirectory{}, nil, nil)

	env := d.Dispatch(context.Background(), "p-1", ActionListTherapists, nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "internal error")
	assert.Equal(t, "Failed to execute the requested action", env.Message)
}
