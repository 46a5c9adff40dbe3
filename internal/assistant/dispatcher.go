package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/carebridge/patient-assistant/internal/directory"
	"github.com/carebridge/patient-assistant/internal/observability/metrics"
	"github.com/carebridge/patient-assistant/pkg/logging"
)

const (
	minAppointmentMinutes = 15
	maxAppointmentMinutes = 180

	defaultCancellationReason = "Cancelled by patient"
)

// Dispatcher validates interpreted parameters against each action's schema and
// invokes the matching directory capability. It never panics or errors across
// its public boundary; every failure comes back as an envelope.
type Dispatcher struct {
	directory directory.Service
	metrics   *metrics.ChatMetrics
	logger    *logging.Logger
}

// NewDispatcher creates an action dispatcher.
func NewDispatcher(dir directory.Service, m *metrics.ChatMetrics, logger *logging.Logger) *Dispatcher {
	if dir == nil {
		panic("assistant: directory service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{directory: dir, metrics: m, logger: logger}
}

// Dispatch runs one capability for the authenticated patient.
func (d *Dispatcher) Dispatch(ctx context.Context, patientID, action string, params map[string]any) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panicked", "action", action, "panic", fmt.Sprint(r))
			env = Envelope{
				Success: false,
				Error:   fmt.Sprintf("internal error: %v", r),
				Message: "Failed to execute the requested action",
			}
		}
		outcome := "ok"
		if !env.Success {
			outcome = "error"
		}
		d.metrics.ObserveAction(action, outcome)
	}()

	spec, ok := lookupAction(action)
	if !ok {
		return Envelope{
			Success: false,
			Error:   fmt.Sprintf("Unknown tool: %s", action),
			Message: "I don't understand what you want to do. Please try rephrasing your request.",
		}
	}

	if params == nil {
		params = map[string]any{}
	}
	if missing := missingRequired(spec, params); len(missing) > 0 {
		return Envelope{
			Success: false,
			Error:   "Missing required parameters: " + strings.Join(missing, ", "),
			Message: fmt.Sprintf("Please provide %s to %s.", strings.Join(missing, ", "), strings.ReplaceAll(action, "_", " ")),
		}
	}

	switch action {
	case ActionListTherapists:
		return d.listTherapists(ctx)
	case ActionBookAppointment:
		return d.bookAppointment(ctx, patientID, params)
	case ActionListAppointments:
		return d.listAppointments(ctx, patientID)
	case ActionCancelAppointment:
		return d.cancelAppointment(ctx, patientID, params)
	case ActionGetProfile:
		return d.getProfile(ctx, patientID)
	default:
		return Envelope{
			Success: false,
			Error:   fmt.Sprintf("Unknown tool: %s", action),
			Message: "I don't understand what you want to do. Please try rephrasing your request.",
		}
	}
}

func missingRequired(spec ActionSpec, params map[string]any) []string {
	var missing []string
	for _, p := range spec.Params {
		if !p.Required {
			continue
		}
		v, ok := params[p.Name]
		if !ok || v == nil {
			missing = append(missing, p.Name)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

func (d *Dispatcher) listTherapists(ctx context.Context) Envelope {
	therapists, err := d.directory.ListTherapists(ctx)
	if err != nil {
		return failureEnvelope("Failed to list therapists", err)
	}

	lines := make([]string, 0, len(therapists))
	for _, t := range therapists {
		lines = append(lines, fmt.Sprintf("Dr. %s %s - %s (%s)", t.FirstName, t.LastName, t.Specialization, t.Email))
	}
	formatted := "No therapists are available right now."
	if len(lines) > 0 {
		formatted = strings.Join(lines, "\n")
	}
	if therapists == nil {
		therapists = []directory.Therapist{}
	}
	return Envelope{
		Success:   true,
		Data:      therapists,
		Message:   fmt.Sprintf("Found %d therapists", len(therapists)),
		Formatted: formatted,
	}
}

func (d *Dispatcher) bookAppointment(ctx context.Context, patientID string, params map[string]any) Envelope {
	therapistID, _ := stringParam(params, "therapistId")
	notes, _ := stringParam(params, "notes")

	dateRaw, _ := stringParam(params, "appointmentDate")
	when, err := parseAppointmentDate(dateRaw)
	if err != nil {
		return Envelope{
			Success: false,
			Error:   "Invalid appointmentDate: must be ISO-8601",
			Message: "Please provide the appointment date in ISO-8601 format, e.g. 2026-01-15T10:00:00Z.",
		}
	}

	duration, ok := intParam(params, "duration")
	if !ok || duration < minAppointmentMinutes || duration > maxAppointmentMinutes {
		return Envelope{
			Success: false,
			Error:   fmt.Sprintf("Invalid duration: must be %d-%d minutes", minAppointmentMinutes, maxAppointmentMinutes),
			Message: fmt.Sprintf("Appointment duration must be between %d and %d minutes.", minAppointmentMinutes, maxAppointmentMinutes),
		}
	}

	appointment, err := d.directory.CreateAppointment(ctx, directory.CreateAppointment{
		PatientID:       patientID,
		TherapistID:     therapistID,
		AppointmentDate: when,
		Duration:        duration,
		Notes:           notes,
	})
	if err != nil {
		return failureEnvelope("Failed to book the appointment", err)
	}

	return Envelope{
		Success: true,
		Data:    appointment,
		Message: "Appointment booked successfully",
		Formatted: fmt.Sprintf(
			"Appointment booked successfully!\n\nDetails:\n- Date: %s\n- Duration: %d minutes\n- Appointment ID: %s",
			appointment.AppointmentDate.Format(time.RFC1123), appointment.Duration, appointment.ID,
		),
	}
}

func (d *Dispatcher) listAppointments(ctx context.Context, patientID string) Envelope {
	appointments, err := d.directory.ListAppointments(ctx, patientID)
	if err != nil {
		return failureEnvelope("Failed to list appointments", err)
	}

	if len(appointments) == 0 {
		return Envelope{
			Success:   true,
			Data:      []directory.Appointment{},
			Message:   "No appointments found",
			Formatted: "You have no upcoming appointments.",
		}
	}

	lines := make([]string, 0, len(appointments))
	for _, a := range appointments {
		lines = append(lines, fmt.Sprintf("- ID: %s, Date: %s, Status: %s, Duration: %dmin, Therapist: %s",
			a.ID, a.AppointmentDate.Format(time.RFC1123), a.Status, a.Duration, a.TherapistName))
	}
	return Envelope{
		Success:   true,
		Data:      appointments,
		Message:   fmt.Sprintf("Found %d appointments", len(appointments)),
		Formatted: "Your appointments:\n" + strings.Join(lines, "\n"),
	}
}

func (d *Dispatcher) cancelAppointment(ctx context.Context, patientID string, params map[string]any) Envelope {
	appointmentID, _ := stringParam(params, "appointmentId")
	reason, _ := stringParam(params, "cancellationReason")
	if strings.TrimSpace(reason) == "" {
		reason = defaultCancellationReason
	}

	appointment, err := d.directory.FindAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Envelope{
				Success: false,
				Error:   "Appointment not found",
				Message: "I couldn't find that appointment. Please check the appointment ID.",
			}
		}
		return failureEnvelope("Failed to look up the appointment", err)
	}

	// Ownership is enforced here, before the capability runs.
	if appointment.PatientID != patientID {
		return Envelope{
			Success: false,
			Error:   "You can only cancel your own appointments",
			Message: "That appointment belongs to another patient, so I can't cancel it.",
		}
	}

	cancelled, err := d.directory.CancelAppointment(ctx, appointmentID, reason)
	if err != nil {
		return failureEnvelope("Failed to cancel the appointment", err)
	}

	return Envelope{
		Success:   true,
		Data:      cancelled,
		Message:   "Appointment cancelled successfully",
		Formatted: fmt.Sprintf("Appointment cancelled successfully. Appointment ID: %s", appointmentID),
	}
}

func (d *Dispatcher) getProfile(ctx context.Context, patientID string) Envelope {
	patient, err := d.directory.FindPatient(ctx, patientID)
	if err != nil {
		return failureEnvelope("Failed to retrieve your profile", err)
	}

	phone := patient.Phone
	if phone == "" {
		phone = "Not provided"
	}
	address := patient.Address
	if address == "" {
		address = "Not provided"
	}
	return Envelope{
		Success: true,
		Data:    patient,
		Message: "Profile retrieved successfully",
		Formatted: fmt.Sprintf(
			"Patient Profile:\n- Name: %s %s\n- Email: %s\n- Phone: %s\n- Address: %s",
			patient.FirstName, patient.LastName, patient.Email, phone, address,
		),
	}
}

func failureEnvelope(message string, err error) Envelope {
	return Envelope{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), true
	}
	return strings.TrimSpace(s), true
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// parseAppointmentDate accepts RFC3339 and the common zone-less ISO-8601 form
// models tend to emit.
func parseAppointmentDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("assistant: empty appointment date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("assistant: unparseable appointment date %q", raw)
}
