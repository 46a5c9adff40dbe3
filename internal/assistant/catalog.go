package assistant

// Action names the assistant may dispatch.
const (
	ActionListTherapists    = "list_therapists"
	ActionBookAppointment   = "book_appointment"
	ActionListAppointments  = "list_appointments"
	ActionCancelAppointment = "cancel_appointment"
	ActionGetProfile        = "get_profile"
)

// ParamSpec describes one parameter of a capability.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// ActionSpec describes one capability in the catalog.
type ActionSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"parameters"`
}

var catalog = []ActionSpec{
	{
		Name:        ActionListTherapists,
		Description: "List all available therapists with their specializations and contact information",
	},
	{
		Name:        ActionBookAppointment,
		Description: "Book an appointment with a therapist",
		Params: []ParamSpec{
			{Name: "therapistId", Type: "string", Required: true, Description: "ID of the therapist"},
			{Name: "appointmentDate", Type: "string", Required: true, Description: "Date and time (ISO-8601)"},
			{Name: "duration", Type: "number", Required: true, Description: "Duration in minutes (15-180)"},
			{Name: "notes", Type: "string", Required: false, Description: "Notes for the appointment"},
		},
	},
	{
		Name:        ActionListAppointments,
		Description: "List all upcoming appointments for the authenticated patient",
	},
	{
		Name:        ActionCancelAppointment,
		Description: "Cancel an existing appointment",
		Params: []ParamSpec{
			{Name: "appointmentId", Type: "string", Required: true, Description: "ID of the appointment to cancel"},
			{Name: "cancellationReason", Type: "string", Required: false, Description: "Reason for cancellation"},
		},
	},
	{
		Name:        ActionGetProfile,
		Description: "Get the authenticated patient's profile information",
	},
}

// Catalog returns the capability catalog consumed by the prompt assembler,
// the dispatcher, and the /chat/tools endpoint.
func Catalog() []ActionSpec {
	return catalog
}

func lookupAction(name string) (ActionSpec, bool) {
	for _, spec := range catalog {
		if spec.Name == name {
			return spec, true
		}
	}
	return ActionSpec{}, false
}

// actionRequiresNoParams reports whether name is a known action whose schema
// has no required parameters.
func actionRequiresNoParams(name string) bool {
	spec, ok := lookupAction(name)
	if !ok {
		return false
	}
	for _, p := range spec.Params {
		if p.Required {
			return false
		}
	}
	return true
}
