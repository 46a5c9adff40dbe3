package assistant

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/carebridge/patient-assistant/internal/http/middleware"
	"github.com/carebridge/patient-assistant/pkg/logging"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// Handler wires HTTP requests to the assistant pipeline.
type Handler struct {
	service *Service
	history *HistoryProjector
	store   Store
	logger  *logging.Logger
}

// NewHandler creates an assistant handler.
func NewHandler(service *Service, history *HistoryProjector, store Store, logger *logging.Logger) *Handler {
	if service == nil || history == nil || store == nil {
		panic("assistant: handler dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		history: history,
		store:   store,
		logger:  logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient identity", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	resp := h.service.HandleMessage(r.Context(), patientID, req.Message)
	h.writeJSON(w, http.StatusOK, resp)
}

// History handles GET /chat/history. Page 1 is the most recent slice; turns
// within a page are oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient identity", http.StatusUnauthorized)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageSize)

	turns, err := h.history.Project(r.Context(), patientID, page, limit)
	if err != nil {
		h.logger.Error("failed to load history", "patient_id", patientID, "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, turns)
}

// ClearHistory handles POST /chat/clear-history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient identity", http.StatusUnauthorized)
		return
	}

	if err := h.store.Clear(r.Context(), patientID); err != nil {
		h.logger.Error("failed to clear history", "patient_id", patientID, "error", err)
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Conversation history cleared",
	})
}

// Tools handles GET /chat/tools, reporting the capability catalog.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"persona": Persona,
		"actions": Catalog(),
	})
}

// Health handles GET /chat/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
