package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/formguard/formguard/internal/core"
	"github.com/formguard/formguard/internal/core/gatekeeper"
	apperrors "github.com/formguard/formguard/internal/errors"
	"github.com/formguard/formguard/internal/form"
)

// DefaultClientIDHeader names the header that identifies a client to the ledger.
const DefaultClientIDHeader = "X-Client-ID"

const maxContactBodyBytes = 64 << 10

// ContactHandler serves the contact form API.
type ContactHandler struct {
	Registry       *form.Registry
	ClientIDHeader string
}

// NewContactHandler returns a handler over registry.
func NewContactHandler(registry *form.Registry, clientIDHeader string) *ContactHandler {
	if clientIDHeader == "" {
		clientIDHeader = DefaultClientIDHeader
	}
	return &ContactHandler{Registry: registry, ClientIDHeader: clientIDHeader}
}

// Routes mounts the contact endpoints on r.
func (h *ContactHandler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Delete("/sessions/{id}", h.DeleteSession)
	r.Post("/sessions/{id}/submit", h.SubmitSession)
	r.Post("/screen", h.Screen)
}

// SessionCreated is returned when a form is opened.
type SessionCreated struct {
	SessionID string    `json:"session_id"`
	OpenedAt  time.Time `json:"opened_at"`
	DecoyA    string    `json:"decoy_a"`
	DecoyB    string    `json:"decoy_b"`
}

// ScreenResponse is returned by the screen endpoint.
type ScreenResponse struct {
	Clean  bool              `json:"clean"`
	Report gatekeeper.Report `json:"report"`
}

// CreateSession opens a form and latches its open time.
func (h *ContactHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Registry.Open(h.clientKey(r))
	if err != nil {
		if errors.Is(err, form.ErrTooManySessions) {
			respondWithError(w, r, apperrors.NewUnavailableError("Too many open forms, try again later"))
			return
		}
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to open form"))
		return
	}

	state := session.State()
	writeJSON(w, http.StatusCreated, SessionCreated{
		SessionID: state.ID,
		OpenedAt:  state.OpenedAt,
		DecoyA:    state.Fields.DecoyA,
		DecoyB:    state.Fields.DecoyB,
	})
}

// GetSession returns the current state of a form.
func (h *ContactHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

// DeleteSession closes a form.
func (h *ContactHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.Registry.Remove(chi.URLParam(r, "id")) {
		respondWithError(w, r, apperrors.NewNotFoundError("Form session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitSession replaces the form fields with the request body and submits.
func (h *ContactHandler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var fields form.Fields
	if !decodeBody(w, r, &fields) {
		return
	}

	outcome, err := session.SubmitFields(r.Context(), fields)
	if err != nil {
		if errors.Is(err, form.ErrBusy) {
			respondWithError(w, r, apperrors.NewConflictError("A submission is already in progress"))
			return
		}
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to submit form"))
		return
	}

	switch {
	case outcome.Status == form.StatusSuccess:
		writeJSON(w, http.StatusOK, outcome)
	case outcome.RelayError != nil:
		respondWithError(w, r, apperrors.NewExternalServiceError(outcome.Message))
	case outcome.Stage == core.StageRateLimit:
		respondWithError(w, r, apperrors.NewRateLimitedError(outcome.Message))
	default:
		respondWithError(w, r, apperrors.NewSpamRejectedError(outcome.Message, visibleStage(outcome.Stage)))
	}
}

// Screen reports which rules the fields trip without touching any ledger.
func (h *ContactHandler) Screen(w http.ResponseWriter, r *http.Request) {
	var fields form.Fields
	if !decodeBody(w, r, &fields) {
		return
	}

	report := gatekeeper.Screen(core.SubmissionAttempt{
		Name:    fields.Name,
		Email:   fields.Email,
		Phone:   fields.Phone,
		Message: fields.Message,
	})
	writeJSON(w, http.StatusOK, ScreenResponse{Clean: report.Clean(), Report: report})
}

func (h *ContactHandler) session(w http.ResponseWriter, r *http.Request) (*form.Session, bool) {
	session, ok := h.Registry.Get(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("Form session not found"))
		return nil, false
	}
	return session, true
}

// clientKey prefers the configured header and falls back to the remote IP.
func (h *ContactHandler) clientKey(r *http.Request) string {
	if value := strings.TrimSpace(r.Header.Get(h.ClientIDHeader)); value != "" {
		return value
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// visibleStage hides the bot-trap stages from callers.
func visibleStage(stage core.Stage) string {
	switch stage {
	case core.StageHoneypot, core.StageDecoy:
		return ""
	default:
		return string(stage)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxContactBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be a JSON object"))
		return false
	}
	return true
}

// respondWithError writes err as the standard error envelope.
var respondWithError = apperrors.RespondWithError

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
