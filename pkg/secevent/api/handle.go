package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/polisafe/authsec/pkg/secevent"
)

// Handle exposes the event log over HTTP: the fire-and-forget record
// endpoints used by the login flow and the paginated query surface for the
// administrative dashboard.
type Handle struct {
	eventService *secevent.EventService
}

// NewHandle creates a new Handle.
func NewHandle(eventService *secevent.EventService) *Handle {
	return &Handle{eventService: eventService}
}

// RecordHandler returns an http.Handler for the fire-and-forget record
// endpoints called by the login flow.
func RecordHandler(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Post("/authentication-events", h.PostAuthenticationEvent)
	r.Post("/security-events", h.PostSecurityEvent)

	return r
}

// QueryHandler returns an http.Handler for the administrative dashboard
// query surface.
func QueryHandler(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Get("/authentication-events", h.ListAuthenticationEvents)
	r.Get("/security-events", h.ListSecurityEvents)

	return r
}

type (
	authEventRequest struct {
		EventType        string `json:"event_type"`
		PrincipalID      string `json:"principal_id,omitempty"`
		Email            string `json:"email"`
		Role             string `json:"role"`
		IPAddress        string `json:"ip_address"`
		UserAgent        string `json:"user_agent"`
		Success          bool   `json:"success"`
		FailureReason    string `json:"failure_reason,omitempty"`
		TwoFactorEnabled bool   `json:"two_factor_enabled"`
	}

	securityEventRequest struct {
		EventType   string         `json:"event_type"`
		Severity    string         `json:"severity"`
		Description string         `json:"description"`
		IPAddress   string         `json:"ip_address"`
		UserAgent   string         `json:"user_agent"`
		PrincipalID string         `json:"principal_id,omitempty"`
		Route       string         `json:"route"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}

	listResponse[T any] struct {
		Events []T   `json:"events"`
		Total  int64 `json:"total"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

// PostAuthenticationEvent records a raw login-flow observation. Called on
// every attempt regardless of outcome; always answers 202.
// (POST /authentication-events)
func (h *Handle) PostAuthenticationEvent(w http.ResponseWriter, r *http.Request) {
	var data authEventRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	event := secevent.AuthenticationEvent{
		EventType:        data.EventType,
		Email:            data.Email,
		Role:             data.Role,
		IPAddress:        data.IPAddress,
		UserAgent:        data.UserAgent,
		Success:          data.Success,
		FailureReason:    data.FailureReason,
		TwoFactorEnabled: data.TwoFactorEnabled,
	}
	if data.PrincipalID != "" {
		principalID, err := uuid.Parse(data.PrincipalID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid principal id")
			return
		}
		event.PrincipalID = principalID
		event.PrincipalIDValid = true
	}

	h.eventService.RecordAuthenticationEvent(r.Context(), event)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"accepted": true})
}

// PostSecurityEvent records a manually reported security event.
// (POST /security-events)
func (h *Handle) PostSecurityEvent(w http.ResponseWriter, r *http.Request) {
	var data securityEventRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}
	if data.EventType == "" {
		writeError(w, r, http.StatusBadRequest, "event_type is required")
		return
	}

	severity := secevent.Severity(data.Severity)
	if severity.Rank() < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid severity")
		return
	}

	event := secevent.SecurityEvent{
		EventType:   data.EventType,
		Severity:    severity,
		Description: data.Description,
		IPAddress:   data.IPAddress,
		UserAgent:   data.UserAgent,
		Route:       data.Route,
		Metadata:    data.Metadata,
	}
	if data.PrincipalID != "" {
		principalID, err := uuid.Parse(data.PrincipalID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid principal id")
			return
		}
		event.PrincipalID = principalID
		event.PrincipalIDValid = true
	}

	h.eventService.RecordSecurityEvent(r.Context(), event)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"accepted": true})
}

// ListSecurityEvents pages through security events for the dashboard.
// (GET /security-events)
func (h *Handle) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	filter := secevent.SecurityEventFilter{
		EventType:   r.URL.Query().Get("event_type"),
		MinSeverity: secevent.Severity(r.URL.Query().Get("min_severity")),
	}
	if ok := parsePrincipal(r, &filter.PrincipalID, &filter.PrincipalIDValid); !ok {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}
	var ok bool
	if filter.From, filter.To, ok = parseTimeRange(r); !ok {
		writeError(w, r, http.StatusBadRequest, "invalid time range")
		return
	}

	events, total, err := h.eventService.ListSecurityEvents(r.Context(), filter, parsePage(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list security events")
		return
	}

	render.JSON(w, r, listResponse[secevent.SecurityEvent]{Events: events, Total: total})
}

// ListAuthenticationEvents pages through raw authentication events.
// (GET /authentication-events)
func (h *Handle) ListAuthenticationEvents(w http.ResponseWriter, r *http.Request) {
	filter := secevent.AuthEventFilter{
		EventType: r.URL.Query().Get("event_type"),
		IPAddress: r.URL.Query().Get("ip_address"),
	}
	if ok := parsePrincipal(r, &filter.PrincipalID, &filter.PrincipalIDValid); !ok {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}
	var ok bool
	if filter.From, filter.To, ok = parseTimeRange(r); !ok {
		writeError(w, r, http.StatusBadRequest, "invalid time range")
		return
	}

	events, total, err := h.eventService.ListAuthenticationEvents(r.Context(), filter, parsePage(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list authentication events")
		return
	}

	render.JSON(w, r, listResponse[secevent.AuthenticationEvent]{Events: events, Total: total})
}

func parsePage(r *http.Request) secevent.PageParams {
	page := secevent.PageParams{Limit: 20}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		page.Limit = int32(limit)
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		page.Offset = int32(offset)
	}
	return page
}

func parsePrincipal(r *http.Request, id *uuid.UUID, valid *bool) bool {
	raw := r.URL.Query().Get("principal_id")
	if raw == "" {
		return true
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return false
	}
	*id = parsed
	*valid = true
	return true
}

func parseTimeRange(r *http.Request) (from, to time.Time, ok bool) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: message})
}
