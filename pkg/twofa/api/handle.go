package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/polisafe/authsec/pkg/twofa"
)

// Handle exposes the two-factor lifecycle over HTTP.
type Handle struct {
	twoFaService twofa.TwoFactorService

	// exposeEnrollmentState controls whether /verify distinguishes
	// "not_configured" from "invalid". Leaving the distinction off prevents
	// account enumeration at the cost of UX; integrators opt in explicitly.
	exposeEnrollmentState bool
}

// NewHandle creates a new Handle.
func NewHandle(twoFaService twofa.TwoFactorService, exposeEnrollmentState bool) *Handle {
	return &Handle{
		twoFaService:          twoFaService,
		exposeEnrollmentState: exposeEnrollmentState,
	}
}

// TwoFaHandler returns an http.Handler for the twofa API.
func TwoFaHandler(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Post("/setup", h.PostSetup)
	r.Post("/setup/confirm", h.PostSetupConfirm)
	r.Post("/verify", h.PostVerify)
	r.Post("/disable", h.PostDisable)
	r.Get("/status/{principalId}", h.GetStatus)
	r.Post("/backup-codes", h.PostBackupCodes)

	return r
}

type (
	setupRequest struct {
		PrincipalID string `json:"principal_id"`
		Label       string `json:"label"`
	}

	codeRequest struct {
		PrincipalID string `json:"principal_id"`
		Code        string `json:"code"`
	}

	principalRequest struct {
		PrincipalID string `json:"principal_id"`
	}

	verifyResponse struct {
		OK     bool   `json:"ok"`
		Reason string `json:"reason,omitempty"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

// PostSetup begins (or restarts) 2FA enrollment.
// (POST /setup)
func (h *Handle) PostSetup(w http.ResponseWriter, r *http.Request) {
	var data setupRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	principalID, err := uuid.Parse(data.PrincipalID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}

	result, err := h.twoFaService.BeginSetup(r.Context(), principalID, data.Label)
	if err != nil {
		if errors.Is(err, twofa.ErrPreconditionFailed) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to begin 2FA setup")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// PostSetupConfirm verifies the first passcode and enables 2FA.
// (POST /setup/confirm)
func (h *Handle) PostSetupConfirm(w http.ResponseWriter, r *http.Request) {
	var data codeRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	principalID, err := uuid.Parse(data.PrincipalID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}

	err = h.twoFaService.ConfirmSetup(r.Context(), principalID, data.Code)
	switch {
	case err == nil:
		render.JSON(w, r, map[string]bool{"enabled": true})
	case errors.Is(err, twofa.ErrMalformedCode), errors.Is(err, twofa.ErrInvalidCode):
		writeError(w, r, http.StatusUnprocessableEntity, "invalid code")
	case errors.Is(err, twofa.ErrNotConfigured), errors.Is(err, twofa.ErrPreconditionFailed):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "failed to confirm 2FA setup")
	}
}

// PostVerify checks a TOTP or backup code during login. The response body is
// a generic "invalid code" unless enrollment-state exposure is enabled.
// (POST /verify)
func (h *Handle) PostVerify(w http.ResponseWriter, r *http.Request) {
	var data codeRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	principalID, err := uuid.Parse(data.PrincipalID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}

	result, err := h.twoFaService.Authenticate(r.Context(), principalID, data.Code)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to verify code")
		return
	}

	if result == twofa.AuthOK {
		render.JSON(w, r, verifyResponse{OK: true})
		return
	}

	reason := string(twofa.AuthInvalidCode)
	if h.exposeEnrollmentState {
		reason = string(result)
	}
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, verifyResponse{OK: false, Reason: reason})
}

// PostDisable turns 2FA off for a principal.
// (POST /disable)
func (h *Handle) PostDisable(w http.ResponseWriter, r *http.Request) {
	var data principalRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	principalID, err := uuid.Parse(data.PrincipalID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}

	err = h.twoFaService.Disable(r.Context(), principalID)
	if err != nil && !errors.Is(err, twofa.ErrNotConfigured) {
		writeError(w, r, http.StatusInternalServerError, "failed to disable 2FA")
		return
	}

	render.JSON(w, r, map[string]bool{"ok": true})
}

// GetStatus reports the 2FA state of a principal.
// (GET /status/{principalId})
func (h *Handle) GetStatus(w http.ResponseWriter, r *http.Request) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principalId"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}

	status, err := h.twoFaService.GetStatus(r.Context(), principalID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to get 2FA status")
		return
	}

	render.JSON(w, r, status)
}

// PostBackupCodes regenerates the recovery-code set.
// (POST /backup-codes)
func (h *Handle) PostBackupCodes(w http.ResponseWriter, r *http.Request) {
	var data principalRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	principalID, err := uuid.Parse(data.PrincipalID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid principal id")
		return
	}

	codes, err := h.twoFaService.RegenerateBackupCodes(r.Context(), principalID)
	if err != nil {
		if errors.Is(err, twofa.ErrNotConfigured) {
			writeError(w, r, http.StatusNotFound, "2FA not configured")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to regenerate backup codes")
		return
	}

	render.JSON(w, r, map[string][]string{"codes": codes})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: message})
}
