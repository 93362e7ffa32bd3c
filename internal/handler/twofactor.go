package handler

import (
	"errors"
	"net/http"

	"github.com/aegisd/aegis/internal/middleware"
	"github.com/aegisd/aegis/internal/repository"
)

// EnrollTwoFactor generates a TOTP secret for the authenticated identity
// and returns the provisioning URL. The plaintext secret is shown once
// here and stored only encrypted.
func (h *Handler) EnrollTwoFactor(w http.ResponseWriter, r *http.Request) {
	identityID := middleware.GetIdentityID(r.Context())
	if identityID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	secret, otpauthURL, err := h.authSvc.EnrollTwoFactor(r.Context(), identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Identity not found")
			return
		}
		h.log.Error().Err(err).Str("identity_id", identityID).Msg("two-factor enrollment failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Two-factor enrollment failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":     secret,
		"otpauthUrl": otpauthURL,
	})
}

// DisableTwoFactor removes the authenticated identity's TOTP secret
func (h *Handler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	identityID := middleware.GetIdentityID(r.Context())
	if identityID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.authSvc.DisableTwoFactor(r.Context(), identityID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Identity not found")
			return
		}
		h.log.Error().Err(err).Str("identity_id", identityID).Msg("failed to disable two-factor")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to disable two-factor")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "two-factor disabled"})
}
