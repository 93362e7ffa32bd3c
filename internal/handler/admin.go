package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aegisd/aegis/internal/middleware"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/repository"
)

// --- Security Event Log ---

// ListSecurityEvents returns recent security events, newest first
func (h *Handler) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	limit := int64(100)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.authSvc.ListSecurityEvents(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list security events")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list security events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// --- Account Administration ---

// UnlockAccount clears an identity's lockout and failure counter
func (h *Handler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	identityID := r.PathValue("id")

	err := h.authSvc.UnlockAccount(r.Context(), identityID, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Identity not found")
			return
		}
		h.log.Error().Err(err).Str("identity_id", identityID).Msg("failed to unlock account")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to unlock account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "account unlocked"})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetAccountActive activates or deactivates an identity
func (h *Handler) SetAccountActive(w http.ResponseWriter, r *http.Request) {
	identityID := r.PathValue("id")

	var req setActiveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	if err := h.authSvc.SetActive(r.Context(), identityID, req.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Identity not found")
			return
		}
		h.log.Error().Err(err).Str("identity_id", identityID).Msg("failed to update account status")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update account status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"active": req.Active})
}

// --- Role Permissions ---

type permissionRequest struct {
	Permission string `json:"permission"`
}

// GrantPermission adds a permission to a role
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	role := model.Role(r.PathValue("role"))

	var req permissionRequest
	if err := readJSON(r, &req); err != nil || req.Permission == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Permission is required")
		return
	}

	if err := h.authzSvc.Grant(r.Context(), role, req.Permission); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "permission granted"})
}

// RevokePermission removes a permission from a role
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	role := model.Role(r.PathValue("role"))

	var req permissionRequest
	if err := readJSON(r, &req); err != nil || req.Permission == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Permission is required")
		return
	}

	if err := h.authzSvc.Revoke(r.Context(), role, req.Permission); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "permission revoked"})
}

// ListPermissions returns a role's current permission set
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	role := model.Role(r.PathValue("role"))
	if _, ok := model.ParseRole(string(role)); !ok {
		writeError(w, http.StatusNotFound, "not_found", "Unknown role")
		return
	}

	permissions, err := h.authzSvc.Permissions(r.Context(), role)
	if err != nil {
		h.log.Error().Err(err).Str("role", string(role)).Msg("failed to list permissions")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list permissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":        role,
		"permissions": permissions,
	})
}

// --- Known-bad Origins ---

type badIPRequest struct {
	IPAddress string `json:"ipAddress"`
}

// AddBadIP marks an origin IP as known-bad
func (h *Handler) AddBadIP(w http.ResponseWriter, r *http.Request) {
	var req badIPRequest
	if err := readJSON(r, &req); err != nil || req.IPAddress == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "IP address is required")
		return
	}

	if err := h.monitorSvc.AddBadIP(r.Context(), req.IPAddress); err != nil {
		h.log.Error().Err(err).Str("ip", req.IPAddress).Msg("failed to add bad IP")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to add bad IP")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "IP marked as bad"})
}

// RemoveBadIP clears a known-bad origin IP
func (h *Handler) RemoveBadIP(w http.ResponseWriter, r *http.Request) {
	var req badIPRequest
	if err := readJSON(r, &req); err != nil || req.IPAddress == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "IP address is required")
		return
	}

	if err := h.monitorSvc.RemoveBadIP(r.Context(), req.IPAddress); err != nil {
		h.log.Error().Err(err).Str("ip", req.IPAddress).Msg("failed to remove bad IP")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to remove bad IP")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "IP cleared"})
}
