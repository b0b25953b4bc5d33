// internal/app/features/roles/handler.go
package roles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eduplatform/campusgate/internal/app/features/shared/respond"
	"github.com/eduplatform/campusgate/internal/app/system/auth"
	rolesys "github.com/eduplatform/campusgate/internal/app/system/roles"
)

// Handler exposes role administration over HTTP. Every mutating route
// re-derives the caller's authority from the store through the engine;
// session claims only identify the caller.
type Handler struct {
	Engine *rolesys.Engine
	Log    *zap.Logger
}

func NewHandler(engine *rolesys.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

type careerGrantRequest struct {
	UID    string `json:"uid"`
	Career string `json:"career"`
}

type uidRequest struct {
	UID string `json:"uid"`
}

type platformAdminRequest struct {
	Enabled bool `json:"enabled"`
}

// ServeGet handles GET /roles/{uid}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	targetUID := chi.URLParam(r, "uid")
	if targetUID == "" {
		respond.Error(w, http.StatusBadRequest, "uid is required")
		return
	}

	rec, err := h.Engine.GetRecordFor(r.Context(), su.UID, targetUID)
	if err != nil {
		if errors.Is(err, rolesys.ErrForbidden) {
			respond.Error(w, http.StatusForbidden, "not authorized for this user")
			return
		}
		h.Log.Error("role lookup failed", zap.String("uid", targetUID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// ServeGrant handles POST /roles/grant.
func (h *Handler) ServeGrant(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	var req careerGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UID == "" {
		respond.Error(w, http.StatusBadRequest, "uid and career are required")
		return
	}

	rec, err := h.Engine.GrantCareerAdmin(r.Context(), su.UID, req.UID, req.Career)
	if err != nil {
		h.writeMutationError(w, err, "grant failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "record": rec})
}

// ServeRevoke handles POST /roles/revoke.
func (h *Handler) ServeRevoke(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	var req careerGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UID == "" {
		respond.Error(w, http.StatusBadRequest, "uid and career are required")
		return
	}

	rec, err := h.Engine.RevokeCareerAdmin(r.Context(), su.UID, req.UID, req.Career)
	if err != nil {
		h.writeMutationError(w, err, "revoke failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "record": rec})
}

// ServeRevokeAll handles POST /roles/revoke_all. Platform admins only.
func (h *Handler) ServeRevokeAll(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	if !h.requirePlatformAdmin(w, r, su.UID) {
		return
	}
	var req uidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UID == "" {
		respond.Error(w, http.StatusBadRequest, "uid is required")
		return
	}

	rec, err := h.Engine.RevokeAllCareers(r.Context(), req.UID)
	if err != nil {
		h.writeMutationError(w, err, "revoke_all failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "record": rec})
}

// ServeSetPlatformAdmin handles POST /roles/platform_admin/{uid}.
// Platform admins only.
func (h *Handler) ServeSetPlatformAdmin(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	if !h.requirePlatformAdmin(w, r, su.UID) {
		return
	}
	targetUID := chi.URLParam(r, "uid")
	if targetUID == "" {
		respond.Error(w, http.StatusBadRequest, "uid is required")
		return
	}
	var req platformAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Engine.SetPlatformAdmin(r.Context(), targetUID, req.Enabled)
	if err != nil {
		h.writeMutationError(w, err, "platform_admin update failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true, "record": rec})
}

func (h *Handler) requirePlatformAdmin(w http.ResponseWriter, r *http.Request, uid string) bool {
	isPA, err := h.Engine.IsPlatformAdmin(r.Context(), uid)
	if err != nil {
		h.Log.Error("platform admin check failed", zap.String("uid", uid), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return false
	}
	if !isPA {
		respond.Error(w, http.StatusForbidden, "platform admin required")
		return false
	}
	return true
}

func (h *Handler) writeMutationError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, rolesys.ErrEmptyCareerCode):
		respond.Error(w, http.StatusBadRequest, "career code is required")
	case errors.Is(err, rolesys.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "not authorized for this career")
	default:
		h.Log.Error(logMsg, zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
	}
}
