// internal/app/features/users/handler.go
package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/eduplatform/campusgate/internal/app/features/shared/respond"
	profilestore "github.com/eduplatform/campusgate/internal/app/store/profiles"
	"github.com/eduplatform/campusgate/internal/app/system/auth"
	"github.com/eduplatform/campusgate/internal/app/system/htmlsanitize"
	"github.com/eduplatform/campusgate/internal/app/system/normalize"
	rolesys "github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/domain/models"
)

// ProfileStore is the slice of the profile store this feature needs.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (*models.Profile, error)
	GetMany(ctx context.Context, uids []string) (map[string]models.Profile, error)
	Upsert(ctx context.Context, uid string, upd profilestore.ProfileUpdate) (models.Profile, error)
	Delete(ctx context.Context, uid string) (int64, error)
}

// RecordDeleter removes a role record during account deletion.
type RecordDeleter interface {
	Delete(ctx context.Context, uid string) (int64, error)
}

// Handler serves the /users surface: the caller's derived view,
// profile reads and writes, admin-scoped listing, and account deletion.
type Handler struct {
	Engine     *rolesys.Engine
	Profiles   ProfileStore
	Records    RecordDeleter
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(engine *rolesys.Engine, profiles ProfileStore, records RecordDeleter, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Engine:     engine,
		Profiles:   profiles,
		Records:    records,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

// meResponse is the caller's derived view. Careers merges the record's
// admin careers with the legacy single-career profile field,
// deduplicated keeping first occurrence.
type meResponse struct {
	UID             string   `json:"uid"`
	Email           string   `json:"email,omitempty"`
	DisplayName     string   `json:"display_name,omitempty"`
	PhotoURL        string   `json:"photo_url,omitempty"`
	PhoneNumber     string   `json:"phone_number,omitempty"`
	Provider        string   `json:"provider,omitempty"`
	Roles           []string `json:"roles"`
	Role            string   `json:"role"`
	IsAdmin         bool     `json:"is_admin"`
	IsPlatformAdmin bool     `json:"is_platform_admin"`
	Careers         []string `json:"careers"`
}

type listItem struct {
	UID           string   `json:"uid"`
	Email         string   `json:"email,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	Roles         []string `json:"roles"`
	AdminCareers  []string `json:"admin_careers"`
	PlatformAdmin bool     `json:"platform_admin"`
}

// ServeMe handles GET /users/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	rec, err := h.Engine.GetRecordFor(r.Context(), su.UID, su.UID)
	if err != nil {
		h.Log.Error("load own role record failed", zap.String("uid", su.UID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return
	}

	resp := meResponse{
		UID:             su.UID,
		Roles:           rec.Roles,
		Role:            rec.EffectiveRole(),
		IsAdmin:         rec.IsAdmin(),
		IsPlatformAdmin: rec.PlatformAdmin,
		Careers:         rec.AdminCareers,
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if resp.Careers == nil {
		resp.Careers = []string{}
	}

	profile, err := h.Profiles.Get(r.Context(), su.UID)
	if err != nil {
		h.Log.Warn("load profile failed", zap.String("uid", su.UID), zap.Error(err))
	}
	if profile != nil {
		resp.Email = profile.Email
		resp.DisplayName = profile.DisplayName
		resp.PhotoURL = profile.PhotoURL
		resp.PhoneNumber = profile.PhoneNumber
		resp.Provider = profile.Provider
		resp.Careers = mergeLegacyCareer(resp.Careers, profile.Career)
	}

	respond.JSON(w, http.StatusOK, resp)
}

// ServeList handles GET /users. Visibility follows the caller's listing
// scope; plain students are denied.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	recs, err := h.Engine.VisibleRecords(r.Context(), su.UID)
	if err != nil {
		if errors.Is(err, rolesys.ErrForbidden) {
			respond.Error(w, http.StatusForbidden, "admin required")
			return
		}
		h.Log.Error("list role records failed", zap.String("uid", su.UID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return
	}

	uids := make([]string, 0, len(recs))
	for _, rec := range recs {
		uids = append(uids, rec.UID)
	}
	profiles, err := h.Profiles.GetMany(r.Context(), uids)
	if err != nil {
		h.Log.Warn("join profiles failed", zap.Error(err))
		profiles = map[string]models.Profile{}
	}

	items := make([]listItem, 0, len(recs))
	for _, rec := range recs {
		item := listItem{
			UID:           rec.UID,
			Roles:         rec.Roles,
			AdminCareers:  rec.AdminCareers,
			PlatformAdmin: rec.PlatformAdmin,
		}
		if item.Roles == nil {
			item.Roles = []string{}
		}
		if item.AdminCareers == nil {
			item.AdminCareers = []string{}
		}
		if p, ok := profiles[rec.UID]; ok {
			item.Email = p.Email
			item.DisplayName = p.DisplayName
		}
		items = append(items, item)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"users": items, "count": len(items)})
}

// ServeGetProfile handles GET /users/me/profile.
func (h *Handler) ServeGetProfile(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	profile, err := h.Profiles.Get(r.Context(), su.UID)
	if err != nil {
		h.Log.Error("load profile failed", zap.String("uid", su.UID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "profile store unavailable")
		return
	}
	if profile == nil {
		respond.Error(w, http.StatusNotFound, "no profile")
		return
	}
	respond.JSON(w, http.StatusOK, profile)
}

type profileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
	PhoneNumber *string `json:"phone_number"`
}

// ServeUpdateProfile handles POST /users/me/profile. Display fields are
// sanitized; absent fields are left untouched.
func (h *Handler) ServeUpdateProfile(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DisplayName == nil && req.PhotoURL == nil && req.PhoneNumber == nil {
		respond.Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	upd := profilestore.ProfileUpdate{
		PhotoURL:    req.PhotoURL,
		PhoneNumber: req.PhoneNumber,
	}
	if req.DisplayName != nil {
		name := normalize.Name(htmlsanitize.Strict(*req.DisplayName))
		upd.DisplayName = &name
	}

	profile, err := h.Profiles.Upsert(r.Context(), su.UID, upd)
	if err != nil {
		h.Log.Error("update profile failed", zap.String("uid", su.UID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "profile store unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, profile)
}

// ServeDelete handles DELETE /users/me. Cleanup is best-effort: a
// failed store delete is logged but the session is still terminated.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	if _, err := h.Profiles.Delete(r.Context(), su.UID); err != nil {
		h.Log.Warn("delete profile failed", zap.String("uid", su.UID), zap.Error(err))
	}
	if _, err := h.Records.Delete(r.Context(), su.UID); err != nil {
		h.Log.Warn("delete role record failed", zap.String("uid", su.UID), zap.Error(err))
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("sign-out during account delete failed", zap.String("uid", su.UID), zap.Error(err))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// mergeLegacyCareer appends the legacy profile career to the derived
// career list when it is not already present.
func mergeLegacyCareer(careers []string, legacy string) []string {
	code := normalize.CareerCode(legacy)
	if code == "" {
		return careers
	}
	for _, c := range careers {
		if c == code {
			return careers
		}
	}
	return append(careers, code)
}
