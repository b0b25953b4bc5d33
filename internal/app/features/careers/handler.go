// internal/app/features/careers/handler.go
package careers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/eduplatform/campusgate/internal/app/features/shared/respond"
	careerstore "github.com/eduplatform/campusgate/internal/app/store/careers"
	"github.com/eduplatform/campusgate/internal/app/system/auth"
	rolesys "github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/domain/models"
)

// Registry is the slice of the career store this feature needs.
type Registry interface {
	Ensure(ctx context.Context, code, name string) (models.Career, error)
	List(ctx context.Context) ([]models.Career, error)
}

// Handler serves the /careers surface: listing for admins, creation
// for platform admins.
type Handler struct {
	Engine   *rolesys.Engine
	Registry Registry
	Log      *zap.Logger
}

func NewHandler(engine *rolesys.Engine, registry Registry, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Registry: registry, Log: logger}
}

// ServeList handles GET /careers. Any admin may list; plain students
// are denied.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	scope, err := h.Engine.ListScope(r.Context(), su.UID)
	if err != nil {
		h.Log.Error("list scope lookup failed", zap.String("uid", su.UID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return
	}
	if !scope.CanList {
		respond.Error(w, http.StatusForbidden, "admin required")
		return
	}

	careers, err := h.Registry.List(r.Context())
	if err != nil {
		h.Log.Error("list careers failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "career store unavailable")
		return
	}
	if careers == nil {
		careers = []models.Career{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"careers": careers, "count": len(careers)})
}

type createRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ServeCreate handles POST /careers. Platform admins only; creation is
// idempotent on the canonical code.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign-in required")
		return
	}

	isPA, err := h.Engine.IsPlatformAdmin(r.Context(), su.UID)
	if err != nil {
		h.Log.Error("platform admin check failed", zap.String("uid", su.UID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return
	}
	if !isPA {
		respond.Error(w, http.StatusForbidden, "platform admin required")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	career, err := h.Registry.Ensure(r.Context(), req.Code, req.Name)
	if err != nil {
		if errors.Is(err, careerstore.ErrEmptyCode) {
			respond.Error(w, http.StatusBadRequest, "career code is required")
			return
		}
		h.Log.Error("create career failed", zap.String("code", req.Code), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "career store unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, career)
}
