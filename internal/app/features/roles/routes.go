// internal/app/features/roles/routes.go
package roles

import "github.com/go-chi/chi/v5"

// Routes returns the /roles subrouter. The caller mounts it behind the
// signed-in middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{uid}", h.ServeGet)
	r.Post("/grant", h.ServeGrant)
	r.Post("/revoke", h.ServeRevoke)
	r.Post("/revoke_all", h.ServeRevokeAll)
	r.Post("/platform_admin/{uid}", h.ServeSetPlatformAdmin)
	return r
}
