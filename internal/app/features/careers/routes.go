// internal/app/features/careers/routes.go
package careers

import "github.com/go-chi/chi/v5"

// Routes returns the /careers subrouter. The caller mounts it behind
// the signed-in middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	return r
}
