// internal/app/features/users/routes.go
package users

import "github.com/go-chi/chi/v5"

// Routes returns the /users subrouter. The caller mounts it behind the
// signed-in middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/me", h.ServeMe)
	r.Delete("/me", h.ServeDelete)
	r.Get("/me/profile", h.ServeGetProfile)
	r.Post("/me/profile", h.ServeUpdateProfile)
	return r
}
