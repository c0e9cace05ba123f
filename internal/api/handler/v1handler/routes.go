package v1handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes returns the router serving the welcome, health and /api endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/", h.Root)
	r.Get("/test", h.Test)

	r.Route("/api", func(r chi.Router) {
		r.Post("/caption", h.Caption)
		r.Post("/url", h.ExpandURL)
		r.Post("/qr", h.DecodeQR)
		r.Post("/mail", h.SendMail)
		r.Post("/contact", h.SendContact)
	})

	// paths used by older clients
	r.Post("/get-caption", h.Caption)
	r.Post("/expand-url", h.ExpandURL)
	r.Post("/decode-qr", h.DecodeQR)

	return r
}
