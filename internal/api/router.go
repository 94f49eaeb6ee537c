package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Project lifecycle.
	r.Post("/project", h.OpenProject)
	r.Get("/status", h.Status)
	r.Get("/performance", h.Performance)

	// Catalog queries.
	r.Get("/photos", h.ListPhotos)

	// Sidecar annotations.
	r.Get("/sidecar/*", h.GetSidecar)
	r.Put("/sidecar/*", h.UpdateSidecar)
	r.Post("/labels/*", h.AddLabel)

	// Thumbnails.
	r.Get("/thumbnail/*", h.Thumbnail)
	r.Post("/thumbnails/prefetch", h.Prefetch)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
