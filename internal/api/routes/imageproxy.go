package routes

import (
	"github.com/go-chi/chi/v5"

	imageproxyhandlers "Lightbox/internal/api/handlers/imageproxy"
)

// RegisterImageProxyRoutes registers image proxy endpoints on the router.
//
// Route: GET /image?id=<identifier>&w=<width>
//
// Parameters:
//   - id: opaque external file identifier (required)
//   - w: target width in pixels (optional, default 1600)
func RegisterImageProxyRoutes(r chi.Router, handler *imageproxyhandlers.Handler) {
	r.Get("/image", handler.HandleImage)
}
