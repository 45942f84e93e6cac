// Package handler is the serverless entry point for the image proxy.
//
// The platform invokes Handler for every request. The service and its cache
// are built on the first invocation and reused for as long as the platform
// keeps the instance warm; a cold start begins with an empty cache.
package handler

import (
	"log/slog"
	"net/http"
	"sync"

	imageproxyhandlers "Lightbox/internal/api/handlers/imageproxy"
	"Lightbox/internal/core/imageproxy"
)

// instance builds the handler once per process. No cleanup job runs here:
// frozen instances cannot tick, and expired entries already read as misses.
var instance = sync.OnceValues(func() (*imageproxyhandlers.Handler, error) {
	service, _, err := imageproxy.NewServiceFromConfig(imageproxy.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	return imageproxyhandlers.NewHandler(service), nil
})

// Handler serves GET requests carrying id and w query parameters.
func Handler(w http.ResponseWriter, r *http.Request) {
	serve(w, r, instance)
}

func serve(w http.ResponseWriter, r *http.Request, build func() (*imageproxyhandlers.Handler, error)) {
	h, err := build()
	if err != nil {
		slog.Error("[IMAGE-PROXY] failed to initialize image proxy", "error", err)
		imageproxyhandlers.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}
	h.HandleImage(w, r)
}
