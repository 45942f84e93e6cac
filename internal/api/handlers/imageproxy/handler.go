// Package imageproxy provides HTTP handlers for the image proxy service.
package imageproxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"Lightbox/internal/core/imageproxy"
	"Lightbox/internal/metrics"
)

// Service defines the interface for the image proxy service.
// This interface is implemented by the imageproxy package's service layer.
type Service interface {
	// GetImage returns JPEG bytes for the parsed request.
	GetImage(ctx context.Context, req imageproxy.TransformRequest) ([]byte, error)
}

// Handler handles HTTP requests for the image proxy.
type Handler struct {
	service Service
}

// NewHandler creates a new image proxy handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleImage handles GET /image?id=<identifier>&w=<width>
// It returns the transcoded JPEG with long-lived immutable caching headers.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	headerWritten := false
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[IMAGE-PROXY] panic while handling image request",
				"panic", rec,
				"uri", r.RequestURI,
				"header_written", headerWritten,
			)
			// Once the image status is out, an error body would corrupt it.
			if !headerWritten {
				writeErrorResponse(w, http.StatusInternalServerError, "Server error")
			}
		}
	}()

	req, err := imageproxy.ParseRequest(r.URL.Query(), r.RequestURI)
	if err != nil {
		handleServiceError(w, "", err)
		return
	}

	imageData, err := h.service.GetImage(r.Context(), req)
	if err != nil {
		handleServiceError(w, req.Identifier, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Content-Length", strconv.Itoa(len(imageData)))

	w.WriteHeader(http.StatusOK)
	headerWritten = true
	metrics.RecordResponse(strconv.Itoa(http.StatusOK))
	if _, err := w.Write(imageData); err != nil {
		slog.Warn("[IMAGE-PROXY] failed to write image response",
			"identifier", req.Identifier,
			"width", req.Width,
			"error", err,
		)
	}
}

// handleServiceError converts service errors to appropriate HTTP responses.
// Bodies name the failure category only; details go to the server log.
func handleServiceError(w http.ResponseWriter, identifier string, err error) {
	switch {
	case errors.Is(err, imageproxy.ErrMissingParameter):
		writeErrorResponse(w, http.StatusBadRequest, "Missing id param")
	case errors.Is(err, imageproxy.ErrSourceUnavailable):
		slog.Warn("[IMAGE-PROXY] all candidate sources failed",
			"identifier", identifier,
			"error", err,
		)
		writeErrorResponse(w, http.StatusBadGateway, "Failed to fetch file from source")
	case errors.Is(err, imageproxy.ErrDecodeFailed), errors.Is(err, imageproxy.ErrTranscodeFailed):
		slog.Error("[IMAGE-PROXY] image conversion failed",
			"identifier", identifier,
			"error", err,
		)
		writeErrorResponse(w, http.StatusInternalServerError, "Conversion error")
	default:
		slog.Error("[IMAGE-PROXY] unhandled service error",
			"identifier", identifier,
			"error", err,
		)
		writeErrorResponse(w, http.StatusInternalServerError, "Server error")
	}
}

// WriteError writes a plain text error response for callers outside this
// package that fail before a Handler exists.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeErrorResponse(w, status, message)
}

// writeErrorResponse writes a plain text error response.
// For the image proxy, we use simple text responses rather than JSON
// since the expected response is binary image data.
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	metrics.RecordResponse(strconv.Itoa(status))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(message)); err != nil {
		slog.Warn("[IMAGE-PROXY] failed to write error response",
			"status", status,
			"message", message,
			"error", err,
		)
	}
}
