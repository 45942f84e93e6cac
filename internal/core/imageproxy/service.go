// Package imageproxy fetches images by external file identifier, normalizes
// them to JPEG, and memoizes the result.
//
// The package implements a forward-only pipeline:
//   - ParseRequest: extracts identifier and width from a request
//   - Cache: bounded in-memory store keyed by Key(identifier, Transform)
//   - Resolver: tries candidate source URLs until one returns a body
//   - Transcoder: decodes, auto-orients, resizes down, and encodes JPEG
//
// Service ties the stages together. Concurrent misses for the same key are
// not coalesced; each computes and stores the same bytes.
package imageproxy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Lightbox/internal/metrics"
)

// Service defines the interface for the image proxy service.
type Service interface {
	// GetImage returns the JPEG bytes for req, from cache when possible.
	GetImage(ctx context.Context, req TransformRequest) ([]byte, error)
}

// ImageProxyService implements the Service interface and orchestrates
// caching, resolving, and transcoding of images.
type ImageProxyService struct {
	cache      Cache
	resolver   SourceResolver
	transcoder Transcoder
}

// NewService creates a new ImageProxyService with the provided dependencies.
// Returns an error if any required dependency is nil.
func NewService(cache Cache, resolver SourceResolver, transcoder Transcoder) (*ImageProxyService, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: cache", ErrNilDependency)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: resolver", ErrNilDependency)
	}
	if transcoder == nil {
		return nil, fmt.Errorf("%w: transcoder", ErrNilDependency)
	}

	return &ImageProxyService{
		cache:      cache,
		resolver:   resolver,
		transcoder: transcoder,
	}, nil
}

// NewServiceFromConfig builds the production pipeline: a MemoryCache sized by
// cfg, an HTTPFetcher over DefaultCandidates, and the imaging transcoder.
// The cache is returned so callers can run its cleanup job.
func NewServiceFromConfig(cfg Config) (*ImageProxyService, *MemoryCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	cache, err := NewMemoryCache(cfg.CacheMaxEntries, CacheTTL)
	if err != nil {
		return nil, nil, err
	}

	resolver, err := NewResolver(NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxSourceSizeMB), DefaultCandidates)
	if err != nil {
		return nil, nil, err
	}

	svc, err := NewService(cache, resolver, NewTranscoder())
	if err != nil {
		return nil, nil, err
	}
	return svc, cache, nil
}

// GetImage runs the pipeline for req:
//  1. Derive the cache key from (identifier, transform)
//  2. Return the cached payload on a hit
//  3. Resolve a source body from the candidate list
//  4. Transcode it
//  5. Store the result (only successful transcodes are stored)
func (s *ImageProxyService) GetImage(ctx context.Context, req TransformRequest) ([]byte, error) {
	if req.Identifier == "" {
		return nil, ErrMissingParameter
	}

	transform := NewTransform(req.Width)
	key := Key(req.Identifier, transform)

	if cached, found := s.cache.Get(key); found {
		slog.Debug("[IMAGE-PROXY] cache hit",
			"identifier", req.Identifier,
			"width", transform.Width,
		)
		return cached, nil
	}

	source, err := s.resolver.Resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := s.transcoder.Transcode(source.Data, transform)
	if err != nil {
		return nil, fmt.Errorf("transcode %s: %w", source.URL, err)
	}
	metrics.RecordTranscode(time.Since(start).Seconds())

	s.cache.Set(key, out)
	slog.Debug("[IMAGE-PROXY] cached transcoded image",
		"identifier", req.Identifier,
		"width", transform.Width,
		"source", source.URL,
		"size_bytes", len(out),
	)

	return out, nil
}
