package imageproxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"Lightbox/internal/metrics"
)

// Candidate builds one source URL for an identifier.
type Candidate func(identifier string) string

// DefaultCandidates are the Drive endpoints that may serve a file, in the
// order they are tried.
var DefaultCandidates = []Candidate{
	// Direct download.
	func(id string) string {
		return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
	},
	// View form.
	func(id string) string {
		return "https://drive.google.com/uc?export=view&id=" + url.QueryEscape(id)
	},
	// Content host.
	func(id string) string {
		return "https://lh3.googleusercontent.com/d/" + url.PathEscape(id)
	},
	// Thumbnail, capped at 2400px wide by Drive.
	func(id string) string {
		return "https://drive.google.com/thumbnail?id=" + url.QueryEscape(id) + "&sz=w2400"
	},
}

// SourceResolver locates a working source for an identifier.
type SourceResolver interface {
	// Resolve returns the first usable candidate body, or an error wrapping
	// ErrSourceUnavailable when none was usable.
	Resolve(ctx context.Context, identifier string) (*SourceFetchResult, error)
}

// Attempt is the outcome of fetching one candidate: either Result or Err is set.
type Attempt struct {
	URL    string
	Result *SourceFetchResult
	Err    error
}

// OK reports whether the attempt produced a usable body.
func (a Attempt) OK() bool {
	return a.Err == nil && a.Result != nil
}

// Resolver tries candidates in order and stops at the first success.
type Resolver struct {
	fetcher    Fetcher
	candidates []Candidate
}

// NewResolver creates a Resolver over the given candidates.
// A nil or empty candidates list uses DefaultCandidates.
func NewResolver(fetcher Fetcher, candidates []Candidate) (*Resolver, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher", ErrNilDependency)
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Resolver{
		fetcher:    fetcher,
		candidates: candidates,
	}, nil
}

func (r *Resolver) attempt(ctx context.Context, u string) Attempt {
	result, err := r.fetcher.Fetch(ctx, u)
	if err == nil && result == nil {
		err = fmt.Errorf("%w: no body", ErrSourceFetchFailed)
	}
	return Attempt{URL: u, Result: result, Err: err}
}

// Resolve fetches candidates in order. Individual failures are logged and
// skipped; only exhaustion of the list is reported.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*SourceFetchResult, error) {
	var reasons []string

	for i, candidate := range r.candidates {
		if ctx.Err() != nil {
			reasons = append(reasons, ctx.Err().Error())
			break
		}

		label := strconv.Itoa(i)
		a := r.attempt(ctx, candidate(identifier))
		if a.OK() {
			metrics.RecordSourceAttempt(label, metrics.AttemptSuccess)
			if !isImageContentType(a.Result.ContentType) {
				slog.Debug("[IMAGE-PROXY] candidate returned non-image content type, decoding anyway",
					"identifier", identifier,
					"candidate", i,
					"content_type", a.Result.ContentType,
				)
			}
			return a.Result, nil
		}

		metrics.RecordSourceAttempt(label, metrics.AttemptFailure)
		slog.Debug("[IMAGE-PROXY] candidate source failed, trying next",
			"identifier", identifier,
			"candidate", i,
			"error", a.Err,
		)
		reasons = append(reasons, a.Err.Error())
	}

	return nil, fmt.Errorf("%w: %d candidates tried: %s",
		ErrSourceUnavailable, len(reasons), strings.Join(reasons, "; "))
}

func isImageContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "image") || strings.Contains(ct, "heic") || strings.Contains(ct, "heif")
}
