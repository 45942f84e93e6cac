package imageproxy

import "errors"

var (
	// ErrMissingParameter is returned when a request carries no identifier.
	ErrMissingParameter = errors.New("missing id param")

	// ErrSourceUnavailable is returned when every candidate source failed.
	ErrSourceUnavailable = errors.New("failed to fetch file from source")

	// ErrSourceFetchFailed is returned by a fetcher for a single failed candidate.
	ErrSourceFetchFailed = errors.New("source fetch failed")

	// ErrImageTooLarge is returned when a source body exceeds the maximum allowed size.
	ErrImageTooLarge = errors.New("source image exceeds size limit")

	// ErrDecodeFailed is returned when fetched bytes are not a supported image.
	ErrDecodeFailed = errors.New("failed to decode image")

	// ErrTranscodeFailed is returned when a decoded image cannot be re-encoded.
	ErrTranscodeFailed = errors.New("failed to transcode image")

	// ErrInvalidTransform is returned when transform parameters are out of range.
	ErrInvalidTransform = errors.New("invalid transform parameters")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)
