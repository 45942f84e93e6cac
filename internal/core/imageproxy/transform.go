package imageproxy

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Transform holds every parameter that affects the bytes of a response.
// Anything added here must also be added to Key, otherwise two different
// outputs would share a cache entry and an immutable URL.
type Transform struct {
	// Width is the target width in pixels. Sources narrower than Width are
	// not upscaled.
	Width int
	// Quality is the JPEG quality (1-100).
	Quality int
}

// NewTransform returns the transform applied to a request for the given width.
func NewTransform(width int) Transform {
	return Transform{Width: width, Quality: JPEGQuality}
}

// Validate checks that the transform has usable values.
func (t Transform) Validate() error {
	if t.Width <= 0 {
		return ErrInvalidTransform
	}
	if t.Quality < 1 || t.Quality > 100 {
		return ErrInvalidTransform
	}
	return nil
}

// Key derives the cache key for an identifier and transform.
// Equal inputs always produce equal keys; any differing field produces a
// different key.
func Key(identifier string, t Transform) string {
	h := sha256.New()
	// Length-prefix the identifier so no identifier can forge the suffix of another.
	h.Write([]byte(strconv.Itoa(len(identifier))))
	h.Write([]byte{':'})
	h.Write([]byte(identifier))
	h.Write([]byte("|w="))
	h.Write([]byte(strconv.Itoa(t.Width)))
	h.Write([]byte("|q="))
	h.Write([]byte(strconv.Itoa(t.Quality)))
	return hex.EncodeToString(h.Sum(nil))
}
