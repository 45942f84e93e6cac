package imageproxy

import (
	"net/url"
	"strconv"
	"strings"
)

// TransformRequest is the parsed form of one inbound image request.
type TransformRequest struct {
	// Identifier is the opaque external file reference.
	Identifier string
	// Width is the requested width, already defaulted to DefaultWidth.
	Width int
}

// ParseRequest extracts the identifier and width from a request.
//
// The parsed query is consulted first. When a value is absent there, the
// query component of rawURL is parsed instead; rawURL may be a full URL or a
// request URI such as "/api/image?id=abc". A missing, non-numeric, or
// non-positive width falls back to DefaultWidth.
//
// Returns ErrMissingParameter when no identifier is found in either place.
func ParseRequest(query url.Values, rawURL string) (TransformRequest, error) {
	var fallback url.Values
	lookup := func(name string) string {
		if v := strings.TrimSpace(query.Get(name)); v != "" {
			return v
		}
		if fallback == nil {
			fallback = queryFromURL(rawURL)
		}
		return strings.TrimSpace(fallback.Get(name))
	}

	id := lookup("id")
	if id == "" {
		return TransformRequest{}, ErrMissingParameter
	}

	return TransformRequest{
		Identifier: id,
		Width:      parseWidth(lookup("w")),
	}, nil
}

// queryFromURL returns the query values of rawURL, or empty values if it
// cannot be parsed.
func queryFromURL(rawURL string) url.Values {
	if rawURL == "" {
		return url.Values{}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return url.Values{}
	}
	// ParseQuery keeps the pairs it could parse alongside the error.
	values, _ := url.ParseQuery(u.RawQuery)
	return values
}

func parseWidth(v string) int {
	if v == "" {
		return DefaultWidth
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return DefaultWidth
	}
	return n
}
