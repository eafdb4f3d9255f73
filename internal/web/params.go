package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/movie-recommender/internal/validation"
)

// pathID parses an integer path parameter.
func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.New(name, "Invalid "+name+": must be an integer")
	}
	return id, nil
}

// queryLimit reads a positive integer query parameter. Missing, malformed and
// non-positive values fall back to def; values above maxLimit are capped.
func queryLimit(r *http.Request, name string, def, maxLimit int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	if maxLimit > 0 && n > maxLimit {
		return maxLimit
	}
	return n
}

// queryOffset reads a non-negative offset, defaulting to 0.
func queryOffset(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// urlParam returns a path parameter with percent-escapes decoded. chi routes
// on RawPath when the request has one, so only then is the value still escaped.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
