package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/justestif/movie-recommender/internal/auth"
	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/logging"
	"github.com/justestif/movie-recommender/internal/validation"
)

// envelope is the body of every API response except health.
type envelope struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Count    *int   `json:"count,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
	Offset   *int   `json:"offset,omitempty"`
	HasMore  *bool  `json:"hasMore,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// pageInfo carries pagination fields for paged list responses.
type pageInfo struct {
	limit, offset int
	hasMore       bool
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("marshaling response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("writing response")
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondList[T any](w http.ResponseWriter, items []T) {
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

func respondPage[T any](w http.ResponseWriter, items []T, p pageInfo, strategy string) {
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{
		Success:  true,
		Data:     items,
		Count:    &n,
		Limit:    &p.limit,
		Offset:   &p.offset,
		HasMore:  &p.hasMore,
		Strategy: strategy,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

// fail maps err onto a status code and writes the error envelope. notFound is
// the message used for db.ErrNotFound.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, db.ErrNotFound):
		if notFound == "" {
			notFound = "Not found"
		}
		respondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, db.ErrConflict):
		respondError(w, http.StatusConflict, "Resource already exists")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message := "Internal server error"
		if h.exposeErrors {
			message = err.Error()
		}
		respondError(w, http.StatusInternalServerError, message)
	}
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return validation.New("body", "Invalid JSON body")
	}
	return nil
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, "Route not found")
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusTooManyRequests, "Too many login attempts, please try again later")
}
