package web

import (
	"net/http"

	"github.com/justestif/movie-recommender/internal/validation"
)

const watchFieldsRequired = "userId and movieId are required"

type watchRequest struct {
	UserID  int `json:"userId" validate:"required"`
	MovieID int `json:"movieId" validate:"required"`
}

// userMovieIDs parses the {userId} and {movieId} path parameters.
func userMovieIDs(r *http.Request) (userID, movieID int, err error) {
	if userID, err = pathID(r, "userId"); err != nil {
		return 0, 0, err
	}
	if movieID, err = pathID(r, "movieId"); err != nil {
		return 0, 0, err
	}
	return userID, movieID, nil
}

// UserWatchHistory handles GET /api/watch-history/user/{userId}.
func (h *Handlers) UserWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	history, err := h.history.ForUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, history)
}

// AllWatchHistory handles GET /api/watch-history/all.
func (h *Handlers) AllWatchHistory(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.history.ViewerSummaries(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, summaries)
}

// RecordWatch handles POST /api/watch-history.
func (h *Handlers) RecordWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := validation.Struct(req, watchFieldsRequired); err != nil {
		h.fail(w, r, err, "")
		return
	}

	entry, err := h.history.Record(r.Context(), req.UserID, req.MovieID)
	if err != nil {
		h.fail(w, r, err, "User or movie not found")
		return
	}
	respondData(w, http.StatusCreated, entry)
}

// RemoveWatch handles DELETE /api/watch-history/{userId}/{movieId}.
func (h *Handlers) RemoveWatch(w http.ResponseWriter, r *http.Request) {
	userID, movieID, err := userMovieIDs(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	entry, err := h.history.Remove(r.Context(), userID, movieID)
	if err != nil {
		h.fail(w, r, err, "Watch history entry not found")
		return
	}
	respondData(w, http.StatusOK, entry)
}

// GenrePreferences handles GET /api/watch-history/user/{userId}/preferences.
func (h *Handlers) GenrePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	prefs, err := h.history.GenrePreferences(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, prefs)
}

// GenreTrends handles GET /api/watch-history/trends.
func (h *Handlers) GenreTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.history.GenreTrends(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, trends)
}

// CheckWatched handles GET /api/watch-history/check/{userId}/{movieId}.
func (h *Handlers) CheckWatched(w http.ResponseWriter, r *http.Request) {
	userID, movieID, err := userMovieIDs(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	watched, err := h.history.HasWatched(r.Context(), userID, movieID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"hasWatched": watched})
}
