package web

import (
	"errors"
	"net/http"

	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/validation"
)

type ratingRequest struct {
	UserID  int      `json:"userId" validate:"required"`
	MovieID int      `json:"movieId" validate:"required"`
	Rating  *float64 `json:"rating" validate:"required"`
}

type ratingResponse struct {
	UserID  int      `json:"userId"`
	MovieID int      `json:"movieId"`
	Rating  *float64 `json:"rating"`
}

// GetRating handles GET /api/ratings/user/{userId}/movie/{movieId}. An
// absent rating is reported as null, not 404.
func (h *Handlers) GetRating(w http.ResponseWriter, r *http.Request) {
	userID, movieID, err := userMovieIDs(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	resp := ratingResponse{UserID: userID, MovieID: movieID}
	rating, err := h.ratings.Get(r.Context(), userID, movieID)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		h.fail(w, r, err, "")
		return
	default:
		resp.Rating = &rating.Value
	}
	respondData(w, http.StatusOK, resp)
}

// UpsertRating handles POST /api/ratings.
func (h *Handlers) UpsertRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := validation.Struct(req, "userId, movieId and rating are required"); err != nil {
		h.fail(w, r, err, "")
		return
	}

	rating, err := h.ratings.Upsert(r.Context(), req.UserID, req.MovieID, *req.Rating)
	if err != nil {
		h.fail(w, r, err, "User or movie not found")
		return
	}
	respondData(w, http.StatusOK, rating)
}
