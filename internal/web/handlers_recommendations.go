package web

import "net/http"

// Recommendations handles GET /api/recommendations/user/{userId}.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	limit := h.limit(r, "limit", defaultRecommend)
	offset := queryOffset(r)

	res, err := h.recommender.ForUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondPage(w, res.Movies, pageInfo{limit: limit, offset: offset, hasMore: res.HasMore}, string(res.Strategy))
}

// SimilarMovies handles GET /api/recommendations/similar/{movieId}.
func (h *Handlers) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	movieID, err := pathID(r, "movieId")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	movies, err := h.recommender.Similar(r.Context(), movieID, h.limit(r, "limit", defaultSimilarLimit))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, movies)
}

// TrendingMovies handles GET /api/recommendations/trending.
func (h *Handlers) TrendingMovies(w http.ResponseWriter, r *http.Request) {
	days := queryLimit(r, "days", defaultTrendingDays, maxTrendingDays)
	movies, err := h.recommender.Trending(r.Context(), days, h.limit(r, "limit", defaultTrendingLimit))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, movies)
}
