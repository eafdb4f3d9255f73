package web

import (
	"context"
	"net/http"
	"time"

	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/recommend"
)

// Default page sizes.
const (
	defaultMovieLimit    = 20
	defaultHotLimit      = 10
	defaultRecommend     = recommend.DefaultLimit
	defaultSimilarLimit  = recommend.DefaultSimilarLimit
	defaultTrendingDays  = recommend.DefaultTrendingDays
	defaultTrendingLimit = recommend.DefaultTrendingLimit
	maxTrendingDays      = recommend.MaxTrendingDays
	defaultMaxLimit      = 100
)

// MovieStore is the catalog surface used by the handlers.
type MovieStore interface {
	List(ctx context.Context, limit, offset int) ([]db.Movie, error)
	Get(ctx context.Context, id int) (*db.Movie, error)
	Hot(ctx context.Context, limit int) ([]db.HotMovie, error)
	Search(ctx context.Context, term string) ([]db.Movie, error)
	ByGenre(ctx context.Context, genre string) ([]db.Movie, error)
	Genres(ctx context.Context) ([]db.Genre, error)
}

// UserStore is the account surface used by the handlers.
type UserStore interface {
	List(ctx context.Context) ([]db.User, error)
	Get(ctx context.Context, id int) (*db.User, error)
	Create(ctx context.Context, username, password, role string) (*db.User, error)
	UpdateRole(ctx context.Context, id int, role string) (*db.User, error)
	Delete(ctx context.Context, id int) error
}

// RatingStore is the rating surface used by the handlers.
type RatingStore interface {
	Get(ctx context.Context, userID, movieID int) (*db.Rating, error)
	Upsert(ctx context.Context, userID, movieID int, value float64) (*db.Rating, error)
	Histogram(ctx context.Context, movieID int) ([]db.RatingBucket, error)
}

// WatchHistoryStore is the watch-history surface used by the handlers.
type WatchHistoryStore interface {
	Record(ctx context.Context, userID, movieID int) (*db.WatchEntry, error)
	Remove(ctx context.Context, userID, movieID int) (*db.WatchEntry, error)
	HasWatched(ctx context.Context, userID, movieID int) (bool, error)
	ForUser(ctx context.Context, userID int) ([]db.WatchedMovie, error)
	ViewerSummaries(ctx context.Context) ([]db.ViewerSummary, error)
	GenrePreferences(ctx context.Context, userID int) ([]db.GenrePreference, error)
	GenreTrends(ctx context.Context) ([]db.GenreTrend, error)
}

// Recommender serves recommendation requests.
type Recommender interface {
	ForUser(ctx context.Context, userID, limit, offset int) (*recommend.Result, error)
	Similar(ctx context.Context, movieID, limit int) ([]db.RankedMovie, error)
	Trending(ctx context.Context, days, limit int) ([]db.RankedMovie, error)
}

// Authenticator validates login credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*db.User, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	movies      MovieStore
	users       UserStore
	ratings     RatingStore
	history     WatchHistoryStore
	recommender Recommender
	auth        Authenticator

	maxLimit     int
	exposeErrors bool
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	movies MovieStore,
	users UserStore,
	ratings RatingStore,
	history WatchHistoryStore,
	recommender Recommender,
	auth Authenticator,
) *Handlers {
	return &Handlers{
		movies:      movies,
		users:       users,
		ratings:     ratings,
		history:     history,
		recommender: recommender,
		auth:        auth,
		maxLimit:    defaultMaxLimit,
		now:         time.Now,
	}
}

func (h *Handlers) limit(r *http.Request, name string, def int) int {
	return queryLimit(r, name, def, h.maxLimit)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Health reports liveness (GET /api/health).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Movie Recommendation API is running",
		Timestamp: h.now().UTC(),
	})
}

// ListMovies handles GET /api/movies.
func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	limit := h.limit(r, "limit", defaultMovieLimit)
	offset := queryOffset(r)

	movies, err := h.movies.List(r.Context(), limit+1, offset)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	movies, hasMore := db.TrimPage(movies, limit)
	respondPage(w, movies, pageInfo{limit: limit, offset: offset, hasMore: hasMore}, "")
}

// GetMovie handles GET /api/movies/{id}.
func (h *Handlers) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	movie, err := h.movies.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Movie not found")
		return
	}
	respondData(w, http.StatusOK, movie)
}

// HotMovies handles GET /api/movies/hot/list.
func (h *Handlers) HotMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.Hot(r.Context(), h.limit(r, "limit", defaultHotLimit))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, movies)
}

// SearchMovies handles GET /api/movies/search/{term}.
func (h *Handlers) SearchMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.Search(r.Context(), urlParam(r, "term"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, movies)
}

// MoviesByGenre handles GET /api/movies/genre/{name}.
func (h *Handlers) MoviesByGenre(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.ByGenre(r.Context(), urlParam(r, "name"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, movies)
}

// ListGenres handles GET /api/genres.
func (h *Handlers) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.movies.Genres(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, genres)
}

// MovieRatings handles GET /api/movies/{id}/ratings.
func (h *Handlers) MovieRatings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	buckets, err := h.ratings.Histogram(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	respondList(w, buckets)
}
