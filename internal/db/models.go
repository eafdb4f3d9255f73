package db

import "time"

// Movie is the catalog shape returned by every movie listing.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Year        *int     `json:"year"`
	Rating      float64  `json:"rating"` // mean rating to one decimal, 0 when unrated
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	ImageURL    string   `json:"image_url"`
}

// HotMovie is a Movie with the number of ratings it qualified with.
type HotMovie struct {
	Movie
	RatingCount int `json:"rating_count"`
}

// RankedMovie is a movie produced by a recommendation strategy. Rating is nil
// when the movie has no ratings.
type RankedMovie struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Year           *int     `json:"year"`
	Rating         *float64 `json:"rating"`
	Description    string   `json:"description"`
	Genres         []string `json:"genres"`
	ImageURL       string   `json:"image_url"`
	MatchingGenres int      `json:"matching_genres,omitempty"`
	WatchCount     int      `json:"watch_count,omitempty"`
	Score          *float64 `json:"score,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"genre"`
}

// User is the public view of an account. It never carries the password.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Credentials is a user together with the stored password, used only by login.
type Credentials struct {
	User
	Password string `json:"-"`
}

// Roles.
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// Rating is one user's rating of one movie.
type Rating struct {
	UserID    int     `json:"userId"`
	MovieID   int     `json:"movieId"`
	Value     float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"` // epoch seconds
}

// RatingBucket is one row of a movie's rating histogram.
type RatingBucket struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// WatchEntry is a watch-history row.
type WatchEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	WatchedAt time.Time `json:"watched_at"`
}

// WatchedMovie is a watch-history row joined with its movie.
type WatchedMovie struct {
	WatchEntry
	Title       string   `json:"title"`
	Year        *int     `json:"year"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	ImageURL    string   `json:"image_url"`
}

// ViewerSummary aggregates one viewer's watch history.
type ViewerSummary struct {
	UserID         int       `json:"user_id"`
	Username       string    `json:"username"`
	MoviesWatched  int       `json:"movies_watched"`
	FavoriteGenres []string  `json:"favorite_genres"`
	LastWatched    time.Time `json:"last_watched"`
}

// GenrePreference is a genre's share of one user's watch history.
type GenrePreference struct {
	Genre      string  `json:"genre"`
	WatchCount int     `json:"watch_count"`
	AvgRating  float64 `json:"avg_rating"`
}

// GenreTrend is a genre's share of all watch history.
type GenreTrend struct {
	Genre        string  `json:"genre"`
	UsersCount   int     `json:"users_count"`
	TotalWatches int     `json:"total_watches"`
	AvgRating    float64 `json:"avg_rating"`
}
