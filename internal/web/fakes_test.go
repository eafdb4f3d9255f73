package web

import (
	"context"
	"time"

	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/recommend"
)

type fakeMovies struct {
	movies     []db.Movie
	err        error
	panicOn    string
	lastTerm   string
	lastGenre  string
	lastLimit  int
	lastOffset int
}

func (f *fakeMovies) List(_ context.Context, limit, offset int) ([]db.Movie, error) {
	if f.panicOn == "list" {
		panic("list exploded")
	}
	f.lastLimit, f.lastOffset = limit, offset
	if f.err != nil {
		return nil, f.err
	}
	end := min(offset+limit, len(f.movies))
	if offset >= end {
		return []db.Movie{}, nil
	}
	return f.movies[offset:end], nil
}

func (f *fakeMovies) Get(_ context.Context, id int) (*db.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.movies {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeMovies) Hot(_ context.Context, limit int) ([]db.HotMovie, error) {
	f.lastLimit = limit
	return []db.HotMovie{}, f.err
}

func (f *fakeMovies) Search(_ context.Context, term string) ([]db.Movie, error) {
	f.lastTerm = term
	return f.movies, f.err
}

func (f *fakeMovies) ByGenre(_ context.Context, genre string) ([]db.Movie, error) {
	f.lastGenre = genre
	return f.movies, f.err
}

func (f *fakeMovies) Genres(context.Context) ([]db.Genre, error) {
	if f.panicOn == "genres" {
		panic("genres exploded")
	}
	return []db.Genre{{ID: 1, Name: "Action"}, {ID: 2, Name: "Drama"}}, f.err
}

type fakeUsers struct {
	users     map[int]db.User
	createErr error
	nextID    int
}

func (f *fakeUsers) List(context.Context) ([]db.User, error) {
	out := make([]db.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Get(_ context.Context, id int) (*db.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) Create(_ context.Context, username, _ string, role string) (*db.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if role == "" {
		role = db.RoleViewer
	}
	f.nextID++
	u := db.User{ID: f.nextID, Username: username, Role: role}
	if f.users == nil {
		f.users = map[int]db.User{}
	}
	f.users[u.ID] = u
	return &u, nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, id int, role string) (*db.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	u.Role = role
	f.users[id] = u
	return &u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeCredentials struct {
	creds map[string]db.Credentials
}

func (f *fakeCredentials) Credentials(_ context.Context, username string) (*db.Credentials, error) {
	c, ok := f.creds[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &c, nil
}

type ratingKey struct{ userID, movieID int }

type fakeRatings struct {
	ratings map[ratingKey]float64
	fkErr   bool
}

func (f *fakeRatings) Get(_ context.Context, userID, movieID int) (*db.Rating, error) {
	v, ok := f.ratings[ratingKey{userID, movieID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &db.Rating{UserID: userID, MovieID: movieID, Value: v}, nil
}

func (f *fakeRatings) Upsert(_ context.Context, userID, movieID int, value float64) (*db.Rating, error) {
	if err := db.ValidateRating(value); err != nil {
		return nil, err
	}
	if f.fkErr {
		return nil, db.ErrNotFound
	}
	if f.ratings == nil {
		f.ratings = map[ratingKey]float64{}
	}
	f.ratings[ratingKey{userID, movieID}] = value
	return &db.Rating{UserID: userID, MovieID: movieID, Value: value, Timestamp: 1700000000}, nil
}

func (f *fakeRatings) Histogram(context.Context, int) ([]db.RatingBucket, error) {
	return []db.RatingBucket{{Rating: 4, Count: 2}}, nil
}

type fakeHistory struct {
	entries map[ratingKey]db.WatchEntry
	nextID  int
}

func (f *fakeHistory) Record(_ context.Context, userID, movieID int) (*db.WatchEntry, error) {
	if f.entries == nil {
		f.entries = map[ratingKey]db.WatchEntry{}
	}
	k := ratingKey{userID, movieID}
	e, ok := f.entries[k]
	if !ok {
		f.nextID++
		e = db.WatchEntry{ID: f.nextID, UserID: userID, MovieID: movieID}
	}
	e.WatchedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.entries[k] = e
	return &e, nil
}

func (f *fakeHistory) Remove(_ context.Context, userID, movieID int) (*db.WatchEntry, error) {
	k := ratingKey{userID, movieID}
	e, ok := f.entries[k]
	if !ok {
		return nil, db.ErrNotFound
	}
	delete(f.entries, k)
	return &e, nil
}

func (f *fakeHistory) HasWatched(_ context.Context, userID, movieID int) (bool, error) {
	_, ok := f.entries[ratingKey{userID, movieID}]
	return ok, nil
}

func (f *fakeHistory) ForUser(context.Context, int) ([]db.WatchedMovie, error) {
	return []db.WatchedMovie{}, nil
}

func (f *fakeHistory) ViewerSummaries(context.Context) ([]db.ViewerSummary, error) {
	return []db.ViewerSummary{}, nil
}

func (f *fakeHistory) GenrePreferences(context.Context, int) ([]db.GenrePreference, error) {
	return []db.GenrePreference{{Genre: "Drama", WatchCount: 3, AvgRating: 4.2}}, nil
}

func (f *fakeHistory) GenreTrends(context.Context) ([]db.GenreTrend, error) {
	return []db.GenreTrend{}, nil
}

type fakeRecommender struct {
	result   *recommend.Result
	err      error
	gotLimit int
	gotOff   int
	gotDays  int
}

func (f *fakeRecommender) ForUser(_ context.Context, _, limit, offset int) (*recommend.Result, error) {
	f.gotLimit, f.gotOff = limit, offset
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRecommender) Similar(_ context.Context, _, limit int) ([]db.RankedMovie, error) {
	f.gotLimit = limit
	return []db.RankedMovie{}, f.err
}

func (f *fakeRecommender) Trending(_ context.Context, days, limit int) ([]db.RankedMovie, error) {
	f.gotDays, f.gotLimit = days, limit
	return []db.RankedMovie{}, f.err
}
