package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WatchHistoryRepository handles watch-history database operations.
type WatchHistoryRepository struct {
	pool *pgxpool.Pool
}

// Record marks a movie as watched by a user. Watching again refreshes
// watched_at instead of adding a row.
func (r *WatchHistoryRepository) Record(ctx context.Context, userID, movieID int) (*WatchEntry, error) {
	query := `
		INSERT INTO watch_history (user_id, movie_id, watched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			watched_at = EXCLUDED.watched_at
		RETURNING id, user_id, movie_id, watched_at
	`
	var e WatchEntry
	err := r.pool.QueryRow(ctx, query, userID, movieID).Scan(&e.ID, &e.UserID, &e.MovieID, &e.WatchedAt)
	if pgCode(err) == pgForeignKeyViolation {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("upserting watch history", err)
	}
	return &e, nil
}

// Remove deletes a watch-history entry.
func (r *WatchHistoryRepository) Remove(ctx context.Context, userID, movieID int) (*WatchEntry, error) {
	query := `
		DELETE FROM watch_history
		WHERE user_id = $1 AND movie_id = $2
		RETURNING id, user_id, movie_id, watched_at
	`
	var e WatchEntry
	err := r.pool.QueryRow(ctx, query, userID, movieID).Scan(&e.ID, &e.UserID, &e.MovieID, &e.WatchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("deleting watch history", err)
	}
	return &e, nil
}

// HasWatched reports whether a user has a watch-history entry for a movie.
func (r *WatchHistoryRepository) HasWatched(ctx context.Context, userID, movieID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM watch_history WHERE user_id = $1 AND movie_id = $2
		)
	`
	var watched bool
	if err := r.pool.QueryRow(ctx, query, userID, movieID).Scan(&watched); err != nil {
		return false, dataErr("checking watch history", err)
	}
	return watched, nil
}

// ForUser returns a user's watched movies, most recent first.
func (r *WatchHistoryRepository) ForUser(ctx context.Context, userID int) ([]WatchedMovie, error) {
	query := `
		SELECT
			wh.id, wh.user_id, wh.movie_id, wh.watched_at,
			m.movie_title,
			m.release_year,
			COALESCE(ROUND(rs.avg_raw::numeric, 1), 0)::float8,
			COALESCE(gn.genres, '{}'::text[])
		FROM watch_history wh
		JOIN movies m ON m."movieId" = wh.movie_id` + movieStats + `
		WHERE wh.user_id = $1
		ORDER BY wh.watched_at DESC, wh.id DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, dataErr("querying watch history", err)
	}
	defer rows.Close()

	history := []WatchedMovie{}
	for rows.Next() {
		var w WatchedMovie
		err := rows.Scan(
			&w.ID, &w.UserID, &w.MovieID, &w.WatchedAt,
			&w.Title, &w.Year, &w.Rating, &w.Genres,
		)
		if err != nil {
			return nil, dataErr("scanning watch history", err)
		}
		w.Description = w.Title
		w.ImageURL = imageURL(w.Title)
		w.Genres = nonNil(w.Genres)
		history = append(history, w)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating watch history", err)
	}
	return history, nil
}

// ViewerSummaries aggregates watch history for every viewer who has watched
// at least one movie, most active first.
func (r *WatchHistoryRepository) ViewerSummaries(ctx context.Context) ([]ViewerSummary, error) {
	query := `
		SELECT
			u.id,
			u.username,
			COUNT(DISTINCT wh.id) AS movies_watched,
			COALESCE(
				ARRAY_AGG(DISTINCT g.genre::text ORDER BY g.genre::text) FILTER (WHERE g.genre IS NOT NULL),
				'{}'::text[]
			) AS favorite_genres,
			MAX(wh.watched_at) AS last_watched
		FROM users u
		JOIN watch_history wh ON wh.user_id = u.id
		LEFT JOIN movie_genres mg ON mg.movie_id = wh.movie_id
		LEFT JOIN genres g ON g.id = mg.genre_id
		WHERE COALESCE(u.role, 'viewer') = 'viewer'
		GROUP BY u.id, u.username
		ORDER BY movies_watched DESC, u.id ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, ViewerSummaryLimit)
	if err != nil {
		return nil, dataErr("querying viewer summaries", err)
	}
	defer rows.Close()

	summaries := []ViewerSummary{}
	for rows.Next() {
		var s ViewerSummary
		if err := rows.Scan(&s.UserID, &s.Username, &s.MoviesWatched, &s.FavoriteGenres, &s.LastWatched); err != nil {
			return nil, dataErr("scanning viewer summary", err)
		}
		s.FavoriteGenres = nonNil(s.FavoriteGenres)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating viewer summaries", err)
	}
	return summaries, nil
}

// GenrePreferences counts a user's watches per genre together with the
// user's own average rating of those movies (unrated counts as 0).
func (r *WatchHistoryRepository) GenrePreferences(ctx context.Context, userID int) ([]GenrePreference, error) {
	query := `
		SELECT
			g.genre::text,
			COUNT(*) AS watch_count,
			ROUND(AVG(COALESCE(r.rating, 0))::numeric, 2)::float8 AS avg_rating
		FROM watch_history wh
		JOIN movie_genres mg ON mg.movie_id = wh.movie_id
		JOIN genres g ON g.id = mg.genre_id
		LEFT JOIN ratings r ON r."movieId" = wh.movie_id AND r."userId" = wh.user_id
		WHERE wh.user_id = $1
		GROUP BY g.genre
		ORDER BY watch_count DESC, avg_rating DESC, g.genre ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, dataErr("querying genre preferences", err)
	}
	defer rows.Close()

	prefs := []GenrePreference{}
	for rows.Next() {
		var p GenrePreference
		if err := rows.Scan(&p.Genre, &p.WatchCount, &p.AvgRating); err != nil {
			return nil, dataErr("scanning genre preference", err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating genre preferences", err)
	}
	return prefs, nil
}

// GenreTrends aggregates all watch history per genre: distinct watchers,
// total watches and the mean rating of the watched movies.
func (r *WatchHistoryRepository) GenreTrends(ctx context.Context) ([]GenreTrend, error) {
	query := `
		SELECT
			g.genre::text,
			COUNT(DISTINCT wh.user_id) AS users_count,
			COUNT(DISTINCT wh.id) AS total_watches,
			ROUND(AVG(COALESCE(rs.avg_raw, 0))::numeric, 2)::float8 AS avg_rating
		FROM watch_history wh
		JOIN movie_genres mg ON mg.movie_id = wh.movie_id
		JOIN genres g ON g.id = mg.genre_id
		LEFT JOIN LATERAL (
			SELECT AVG(r.rating) AS avg_raw
			FROM ratings r
			WHERE r."movieId" = wh.movie_id
		) rs ON TRUE
		GROUP BY g.genre
		ORDER BY total_watches DESC, users_count DESC, g.genre ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, dataErr("querying genre trends", err)
	}
	defer rows.Close()

	trends := []GenreTrend{}
	for rows.Next() {
		var t GenreTrend
		if err := rows.Scan(&t.Genre, &t.UsersCount, &t.TotalWatches, &t.AvgRating); err != nil {
			return nil, dataErr("scanning genre trend", err)
		}
		trends = append(trends, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating genre trends", err)
	}
	return trends, nil
}
