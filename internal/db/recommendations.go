package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecommendationRepository runs the SQL behind each recommendation strategy.
// Ranking happens in the database; callers choose the strategy and page size.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

// Precomputed returns movies from the recommendations table for a user,
// ranked by their best score. It returns ErrPrecomputedUnavailable when the
// table does not exist.
func (r *RecommendationRepository) Precomputed(ctx context.Context, userID, limit, offset int) ([]RankedMovie, error) {
	query := `
		WITH scored AS (
			SELECT movie_id, MAX(score) AS score
			FROM recommendations
			WHERE user_id = $1
			GROUP BY movie_id
		)
		SELECT ` + rankedColumns + `, s.score::float8
		FROM scored s
		JOIN movies m ON m."movieId" = s.movie_id` + movieStats + `
		ORDER BY s.score DESC, rs.avg_raw DESC NULLS LAST, m."movieId" ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, precomputedErr("querying precomputed recommendations", err)
	}
	movies, err := collectRanked(rows, func(m *RankedMovie) []any {
		return []any{&m.Score}
	})
	if err != nil {
		return nil, precomputedErr("scanning precomputed recommendations", err)
	}
	return movies, nil
}

// HasPrecomputed reports whether any precomputed rows exist for a user.
func (r *RecommendationRepository) HasPrecomputed(ctx context.Context, userID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recommendations WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, precomputedErr("checking precomputed recommendations", err)
	}
	return exists, nil
}

// GenreAffinity recommends unwatched, sufficiently rated movies from the
// user's most watched genres, ranked by how many of those genres they carry.
func (r *RecommendationRepository) GenreAffinity(ctx context.Context, userID, limit, offset int) ([]RankedMovie, error) {
	query := `
		WITH user_genres AS (
			SELECT mg.genre_id, COUNT(*) AS watch_count
			FROM watch_history wh
			JOIN movie_genres mg ON mg.movie_id = wh.movie_id
			WHERE wh.user_id = $1
			GROUP BY mg.genre_id
			ORDER BY watch_count DESC, mg.genre_id ASC
			LIMIT $4
		), candidates AS (
			SELECT mg.movie_id, COUNT(DISTINCT mg.genre_id) AS matching_genres
			FROM movie_genres mg
			JOIN user_genres ug ON ug.genre_id = mg.genre_id
			WHERE NOT EXISTS (
				SELECT 1 FROM watch_history w
				WHERE w.user_id = $1 AND w.movie_id = mg.movie_id
			)
			GROUP BY mg.movie_id
		)
		SELECT ` + rankedColumns + `, c.matching_genres
		FROM candidates c
		JOIN movies m ON m."movieId" = c.movie_id` + movieStats + `
		WHERE rs.rating_count >= $5
		ORDER BY c.matching_genres DESC, rs.avg_raw DESC NULLS LAST, m."movieId" ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset, FavoriteGenreCount, RecommendMinRatings)
	if err != nil {
		return nil, dataErr("querying genre affinity recommendations", err)
	}
	movies, err := collectRanked(rows, func(m *RankedMovie) []any {
		return []any{&m.MatchingGenres}
	})
	if err != nil {
		return nil, dataErr("scanning genre affinity recommendations", err)
	}
	return movies, nil
}

// Similar returns sufficiently rated movies sharing genres with movieID,
// most shared genres first. The reference movie itself is excluded.
func (r *RecommendationRepository) Similar(ctx context.Context, movieID, limit int) ([]RankedMovie, error) {
	query := `
		WITH shared AS (
			SELECT other.movie_id, COUNT(DISTINCT other.genre_id) AS matching_genres
			FROM movie_genres ref
			JOIN movie_genres other ON other.genre_id = ref.genre_id
			WHERE ref.movie_id = $1 AND other.movie_id <> $1
			GROUP BY other.movie_id
		)
		SELECT ` + rankedColumns + `, s.matching_genres
		FROM shared s
		JOIN movies m ON m."movieId" = s.movie_id` + movieStats + `
		WHERE rs.rating_count >= $3
		ORDER BY s.matching_genres DESC, rs.avg_raw DESC NULLS LAST, m."movieId" ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, movieID, limit, RecommendMinRatings)
	if err != nil {
		return nil, dataErr("querying similar movies", err)
	}
	movies, err := collectRanked(rows, func(m *RankedMovie) []any {
		return []any{&m.MatchingGenres}
	})
	if err != nil {
		return nil, dataErr("scanning similar movies", err)
	}
	return movies, nil
}

// Trending returns the most watched movies over the last days days.
func (r *RecommendationRepository) Trending(ctx context.Context, days, limit int) ([]RankedMovie, error) {
	query := `
		WITH recent AS (
			SELECT movie_id, COUNT(DISTINCT id) AS watch_count
			FROM watch_history
			WHERE watched_at >= NOW() - make_interval(days => $1)
			GROUP BY movie_id
		)
		SELECT ` + rankedColumns + `, t.watch_count
		FROM recent t
		JOIN movies m ON m."movieId" = t.movie_id` + movieStats + `
		ORDER BY t.watch_count DESC, rs.avg_raw DESC NULLS LAST, m."movieId" ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, days, limit)
	if err != nil {
		return nil, dataErr("querying trending movies", err)
	}
	movies, err := collectRanked(rows, func(m *RankedMovie) []any {
		return []any{&m.WatchCount}
	})
	if err != nil {
		return nil, dataErr("scanning trending movies", err)
	}
	return movies, nil
}

// collectRanked scans rankedColumns plus the strategy-specific columns
// returned by extra.
func collectRanked(rows pgx.Rows, extra func(*RankedMovie) []any) ([]RankedMovie, error) {
	defer rows.Close()

	movies := []RankedMovie{}
	for rows.Next() {
		var m RankedMovie
		dest := append([]any{&m.ID, &m.Title, &m.Year, &m.Rating, &m.Genres}, extra(&m)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		m.Description = m.Title
		m.ImageURL = imageURL(m.Title)
		m.Genres = nonNil(m.Genres)
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

// precomputedErr maps a missing recommendations table or column to
// ErrPrecomputedUnavailable and wraps everything else.
func precomputedErr(op string, err error) error {
	switch pgCode(err) {
	case pgUndefinedTable, pgUndefinedColumn:
		return ErrPrecomputedUnavailable
	}
	return dataErr(op, err)
}
