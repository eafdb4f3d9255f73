package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MovieRepository handles catalog queries.
type MovieRepository struct {
	pool *pgxpool.Pool
}

// List returns movies ordered by title.
func (r *MovieRepository) List(ctx context.Context, limit, offset int) ([]Movie, error) {
	query := `
		SELECT ` + movieColumns + `
		FROM movies m` + movieStats + `
		ORDER BY m.movie_title ASC, m."movieId" ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, dataErr("querying movies", err)
	}
	return collectMovies(rows, "scanning movies")
}

// Get retrieves a movie by ID.
func (r *MovieRepository) Get(ctx context.Context, id int) (*Movie, error) {
	query := `
		SELECT ` + movieColumns + `
		FROM movies m` + movieStats + `
		WHERE m."movieId" = $1
	`
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("querying movie", err)
	}
	return &movie, nil
}

// Hot returns recent, widely rated, highly rated movies.
func (r *MovieRepository) Hot(ctx context.Context, limit int) ([]HotMovie, error) {
	query := `
		SELECT ` + movieColumns + `, rs.rating_count
		FROM movies m` + movieStats + `
		WHERE m.release_year >= $1
			AND rs.rating_count >= $2
			AND rs.avg_raw >= $3
		ORDER BY rs.avg_raw DESC, m.release_year DESC, m."movieId" ASC
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, query, HotMinYear, HotMinRatings, HotMinAverage, limit)
	if err != nil {
		return nil, dataErr("querying hot movies", err)
	}
	defer rows.Close()

	movies := []HotMovie{}
	for rows.Next() {
		var h HotMovie
		h.Movie, err = scanMovie(rows, &h.RatingCount)
		if err != nil {
			return nil, dataErr("scanning hot movie", err)
		}
		movies = append(movies, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating hot movies", err)
	}
	return movies, nil
}

// Search matches term case-insensitively against titles and genre names.
func (r *MovieRepository) Search(ctx context.Context, term string) ([]Movie, error) {
	query := `
		SELECT ` + movieColumns + `
		FROM movies m` + movieStats + `
		WHERE m.movie_title ILIKE $1 ESCAPE '\'
			OR EXISTS (
				SELECT 1
				FROM movie_genres mg
				JOIN genres g ON g.id = mg.genre_id
				WHERE mg.movie_id = m."movieId" AND g.genre ILIKE $1 ESCAPE '\'
			)
		ORDER BY m.movie_title ASC, m."movieId" ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, likePattern(term), SearchLimit)
	if err != nil {
		return nil, dataErr("searching movies", err)
	}
	return collectMovies(rows, "scanning search results")
}

// ByGenre returns movies tagged with the named genre, best rated first.
func (r *MovieRepository) ByGenre(ctx context.Context, genre string) ([]Movie, error) {
	query := `
		SELECT ` + movieColumns + `
		FROM movies m` + movieStats + `
		WHERE EXISTS (
			SELECT 1
			FROM movie_genres mg
			JOIN genres g ON g.id = mg.genre_id
			WHERE mg.movie_id = m."movieId" AND LOWER(g.genre) = LOWER($1)
		)
		ORDER BY rs.avg_raw DESC NULLS LAST, m.movie_title ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, genre, GenreListLimit)
	if err != nil {
		return nil, dataErr("querying movies by genre", err)
	}
	return collectMovies(rows, "scanning movies by genre")
}

// Genres lists all genres by name.
func (r *MovieRepository) Genres(ctx context.Context) ([]Genre, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, genre FROM genres ORDER BY genre ASC`)
	if err != nil {
		return nil, dataErr("querying genres", err)
	}
	defer rows.Close()

	genres := []Genre{}
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, dataErr("scanning genre", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating genres", err)
	}
	return genres, nil
}

// scanMovie scans movieColumns followed by any extra destinations.
func scanMovie(row pgx.Row, extra ...any) (Movie, error) {
	var m Movie
	dest := append([]any{&m.ID, &m.Title, &m.Year, &m.Rating, &m.Genres}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Movie{}, err
	}
	m.Description = m.Title
	m.ImageURL = imageURL(m.Title)
	m.Genres = nonNil(m.Genres)
	return m, nil
}

func collectMovies(rows pgx.Rows, op string) ([]Movie, error) {
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, dataErr(op, err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr(op, err)
	}
	return movies, nil
}
