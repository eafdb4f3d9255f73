package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/movie-recommender/internal/validation"
)

// InvalidRatingMessage is returned for ratings outside 0.5..5.0 or off the half-star grid.
const InvalidRatingMessage = "Rating must be between 0.5 and 5.0 in 0.5 increments"

// RatingRepository handles rating database operations.
type RatingRepository struct {
	pool *pgxpool.Pool
}

type ratingInput struct {
	Rating float64 `validate:"gte=0.5,lte=5,halfstep"`
}

// ValidateRating checks a rating value without touching the database.
func ValidateRating(value float64) error {
	return validation.Struct(ratingInput{Rating: value}, InvalidRatingMessage)
}

// Get retrieves a user's rating of a movie.
func (r *RatingRepository) Get(ctx context.Context, userID, movieID int) (*Rating, error) {
	query := `
		SELECT "userId", "movieId", rating::float8, "timestamp"
		FROM ratings
		WHERE "userId" = $1 AND "movieId" = $2
	`
	var rt Rating
	err := r.pool.QueryRow(ctx, query, userID, movieID).Scan(&rt.UserID, &rt.MovieID, &rt.Value, &rt.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("querying rating", err)
	}
	return &rt, nil
}

// Upsert stores a user's rating of a movie, replacing any earlier rating.
// Invalid values are rejected before any SQL runs.
func (r *RatingRepository) Upsert(ctx context.Context, userID, movieID int, value float64) (*Rating, error) {
	if err := ValidateRating(value); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO ratings ("userId", "movieId", rating, "timestamp")
		VALUES ($1, $2, $3, EXTRACT(EPOCH FROM NOW())::bigint)
		ON CONFLICT ("userId", "movieId") DO UPDATE SET
			rating = EXCLUDED.rating,
			"timestamp" = EXCLUDED."timestamp"
		RETURNING "userId", "movieId", rating::float8, "timestamp"
	`
	var rt Rating
	err := r.pool.QueryRow(ctx, query, userID, movieID, value).Scan(&rt.UserID, &rt.MovieID, &rt.Value, &rt.Timestamp)
	if pgCode(err) == pgForeignKeyViolation {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("upserting rating", err)
	}
	return &rt, nil
}

// Histogram counts a movie's ratings per value, highest value first.
func (r *RatingRepository) Histogram(ctx context.Context, movieID int) ([]RatingBucket, error) {
	query := `
		SELECT rating::float8, COUNT(*)
		FROM ratings
		WHERE "movieId" = $1
		GROUP BY rating
		ORDER BY rating DESC
	`
	rows, err := r.pool.Query(ctx, query, movieID)
	if err != nil {
		return nil, dataErr("querying rating histogram", err)
	}
	defer rows.Close()

	buckets := []RatingBucket{}
	for rows.Next() {
		var b RatingBucket
		if err := rows.Scan(&b.Rating, &b.Count); err != nil {
			return nil, dataErr("scanning rating bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating rating histogram", err)
	}
	return buckets, nil
}
