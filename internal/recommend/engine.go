// Package recommend decides which recommendation strategy serves a request.
//
// Personalized recommendations come from the precomputed scores table when it
// exists and holds rows for the user; otherwise they fall back to genre
// affinity computed from the user's watch history. The decision is made from
// an explicit outcome of the precomputed lookup, never from a swallowed error.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/logging"
	"github.com/justestif/movie-recommender/internal/metrics"
)

// Defaults applied when callers pass a non-positive value.
const (
	DefaultLimit         = 10
	DefaultSimilarLimit  = 5
	DefaultTrendingDays  = 7
	DefaultTrendingLimit = 10

	// MaxTrendingDays bounds the trending window so the interval
	// arithmetic in the query cannot overflow.
	MaxTrendingDays = 3650

	DefaultBreakerFailures = 3
	DefaultBreakerTimeout  = time.Minute
)

// Strategy names the source that produced a personalized result.
type Strategy string

const (
	StrategyPrecomputed   Strategy = "precomputed"
	StrategyGenreAffinity Strategy = "genre_affinity"
)

// Store is the query surface the engine needs. *db.RecommendationRepository
// satisfies it.
type Store interface {
	Precomputed(ctx context.Context, userID, limit, offset int) ([]db.RankedMovie, error)
	HasPrecomputed(ctx context.Context, userID int) (bool, error)
	GenreAffinity(ctx context.Context, userID, limit, offset int) ([]db.RankedMovie, error)
	Similar(ctx context.Context, movieID, limit int) ([]db.RankedMovie, error)
	Trending(ctx context.Context, days, limit int) ([]db.RankedMovie, error)
}

// Result is one page of personalized recommendations.
type Result struct {
	Movies   []db.RankedMovie
	Strategy Strategy
	HasMore  bool
}

// Engine serves recommendation requests.
type Engine struct {
	store           Store
	breakerName     string
	breakerFailures uint32
	breakerTimeout  time.Duration
	breaker         *gobreaker.CircuitBreaker[[]db.RankedMovie]
}

// Option configures an Engine.
type Option func(*Engine)

// WithBreaker sets how many consecutive precomputed lookup failures open the
// breaker and how long it stays open before probing again.
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(e *Engine) {
		if failures > 0 {
			e.breakerFailures = failures
		}
		if timeout > 0 {
			e.breakerTimeout = timeout
		}
	}
}

// New creates an Engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		breakerName:     "precomputed-recommendations",
		breakerFailures: DefaultBreakerFailures,
		breakerTimeout:  DefaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.breaker = gobreaker.NewCircuitBreaker[[]db.RankedMovie](gobreaker.Settings{
		Name:        e.breakerName,
		MaxRequests: 1,
		Timeout:     e.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= e.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(e.breakerName).Set(float64(gobreaker.StateClosed))

	return e
}

// BreakerState reports the state of the precomputed lookup breaker.
func (e *Engine) BreakerState() gobreaker.State {
	return e.breaker.State()
}

// outcome classifies a precomputed lookup.
type outcome int

const (
	outcomeAvailable   outcome = iota // rows exist for the user (the page itself may be empty)
	outcomeEmpty                      // the user has no precomputed rows
	outcomeUnavailable                // table missing or breaker open
)

func (o outcome) String() string {
	switch o {
	case outcomeAvailable:
		return "available"
	case outcomeEmpty:
		return "empty"
	default:
		return "unavailable"
	}
}

// ForUser returns a page of recommendations for a user. Pages are fetched
// with one extra row to compute HasMore.
func (e *Engine) ForUser(ctx context.Context, userID, limit, offset int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, out, err := e.lookupPrecomputed(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("loading precomputed recommendations: %w", err)
	}
	if out == outcomeAvailable {
		return page(StrategyPrecomputed, rows, limit), nil
	}

	logging.Ctx(ctx).Debug().
		Int("user_id", userID).
		Stringer("precomputed", out).
		Msg("falling back to genre affinity")

	rows, err = e.store.GenreAffinity(ctx, userID, limit+1, offset)
	if err != nil {
		return nil, fmt.Errorf("loading genre affinity recommendations: %w", err)
	}
	return page(StrategyGenreAffinity, rows, limit), nil
}

func (e *Engine) lookupPrecomputed(ctx context.Context, userID, limit, offset int) ([]db.RankedMovie, outcome, error) {
	rows, err := e.breaker.Execute(func() ([]db.RankedMovie, error) {
		return e.store.Precomputed(ctx, userID, limit+1, offset)
	})
	switch {
	case isUnavailable(err):
		return nil, outcomeUnavailable, nil
	case err != nil:
		return nil, outcomeUnavailable, err
	case len(rows) > 0:
		return rows, outcomeAvailable, nil
	case offset == 0:
		return nil, outcomeEmpty, nil
	}

	// An empty later page only means "past the end" if the user has rows at all.
	has, err := e.store.HasPrecomputed(ctx, userID)
	switch {
	case isUnavailable(err):
		return nil, outcomeUnavailable, nil
	case err != nil:
		return nil, outcomeUnavailable, err
	case has:
		return []db.RankedMovie{}, outcomeAvailable, nil
	default:
		return nil, outcomeEmpty, nil
	}
}

func isUnavailable(err error) bool {
	return errors.Is(err, db.ErrPrecomputedUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

func page(strategy Strategy, rows []db.RankedMovie, limit int) *Result {
	metrics.RecommendationStrategy.WithLabelValues(string(strategy)).Inc()
	rows, hasMore := db.TrimPage(rows, limit)
	if rows == nil {
		rows = []db.RankedMovie{}
	}
	return &Result{Movies: rows, Strategy: strategy, HasMore: hasMore}
}

// Similar returns movies sharing genres with movieID.
func (e *Engine) Similar(ctx context.Context, movieID, limit int) ([]db.RankedMovie, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	movies, err := e.store.Similar(ctx, movieID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading similar movies: %w", err)
	}
	return movies, nil
}

// Trending returns the most watched movies over the last days days.
func (e *Engine) Trending(ctx context.Context, days, limit int) ([]db.RankedMovie, error) {
	if days <= 0 {
		days = DefaultTrendingDays
	}
	days = min(days, MaxTrendingDays)
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	movies, err := e.store.Trending(ctx, days, limit)
	if err != nil {
		return nil, fmt.Errorf("loading trending movies: %w", err)
	}
	return movies, nil
}
