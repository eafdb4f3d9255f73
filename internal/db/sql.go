package db

import (
	"net/url"
	"strings"
)

// Query caps and thresholds shared by the catalog and recommendation queries.
const (
	SearchLimit         = 100
	GenreListLimit      = 100
	UserListLimit       = 100
	ViewerSummaryLimit  = 50
	HotMinYear          = 2010
	HotMinRatings       = 50
	HotMinAverage       = 4.0
	RecommendMinRatings = 10
	FavoriteGenreCount  = 3
)

const placeholderImageBase = "https://via.placeholder.com/300x450/1a1a1a/e0e0e0?text="

// movieStats joins per-movie rating statistics and the sorted, distinct
// genre list onto an outer query aliasing movies as m. Both are LATERAL
// subqueries so they never multiply the outer rows.
const movieStats = `
	LEFT JOIN LATERAL (
		SELECT AVG(r.rating) AS avg_raw, COUNT(r.rating) AS rating_count
		FROM ratings r
		WHERE r."movieId" = m."movieId"
	) rs ON TRUE
	LEFT JOIN LATERAL (
		SELECT ARRAY_AGG(DISTINCT g.genre::text ORDER BY g.genre::text) FILTER (WHERE g.genre IS NOT NULL) AS genres
		FROM movie_genres mg
		JOIN genres g ON g.id = mg.genre_id
		WHERE mg.movie_id = m."movieId"
	) gn ON TRUE`

// movieColumns selects the Movie shape; scan with scanMovie.
const movieColumns = `
	m."movieId",
	m.movie_title,
	m.release_year,
	COALESCE(ROUND(rs.avg_raw::numeric, 1), 0)::float8 AS rating,
	COALESCE(gn.genres, '{}'::text[]) AS genres`

// rankedColumns selects the RankedMovie shape, keeping NULL means.
const rankedColumns = `
	m."movieId",
	m.movie_title,
	m.release_year,
	ROUND(rs.avg_raw::numeric, 1)::float8 AS rating,
	COALESCE(gn.genres, '{}'::text[]) AS genres`

// imageURL returns the placeholder poster URL for a title.
func imageURL(title string) string {
	return placeholderImageBase + encodeURIComponent(title)
}

// encodeURIComponent escapes s the way browsers do for a URI component.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in term escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func nonNil(genres []string) []string {
	if genres == nil {
		return []string{}
	}
	return genres
}

// TrimPage trims rows fetched with limit+1 back to limit and reports whether
// the extra row existed.
func TrimPage[T any](rows []T, limit int) ([]T, bool) {
	if limit >= 0 && len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
