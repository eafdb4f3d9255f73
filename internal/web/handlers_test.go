package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/recommend"
)

func TestHandlers_CreateUser(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantError  string
		wantRole   string
	}{
		{name: "defaults role", body: `{"username":"bob","password":"pw"}`, wantStatus: http.StatusCreated, wantRole: db.RoleViewer},
		{name: "explicit admin", body: `{"username":"root","password":"pw","role":"admin"}`, wantStatus: http.StatusCreated, wantRole: db.RoleAdmin},
		{name: "missing password", body: `{"username":"bob"}`, wantStatus: http.StatusBadRequest, wantError: credentialsRequired},
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantError: credentialsRequired},
		{name: "malformed json", body: `{"username": bob}`, wantStatus: http.StatusBadRequest, wantError: "Invalid JSON body"},
		{
			name:       "duplicate username",
			body:       `{"username":"alice","password":"pw"}`,
			createErr:  fmt.Errorf("creating user: %w", db.ErrConflict),
			wantStatus: http.StatusConflict,
			wantError:  "Resource already exists",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.users.createErr = tt.createErr

			rec, body := env.do(t, http.MethodPost, "/api/users", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantError, body.Error)
			assert.NotContains(t, rec.Body.String(), "password")
			if tt.wantRole != "" {
				var u db.User
				require.NoError(t, json.Unmarshal(body.Data, &u))
				assert.Equal(t, tt.wantRole, u.Role)
			}
		})
	}
}

func TestHandlers_UserRoleAndDelete(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPut, "/api/users/1/role", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var u db.User
	require.NoError(t, json.Unmarshal(body.Data, &u))
	assert.Equal(t, db.RoleAdmin, u.Role)

	rec, body = env.do(t, http.MethodPut, "/api/users/1/role", `{"role":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Role must be viewer or admin", body.Error)

	rec, _ = env.do(t, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body.Error)

	rec, _ = env.do(t, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "valid", body: `{"username":"alice","password":"secret"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"username":"alice","password":"nope"}`, wantStatus: http.StatusUnauthorized, wantError: "Invalid username or password"},
		{name: "unknown user", body: `{"username":"zed","password":"secret"}`, wantStatus: http.StatusUnauthorized, wantError: "Invalid username or password"},
		{name: "missing fields", body: `{"username":"alice"}`, wantStatus: http.StatusBadRequest, wantError: credentialsRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec, body := env.do(t, http.MethodPost, "/api/auth/login", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, body.Error)
			assert.NotContains(t, rec.Body.String(), "secret")
			if tt.wantStatus == http.StatusOK {
				var u db.User
				require.NoError(t, json.Unmarshal(body.Data, &u))
				assert.Equal(t, "alice", u.Username)
			}
		})
	}
}

func TestHandlers_LoginRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.LoginRateLimit = 2 })

	for i := 0; i < 2; i++ {
		rec, _ := env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, body := env.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, body.Success)

	// Other routes are not limited.
	rec, _ = env.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlers_LoginRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.LoginRateLimit = 2 })

	login := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.3"))
}

func TestHandlers_LoginRateLimitPerForwardedClient(t *testing.T) {
	// httptest requests arrive from 192.0.2.1.
	env := newTestEnv(t, func(c *ServerConfig) {
		c.LoginRateLimit = 1
		c.TrustedProxies = []string{"192.0.2.0/24"}
	})

	login := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.2, 192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.1"))
}

func TestHandlers_WatchHistory(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/watch-history", `{"userId":1,"movieId":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first db.WatchEntry
	require.NoError(t, json.Unmarshal(body.Data, &first))

	_, body = env.do(t, http.MethodPost, "/api/watch-history", `{"userId":1,"movieId":2}`)
	var second db.WatchEntry
	require.NoError(t, json.Unmarshal(body.Data, &second))
	assert.Equal(t, first.ID, second.ID, "re-watching must not add a row")

	_, body = env.do(t, http.MethodGet, "/api/watch-history/check/1/2", "")
	assert.JSONEq(t, `{"hasWatched":true}`, string(body.Data))

	rec, _ = env.do(t, http.MethodDelete, "/api/watch-history/1/2", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, body = env.do(t, http.MethodGet, "/api/watch-history/check/1/2", "")
	assert.JSONEq(t, `{"hasWatched":false}`, string(body.Data))

	rec, body = env.do(t, http.MethodDelete, "/api/watch-history/1/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Watch history entry not found", body.Error)
}

func TestHandlers_WatchHistoryValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name, method, target, body string
		wantError                  string
	}{
		{name: "missing movie", method: http.MethodPost, target: "/api/watch-history", body: `{"userId":1}`, wantError: watchFieldsRequired},
		{name: "bad user id", method: http.MethodGet, target: "/api/watch-history/user/x", wantError: "Invalid userId: must be an integer"},
		{name: "bad movie id", method: http.MethodGet, target: "/api/watch-history/check/1/y", wantError: "Invalid movieId: must be an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestHandlers_GenrePreferences(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/watch-history/user/1/preferences", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *body.Count)
	assert.JSONEq(t, `[{"genre":"Drama","watch_count":3,"avg_rating":4.2}]`, string(body.Data))
}

func TestHandlers_Ratings(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodGet, "/api/ratings/user/1/movie/2", "")
	assert.JSONEq(t, `{"userId":1,"movieId":2,"rating":null}`, string(body.Data))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "valid", body: `{"userId":1,"movieId":2,"rating":3.5}`, wantStatus: http.StatusOK},
		{name: "replace", body: `{"userId":1,"movieId":2,"rating":4.5}`, wantStatus: http.StatusOK},
		{name: "off grid", body: `{"userId":1,"movieId":2,"rating":3.3}`, wantStatus: http.StatusBadRequest, wantError: db.InvalidRatingMessage},
		{name: "too high", body: `{"userId":1,"movieId":2,"rating":5.5}`, wantStatus: http.StatusBadRequest, wantError: db.InvalidRatingMessage},
		{name: "zero", body: `{"userId":1,"movieId":2,"rating":0}`, wantStatus: http.StatusBadRequest, wantError: db.InvalidRatingMessage},
		{name: "missing rating", body: `{"userId":1,"movieId":2}`, wantStatus: http.StatusBadRequest, wantError: "userId, movieId and rating are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, "/api/ratings", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantError, body.Error)
		})
	}

	_, body = env.do(t, http.MethodGet, "/api/ratings/user/1/movie/2", "")
	assert.JSONEq(t, `{"userId":1,"movieId":2,"rating":4.5}`, string(body.Data))
}

func TestHandlers_RatingUnknownMovie(t *testing.T) {
	env := newTestEnv(t)
	env.ratings.fkErr = true

	rec, body := env.do(t, http.MethodPost, "/api/ratings", `{"userId":1,"movieId":999,"rating":4}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User or movie not found", body.Error)
}

func TestHandlers_Recommendations(t *testing.T) {
	env := newTestEnv(t)
	score := 0.9
	env.recommender.result = &recommend.Result{
		Movies:   []db.RankedMovie{{ID: 5, Title: "Echo", Genres: []string{}, Score: &score}},
		Strategy: recommend.StrategyGenreAffinity,
		HasMore:  true,
	}

	rec, body := env.do(t, http.MethodGet, "/api/recommendations/user/1?limit=1&offset=3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "genre_affinity", body.Strategy)
	assert.True(t, *body.HasMore)
	assert.Equal(t, 1, *body.Limit)
	assert.Equal(t, 3, *body.Offset)
	assert.Equal(t, 1, env.recommender.gotLimit)
	assert.Equal(t, 3, env.recommender.gotOff)
}

func TestHandlers_RecommendationDefaults(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/api/recommendations/user/1?limit=abc&offset=-4", "")
	assert.Equal(t, defaultRecommend, env.recommender.gotLimit)
	assert.Equal(t, 0, env.recommender.gotOff)

	env.do(t, http.MethodGet, "/api/recommendations/similar/3", "")
	assert.Equal(t, defaultSimilarLimit, env.recommender.gotLimit)

	env.do(t, http.MethodGet, "/api/recommendations/trending?days=30", "")
	assert.Equal(t, 30, env.recommender.gotDays)
	assert.Equal(t, defaultTrendingLimit, env.recommender.gotLimit)

	env.do(t, http.MethodGet, "/api/recommendations/trending?days=999999999999", "")
	assert.Equal(t, maxTrendingDays, env.recommender.gotDays)
}

func TestHandlers_RecommendationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.recommender.err = errors.New("statement timeout")

	rec, body := env.do(t, http.MethodGet, "/api/recommendations/user/1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body.Error)
}
