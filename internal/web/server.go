// Package web serves the movie recommendation JSON API over HTTP.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "0.0.0.0:5001"

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// CORSOrigins is the browser origin allow-list.
	CORSOrigins []string

	// TrustedProxies lists peer addresses or CIDRs allowed to set
	// X-Forwarded-For and X-Real-IP. Empty means no forwarding headers are honoured.
	TrustedProxies []string

	// LoginRateLimit is the number of login attempts allowed per IP per minute.
	LoginRateLimit int

	// MaxLimit caps the limit query parameter.
	MaxLimit int

	// ExposeErrors includes underlying error text in 500 responses.
	ExposeErrors bool
}

// Server is the HTTP server for the API.
type Server struct {
	cfg      ServerConfig
	router   chi.Router
	server   *http.Server
	handlers *Handlers
}

// NewServer creates a server routing to the given handlers.
func NewServer(cfg ServerConfig, handlers *Handlers) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}

	handlers.maxLimit = cfg.MaxLimit
	handlers.exposeErrors = cfg.ExposeErrors

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		handlers: handlers,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(requestContext)
	s.router.Use(realIP(newProxySet(s.cfg.TrustedProxies)))
	s.router.Use(requestLogger)
	s.router.Use(prometheusMetrics)
	s.router.Use(recoverJSON)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.NotFound(notFound)
	s.router.MethodNotAllowed(notFound)

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", h.ListMovies)
			r.Get("/hot/list", h.HotMovies)
			r.Get("/search/{term}", h.SearchMovies)
			r.Get("/genre/{name}", h.MoviesByGenre)
			r.Get("/{id}", h.GetMovie)
			r.Get("/{id}/ratings", h.MovieRatings)
		})
		r.Get("/genres", h.ListGenres)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}/role", h.UpdateUserRole)
			r.Delete("/{id}", h.DeleteUser)
		})

		r.With(httprate.Limit(
			s.cfg.LoginRateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(tooManyRequests),
		)).Post("/auth/login", h.Login)

		r.Route("/watch-history", func(r chi.Router) {
			r.Post("/", h.RecordWatch)
			r.Get("/all", h.AllWatchHistory)
			r.Get("/trends", h.GenreTrends)
			r.Get("/user/{userId}", h.UserWatchHistory)
			r.Get("/user/{userId}/preferences", h.GenrePreferences)
			r.Get("/check/{userId}/{movieId}", h.CheckWatched)
			r.Delete("/{userId}/{movieId}", h.RemoveWatch)
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", h.UpsertRating)
			r.Get("/user/{userId}/movie/{movieId}", h.GetRating)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/user/{userId}", h.Recommendations)
			r.Get("/similar/{movieId}", h.SimilarMovies)
			r.Get("/trending", h.TrendingMovies)
		})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns the configured *http.Server.
func (s *Server) HTTPServer() *http.Server {
	return s.server
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}
