// Command movie-recommender serves the movie recommendation JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/justestif/movie-recommender/internal/auth"
	"github.com/justestif/movie-recommender/internal/config"
	"github.com/justestif/movie-recommender/internal/db"
	"github.com/justestif/movie-recommender/internal/logging"
	"github.com/justestif/movie-recommender/internal/recommend"
	"github.com/justestif/movie-recommender/internal/supervisor"
	"github.com/justestif/movie-recommender/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn, err := cfg.Database.ConnString()
	if err != nil {
		return err
	}
	database, err := db.New(ctx, db.Config{
		URL:                dsn,
		MaxConns:           cfg.Database.MaxConns,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	serverTime, err := database.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("checking database: %w", err)
	}
	log.Info().Time("server_time", serverTime).Msg("connected to database")

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		log.Info().Msg("database schema up to date")
	}

	// Seeded databases may lack the indexes the upserts conflict on.
	if err := database.EnsureUpsertIndexes(ctx); err != nil {
		return fmt.Errorf("preparing upsert indexes: %w", err)
	}

	engine := recommend.New(database.Recommendations(),
		recommend.WithBreaker(cfg.Recommend.BreakerFailures, cfg.Recommend.BreakerTimeout))

	handlers := web.NewHandlers(
		database.Movies(),
		database.Users(),
		database.Ratings(),
		database.WatchHistory(),
		engine,
		auth.New(database.Users()),
	)
	server := web.NewServer(web.ServerConfig{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		CORSOrigins:    cfg.CORS.Origins(),
		TrustedProxies: cfg.Server.TrustedProxies,
		LoginRateLimit: cfg.API.LoginRateLimit,
		MaxLimit:       cfg.API.MaxLimit,
		ExposeErrors:   cfg.Server.ExposeErrors,
	}, handlers)

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddDataService(supervisor.NewPoolMonitor(database, cfg.Database.PingInterval))
	tree.AddAPIService(supervisor.NewHTTPService(server.HTTPServer(), server.Addr(), cfg.Server.ShutdownTimeout))

	log.Info().
		Str("environment", cfg.Environment).
		Str("addr", server.Addr()).
		Strs("cors_origins", cfg.CORS.Origins()).
		Msg("starting movie recommendation API")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		log.Warn().Int("count", len(unstopped)).Msg("services did not stop before the shutdown timeout")
	}
	log.Info().Msg("shutdown complete")
	return nil
}
