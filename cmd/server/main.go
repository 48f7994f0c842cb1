// Package main is the entry point for the eventboard server. It loads
// configuration, establishes database connections, wires the events API and
// the browser pages together, and starts the HTTP server. The migrate and
// seed commands share the same configuration.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/keyxmakerx/eventboard/internal/app"
	"github.com/keyxmakerx/eventboard/internal/config"
	"github.com/keyxmakerx/eventboard/internal/database"
	"github.com/keyxmakerx/eventboard/internal/plugins/events"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "eventboard",
		Usage: "Browse, create and edit events.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
		// Running without a command serves.
		Flags:  serveFlags(),
		Action: serve,
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("eventboard failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "in-memory",
			Usage:   "Keep events in memory instead of MariaDB (no Redis either).",
			EnvVars: []string{"IN_MEMORY"},
		},
		&cli.StringFlag{
			Name:  "seed",
			Usage: "Seed file imported when no events exist. Overrides SEED_PATH.",
		},
		&cli.BoolFlag{
			Name:  "skip-migrations",
			Usage: "Do not apply pending migrations on startup.",
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP server (default).",
		Flags:  serveFlags(),
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending migrations, or roll back with --down.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "down", Usage: "Roll back N migrations instead of applying."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewMariaDB(c.Context, cfg.Database)
			if err != nil {
				return fmt.Errorf("connecting to MariaDB: %w", err)
			}
			defer db.Close()

			if steps := c.Int("down"); steps > 0 {
				return database.RollbackMigrations(db, cfg.MigrationsPath, steps)
			}
			return database.RunMigrations(db, cfg.MigrationsPath)
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Import a JSON or YAML seed file, updating events that exist.",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("seed: file argument required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			seed, err := events.LoadSeed(path, loc)
			if err != nil {
				return err
			}

			db, err := database.NewMariaDB(c.Context, cfg.Database)
			if err != nil {
				return fmt.Errorf("connecting to MariaDB: %w", err)
			}
			defer db.Close()
			if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
				return err
			}

			// The cache is optional here; a stale directory would expire anyway.
			rdb := connectRedis(c.Context, cfg)
			if rdb != nil {
				defer rdb.Close()
			}

			svc := events.NewEventService(events.NewEventRepository(db), directoryCache(cfg, rdb), loc)
			if err := svc.Import(c.Context, seed); err != nil {
				return err
			}
			slog.Info("seed imported",
				slog.String("file", path),
				slog.Int("events", len(seed.Events)),
				slog.Int("categories", len(seed.Categories)),
				slog.Int("users", len(seed.Users)),
			)
			return nil
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("starting eventboard",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.Bool("in_memory", c.Bool("in-memory")),
	)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db  *sql.DB
		rdb *redis.Client
	)
	if !c.Bool("in-memory") {
		// --- Connect to MariaDB ---
		db, err = database.NewMariaDB(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to MariaDB: %w", err)
		}
		defer db.Close()
		slog.Info("connected to MariaDB")

		if !c.Bool("skip-migrations") {
			if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
				return err
			}
		}

		// --- Connect to Redis ---
		rdb = connectRedis(ctx, cfg)
		if rdb != nil {
			defer rdb.Close()
		}
	}

	// --- Create Application ---
	application := app.New(cfg, db, rdb)
	if c.Bool("in-memory") {
		application.EventRepo = events.NewMemoryRepository()
	}
	if err := application.RegisterRoutes(); err != nil {
		return err
	}

	seedPath := cfg.SeedPath
	if c.IsSet("seed") {
		seedPath = c.String("seed")
	}
	if seedPath != "" {
		if err := seedIfEmpty(ctx, cfg, application.Events, seedPath); err != nil {
			return err
		}
	}

	go application.Limiter.Cleanup(ctx)

	if rdb != nil && cfg.Cache.WarmCron != "" {
		scheduler, err := startCacheWarmer(cfg.Cache.WarmCron, application.Events)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	// --- Graceful Shutdown ---
	// Drain in-flight requests when a signal arrives so container restarts
	// are seamless.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// loadConfig reads the configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

// connectRedis returns nil when Redis is unreachable; the directory is then
// served straight from the database.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, directory cache disabled", slog.Any("error", err))
		return nil
	}
	slog.Info("connected to Redis")
	return rdb
}

func directoryCache(cfg *config.Config, rdb *redis.Client) events.DirectoryCache {
	if rdb == nil {
		return nil
	}
	return events.NewDirectoryCache(rdb, cfg.Cache.TTL)
}

func seedIfEmpty(ctx context.Context, cfg *config.Config, svc events.EventService, path string) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	seed, err := events.LoadSeed(path, loc)
	if err != nil {
		return err
	}
	imported, err := svc.ImportIfEmpty(ctx, seed)
	if err != nil {
		return err
	}
	slog.Info("seed checked",
		slog.String("file", path),
		slog.Bool("imported", imported),
	)
	return nil
}

// startCacheWarmer rebuilds the directory cache on the given cron schedule.
func startCacheWarmer(spec string, svc events.EventService) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.WarmCache(ctx); err != nil {
			slog.Warn("warming directory cache", slog.Any("error", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("CACHE_WARM_CRON %q: %w", spec, err)
	}
	scheduler.Start()
	slog.Info("directory cache warmer started", slog.String("schedule", spec))
	return scheduler, nil
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation. LOG_LEVEL picks the threshold.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
