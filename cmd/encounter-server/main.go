package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/encounter/internal/config"
	"github.com/ehr/encounter/internal/domain/appointment"
	"github.com/ehr/encounter/internal/domain/component"
	"github.com/ehr/encounter/internal/domain/componenttype"
	"github.com/ehr/encounter/internal/domain/directory"
	"github.com/ehr/encounter/internal/domain/encounter"
	"github.com/ehr/encounter/internal/platform/auth"
	"github.com/ehr/encounter/internal/platform/cache"
	"github.com/ehr/encounter/internal/platform/db"
	"github.com/ehr/encounter/internal/platform/events"
	"github.com/ehr/encounter/internal/platform/middleware"
	"github.com/ehr/encounter/internal/platform/reporting"
	"github.com/ehr/encounter/internal/platform/tz"
	"github.com/ehr/encounter/internal/platform/validate"
	"github.com/ehr/encounter/internal/platform/webhook"
	"github.com/ehr/encounter/internal/platform/websocket"
	"github.com/ehr/encounter/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "encounter-server",
		Short: "Patient encounter API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(componentTypesCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the encounter API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newMigrator reads migrations from dir when it exists, else from the copy
// embedded in the binary.
func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	if useMigrationsDir(dir) {
		return db.NewMigrator(pool, dir)
	}
	return db.NewMigratorFS(pool, migrations.FS)
}

func useMigrationsDir(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := newMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR, then the embedded set)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := newMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR, then the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func componentTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "component-types",
		Short: "Manage the encounter component type registry",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Register the component types of a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				file = cfg.ComponentTypesFile
			}
			cat, err := componenttype.LoadCatalog(file)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := componenttype.NewService(componenttype.NewRepo(pool), nil, newLogger(cfg.Env))
			n, err := svc.Seed(ctx, cat)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %d component type(s).\n", n)
			return nil
		},
	}
	seedCmd.Flags().String("file", "", "Catalog YAML (defaults to COMPONENT_TYPES_FILE, then the built-in catalog)")
	cmd.AddCommand(seedCmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-evaluations",
		Short: "Import legacy patient evaluations as encounters",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			a, err := buildApp(ctx, cfg, pool, nil, logger)
			if err != nil {
				return err
			}
			n, err := a.encounters.ImportEvaluations(ctx, f)
			fmt.Printf("Imported %d evaluation(s).\n", n)
			return err
		},
	}
	cmd.Flags().String("file", "", "JSONL file with one evaluation per line")
	return cmd
}

// app holds the wired services.
type app struct {
	directory    *directory.Service
	appointments *appointment.Service
	types        *componenttype.Service
	components   *component.Service
	editor       *component.Editor
	encounters   *encounter.Service
}

func parseDefaultInstitution(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_INSTITUTION: %w", err)
	}
	return &id, nil
}

// buildApp wires the services. rdb may be nil, in which case the type
// registry caches in memory and events only reach the extra publishers.
func buildApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rdb *goredis.Client,
	logger zerolog.Logger, extra ...events.Publisher) (*app, error) {
	institution, err := parseDefaultInstitution(cfg.DefaultInstitution)
	if err != nil {
		return nil, err
	}

	var (
		typeCache  cache.Cache[[]componenttype.Selection]
		publishers events.Fanout
	)
	publishers = append(publishers, extra...)
	if rdb != nil {
		typeCache = cache.NewViewCache[[]componenttype.Selection](rdb, "encounter:component-types:", 10*time.Minute, logger)
		publishers = append(publishers, events.NewStreamPublisher(rdb, cfg.EventStream))
	}
	var publisher events.Publisher = publishers

	tx := db.NewTransactor(pool)
	zones := tz.NewResolver(cfg.Timezone)

	a := &app{}
	a.directory = directory.NewService(directory.NewRepo(pool))
	a.appointments = appointment.NewService(appointment.NewRepo(pool), logger)
	a.types = componenttype.NewService(componenttype.NewRepo(pool), typeCache, logger)
	a.components = component.NewService(component.NewRepo(pool), tx, a.directory, a.types, publisher, zones, logger)
	a.editor = component.NewEditor(a.components, a.types)
	a.encounters = encounter.NewService(encounter.NewRepo(pool), a.components, a.directory, a.appointments, a.types, logger,
		encounter.WithTransactor(tx),
		encounter.WithPublisher(publisher),
		encounter.WithZones(zones),
		encounter.WithDefaultInstitution(institution),
	)
	a.components.SetEncounterLookup(a.encounters)
	a.appointments.SetEncounterFinder(a.encounters)

	cat, err := componenttype.LoadCatalog(cfg.ComponentTypesFile)
	if err != nil {
		return nil, err
	}
	if _, err := a.types.Seed(ctx, cat); err != nil {
		return nil, fmt.Errorf("register component types: %w", err)
	}
	return a, nil
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	})
}

func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.EchoValidator{}

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	return e
}

func registerRoutes(api *echo.Group, a *app, pool *pgxpool.Pool) {
	directory.NewHandler(a.directory).RegisterRoutes(api)
	appointment.NewHandler(a.appointments).RegisterRoutes(api)
	componenttype.NewHandler(a.types).RegisterRoutes(api)
	component.NewHandler(a.components, a.editor).RegisterRoutes(api)
	encounter.NewHandler(a.encounters).RegisterRoutes(api)
	reporting.NewHandler(pool, a.encounters).RegisterRoutes(api)
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis is optional
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching in memory and not publishing events")
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Info().Msg("connected to redis")
		}
	}

	hub := websocket.NewHub(logger)
	live := []events.Publisher{hub}
	if len(cfg.WebhookURLs) > 0 {
		hooks, err := webhook.NewDispatcher(webhook.ParseEndpoints(cfg.WebhookURLs, cfg.WebhookSecret, cfg.WebhookEvents), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid webhook configuration")
		}
		hookCtx, stopHooks := context.WithCancel(ctx)
		defer stopHooks()
		go hooks.Run(hookCtx)
		live = append(live, hooks)
		logger.Info().Int("endpoints", len(cfg.WebhookURLs)).Msg("webhook delivery enabled")
	}

	a, err := buildApp(ctx, cfg, pool, rdb, logger, live...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}

	e := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))
	apiV1 := e.Group("/api/v1", authMiddleware(cfg))
	registerRoutes(apiV1, a, pool)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
