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
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wckliment/ikon-practice-sub001/internal/config"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/formtoken"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/location"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/reconciliation"
	"github.com/wckliment/ikon-practice-sub001/internal/domain/submission"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/auth"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/db"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/middleware"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/opendental"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/pdfgen"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/realtime"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/snapshots"
)

// DirectoryAdapter resolves a location's Open Dental credential pair and
// builds a per-location API client. It satisfies both the formtoken and
// submission Directory interfaces, avoiding circular imports between the
// domain packages and the location package.
type DirectoryAdapter struct {
	locations *location.Service
	baseURL   string
}

func NewDirectoryAdapter(locations *location.Service, baseURL string) *DirectoryAdapter {
	return &DirectoryAdapter{locations: locations, baseURL: baseURL}
}

func (a *DirectoryAdapter) clientFor(ctx context.Context, locationID uuid.UUID) (*opendental.Client, error) {
	loc, err := a.locations.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if !loc.HasCredentials() {
		return nil, opendental.ErrMissingCredentials
	}
	return opendental.NewClient(a.baseURL, *loc.CustomerKey, *loc.DeveloperKey)
}

// GetPatient implements formtoken.Directory and submission.Directory.
func (a *DirectoryAdapter) GetPatient(ctx context.Context, locationID uuid.UUID, patNum string) (*opendental.Patient, error) {
	client, err := a.clientFor(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return client.GetPatient(ctx, patNum)
}

// UpdatePatient implements submission.Directory.
func (a *DirectoryAdapter) UpdatePatient(ctx context.Context, locationID uuid.UUID, patNum string, fields map[string]string) error {
	client, err := a.clientFor(ctx, locationID)
	if err != nil {
		return err
	}
	return client.UpdatePatient(ctx, patNum, fields)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "forms-server",
		Short: "Dental practice forms API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the forms API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger. Development gets the console writer; production drops debug
	// noise.
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if cfg.IsProduction() {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.BodyLimit("2M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// API groups. Staff routes require a bearer token; public routes are
	// reachable by patients following an emailed or texted form link, so
	// they live on a sibling group that never sees the auth middleware.
	apiV1 := e.Group("/api/v1")
	public := e.Group("/api/v1/public")

	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set; staff routes use the development identity")
		apiV1.Use(auth.DevMiddleware())
	} else {
		apiV1.Use(auth.Middleware([]byte(cfg.JWTSecret)))
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Realtime hub for tablet assignment pushes
	hub := realtime.NewHub(logger)
	hubHandler := realtime.NewHandler(hub)
	hubHandler.RegisterRoutes(public)

	// -- Register domain handlers --

	// Locations
	locRepo := location.NewRepoPG(pool)
	locSvc := location.NewService(locRepo)
	locHandler := location.NewHandler(locSvc)
	locHandler.RegisterRoutes(apiV1, public)

	// Patient directory adapter, scoped by location credentials
	directory := NewDirectoryAdapter(locSvc, cfg.OpenDentalAPIURL)

	// Form templates
	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	formRepo := form.NewRepoPG(pool)
	formSvc := form.NewService(formRepo, txRunner)
	formHandler := form.NewHandler(formSvc)
	formHandler.RegisterRoutes(apiV1)

	// Reconciliation log
	reconRepo := reconciliation.NewRepoPG(pool)
	reconSvc := reconciliation.NewService(reconRepo, logger)
	reconHandler := reconciliation.NewHandler(reconSvc)
	reconHandler.RegisterRoutes(apiV1)

	// Form tokens
	tokenRepo := formtoken.NewRepoPG(pool)
	tokenSvc := formtoken.NewService(tokenRepo, formSvc, directory, hub, cfg.AppBaseURL, logger)
	tokenHandler := formtoken.NewHandler(tokenSvc)
	tokenHandler.RegisterRoutes(apiV1, public)

	// Submissions
	renderer := pdfgen.NewGenerator("Dental Practice")
	pdfStore := snapshots.NewPGStore(pool)
	subRepo := submission.NewRepoPG(pool)
	subSvc := submission.NewService(subRepo, txRunner, formSvc, reconSvc, directory, renderer, pdfStore, cfg.DuplicatePolicy, logger)
	subHandler := submission.NewHandler(subSvc)
	subHandler.RegisterRoutes(apiV1, public)

	// Start server
	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
