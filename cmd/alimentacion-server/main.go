package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/config"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/form"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/order"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/personnel"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/auth"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/blobstore"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/db"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/document"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/events"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/localstate"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/metrics"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/middleware"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/platform/notification"
	"github.com/ToshioDev/alimentacion-solicitudes-forms/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "alimentacion-server",
		Short: "Hospital meal order API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(personnelCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(tokenCmd())

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

// connect loads the configuration and opens the pool. The caller closes the
// pool.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg.Env)
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, pool, logger, nil
}

// migrationSource is the embedded schema unless dir points elsewhere.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, logger, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationSource(cfg.MigrationsDir), logger).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, logger, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationSource(cfg.MigrationsDir), logger).Status(ctx)
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
	})

	return cmd
}

func personnelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personnel",
		Short: "Manage the personnel directory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import or update personnel from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, logger, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			publisher := newPublisher(cfg, logger)
			defer publisher.Close()

			svc := personnel.NewService(personnel.NewRepoPG(pool), pool, nil, publisher, logger)
			res, err := svc.Import(ctx, f, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d employee(s).\n", res.Imported)
			if len(res.Skipped) > 0 {
				fmt.Printf("Skipped rows without name or employee number: %v\n", res.Skipped)
			}
			return nil
		},
	})

	return cmd
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <kind> <id>",
		Short: "Render a stored order to an HTML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			kind, err := order.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			ctx := cmd.Context()
			cfg, pool, logger, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newOrderService(pool, order.StoreDeps{Logger: logger})
			o, err := svc.Get(ctx, kind, id)
			if err != nil {
				return err
			}

			surface := &document.FileSurface{Dir: out}
			if err := surface.Open(ctx, newRenderer(cfg).Render(o)); err != nil {
				return err
			}
			fmt.Println(surface.LastPath)
			return nil
		},
	}
	cmd.Flags().String("out", ".", "Output directory")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			name, _ := cmd.Flags().GetString("name")
			roles, _ := cmd.Flags().GetString("roles")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is not set")
			}
			token, err := auth.IssueToken(jwtConfig(cfg), subject, name, parseRoles(roles), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "User id")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("roles", auth.RoleUser, "Comma separated roles (admin, user, staff)")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func parseRoles(csv string) []string {
	roles := []string{}
	for _, r := range strings.Split(csv, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	brokers := events.ParseBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return events.Noop{}
	}
	logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("publishing order events to kafka")
	return events.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
}

func newRenderer(cfg *config.Config) *document.Renderer {
	return document.NewRenderer(document.Options{
		Institution:      cfg.InstitutionName,
		InstitutionShort: cfg.InstitutionShort,
		LogoURL:          cfg.LogoURL,
		StaffSigners:     cfg.StaffSigners,
	})
}

func newOrderService(pool *pgxpool.Pool, deps order.StoreDeps) *order.Service {
	return order.NewService(
		order.NewStore[order.PatientOrder](order.KindPatient, order.NewPatientRepoPG(pool), deps),
		order.NewStore[order.StaffOrder](order.KindStaff, order.NewStaffRepoPG(pool), deps),
	)
}

func newArchive(dir string) (blobstore.BlobStore, error) {
	if dir == "" {
		return blobstore.NewInMemoryBlobStore(), nil
	}
	return blobstore.NewDirBlobStore(dir)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Shared collaborators
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	feed := notification.NewFeed(cfg.NotificationCapacity, logger)
	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	store, err := localstate.Open(cfg.LocalStateBackend, cfg.LocalStateDir, pool)
	if err != nil {
		return fmt.Errorf("open local state: %w", err)
	}
	cache := localstate.NewCache(store, logger)

	archive, err := newArchive(cfg.ArchiveDir)
	if err != nil {
		return fmt.Errorf("open document archive: %w", err)
	}

	// Domain services
	orders := newOrderService(pool, order.StoreDeps{
		Notifier:  feed,
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})
	people := personnel.NewService(personnel.NewRepoPG(pool), pool, feed, publisher, logger)
	renderer := newRenderer(cfg)
	docs := document.NewHandler(renderer, orders, archive, logger)

	forms := form.NewManager(form.Deps{
		Orders:    orders,
		Cache:     cache,
		Renderer:  renderer,
		Directory: people,
		Notifier:  feed,
		Importer:  order.NewImporter(nil),
		Logger:    logger,
	})
	if err := forms.Open(ctx); err != nil {
		logger.Warn().Err(err).Msg("restoring drafts failed")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{document.DocumentIDHeader, "X-Document-Title", "Content-Disposition"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.PoolHealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	apiV1 := e.Group("/api/v1")
	order.NewHandler(orders).RegisterRoutes(apiV1)
	docs.RegisterRoutes(apiV1)
	form.NewHandler(forms, orders, docs).RegisterRoutes(apiV1)
	personnel.NewHandler(people).RegisterRoutes(apiV1)
	blobstore.NewBlobHandler(archive).RegisterRoutes(apiV1)
	notification.NewHandler(feed).RegisterRoutes(apiV1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
