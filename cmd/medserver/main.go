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

	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/config"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/domain/adherence"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/domain/medication"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/domain/prescription"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/domain/reports"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/domain/user"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/auth"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/db"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/jobs"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/middleware"
	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/websocket"
)

// hubNotifier adapts the websocket hub to the adherence.Notifier interface,
// avoiding a direct dependency from the adherence package on the hub.
type hubNotifier struct {
	hub *websocket.Hub
}

func newHubNotifier(hub *websocket.Hub) *hubNotifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) NotifyDoctorAdherenceUpdate(doctorID, patientID uuid.UUID, status string) {
	n.hub.SendToUser(doctorID, websocket.NewEvent(websocket.EventAdherenceUpdated, map[string]interface{}{
		"patient_id": patientID,
		"status":     status,
	}))
}

func (n *hubNotifier) NotifyPatientWarning(patientID, doctorID uuid.UUID, message string) {
	n.hub.SendToUser(patientID, websocket.NewEvent(websocket.EventDoctorWarning, map[string]interface{}{
		"doctor_id": doctorID,
		"message":   message,
	}))
}

func (n *hubNotifier) BroadcastAdherenceUpdate(patientID uuid.UUID, status string, doctorIDs []uuid.UUID) {
	event := websocket.NewEvent(websocket.EventAdherenceUpdated, map[string]interface{}{
		"patient_id": patientID,
		"status":     status,
	})
	n.hub.BroadcastRoom("patient:"+patientID.String(), event)
	for _, doctorID := range doctorIDs {
		n.hub.SendToUser(doctorID, event)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medserver",
		Short: "Medication adherence API server",
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
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	loc, err := cfg.ScheduleLocation()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid schedule timezone")
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
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
	e.Use(middleware.BodyLimit(cfg.MaxBodySize))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	secret := []byte(cfg.JWTSecret)

	// Websocket hub; connections authenticate with the same JWTs as the API.
	hub := websocket.NewHub()
	wsHandler := websocket.NewWebSocketHandler(hub, func(token string) (uuid.UUID, error) {
		claims, err := auth.ParseToken(secret, token)
		if err != nil {
			return uuid.Nil, err
		}
		return uuid.Parse(claims.Subject)
	})
	wsHandler.RegisterRoutes(e.Group("/ws"))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group behind auth
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(secret))
	}

	notifier := newHubNotifier(hub)

	// Repositories
	userRepo := user.NewRepoPG(pool)
	medRepo := medication.NewRepoPG(pool)
	presRepo := prescription.NewRepoPG(pool)
	scheduleRepo := adherence.NewScheduleRepoPG(pool)
	logRepo := adherence.NewLogRepoPG(pool)
	alertRepo := adherence.NewAlertRepoPG(pool)
	reportsRepo := reports.NewRepoPG(pool)

	// Services and handlers
	userSvc := user.NewService(userRepo)
	user.NewHandler(userSvc).RegisterRoutes(apiV1)

	medSvc := medication.NewService(medRepo)
	medication.NewHandler(medSvc).RegisterRoutes(apiV1)

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	presSvc := prescription.NewService(presRepo, txRunner)
	prescription.NewHandler(presSvc).RegisterRoutes(apiV1)

	rateWindow := time.Duration(cfg.AdherenceWindowDays) * 24 * time.Hour
	adherenceSvc := adherence.NewService(scheduleRepo, logRepo, alertRepo, notifier, txRunner,
		adherence.WithServiceLocation(loc))
	adherence.NewHandler(adherenceSvc, rateWindow).RegisterRoutes(apiV1)

	reportsSvc := reports.NewService(reportsRepo, 30)
	reports.NewHandler(reportsSvc).RegisterRoutes(apiV1)

	// Scheduled jobs
	engine := adherence.NewEngine(scheduleRepo, logRepo, alertRepo, notifier, logger,
		adherence.WithLocation(loc),
		adherence.WithHorizon(time.Duration(cfg.ReminderHorizonMinutes)*time.Minute),
		adherence.WithRateWindow(rateWindow),
		adherence.WithRateThreshold(cfg.LowAdherenceThreshold))

	var runner *jobs.Runner
	if cfg.JobsEnabled {
		runner = jobs.NewRunner(logger)
		for _, j := range []struct {
			spec string
			name string
			job  jobs.Job
		}{
			{"* * * * *", "dispatch-due-reminders", engine.DispatchDueReminders},
			{"*/30 * * * *", "remind-upcoming", engine.RemindUpcoming},
			{"0 9 * * *", "check-low-adherence", engine.CheckLowAdherence},
			{"0 0 * * *", "mark-missed-doses", engine.MarkMissedDoses},
		} {
			if err := runner.Register(j.spec, j.name, j.job); err != nil {
				logger.Fatal().Err(err).Str("job", j.name).Msg("failed to register job")
			}
		}
		runner.Start()
		defer runner.Stop()
		logger.Info().Msg("scheduled jobs started")
	}

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
