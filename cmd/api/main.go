package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/raildesk/raildesk/internal/api"
	"github.com/raildesk/raildesk/internal/auth"
	"github.com/raildesk/raildesk/internal/booking"
	"github.com/raildesk/raildesk/internal/ports"
	"github.com/raildesk/raildesk/internal/session"
	"github.com/raildesk/raildesk/internal/validator"
	"github.com/raildesk/raildesk/internal/wizard"
	"github.com/raildesk/raildesk/pkg/config"
	"github.com/raildesk/raildesk/pkg/health"
	"github.com/raildesk/raildesk/pkg/rail"
)

type App struct {
	config    *config.Config
	log       *logrus.Logger
	server    *http.Server
	db        *pgxpool.Pool
	sessions  *session.Store
	stopPurge context.CancelFunc
}

func NewApp(cfg *config.Config) *App {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	return &App{
		config: cfg,
		log:    log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.setupDatabase(ctx); err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}

	if err := a.setupServer(); err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}

	return nil
}

func (a *App) setupDatabase(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.sessions = session.NewStore(pool, a.log)
	return nil
}

func (a *App) setupServer() error {
	client := rail.NewClient(
		rail.WithBaseURL(a.config.Rail.BaseURL),
		rail.WithTimeout(a.config.Rail.Timeout),
	)
	refresher := auth.NewRefresher(client, a.sessions, a.log)
	gateways := func(sess *session.Session) ports.RailGateway {
		return auth.NewGateway(client, refresher, sess)
	}

	validate := validator.NewCustomValidator()
	payment := wizard.Payment{
		Currency:           a.config.Payment.Currency,
		SuccessURLTemplate: a.config.Payment.SuccessURLTemplate,
		CancelURLTemplate:  a.config.Payment.CancelURLTemplate,
	}
	wizards := wizard.NewManager(gateways, a.sessions, validate, payment, a.log)
	confirm := booking.NewConfirmationService(a.sessions, a.log)

	cookies := api.DefaultCookies()
	cookies.Secure = a.config.Session.CookieSecure
	cookies.SessionTTL = a.config.Session.TTL

	server := api.NewServer(a.sessions, wizards, client, gateways, confirm, validate, cookies, a.log)

	router := server.Routes()
	router.HandleFunc("/v1/health", health.HealthGet())

	handler := cors.New(cors.Options{
		AllowedOrigins:   a.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	a.server = &http.Server{
		Addr:         a.config.Server.Address,
		Handler:      handler,
		WriteTimeout: a.config.Server.WriteTimeout,
		ReadTimeout:  a.config.Server.ReadTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	return nil
}

// runSessionPurge drops sessions idle past the TTL on a fixed interval.
func (a *App) runSessionPurge(ctx context.Context) {
	ticker := time.NewTicker(a.config.Session.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sessions.PurgeStale(ctx, a.config.Session.TTL)
			if err != nil {
				a.log.WithError(err).Warn("session purge failed")
				continue
			}
			if n > 0 {
				a.log.WithField("purged", n).Info("purged stale sessions")
			}
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	purgeCtx, cancel := context.WithCancel(ctx)
	a.stopPurge = cancel
	go a.runSessionPurge(purgeCtx)

	serverErrors := make(chan error, 1)

	go func() {
		a.log.WithField("address", a.server.Addr).Info("starting server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-shutdown:
		a.log.Info("starting graceful shutdown")
		return a.Shutdown(ctx)
	case <-ctx.Done():
		return a.Shutdown(ctx)
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	if a.stopPurge != nil {
		a.stopPurge()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.db != nil {
		a.db.Close()
	}

	return nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	app := NewApp(cfg)
	if err := app.Initialize(ctx); err != nil {
		app.log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		app.log.Fatalf("Application error: %v", err)
	}
}
