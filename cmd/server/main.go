package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"roombooking-service/internal/app"
	"roombooking-service/internal/booking"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/config"
	"roombooking-service/internal/fanout"
	"roombooking-service/internal/locale"
	"roombooking-service/internal/logging"
	"roombooking-service/internal/notify"
	"roombooking-service/internal/schedule"
	"roombooking-service/internal/server"
	"roombooking-service/internal/workinghours"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return err
	}
	msgs := locale.Lookup(cfg.Locale)
	if logging.ParseLevel(cfg.LogLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	gw, graph, err := cfg.Gateway(ctx)
	if err != nil {
		return err
	}

	opts := fanout.Options{Limit: cfg.FanoutLimit, Timeout: cfg.FetchTimeout}
	if cfg.ProviderRateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.ProviderRateLimit), cfg.FanoutLimit)
	}

	var store workinghours.Store
	switch cfg.WorkingHoursStore {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}
		defer pool.Close()
		pg := workinghours.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
	default:
		store = workinghours.NewFileStore(cfg.WorkingHoursFile)
	}
	hours := workinghours.NewService(store, gw, logger)

	policies := booking.DefaultPolicies()
	if cfg.RoomPoliciesFile != "" {
		if policies, err = booking.LoadPolicies(cfg.RoomPoliciesFile); err != nil {
			return err
		}
	}

	var sender notify.Sender
	switch cfg.Notifier {
	case config.NotifierGraph:
		sender = &notify.GraphMailer{Graph: graph, Fallback: cfg.FallbackSender}
	case config.NotifierSendGrid:
		sender = &notify.SendGridMailer{APIKey: cfg.SendGridAPIKey, FromName: cfg.SendGridFromName, FromAddr: cfg.SendGridFromAddr}
	default:
		sender = &notify.LogMailer{Logger: logger}
	}
	dispatcher, err := notify.NewDispatcher(sender, notify.Config{
		Messages: msgs,
		Watchers: cfg.NotifyWatchers,
		BaseURL:  cfg.PublicBaseURL,
		Location: loc,
	}, logger)
	if err != nil {
		return err
	}

	coordinator := booking.NewCoordinator(gw, hours, dispatcher, booking.Config{
		Policies:         policies,
		Location:         loc,
		Messages:         msgs,
		FallbackApprover: cfg.FallbackApprover,
	}, logger)
	aggregator := schedule.NewAggregator(gw, schedule.NewTitleCache(cfg.TitleCacheTTL, nil), schedule.Config{
		Fanout:         opts,
		ResolveTimeout: cfg.ResolveTimeout,
		Location:       loc,
		Messages:       msgs,
	}, logger)

	appInstance := &app.App{
		Schedule:     aggregator,
		Rooms:        &calendar.Directory{Gateway: gw, Fanout: opts, Logger: logger},
		Bookings:     coordinator,
		WorkingHours: hours,
		WindowDays:   cfg.WindowDays,
		Logger:       logger,
	}
	auth := &app.Authenticator{Secret: []byte(cfg.JWTSecret), StaticTokens: cfg.StaticTokens}
	router := app.NewRouter(appInstance, auth, logger)

	return server.Run(ctx, router, server.Config{Addr: cfg.ListenAddr, AllowedOrigins: cfg.CORSOrigins}, logger)
}
