package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tripplan_app_echo/internal/config"
	"tripplan_app_echo/internal/handlers"
	authMiddleware "tripplan_app_echo/internal/middleware"
	"tripplan_app_echo/internal/services"
	"tripplan_app_echo/internal/tasks"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis carries both the place cache and cross-instance change events.
	// Without it, events only reach subscribers in this process.
	var (
		cache    *services.RedisCache
		notifier services.Notifier
	)
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer cache.Close()
		notifier = services.NewRedisNotifier(cache, cfg.NotifyTimeout, logger)
	} else {
		log.Println("Warning: REDIS_URL not set, using in-process notifier and no place cache")
		notifier = services.NewLocalNotifier()
	}

	var (
		verifier authMiddleware.TokenVerifier
		issuer   handlers.SessionIssuer
	)
	authClient, err := services.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	} else {
		verifier, issuer = authClient, authClient
	}

	guard := services.NewPermissionGuard(db)
	resolver := services.NewPlaceResolver(db, cache, cfg.PlaceCacheTTL, logger)
	invitations := tasks.NewSendInvitationTask(nil, cfg.AppURL, logger)

	userService := services.NewUserService(db)
	planService := services.NewPlanService(db, guard, notifier, logger)
	memberService := services.NewMemberService(db, guard, invitations, notifier, logger)
	scheduleService := services.NewScheduleService(db, guard, resolver, notifier, logger)

	e := echo.New()
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	authHandler := handlers.NewAuthHandler(issuer, userService, cfg.IsProduction())
	e.POST("/auth/session", authHandler.CreateSession)
	e.POST("/auth/logout", authHandler.Logout)

	api := e.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth(verifier, userService))
	handlers.RegisterRoutes(api,
		handlers.NewPlanHandler(planService),
		handlers.NewMemberHandler(memberService, userService),
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewUserHandler(userService),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := serve(ctx, e, ":"+cfg.Port, 10*time.Second); err != nil {
		log.Printf("Server stopped: %v", err)
	}
	log.Println("Server shut down")
}

// serve runs e until ctx is cancelled, then drains in-flight requests for up
// to timeout. A listener that fails to start is returned immediately.
func serve(ctx context.Context, e *echo.Echo, addr string, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
