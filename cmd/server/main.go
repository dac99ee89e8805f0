package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procure-backend/internal/cache"
	"procure-backend/internal/config"
	"procure-backend/internal/database"
	"procure-backend/internal/db"
	"procure-backend/internal/handlers"
	"procure-backend/internal/health"
	"procure-backend/internal/mail"
	"procure-backend/internal/middleware"
	"procure-backend/internal/repositories"
	"procure-backend/internal/services"
	"procure-backend/migrations"

	"procure-backend/internal/auth"
	apihttp "procure-backend/internal/http"
)

func main() {
	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	if err := migrator.Run(context.Background()); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	cache.Init(cfg)
	defer cache.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	requestRepo := repositories.NewRequestRepository(pool)
	quoteRepo := repositories.NewQuoteRepository(pool)
	mailLogRepo := repositories.NewMailLogRepository(pool)

	// Mail: fall back to a mock sink when SMTP is not configured
	var sink mail.Sink
	if cfg.Mail.Host != "" {
		sink = mail.NewSMTPMailer(cfg)
	} else {
		log.Println("[Main] MAIL_HOST not set, using mock mailer")
		sink = mail.NewMockMailer()
	}
	mailer := mail.NewService(sink, mailLogRepo)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	userService := services.NewUserService(userRepo, jwtManager, mailer, cfg.Mail.AdminInbox)
	requestService := services.NewRequestService(requestRepo, userRepo, mailer)
	quoteService := services.NewQuoteService(quoteRepo, requestRepo, userRepo, mailer)
	dashboardService := services.NewDashboardService(requestRepo, quoteRepo, requestRepo, userRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	requestHandler := handlers.NewRequestHandler(requestService)
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler(health.NewChecker(pool))

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Auth:     authMiddleware,
		AuthH:    authHandler,
		UserH:    userHandler,
		RequestH: requestHandler,
		QuoteH:   quoteHandler,
		DashH:    dashboardHandler,
		HealthH:  healthHandler,
	})

	corsMiddleware := middleware.NewCORS()
	handler := middleware.PanicRecovery(corsMiddleware(router))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Main] listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Main] shutdown error: %v", err)
	}
}
