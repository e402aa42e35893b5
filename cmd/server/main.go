package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"

	"github.com/commercium-dev/storefront/internal/config"
	"github.com/commercium-dev/storefront/internal/httpserver"
	"github.com/commercium-dev/storefront/internal/logging"
	"github.com/commercium-dev/storefront/internal/middleware/csrf"
	"github.com/commercium-dev/storefront/internal/models"
	"github.com/commercium-dev/storefront/internal/mykafka"
	"github.com/commercium-dev/storefront/internal/pricing"
	"github.com/commercium-dev/storefront/internal/repo"
	"github.com/commercium-dev/storefront/internal/service"
	"github.com/commercium-dev/storefront/internal/tokens"
	"github.com/commercium-dev/storefront/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Cart{}, &models.CartItem{},
		&models.RefreshToken{}, &models.Order{}, &models.OrderItem{},
	); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	var producer *mykafka.Producer
	var publisher service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	}

	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		log.Fatalf("bad TAX_RATE %q: %v", cfg.TaxRate, err)
	}
	engine := pricing.NewEngine(cfg.Currency)
	engine.TaxRate = taxRate

	gormRepo := repo.NewGormRepo(gdb)
	tokenSvc := &tokens.Service{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
	}
	authSvc := &service.AuthService{Repo: gormRepo, Tokens: tokenSvc, Producer: publisher}
	cartSvc := &service.CartService{
		Repo:     gormRepo,
		Pricing:  engine,
		Producer: publisher,
		Currency: cfg.Currency,
		GuestTTL: time.Duration(cfg.GuestCartTTLHrs) * time.Hour,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(httpserver.RequestLogger(logger))
	e.Use(csrf.Middleware(csrf.Config{
		SkipPaths: []string{
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
	}))

	deps := &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		CartHandler:    &httpserver.CartHTTP{Svc: cartSvc},
		ProductHandler: &httpserver.ProductHTTP{Repo: gormRepo},
		OrderHandler:   &httpserver.OrderHTTP{Repo: gormRepo},
		AuthMW:         &httpserver.AuthMiddleware{Tokens: tokenSvc, Auth: authSvc},
	}
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
