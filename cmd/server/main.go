package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/ekklesia-certificates/internal/config"
	"github.com/iliyamo/ekklesia-certificates/internal/database"
	"github.com/iliyamo/ekklesia-certificates/internal/handler"
	"github.com/iliyamo/ekklesia-certificates/internal/middleware"
	"github.com/iliyamo/ekklesia-certificates/internal/queue"
	"github.com/iliyamo/ekklesia-certificates/internal/repository"
	"github.com/iliyamo/ekklesia-certificates/internal/router"
	"github.com/iliyamo/ekklesia-certificates/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	logger := log.New("certificates")
	logger.SetHeader(`${time_rfc3339} ${level} ${prefix} ${short_file}:${line}`)
	if cfg.IsDev() {
		logger.SetLevel(log.DEBUG)
	} else {
		logger.SetLevel(log.INFO)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		amqpURL := config.AMQPURL()
		events = service.AMQPPublisher{URL: amqpURL}
		go func() {
			if err := queue.StartAuditConsumer(ctx, amqpURL, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("audit consumer: %v", err)
			}
		}()
	}

	users := repository.NewUserRepo(db)
	svc := service.NewCertificateService(
		repository.NewCertificateRepo(db),
		repository.NewValidationRepo(db),
		repository.NewRecordRepo(db),
		events,
		service.Config{Secret: cfg.CertificateSecret, BaseURL: cfg.PublicBaseURL},
		logger,
	)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	ipExtractor, err := middleware.NewIPExtractor(cfg.TrustedProxies)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	e.IPExtractor = ipExtractor
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	certs := handler.NewCertificateHandler(svc, users)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterPublicValidation(e, certs, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterCertificates(e, certs, cfg.JWTSecret, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
