package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"reviewhub/database"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/handler"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/repository"
	"reviewhub/internal/api/service"
	"reviewhub/internal/auth"
	"reviewhub/internal/config"
	"reviewhub/internal/mailer"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("database handle unavailable", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	rdb := newRedisClient(cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	genreRepo := repository.NewGenreRepository(db)
	titleRepo := repository.NewTitleRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Services
	codes := auth.NewGenerator(cfg.JWTSecret, cfg.ConfirmationCodeTTL)
	authSvc := service.NewAuthService(userRepo, codes, newMailClient(cfg, logger), cfg.JWTSecret, cfg.AccessTokenTTL, logger)
	userSvc := service.NewUserService(userRepo)
	categorySvc := service.NewCategoryService(categoryRepo)
	genreSvc := service.NewGenreService(genreRepo)
	titleSvc := service.NewTitleService(titleRepo, categoryRepo, genreRepo, reviewRepo)
	reviewSvc := service.NewReviewService(reviewRepo, titleRepo)
	commentSvc := service.NewCommentService(commentRepo, reviewRepo)

	router := setupRouter(cfg, logger, rdb, authSvc, userSvc, categorySvc, genreSvc, titleSvc, reviewSvc, commentSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func setupRouter(
	cfg *config.Config,
	logger *slog.Logger,
	rdb *redis.Client,
	authSvc service.AuthService,
	userSvc service.UserService,
	categorySvc service.CategoryService,
	genreSvc service.GenreService,
	titleSvc service.TitleService,
	reviewSvc service.ReviewService,
	commentSvc service.CommentService,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidators()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.OptionalAuthenticate(authSvc))

	authGroup := api.Group("/auth")
	if rdb != nil {
		authGroup.Use(middleware.RateLimit(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow, logger))
	}
	handler.NewAuthHandler(authSvc).RegisterRoutes(authGroup)

	handler.NewUserHandler(userSvc).RegisterRoutes(api.Group("/users"), middleware.Authenticate(authSvc))
	handler.NewCategoryHandler(categorySvc).RegisterRoutes(api.Group("/categories"))
	handler.NewGenreHandler(genreSvc).RegisterRoutes(api.Group("/genres"))

	titles := api.Group("/titles")
	handler.NewTitleHandler(titleSvc).RegisterRoutes(titles)
	handler.NewReviewHandler(reviewSvc).RegisterRoutes(titles)
	handler.NewCommentHandler(commentSvc).RegisterRoutes(titles)

	return r
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, auth rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The limiter already fails open, so a dead redis only costs us
		// throttling, not availability.
		logger.Warn("redis unreachable, auth rate limiting degraded", "error", err)
	}
	return rdb
}

func newMailClient(cfg *config.Config, logger *slog.Logger) mailer.Client {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, confirmation codes will be logged only")
		return mailer.NewLogClient(logger)
	}
	return mailer.NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.MailPerMinute, logger)
}
