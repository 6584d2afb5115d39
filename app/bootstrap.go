package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"blog-service/internal/auth"
	"blog-service/internal/blog"
	"blog-service/internal/db"
	"blog-service/internal/media"
	"blog-service/internal/observability"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

// Build wires the whole service from environment configuration: secrets
// and expiry policy are read once here and flow into the token service
// as immutable values.
func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	accessSecret, err := mustEnv("JWT_ACCESS_SECRET")
	if err != nil {
		return nil, err
	}
	refreshSecret, err := mustEnv("JWT_REFRESH_SECRET")
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), envOrDefault("APP_ENV", "development")); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	accessCookie := envOrDefault("ACCESS_TOKEN_COOKIE", "access_token")
	refreshCookie := envOrDefault("REFRESH_TOKEN_COOKIE", "refresh_token")

	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     envHoursOrDefault("ACCESS_TOKEN_TTL_HOURS", 24),
		RefreshTTL:    envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 720),
	})

	userRepo := auth.NewRepository(database)
	authService := auth.NewService(userRepo, tokens)
	authHandler := auth.NewHandler(authService, logger, accessCookie, refreshCookie)

	blogRepo := blog.NewRepository(database)
	blogHandler := blog.NewHandler(blogRepo, userRepo, logger)

	var uploader media.AvatarUploader
	if cloudinaryURL := strings.TrimSpace(os.Getenv("CLOUDINARY_URL")); cloudinaryURL != "" {
		cloudinaryClient, err := media.NewCloudinary(cloudinaryURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("init cloudinary: %w", err)
		}
		uploader = cloudinaryClient
	}
	avatarHandler := media.NewAvatarHandler(uploader, logger)

	protected := func(next http.HandlerFunc) http.Handler {
		return auth.Middleware(tokens, accessCookie, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth", authHandler.Endpoints)
	mux.HandleFunc("GET /auth/login", authHandler.LoginHint)
	mux.HandleFunc("GET /auth/signup", authHandler.SignupHint)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /auth/refresh-token", authHandler.Refresh)
	mux.HandleFunc("GET /health", healthHandler(database))

	mux.HandleFunc("GET /blog", blogHandler.List)
	mux.Handle("POST /blog", protected(blogHandler.Create))
	mux.Handle("PATCH /blog/update", protected(blogHandler.Update))
	mux.HandleFunc("GET /blog/update", blogHandler.UpdateHint)
	mux.HandleFunc("GET /blog/search", blogHandler.Search)
	mux.HandleFunc("GET /blog/tags", blogHandler.Tags)
	mux.HandleFunc("GET /blog/views/{id}", blogHandler.Views)
	mux.HandleFunc("GET /blog/{id}", blogHandler.Get)

	mux.Handle("POST /media/avatar", protected(avatarHandler.Upload))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
