package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/freddy/backend/internal/ai"
	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/config"
	"example.com/freddy/backend/internal/handlers"
	"example.com/freddy/backend/internal/notifications"
	"example.com/freddy/backend/internal/repository"
	"example.com/freddy/backend/internal/service"
)

// Dependencies содержит внешние ресурсы, которые собирает main.
type Dependencies struct {
	Store    repository.SnapshotStore
	Log      repository.AssistantLog
	AIClient ai.Client
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Dependencies) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if len(cfg.Server.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.AllowedOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.LedgerTokenTTL)
	notificationHub := notifications.NewHub()
	assistant := ai.NewAssistant(deps.AIClient, ai.AssistantOptions{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		Timeout:  cfg.AI.Timeout,
	})
	ledgers := service.NewLedgers(service.Options{
		Store:     deps.Store,
		Log:       deps.Log,
		Assistant: assistant,
		Publisher: notificationHub,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	})

	registerRoutes(e, routeHandlers{
		session:       handlers.NewSessionHandler(tokenManager),
		ledger:        handlers.NewLedgerHandler(ledgers),
		onboarding:    handlers.NewOnboardingHandler(ledgers),
		chat:          handlers.NewChatHandler(ledgers),
		exports:       handlers.NewExportHandler(ledgers),
		notifications: handlers.NewNotificationHandler(notificationHub),
	}, routeMiddleware{
		auth:        auth.JWTMiddleware(tokenManager),
		sessionRate: sessionRateLimiter(cfg.Auth),
		chatRate:    chatRateLimiter(cfg.AI),
	})

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if ledgerID, ok := auth.LedgerIDFromContext(c); ok {
				attrs = append(attrs, slog.String("ledger_id", ledgerID))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func newRateLimiterStore(perMinute, burst int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: time.Minute,
	})
}

// sessionRateLimiter ограничивает выдачу новых леджеров по IP.
func sessionRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	return middleware.RateLimiter(newRateLimiterStore(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
}

// chatRateLimiter ограничивает обращения к модели по леджеру.
// Должен стоять после JWTMiddleware.
func chatRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: newRateLimiterStore(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if ledgerID, ok := auth.LedgerIDFromContext(c); ok {
				return ledgerID, nil
			}
			return c.RealIP(), nil
		},
	})
}
