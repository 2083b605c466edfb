package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	ContextLedgerIDKey = "ledger_id"
	// QueryTokenParam используется EventSource, который не умеет передавать заголовки.
	QueryTokenParam = "access_token"
)

// JWTMiddleware проверяет токен леджера и сохраняет ledger_id в контексте.
func JWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := extractToken(c)
			if err != nil {
				return err
			}

			ledgerID, err := manager.Parse(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextLedgerIDKey, ledgerID)
			return next(c)
		}
	}
}

func extractToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := strings.TrimSpace(c.QueryParam(QueryTokenParam)); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	return tokenString, nil
}

// LedgerIDFromContext извлекает идентификатор леджера из контекста.
func LedgerIDFromContext(c echo.Context) (string, bool) {
	ledgerID, ok := c.Get(ContextLedgerIDKey).(string)
	return ledgerID, ok && ledgerID != ""
}
