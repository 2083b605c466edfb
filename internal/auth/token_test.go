package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// TestTokenRoundTrip проверяет выпуск и разбор токена леджера.
func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("secret", "freddy", time.Hour)

	token, err := manager.NewLedger()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledgerID, err := manager.Parse(token.Token)
	if err != nil || ledgerID != token.LedgerID {
		t.Fatalf("expected %s, got %s (%v)", token.LedgerID, ledgerID, err)
	}
}

// TestTokenRejected проверяет отказ для чужого секрета и истекшего срока.
func TestTokenRejected(t *testing.T) {
	manager := NewTokenManager("secret", "freddy", time.Hour)
	token, _ := manager.NewLedger()

	other := NewTokenManager("other", "freddy", time.Hour)
	if _, err := other.Parse(token.Token); err == nil {
		t.Fatal("expected signature error")
	}

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := manager.Parse(token.Token); err == nil {
		t.Fatal("expected expiry error")
	}

	if _, err := manager.Issue(""); err == nil {
		t.Fatal("expected error for empty ledger id")
	}
}

// TestJWTMiddleware проверяет заголовок и query-параметр с токеном.
func TestJWTMiddleware(t *testing.T) {
	manager := NewTokenManager("secret", "freddy", time.Hour)
	token, _ := manager.NewLedger()

	e := echo.New()
	handler := JWTMiddleware(manager)(func(c echo.Context) error {
		ledgerID, ok := LedgerIDFromContext(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, ledgerID)
	})

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "header", header: "Bearer " + token.Token, status: http.StatusOK},
		{name: "query", query: "?access_token=" + token.Token, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "malformed", header: "Token " + token.Token, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			err := handler(e.NewContext(req, rec))
			status := rec.Code
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}

			if status != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, status)
			}
			if tc.status == http.StatusOK && rec.Body.String() != token.LedgerID {
				t.Fatalf("unexpected ledger id %s", rec.Body.String())
			}
		})
	}
}
