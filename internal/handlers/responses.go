package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/ledger"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/service"
)

// AmountInput принимает сумму как JSON-число или строку из поля ввода.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*a = AmountInput(text)
		return nil
	}

	*a = AmountInput(strings.TrimSpace(string(data)))
	return nil
}

// Float разбирает сумму без проверки знака; нулевой доход допустим.
func (a AmountInput) Float() (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// MutationResponse возвращает состояние леджера после изменения.
// Applied=false означает, что ввод отклонен и состояние не изменилось.
type MutationResponse struct {
	Applied bool            `json:"applied"`
	Reason  string          `json:"reason,omitempty"`
	Ledger  models.Snapshot `json:"ledger"`
}

func respondMutation(c echo.Context, snapshot models.Snapshot, err error) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MutationResponse{Applied: true, Ledger: snapshot})
	case errors.Is(err, ledger.ErrDuplicateCategory):
		return c.JSON(http.StatusOK, MutationResponse{Reason: "category already exists", Ledger: snapshot})
	case errors.Is(err, ledger.ErrInvalidInput):
		return c.JSON(http.StatusOK, MutationResponse{Reason: "invalid input", Ledger: snapshot})
	case errors.Is(err, ledger.ErrNotFound):
		return notFound(c, "not found")
	case errors.Is(err, service.ErrNotOnboarded):
		return conflict(c, "onboarding required")
	default:
		slog.Error("ledger mutation failed", "path", c.Path(), "error", err)
		return serverError(c)
	}
}

// rejected отвечает на неразборчивый ввод текущим состоянием без изменений.
func rejected(c echo.Context, ledgers *service.Ledgers, ledgerID string) error {
	snapshot, err := ledgers.Snapshot(c.Request().Context(), ledgerID)
	if err != nil {
		return respondMutation(c, snapshot, err)
	}
	if !snapshot.IsOnboarded {
		return respondMutation(c, snapshot, service.ErrNotOnboarded)
	}
	return respondMutation(c, snapshot, ledger.ErrInvalidInput)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
