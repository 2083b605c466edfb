package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/auth"
	"example.com/freddy/backend/internal/ledger"
	"example.com/freddy/backend/internal/models"
	"example.com/freddy/backend/internal/onboarding"
	"example.com/freddy/backend/internal/service"
)

type OnboardingHandler struct {
	Ledgers *service.Ledgers
}

// NewOnboardingHandler создает обработчик мастера онбординга.
func NewOnboardingHandler(ledgers *service.Ledgers) *OnboardingHandler {
	return &OnboardingHandler{Ledgers: ledgers}
}

type DraftRequest struct {
	Currency models.Currency       `json:"currency"`
	Payday   AmountInput           `json:"payday"`
	Incomes  []models.IncomeStream `json:"incomes" validate:"max=50"`
	Budgets  []models.Budget       `json:"budgets" validate:"max=50"`
}

type StepRequest struct {
	Step      string       `json:"step" validate:"required"`
	Direction string       `json:"direction" validate:"omitempty,oneof=next back"`
	Draft     DraftRequest `json:"draft"`
}

type EditRequest struct {
	Op       string          `json:"op" validate:"required"`
	ID       string          `json:"id" validate:"max=64"`
	Name     string          `json:"name" validate:"max=100"`
	Amount   AmountInput     `json:"amount"`
	Currency models.Currency `json:"currency"`
	Payday   AmountInput     `json:"payday"`
	Draft    DraftRequest    `json:"draft"`
}

type DraftResponse struct {
	Draft          onboarding.Draft `json:"draft"`
	TotalIncome    float64          `json:"total_income"`
	TotalAllocated float64          `json:"total_allocated"`
	Remaining      float64          `json:"remaining"`
}

type StepResponse struct {
	Step           string  `json:"step"`
	Message        string  `json:"message,omitempty"`
	TotalIncome    float64 `json:"total_income"`
	TotalAllocated float64 `json:"total_allocated"`
	Remaining      float64 `json:"remaining"`
}

type CompleteRequest struct {
	Draft DraftRequest `json:"draft"`
}

// Draft возвращает черновик мастера со значениями по умолчанию.
func (h *OnboardingHandler) Draft(c echo.Context) error {
	draft := onboarding.DefaultDraft()
	return c.JSON(http.StatusOK, map[string]any{
		"step":  onboarding.StepCurrencySelection.String(),
		"draft": draft,
	})
}

// Step проверяет текущий шаг мастера и возвращает следующий.
func (h *OnboardingHandler) Step(c echo.Context) error {
	if _, ok := auth.LedgerIDFromContext(c); !ok {
		return unauthorized(c)
	}

	var req StepRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	from, ok := onboarding.ParseStep(req.Step)
	if !ok {
		return badRequest(c, "unknown step")
	}

	draft := req.Draft.toDraft()
	w := onboarding.New(draft)
	response := StepResponse{
		TotalIncome:    w.TotalIncome(),
		TotalAllocated: w.TotalBudget(),
		Remaining:      w.Remaining(),
	}

	if req.Direction == "back" {
		response.Step = onboarding.Retreat(draft, from).String()
		return c.JSON(http.StatusOK, response)
	}

	next, err := onboarding.Advance(draft, from)
	response.Step = next.String()
	if err != nil {
		var validation *onboarding.ValidationError
		if !errors.As(err, &validation) {
			return serverError(c)
		}
		response.Message = validation.Message
	}

	return c.JSON(http.StatusOK, response)
}

// Edit применяет одну правку к черновику и возвращает его с пересчитанными итогами.
func (h *OnboardingHandler) Edit(c echo.Context) error {
	if _, ok := auth.LedgerIDFromContext(c); !ok {
		return unauthorized(c)
	}

	var req EditRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	edit := onboarding.Edit{
		Op:       onboarding.EditOp(req.Op),
		ID:       req.ID,
		Name:     req.Name,
		Currency: req.Currency,
		Payday:   string(req.Payday),
	}
	if edit.Op == onboarding.EditUpdateIncome || edit.Op == onboarding.EditUpdateBudget {
		amount, ok := req.Amount.Float()
		if !ok {
			return badRequest(c, "invalid amount")
		}
		edit.Amount = amount
	}

	w := onboarding.New(req.Draft.toDraft())
	if err := w.Apply(edit); err != nil {
		switch {
		case errors.Is(err, onboarding.ErrUnknownItem):
			return notFound(c, "draft item not found")
		default:
			return badRequest(c, err.Error())
		}
	}

	return c.JSON(http.StatusOK, DraftResponse{
		Draft:          w.Draft(),
		TotalIncome:    w.TotalIncome(),
		TotalAllocated: w.TotalBudget(),
		Remaining:      w.Remaining(),
	})
}

// Complete проводит черновик через все шаги и заполняет леджер.
func (h *OnboardingHandler) Complete(c echo.Context) error {
	ledgerID, ok := auth.LedgerIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CompleteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	result, err := onboarding.Run(req.Draft.toDraft())
	if err != nil {
		var validation *onboarding.ValidationError
		if errors.As(err, &validation) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{
				"error": validation.Message,
				"step":  validation.Step.String(),
			})
		}
		return serverError(c)
	}

	snapshot, err := h.Ledgers.CompleteOnboarding(c.Request().Context(), ledgerID, result)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyOnboarded) {
			return conflict(c, "ledger is already onboarded")
		}
		if errors.Is(err, ledger.ErrInvalidInput) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "invalid onboarding data"})
		}
		slog.Error("failed to complete onboarding", "ledger_id", ledgerID, "error", err)
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, snapshot)
}

func (r DraftRequest) toDraft() onboarding.Draft {
	return onboarding.Draft{
		Currency: r.Currency,
		Payday:   string(r.Payday),
		Incomes:  r.Incomes,
		Budgets:  r.Budgets,
	}
}
