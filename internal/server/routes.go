package server

import (
	"github.com/labstack/echo/v4"

	"example.com/freddy/backend/internal/handlers"
)

type routeHandlers struct {
	session       *handlers.SessionHandler
	ledger        *handlers.LedgerHandler
	onboarding    *handlers.OnboardingHandler
	chat          *handlers.ChatHandler
	exports       *handlers.ExportHandler
	notifications *handlers.NotificationHandler
}

type routeMiddleware struct {
	auth        echo.MiddlewareFunc
	sessionRate echo.MiddlewareFunc
	chatRate    echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h routeHandlers, mw routeMiddleware) {
	e.GET("/health", handlers.Health)

	api := e.Group("/api/v1")

	api.POST("/session", h.session.Create, mw.sessionRate)
	api.POST("/session/refresh", h.session.Refresh, mw.auth)

	ledger := api.Group("/ledger", mw.auth)
	ledger.GET("", h.ledger.Get)
	ledger.GET("/summary", h.ledger.Summary)
	ledger.PATCH("/settings", h.ledger.UpdateSettings)

	onboarding := api.Group("/onboarding", mw.auth)
	onboarding.GET("/draft", h.onboarding.Draft)
	onboarding.POST("/draft", h.onboarding.Edit)
	onboarding.POST("/step", h.onboarding.Step)
	onboarding.POST("/complete", h.onboarding.Complete)

	budgets := api.Group("/budgets", mw.auth)
	budgets.POST("/:id/expenses", h.ledger.LogExpense)
	budgets.PUT("/:id", h.ledger.UpdateBudget)
	budgets.DELETE("/:id", h.ledger.DeleteBudget)

	transactions := api.Group("/transactions", mw.auth)
	transactions.PUT("/:id", h.ledger.UpdateTransaction)
	transactions.DELETE("/:id", h.ledger.DeleteTransaction)

	incomes := api.Group("/incomes", mw.auth)
	incomes.POST("", h.ledger.CreateIncome)
	incomes.PUT("/:id", h.ledger.UpdateIncome)
	incomes.DELETE("/:id", h.ledger.DeleteIncome)

	chat := api.Group("/chat", mw.auth)
	chat.POST("", h.chat.Send, mw.chatRate)
	chat.GET("/messages", h.chat.Messages)

	exports := api.Group("/exports/transactions", mw.auth)
	exports.GET(".csv", h.exports.CSV)
	exports.GET(".json", h.exports.JSON)
	exports.GET(".xlsx", h.exports.XLSX)

	notifications := api.Group("/notifications", mw.auth)
	notifications.GET("/stream", h.notifications.Stream)
}
