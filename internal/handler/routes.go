package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, transactionHandler *TransactionHandler, categoryHandler *CategoryHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/months/:year/:month", transactionHandler.GetMonth)
	transactions.POST("/changes", transactionHandler.SubmitChange)
	transactions.POST("/undo", transactionHandler.Undo)
	transactions.POST("/redo", transactionHandler.Redo)
	transactions.GET("/history", transactionHandler.GetHistory)
	transactions.POST("/:id/split", transactionHandler.SplitTransaction)
	transactions.POST("/recategorize", transactionHandler.RecategorizePayee)
	transactions.POST("/import", transactionHandler.ImportStatement)

	// Account routes
	api.GET("/accounts", func(c echo.Context) error {
		return c.JSON(http.StatusOK, transactionHandler.importService.Accounts())
	})

	// Category group routes
	groups := api.Group("/category-groups")
	groups.GET("", categoryHandler.GetGroups)
	groups.POST("", categoryHandler.CreateGroup)
	groups.POST("/:group/categories", categoryHandler.CreateCategory)

	// Category routes
	categories := api.Group("/categories")
	categories.PUT("/:name", categoryHandler.RenameCategory)
	categories.DELETE("/:name", categoryHandler.DeleteCategory)
	categories.PUT("/:name/budget", categoryHandler.SetBudget)
	categories.GET("/:name/payees", categoryHandler.GetPayees)

	// Budget routes
	budgets := api.Group("/budgets")
	budgets.GET("/summary", categoryHandler.GetBudgetSummary)
	budgets.GET("/:year/:month", categoryHandler.GetMonthBreakdown)
}
