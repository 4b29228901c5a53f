package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/spendapp/spend-api/handlers"
	"github.com/spendapp/spend-api/services"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.Refresh)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/me", userHandler.Me)
	rg.PUT("/user/profile", userHandler.UpdateProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
}

// SetupPlaidRoutes sets up protected bank linking and sync routes.
func SetupPlaidRoutes(rg *gin.RouterGroup, db *sql.DB, wsHandler *handlers.WSHandler) {
	plaidService := services.NewPlaidService()
	bankingService := services.NewBankingService(db)
	syncService := services.NewSyncService(plaidService, bankingService, wsHandler)

	h := handlers.NewPlaidHandler(plaidService, bankingService, syncService)

	rg.POST("/plaid/link-token", h.CreateLinkToken)
	rg.POST("/plaid/exchange-token", h.ExchangeToken)
	rg.POST("/plaid/sandbox/public-token", h.CreateSandboxPublicToken)
	rg.GET("/plaid/accounts", h.GetAccounts)
	rg.GET("/plaid/balances", h.GetBalances)
	rg.POST("/plaid/sync", h.SyncTransactions)
}

// SetupTransactionRoutes sets up protected reporting routes.
func SetupTransactionRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := handlers.NewTransactionsHandler(services.NewReportingService(db))

	rg.GET("/transactions", h.List)
	rg.GET("/transactions/summary", h.Summary)
}
