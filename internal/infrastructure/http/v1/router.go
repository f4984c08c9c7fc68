// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayledger/internal/domain/checkout"
	"stayledger/internal/domain/ledger"
	"stayledger/internal/infrastructure/http/v1/handlers"
	"stayledger/internal/infrastructure/http/v1/middleware"
	"stayledger/pkg/logger"
)

// RouterConfig holds the dependencies for the HTTP API.
type RouterConfig struct {
	Pool            *pgxpool.Pool
	Logger          *logger.Logger
	CheckoutService *checkout.Service
	LedgerService   *ledger.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Operator())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()
	checkoutHandler := handlers.NewCheckoutHandler(base, cfg.CheckoutService)
	ledgerHandler := handlers.NewLedgerHandler(base, cfg.LedgerService)

	api := router.Group("/api/v1")
	{
		requests := api.Group("/checkout-requests")
		{
			requests.POST("", checkoutHandler.CreateRequest)
			requests.GET("", checkoutHandler.ListRequests)
			requests.GET("/:room", checkoutHandler.GetRequestByRoom)
			requests.POST("/:id/assign", checkoutHandler.AssignEmployee)
			requests.POST("/:id/inventory-check", checkoutHandler.SubmitInventoryCheck)
		}

		api.GET("/bill", checkoutHandler.GetBill)

		checkouts := api.Group("/checkouts")
		{
			checkouts.POST("", checkoutHandler.Finalize)
			checkouts.GET("/:id", checkoutHandler.GetCheckout)
		}

		entries := api.Group("/journal-entries")
		{
			entries.POST("", ledgerHandler.PostEntry)
			entries.GET("/:id", ledgerHandler.GetEntry)
		}

		api.GET("/ledger-accounts", ledgerHandler.ListAccounts)
		api.GET("/trial-balance", ledgerHandler.TrialBalance)
	}

	return router
}
