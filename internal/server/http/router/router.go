package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/perkwell/payout/internal/server/http/handlers"
	"github.com/perkwell/payout/internal/server/http/middleware"
)

// Setup configures the gin router with handlers and middleware.
func Setup(facade handlers.PayoutFacade, trigger handlers.SettlementTrigger, stats handlers.StatsSource, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	withdrawalHandler := handlers.NewWithdrawalHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade, trigger, stats)
	providerHandler := handlers.NewProviderHandler(facade)

	api := engine.Group("/api")
	api.GET("/methods", withdrawalHandler.Methods)
	api.POST("/provider/callback", providerHandler.Callback)

	user := api.Group("/user")
	user.Use(middleware.AccountRequired())
	user.GET("/balance", withdrawalHandler.Balance)
	user.POST("/withdrawals", withdrawalHandler.Submit)
	user.GET("/withdrawals", withdrawalHandler.History)
	user.GET("/withdrawals/:id", withdrawalHandler.Get)

	admin := api.Group("/admin")
	admin.Use(middleware.ActorRequired())
	admin.GET("/withdrawals/pending", adminHandler.Pending)
	admin.POST("/withdrawals/:id/approve", adminHandler.Approve)
	admin.POST("/withdrawals/:id/reject", adminHandler.Reject)
	admin.POST("/withdrawals/bulk", adminHandler.Bulk)
	admin.GET("/withdrawals/:id/audit", adminHandler.Audit)
	admin.PUT("/methods/:method", adminHandler.UpsertMethod)
	admin.GET("/schedules", adminHandler.Schedules)
	admin.POST("/schedules", adminHandler.CreateSchedule)
	admin.PUT("/schedules/:id", adminHandler.UpdateSchedule)
	admin.POST("/schedules/:id/run", adminHandler.RunSchedule)
	admin.GET("/revenue", adminHandler.Revenue)
	admin.POST("/revenue/rollup", adminHandler.Rollup)
	admin.GET("/stats", adminHandler.Stats)

	return engine
}
