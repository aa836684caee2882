package routes

import (
	"net/http"
	"time"

	"payouts/constants"
	"payouts/controllers"
	_ "payouts/docs"
	middlewares "payouts/middleware"
	"payouts/services"
	"payouts/services/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies are the handlers and middleware inputs the router needs.
// Idempotency may be nil, which disables Idempotency-Key replay.
type Dependencies struct {
	Withdrawals    *controllers.WithdrawalController
	Tokens         *services.TokenService
	Idempotency    services.IdempotencyStore
	IdempotencyTTL time.Duration
	Logger         logger.Logger
	Zap            *zap.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if deps.Zap == nil {
		deps.Zap = zap.NewNop()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}

	router.Use(
		middlewares.RequestIDMiddleware(),
		middlewares.Recovery(deps.Zap),
		middlewares.ZapLogger(deps.Zap),
		middlewares.Metrics(),
		middlewares.ErrorHandler(),
	)

	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	wc := deps.Withdrawals
	v1 := router.Group("/api/v1")

	provider := v1.Group("", middlewares.AuthMiddleware(deps.Tokens, constants.RoleProvider))
	provider.GET("/earnings", wc.GetEarnings)
	provider.GET("/balance", wc.GetBalance)
	provider.GET("/withdrawals", wc.ListOwnWithdrawals)
	provider.POST("/withdrawals",
		middlewares.Idempotency(deps.Idempotency, deps.IdempotencyTTL, deps.Logger),
		wc.CreateWithdrawal)

	v1.GET("/withdrawals/:id",
		middlewares.AuthMiddleware(deps.Tokens, constants.RoleProvider, constants.RoleAdmin),
		wc.GetWithdrawal)

	admin := v1.Group("/admin", middlewares.AuthMiddleware(deps.Tokens, constants.RoleAdmin))
	admin.GET("/withdrawals", wc.ListWithdrawals)
	admin.GET("/withdrawals/pending", wc.ListPendingWithdrawals)
	admin.POST("/withdrawals/:id/resolve", wc.ResolveWithdrawal)
	admin.POST("/withdrawals/:id/receipt", wc.AttachReceipt)
	admin.GET("/providers/:id/balance", wc.GetProviderBalance)
	admin.POST("/order-completed", wc.RecordOrderCompleted)
}
