package router

import (
	"net/http"

	"paygate/config"
	"paygate/internal/domain"
	"paygate/internal/handler"
	"paygate/internal/middleware"
	"paygate/internal/service"
	"paygate/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Setup builds the HTTP engine. Payment routes are served at the root and
// under /api/v1; list and delete exist only in standalone mode. limiter and
// hub may be nil.
func Setup(cfg *config.Config, svc service.PaymentService, hub *ws.PaymentHub, limiter *middleware.InMemoryRateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
	}))

	healthHandler := handler.NewHealthHandler(cfg, svc.Mode())
	paymentHandler := handler.NewPaymentHandler(svc)
	// health and banner are not rate limited
	var paymentMw []gin.HandlerFunc
	if limiter != nil {
		paymentMw = append(paymentMw, middleware.RateLimit(limiter))
	}
	paymentMw = append(paymentMw, middleware.AuthRequired(&cfg.Auth))

	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)
	r.NoRoute(healthHandler.NoRoute)

	for _, g := range []*gin.RouterGroup{r.Group(""), r.Group("/api/v1")} {
		payments := g.Group("/payments", paymentMw...)
		{
			payments.POST("", paymentHandler.Create)
			payments.GET("/:id", paymentHandler.Get)
			if svc.Mode() == domain.ModeStandalone {
				payments.GET("", paymentHandler.List)
				payments.DELETE("/:id", paymentHandler.Delete)
			}
		}
	}

	if hub != nil {
		r.GET("/ws/payments", ws.UpgradePaymentsWS(&cfg.Auth, hub))
	}
	return r
}
