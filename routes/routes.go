// Package routes gắn middleware và route của HTTP API.
//
// Cấu trúc:
//   - api.go: API routes (/v1/*) và health routes
//   - web.go: web routes (/, /docs) và /metrics
//   - middleware.go: request ID, zap logger, recovery, metrics, rate limit
package routes

import (
	"net/http"
	"time"

	"github.com/address-resolver/app/controllers"
	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options cấu hình router
type Options struct {
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
	Version          string
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
}

// SetupAllRoutes thiết lập middleware và tất cả routes
func SetupAllRoutes(router *gin.Engine, addressController *controllers.AddressController, adminController *controllers.AdminController, opts Options) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	setupMiddleware(router, opts)

	SetupWebRoutes(router, opts)
	SetupHealthRoutes(router, addressController)
	SetupAPIRoutes(router, addressController, adminController, opts)
	SetupMetricsRoutes(router, opts.Metrics)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, responses.ErrorResponse{
			Error:     responses.CodeNotFound,
			Message:   "Route không tồn tại: " + c.Request.Method + " " + c.Request.URL.Path,
			Timestamp: time.Now().Format(time.RFC3339),
			RequestID: c.GetString(controllers.RequestIDKey),
		})
	})
}

// setupMiddleware thiết lập middleware cho router
func setupMiddleware(router *gin.Engine, opts Options) {
	router.Use(RequestID())
	router.Use(Recovery(opts.Logger))
	router.Use(Logger(opts.Logger))
	router.Use(Metrics(opts.Metrics))
}

// NewRouter tạo gin engine đã gắn đủ routes
func NewRouter(addressController *controllers.AddressController, adminController *controllers.AdminController, opts Options) *gin.Engine {
	router := gin.New()
	SetupAllRoutes(router, addressController, adminController, opts)
	return router
}
