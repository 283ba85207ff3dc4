package routes

import (
	"github.com/address-resolver/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupAPIRoutes thiết lập tất cả API routes dưới /v1
func SetupAPIRoutes(router *gin.Engine, addressController *controllers.AddressController, adminController *controllers.AdminController, opts Options) {
	v1 := router.Group("/v1")
	if opts.RateLimitEnabled {
		v1.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	addresses := v1.Group("/addresses")
	{
		addresses.POST("/parse", addressController.ParseAddress)
		addresses.POST("/jobs", addressController.BatchParse)
		addresses.GET("/jobs/:jobID/status", addressController.GetJobStatus)
		addresses.GET("/jobs/:jobID/results", addressController.GetJobResults)
		addresses.GET("/jobs/:jobID/export", addressController.ExportJob)
		addresses.DELETE("/jobs/:jobID", addressController.CancelJob)
	}

	v1.GET("/admin-units/search", adminController.SearchUnits)

	admin := v1.Group("/admin")
	{
		admin.POST("/seed", adminController.SeedCatalog)
		admin.POST("/catalog/reload", adminController.ReloadCatalog)
		admin.POST("/indexes/build", adminController.BuildIndexes)
		admin.POST("/cache/invalidate", adminController.InvalidateCache)
		admin.GET("/stats", adminController.GetStats)
		admin.GET("/reviews", adminController.ListReviews)
		admin.POST("/reviews/:id/approve", adminController.ApproveReview)
		admin.POST("/reviews/:id/reject", adminController.RejectReview)
	}
}

// SetupHealthRoutes thiết lập health check routes
func SetupHealthRoutes(router *gin.Engine, addressController *controllers.AddressController) {
	router.GET("/health", addressController.HealthCheck)
	router.GET("/ready", addressController.Ready)
	router.GET("/live", addressController.Live)
}
