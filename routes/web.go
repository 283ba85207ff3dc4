package routes

import (
	"net/http"

	"github.com/address-resolver/internal/metrics"
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes thiết lập web routes
func SetupWebRoutes(router *gin.Engine, opts Options) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Address Resolver Service",
			"version": opts.Version,
			"docs":    "/docs",
		})
	})

	router.GET("/docs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"api": "Address Resolver API v1",
			"endpoints": map[string]string{
				"parse":            "POST /v1/addresses/parse",
				"batch":            "POST /v1/addresses/jobs",
				"job_status":       "GET /v1/addresses/jobs/:jobID/status",
				"job_results":      "GET /v1/addresses/jobs/:jobID/results?format=ndjson&gzip=1",
				"job_export":       "GET /v1/addresses/jobs/:jobID/export?format=csv|xlsx",
				"job_cancel":       "DELETE /v1/addresses/jobs/:jobID",
				"search":           "GET /v1/admin-units/search?q=&level=&parent_id=&limit=",
				"seed":             "POST /v1/admin/seed?dry_run=true",
				"catalog_reload":   "POST /v1/admin/catalog/reload",
				"indexes_build":    "POST /v1/admin/indexes/build",
				"cache_invalidate": "POST /v1/admin/cache/invalidate",
				"stats":            "GET /v1/admin/stats",
				"reviews":          "GET /v1/admin/reviews?status=pending",
				"review_action":    "POST /v1/admin/reviews/:id/approve|reject",
				"health":           "GET /health",
				"ready":            "GET /ready",
				"live":             "GET /live",
				"metrics":          "GET /metrics",
			},
		})
	})
}

// SetupMetricsRoutes thiết lập /metrics cho Prometheus
func SetupMetricsRoutes(router *gin.Engine, m *metrics.Metrics) {
	if m == nil {
		return
	}
	router.GET("/metrics", gin.WrapH(m.Handler()))
}
