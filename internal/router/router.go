package router

import (
	"github.com/gin-gonic/gin"

	"visara/internal/handler"
	"visara/internal/middleware"
	"visara/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	corsOrigins []string,
	authH *handler.AuthHandler,
	analyzeH *handler.AnalyzeHandler,
	inspH *handler.InspectionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/login", authH.Login)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	// Analysis routes
	analyze := protected.Group("/analyze")
	analyze.POST("/document", analyzeH.AnalyzeDocument)
	analyze.POST("/image", analyzeH.AnalyzeImage)

	// Stored inspection routes
	inspections := protected.Group("/inspections")
	inspections.GET("", inspH.List)
	inspections.GET("/:id", inspH.GetByID)
	inspections.DELETE("/:id", inspH.Delete)
	inspections.GET("/:id/export", inspH.ExportXLSX)
	inspections.GET("/:id/media/:unit", inspH.MediaURL)

	return r
}
