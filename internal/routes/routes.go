package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"consultation-service/internal/config"
	"consultation-service/internal/handlers"
	"consultation-service/internal/middleware"
	"consultation-service/internal/service"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, svc *service.ConsultationService, cfg *config.Config, log zerolog.Logger) {
	consultationHandler := handlers.NewConsultationHandler(svc, log)

	limiter := middleware.NewIPRateLimiter(
		middleware.RateLimitFromConfig(cfg.RateLimit))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	{
		consultations := api.Group("/consultations")
		{
			consultations.POST("", consultationHandler.CreateConsultation)
			consultations.GET("", consultationHandler.GetConsultations)
			consultations.GET("/overdue", consultationHandler.GetOverdueConsultations)
			consultations.GET("/date-range", consultationHandler.GetConsultationsByDateRange)
			consultations.GET("/status/:status", consultationHandler.GetConsultationsByStatus)

			consultations.GET("/user/:userId", consultationHandler.GetConsultationsByUser)
			consultations.GET("/user/:userId/status/:status", consultationHandler.GetConsultationsByUserAndStatus)
			consultations.GET("/user/:userId/date-range", consultationHandler.GetConsultationsByUserAndDateRange)

			consultations.GET("/doctor/:doctorId", consultationHandler.GetConsultationsByDoctor)
			consultations.GET("/doctor/:doctorId/status/:status", consultationHandler.GetConsultationsByDoctorAndStatus)
			consultations.GET("/doctor/:doctorId/date-range", consultationHandler.GetConsultationsByDoctorAndDateRange)

			consultations.GET("/:id", consultationHandler.GetConsultationByID)
			consultations.PUT("/:id", consultationHandler.UpdateConsultation)
			consultations.DELETE("/:id", consultationHandler.DeleteConsultation)
			consultations.PATCH("/:id/status", consultationHandler.UpdateConsultationStatus)
			consultations.PATCH("/:id/diagnosis", consultationHandler.UpdateConsultationDiagnosis)
			consultations.POST("/:id/meeting-link", consultationHandler.RegenerateMeetingLink)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
