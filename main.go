package main

import (
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"consultation-service/internal/config"
	"consultation-service/internal/doctor"
	"consultation-service/internal/events"
	"consultation-service/internal/meeting"
	"consultation-service/internal/middleware"
	"consultation-service/internal/models"
	"consultation-service/internal/repository"
	"consultation-service/internal/routes"
	"consultation-service/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "consultation").Logger()

	// Load environment variables; a missing .env is fine in containers.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Fatal().Err(err).Msg("error loading .env file")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config")
	}

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logger.Fatal().Err(err).Msg("error connecting to database")
	}

	// Wire the orchestrator and its collaborators
	repo := repository.NewGormConsultationRepository(db)
	feeResolver := doctor.NewClient(cfg.DoctorService)
	linkGenerator := meeting.NewGenerator(cfg.Consultation.MeetingBaseURL)

	var publisher events.Publisher
	if len(cfg.Events.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Events)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		logger.Warn().Msg("no brokers configured, domain events will be dropped")
		publisher = events.NoopPublisher{}
	}

	svc := service.NewConsultationService(repo, feeResolver, linkGenerator, publisher, cfg, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Set up routes
	routes.SetupRoutes(router, svc, cfg, logger)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(serverAddr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
