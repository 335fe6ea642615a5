package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the consultation service
type Config struct {
	Port          string
	Origin        string
	Environment   string
	Database      DatabaseConfig
	DoctorService DoctorServiceConfig
	Consultation  ConsultationConfig
	Events        EventsConfig
	RateLimit     RateLimitConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// DoctorServiceConfig holds the doctor directory client settings
type DoctorServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ConsultationConfig holds lifecycle defaults for consultation records
type ConsultationConfig struct {
	DefaultFee     float64
	MeetingBaseURL string
}

// EventsConfig holds the broker addresses and the topic for each domain event
type EventsConfig struct {
	Brokers            []string
	PublishTimeout     time.Duration
	CreatedTopic       string
	UpdatedTopic       string
	DeletedTopic       string
	StatusUpdatedTopic string
	MeetingLinkTopic   string
}

// RateLimitConfig holds per-client request throttling settings
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "consultations"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	doctorTimeout, err := getEnvDuration("DOCTOR_SERVICE_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid DOCTOR_SERVICE_TIMEOUT: %w", err)
	}

	defaultFee, err := getEnvFloat("DEFAULT_CONSULTATION_FEE", 100.0)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_CONSULTATION_FEE: %w", err)
	}
	if defaultFee < 0 {
		return nil, fmt.Errorf("DEFAULT_CONSULTATION_FEE must not be negative, got %v", defaultFee)
	}

	publishTimeout, err := getEnvDuration("EVENT_PUBLISH_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_PUBLISH_TIMEOUT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:        getEnv("PORT", "8083"),
		Origin:      getEnv("ORIGIN", "http://localhost:3000"),
		Environment: getEnv("APP_ENV", "development"),
		Database:    dbConfig,
		DoctorService: DoctorServiceConfig{
			BaseURL: getEnv("DOCTOR_SERVICE_URL", "http://doctor-service:8082"),
			Timeout: doctorTimeout,
		},
		Consultation: ConsultationConfig{
			DefaultFee:     defaultFee,
			MeetingBaseURL: getEnv("MEETING_BASE_URL", "https://meet.ayursetu.com"),
		},
		Events: EventsConfig{
			Brokers:            splitAndTrim(getEnv("KAFKA_BROKERS", "")),
			PublishTimeout:     publishTimeout,
			CreatedTopic:       getEnv("TOPIC_CONSULTATION_CREATED", "consultation-created"),
			UpdatedTopic:       getEnv("TOPIC_CONSULTATION_UPDATED", "consultation-updated"),
			DeletedTopic:       getEnv("TOPIC_CONSULTATION_DELETED", "consultation-deleted"),
			StatusUpdatedTopic: getEnv("TOPIC_CONSULTATION_STATUS_UPDATED", "consultation-status-updated"),
			MeetingLinkTopic:   getEnv("TOPIC_MEETING_LINK_GENERATED", "meeting-link-generated"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: rps,
			Burst:             burst,
		},
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	return time.ParseDuration(value)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
