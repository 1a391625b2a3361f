package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	DocumentEventsTopic string
	AnalysisJobsTopic   string

	// External analysis services
	ExtractionBaseURL string
	InsilicoBaseURL   string
	UpstreamTimeout   time.Duration
	UpstreamRetries   int

	// Job tracker
	JobTTL           time.Duration
	PollInterval     time.Duration
	PollMaxAttempts  int
	InsilicoCacheTTL time.Duration

	// Auth
	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	JWTTTL           time.Duration
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Catalog files
	PHIRulesPath string
	GlossaryPath string

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_BYTES", 25*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "regdocs"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "regdocs123"),
		PostgresDB:       getEnv("POSTGRES_DB", "regdocs"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "regdocs-platform"),
		DocumentEventsTopic: getEnv("KAFKA_DOCUMENT_TOPIC", "regdocs.documents"),
		AnalysisJobsTopic:   getEnv("KAFKA_ANALYSIS_TOPIC", "regdocs.analysis-jobs"),

		ExtractionBaseURL: getEnv("EXTRACTION_BASE_URL", ""),
		InsilicoBaseURL:   getEnv("INSILICO_BASE_URL", ""),
		UpstreamTimeout:   getDuration("UPSTREAM_TIMEOUT", 120*time.Second),
		UpstreamRetries:   getIntEnv("UPSTREAM_RETRIES", 3),

		JobTTL:           getDuration("JOB_TTL", 24*time.Hour),
		PollInterval:     getDuration("POLL_INTERVAL", 5*time.Second),
		PollMaxAttempts:  getIntEnv("POLL_MAX_ATTEMPTS", 120),
		InsilicoCacheTTL: getDuration("INSILICO_CACHE_TTL", 10*time.Minute),

		JWTSecret:        getEnv("JWT_SECRET", "regdocs-dev-secret-change-me"),
		JWTIssuer:        getEnv("JWT_ISSUER", "regdocs"),
		JWTAudience:      getEnv("JWT_AUDIENCE", "regdocs-api"),
		JWTTTL:           getDuration("JWT_TTL", 8*time.Hour),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		PHIRulesPath: getEnv("PHI_RULES_PATH", ""),
		GlossaryPath: getEnv("GLOSSARY_PATH", ""),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
