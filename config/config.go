package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	LiveKit  LiveKitConfig
	AWS      AWSConfig
	AI       AIConfig
	Session  SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:5173)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/classroom?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// LiveKitConfig holds media-server token issuance settings.
type LiveKitConfig struct {
	APIKey        string
	APISecret     string
	Host          string // wss://... URL handed to clients alongside the token
	TokenTTLHours int
}

// AWSConfig holds AWS credentials and the reports bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ReportsBucket        string
	PresignExpireMinutes int
}

// AIConfig holds the question-generation API settings.
type AIConfig struct {
	APIKey   string
	Model    string
	Endpoint string // base URL of the generative API
}

// SessionConfig holds live-session timing settings: the grace window
// before an empty room is torn down, randomized spacing between AI quiz
// deliveries, and the per-question / per-quiz answer timers.
type SessionConfig struct {
	AutoEndGraceSeconds   int
	AIQuizMinIntervalSecs int
	AIQuizMaxIntervalSecs int
	AIAnswerTimeoutSecs   int
	QuizTimerSecs         int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/classroom?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "classroom"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		LiveKit: LiveKitConfig{
			APIKey:        getEnv("LIVEKIT_API_KEY", ""),
			APISecret:     getEnv("LIVEKIT_API_SECRET", ""),
			Host:          getEnv("LIVEKIT_HOST", "ws://localhost:7880"),
			TokenTTLHours: getEnvInt("LIVEKIT_TOKEN_TTL_HOURS", 6),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ReportsBucket:        getEnv("AWS_S3_REPORTS_BUCKET", "classroom-reports-bucket"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		AI: AIConfig{
			APIKey:   getEnv("AI_API_KEY", ""),
			Model:    getEnv("AI_MODEL", "gemini-2.0-flash"),
			Endpoint: getEnv("AI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		},
		Session: SessionConfig{
			AutoEndGraceSeconds:   getEnvInt("SESSION_AUTO_END_GRACE_SEC", 5),
			AIQuizMinIntervalSecs: getEnvInt("AI_QUIZ_MIN_INTERVAL_SEC", 8),
			AIQuizMaxIntervalSecs: getEnvInt("AI_QUIZ_MAX_INTERVAL_SEC", 20),
			AIAnswerTimeoutSecs:   getEnvInt("AI_ANSWER_TIMEOUT_SEC", 15),
			QuizTimerSecs:         getEnvInt("QUIZ_TIMER_SEC", 60),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
