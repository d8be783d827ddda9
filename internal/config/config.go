package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Worker   WorkerConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	JWTSecret          string
	TokenTTL           time.Duration
	TracingEnabled     bool
}

type DatabaseConfig struct {
	// Backend is "sqlite" or "postgres". The execution strategy for
	// submitted commands follows from it at wiring time.
	Backend    string
	Connection string
}

type WorkerConfig struct {
	PollInterval     time.Duration
	RecoveryInterval time.Duration
	StuckTimeout     time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	DirectTimeout    time.Duration
	ChunkSize        int
	ChunkOverlap     int
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	GeminiAPIKey      string
	JinaAPIKey        string
	OllamaBaseURL     string
	OllamaModel       string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", "default_secret"),
			TokenTTL:           getEnvAsDuration("JWT_TOKEN_TTL", 24*time.Hour),
			TracingEnabled:     getEnvAsBool("TRACING_ENABLED", false),
		},
		Database: DatabaseConfig{
			Backend:    getEnv("DATABASE_BACKEND", "sqlite"),
			Connection: getEnv("DB_CONNECTION_STRING", "content.db"),
		},
		Worker: WorkerConfig{
			PollInterval:     getEnvAsDuration("WORKER_POLL_INTERVAL", 5*time.Second),
			RecoveryInterval: getEnvAsDuration("WORKER_RECOVERY_INTERVAL", time.Minute),
			StuckTimeout:     getEnvAsDuration("WORKER_STUCK_TIMEOUT", 5*time.Minute),
			MaxAttempts:      getEnvAsInt("WORKER_MAX_ATTEMPTS", 5),
			InitialBackoff:   getEnvAsDuration("WORKER_INITIAL_BACKOFF", time.Second),
			MaxBackoff:       getEnvAsDuration("WORKER_MAX_BACKOFF", time.Minute),
			DirectTimeout:    getEnvAsDuration("COMMAND_DIRECT_TIMEOUT", 2*time.Minute),
			ChunkSize:        getEnvAsInt("EMBED_CHUNK_SIZE", 1000),
			ChunkOverlap:     getEnvAsInt("EMBED_CHUNK_OVERLAP", 100),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JinaAPIKey:        getEnv("JINA_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
