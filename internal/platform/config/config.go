package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	JudgeBackendMarker = "marker"
	JudgeBackendHTTP   = "http"
	JudgeBackendQueue  = "queue"

	DraftBackendMemory   = "memory"
	DraftBackendRedis    = "redis"
	DraftBackendPostgres = "postgres"
)

type Config struct {
	APIPort         string
	ShutdownTimeout time.Duration

	LogLevel string
	LogFile  string

	JudgeBackend      string
	JudgeURL          string
	JudgeTimeout      time.Duration
	JudgePollInterval time.Duration
	JudgePoolSize     int
	JudgeQueueName    string
	JudgeReplyPrefix  string
	JudgeReplyTTL     time.Duration
	JudgeLockPrefix   string
	JudgeLockTTL      time.Duration
	WorkerUpstream    string

	HistoryLimit       int
	AutosaveInterval   time.Duration
	SessionIdleTimeout time.Duration

	DraftBackend     string
	DraftCacheSizeMB int
	DraftTTL         time.Duration
	DraftKeyPrefix   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

var AppConfig *Config

func Load() {
	envLoaded := godotenv.Load() == nil

	AppConfig = &Config{
		APIPort:         getEnv("API_PORT", "8080"),
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		JudgeBackend:      getEnv("JUDGE_BACKEND", JudgeBackendMarker),
		JudgeURL:          getEnv("JUDGE_URL", ""),
		JudgeTimeout:      time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 30)) * time.Second,
		JudgePollInterval: time.Duration(getEnvAsInt("JUDGE_POLL_INTERVAL_MS", 500)) * time.Millisecond,
		JudgePoolSize:     getEnvAsInt("JUDGE_POOL_SIZE", 16),
		JudgeQueueName:    getEnv("JUDGE_QUEUE_NAME", "judge:requests"),
		JudgeReplyPrefix:  getEnv("JUDGE_REPLY_PREFIX", "judge:replies"),
		JudgeReplyTTL:     time.Duration(getEnvAsInt("JUDGE_REPLY_TTL_SECONDS", 300)) * time.Second,
		JudgeLockPrefix:   getEnv("JUDGE_LOCK_PREFIX", "judge:lock"),
		JudgeLockTTL:      time.Duration(getEnvAsInt("JUDGE_LOCK_TTL_SECONDS", 60)) * time.Second,
		WorkerUpstream:    getEnv("WORKER_UPSTREAM", JudgeBackendMarker),

		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 5),
		AutosaveInterval:   time.Duration(getEnvAsInt("AUTOSAVE_INTERVAL_SECONDS", 30)) * time.Second,
		SessionIdleTimeout: time.Duration(getEnvAsInt("SESSION_IDLE_TIMEOUT_SECONDS", 1800)) * time.Second,

		DraftBackend:     getEnv("DRAFT_BACKEND", DraftBackendMemory),
		DraftCacheSizeMB: getEnvAsInt("DRAFT_CACHE_SIZE_MB", 64),
		DraftTTL:         time.Duration(getEnvAsInt("DRAFT_TTL_HOURS", 0)) * time.Hour,
		DraftKeyPrefix:   getEnv("DRAFT_KEY_PREFIX", "drafts"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "oj_workbench"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		EnvFileLoaded: envLoaded,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

// Validate checks the combinations Load cannot default away.
func (c *Config) Validate() error {
	switch c.JudgeBackend {
	case JudgeBackendMarker, JudgeBackendQueue:
	case JudgeBackendHTTP:
		if c.JudgeURL == "" {
			return fmt.Errorf("JUDGE_URL is required when JUDGE_BACKEND=%s", JudgeBackendHTTP)
		}
	default:
		return fmt.Errorf("unknown JUDGE_BACKEND %q", c.JudgeBackend)
	}

	switch c.WorkerUpstream {
	case JudgeBackendMarker:
	case JudgeBackendHTTP:
		if c.JudgeURL == "" {
			return fmt.Errorf("JUDGE_URL is required when WORKER_UPSTREAM=%s", JudgeBackendHTTP)
		}
	default:
		return fmt.Errorf("unknown WORKER_UPSTREAM %q", c.WorkerUpstream)
	}

	switch c.DraftBackend {
	case DraftBackendMemory, DraftBackendRedis, DraftBackendPostgres:
	default:
		return fmt.Errorf("unknown DRAFT_BACKEND %q", c.DraftBackend)
	}

	if c.JudgePoolSize <= 0 {
		return fmt.Errorf("JUDGE_POOL_SIZE must be positive, got %d", c.JudgePoolSize)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.SessionIdleTimeout < 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT_SECONDS must not be negative, got %s", c.SessionIdleTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
