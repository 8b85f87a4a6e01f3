package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration
type Config struct {
	Port string

	MongoURI string
	MongoDB  string
	RedisURI string

	JWTSecret string
	LMS       *LMSConfig

	ModuleCacheTTL  time.Duration
	ViewIdleTimeout time.Duration
	SweepSchedule   string

	AllowedOrigins   []string
	AllowCredentials bool
}

// Load reads configuration from the environment, after a .env file if present
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment")
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "trainhub"),
		RedisURI:  getEnv("REDIS_URI", "localhost:6379"),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		LMS:       DefaultLMSConfig(),

		ModuleCacheTTL:  getEnvDuration("MODULE_CACHE_TTL", 10*time.Minute),
		ViewIdleTimeout: getEnvDuration("VIEW_IDLE_TIMEOUT", 2*time.Hour),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@every 5m"),

		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AllowCredentials: getEnv("CORS_ALLOW_CREDENTIALS", "false") == "true",
	}

	if cfg.JWTSecret == "dev-secret-change-me" {
		log.Println("Warning: JWT_SECRET not set, using development secret")
	}
	return cfg
}

// RedisAddr strips a redis:// scheme if present
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.RedisURI, "redis://")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Error converting %s to int: %v", key, err)
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("Error converting %s to duration: %v", key, err)
		return defaultVal
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
