package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Store     StoreConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AllowedOrigins for CORS; empty means any origin.
	AllowedOrigins []string
}

// IsProduction reports whether error details must be hidden from clients.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// StoreConfig selects the repository backend: "mongo" (default) or "memory".
type StoreConfig struct {
	Backend string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type CacheConfig struct {
	Enabled bool
	Key     string
	TTL     time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	PresignTTL time.Duration
}

const (
	DefaultMongoURI      = "mongodb://localhost:27017/portfolio"
	DefaultMongoDatabase = "portfolio"
	DefaultCollection    = "portfolio"
)

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: cannot read .env: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	// DB_NAME is the historical name of the database variable.
	_ = v.BindEnv("MONGODB_DATABASE", "MONGODB_DATABASE", "DB_NAME")
	_ = v.BindEnv("SERVER_PORT", "SERVER_PORT", "PORT")
	_ = v.BindEnv("SERVER_ENVIRONMENT", "SERVER_ENVIRONMENT", "NODE_ENV")

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGODB_URI", DefaultMongoURI)
	v.SetDefault("MONGODB_DATABASE", DefaultMongoDatabase)
	v.SetDefault("MONGODB_COLLECTION", DefaultCollection)
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("STORE_BACKEND", "mongo")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_KEY", "portfolio:data")
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "portfolio")
	v.SetDefault("MINIO_PRESIGN_TTL_MINUTES", 60)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,

			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("CACHE_ENABLED"),
			Key:     v.GetString("CACHE_KEY"),
			TTL:     time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:   v.GetString("MINIO_ENDPOINT"),
			AccessKey:  v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:  os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:     v.GetBool("MINIO_USE_SSL"),
			Bucket:     v.GetString("MINIO_BUCKET"),
			PresignTTL: time.Duration(v.GetInt("MINIO_PRESIGN_TTL_MINUTES")) * time.Minute,
		},
	}

	if cfg.Store.Backend != "mongo" && cfg.Store.Backend != "memory" {
		log.Printf("WARNING: unknown STORE_BACKEND %q, using mongo", cfg.Store.Backend)
		cfg.Store.Backend = "mongo"
	}
	if cfg.MongoDB.Timeout <= 0 {
		cfg.MongoDB.Timeout = 10 * time.Second
	}

	return cfg, nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
