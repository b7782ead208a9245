package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	MongoDB MongoDBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Shop    ShopConfig
	Batch   BatchConfig
	Admin   AdminConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	Storage     string   `env:"STORAGE_DRIVER" envDefault:"mongo"` // mongo | memory
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// MongoDBConfig holds the MongoDB connection settings
type MongoDBConfig struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" envDefault:"coupon_scheduler"`
}

// RedisConfig holds the active-issue cache settings. An empty URL disables
// the cache.
type RedisConfig struct {
	URL string        `env:"REDIS_URL"`
	TTL time.Duration `env:"REDIS_ACTIVE_ISSUES_TTL" envDefault:"30s"`
}

// DefaultJWTSecret is the placeholder signing secret. It is only accepted
// with the memory store.
const DefaultJWTSecret = "change-me"

// AuthConfig holds operator token settings
type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// ShopConfig holds the civil time zone schedules are evaluated in
type ShopConfig struct {
	Timezone string `env:"SHOP_TIMEZONE" envDefault:"Asia/Tokyo"`
}

// BatchConfig holds the schedule materializer settings
type BatchConfig struct {
	Enabled       bool   `env:"BATCH_ENABLED" envDefault:"true"`
	Spec          string `env:"BATCH_CRON" envDefault:"*/15 * * * *"`
	LookaheadDays int    `env:"BATCH_LOOKAHEAD_DAYS" envDefault:"1"`
}

// AdminConfig seeds the first shop and owner on an empty database
type AdminConfig struct {
	ShopName string `env:"ADMIN_SHOP_NAME" envDefault:"Demo Shop"`
	ShopSlug string `env:"ADMIN_SHOP_SLUG" envDefault:"demo-shop"`
	Name     string `env:"ADMIN_NAME" envDefault:"Shop Owner"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// NewConfig creates a new Config from the environment and .env
func NewConfig() (*Config, error) {
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Storage != "mongo" && cfg.Server.Storage != "memory" {
		return nil, fmt.Errorf("STORAGE_DRIVER must be mongo or memory, got %q", cfg.Server.Storage)
	}
	if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == DefaultJWTSecret {
		if cfg.Server.Storage == "mongo" {
			return nil, fmt.Errorf("JWT_SECRET must be set to a private value when STORAGE_DRIVER=mongo")
		}
		cfg.Auth.JWTSecret = DefaultJWTSecret
		log.Printf("[AUTH] WARNING: signing tokens with the default JWT_SECRET; set JWT_SECRET outside local development")
	}
	if cfg.Batch.LookaheadDays < 0 {
		return nil, fmt.Errorf("BATCH_LOOKAHEAD_DAYS must not be negative")
	}
	if _, err := cfg.Shop.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the configured time zone.
func (s ShopConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SHOP_TIMEZONE %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
