package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultDBPath      = "./dev.db"
	defaultDBDriver    = "sqlite"
	defaultPort        = "8080"
	defaultGeminiModel = "gemini-2.5-flash"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	Port          string
	LogLevel      zerolog.Level
	DBDriver      string
	DBPath        string
	DatabaseURL   string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	CatalogPath   string
	GeminiAPIKey  string
	GeminiModel   string
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// DSN is the data source handed to db.Open for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == defaultDBDriver {
		return c.DBPath
	}
	return c.DatabaseURL
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Production injects real env; the file only matters locally.
	if err := loadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg := Config{
		Env:           strings.ToLower(os.Getenv("APP_ENV")),
		Port:          os.Getenv("PORT"),
		DBDriver:      strings.ToLower(os.Getenv("DB_DRIVER")),
		DBPath:        os.Getenv("DB_PATH"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CatalogPath:   os.Getenv("CATALOG_PATH"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		LogLevel:      zerolog.InfoLevel,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = defaultDBDriver
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = defaultGeminiModel
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			log.Warn().Str("value", raw).Msg("invalid LOG_LEVEL, using info")
		} else {
			cfg.LogLevel = level
		}
	}

	if cfg.AdminEmail == "" {
		log.Warn().Msg("ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		log.Warn().Msg("ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is not set")
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, AI endpoints will fail")
	}
	if cfg.DBDriver != defaultDBDriver && cfg.DatabaseURL == "" {
		log.Warn().Str("driver", cfg.DBDriver).Msg("DATABASE_URL is not set")
	}

	return cfg
}
