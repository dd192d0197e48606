package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DatasetPath string
	CatalogPath string // empty means the embedded catalog

	// Model backend. A non-empty ModelURL selects remote inference over the
	// local artifact at ModelPath.
	ModelPath           string
	ModelURL            string
	ModelClasses        []int // class codes the remote model declares
	ModelTimeout        time.Duration
	PredictionCacheSize int

	SessionStore  string
	SessionDBPath string
	SessionTTL    time.Duration
}

// LoadDotEnv exports the variables in a .env file at path without overriding
// ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	modelTimeout, err := parsePositiveDuration("MODEL_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	sessionTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("SESSION_TTL", "24h"))
	if err != nil || sessionTTL < 0 {
		return nil, errors.New("invalid SESSION_TTL")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("PREDICTION_CACHE_SIZE", "1000"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid PREDICTION_CACHE_SIZE")
	}

	modelClasses, err := parseClasses(os.Getenv("MODEL_CLASSES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetPath: sharedcfg.EnvOrDefault("DATASET_PATH", "weather_classification_data.csv"),
		CatalogPath: os.Getenv("CATALOG_PATH"),

		ModelPath:           sharedcfg.EnvOrDefault("MODEL_PATH", "model.json"),
		ModelURL:            os.Getenv("MODEL_URL"),
		ModelClasses:        modelClasses,
		ModelTimeout:        modelTimeout,
		PredictionCacheSize: cacheSize,

		SessionStore:  sharedcfg.EnvOrDefault("SESSION_STORE", SessionStoreMemory),
		SessionDBPath: sharedcfg.EnvOrDefault("SESSION_DB_PATH", "sessions.db"),
		SessionTTL:    sessionTTL,
	}

	if cfg.SessionStore != SessionStoreMemory && cfg.SessionStore != SessionStoreSQLite {
		return nil, fmt.Errorf("invalid SESSION_STORE %q: want %q or %q", cfg.SessionStore, SessionStoreMemory, SessionStoreSQLite)
	}

	return cfg, nil
}

// parseClasses reads a comma-separated list of class codes such as "0,1,2,3".
func parseClasses(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	classes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid MODEL_CLASSES %q", s)
		}
		classes = append(classes, n)
	}
	return classes, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
