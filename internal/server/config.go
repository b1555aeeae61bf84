package server

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// Config holds the server settings resolved from the environment.
type Config struct {
	Host             string
	Port             int
	UploadDir        string
	CORSOrigin       string
	ConnectionString string
	MaxUploadBytes   int64
	Storage          model.StorageBackend
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	PublicBaseURL    string
	LogFormat        string
	LogLevel         string
}

// DefaultConfig returns the settings used when no variable is set.
func DefaultConfig() Config {
	return Config{
		Port:       3000,
		UploadDir:  "uploads",
		CORSOrigin: "http://localhost:5173",
		Storage:    model.StorageDisk,
		LogFormat:  "text",
		LogLevel:   "info",
	}
}

// LoadConfig loads envFile into the process environment and reads the
// configuration from it. Variables already set in the environment are not
// overridden. An empty envFile means ".env", which may be absent.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, model.WrapCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("failed to load env file %s", envFile),
				err,
			)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, model.WrapCLIError(model.ExitInvalidInput, "failed to load .env", err)
	}

	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from a variable lookup function.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, invalidConfig("PORT", v, err)
		}
		cfg.Port = p
	}
	if v := getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := getenv("CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}

	// CONNECTION_STRING is what generated projects write; DATABASE_URL is
	// the name most hosting platforms export.
	cfg.ConnectionString = getenv("CONNECTION_STRING")
	if cfg.ConnectionString == "" {
		cfg.ConnectionString = getenv("DATABASE_URL")
	}

	if v := getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Config{}, invalidConfig("MAX_UPLOAD_BYTES", v, err)
		}
		cfg.MaxUploadBytes = n
	}

	backend, err := model.ParseStorageBackend(getenv("STORAGE_BACKEND"))
	if err != nil {
		return Config{}, model.WrapCLIError(model.ExitInvalidInput, "invalid STORAGE_BACKEND", err)
	}
	cfg.Storage = backend

	// Only read with STORAGE_BACKEND=minio; Validate checks they are set.
	cfg.S3Endpoint = getenv("S3_ENDPOINT")
	cfg.S3AccessKey = getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = getenv("S3_SECRET_KEY")
	cfg.S3Bucket = getenv("S3_BUCKET")
	cfg.PublicBaseURL = strings.TrimRight(getenv("PUBLIC_BASE_URL"), "/")

	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges and backend requirements.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("PORT %d out of range (1-65535)", c.Port))
	}
	if c.MaxUploadBytes < 0 {
		return model.NewCLIError(model.ExitInvalidInput, "MAX_UPLOAD_BYTES must not be negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if c.Storage == model.StorageMinio {
		var missing []string
		for key, v := range map[string]string{
			"S3_ENDPOINT":   c.S3Endpoint,
			"S3_ACCESS_KEY": c.S3AccessKey,
			"S3_SECRET_KEY": c.S3SecretKey,
			"S3_BUCKET":     c.S3Bucket,
		} {
			if v == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return model.NewCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("minio storage requires %s", strings.Join(missing, ", ")),
			)
		}
	} else if c.UploadDir == "" {
		return model.NewCLIError(model.ExitInvalidInput, "UPLOAD_DIR must not be empty")
	}
	return nil
}

// invalidConfig reports an unparsable variable with ExitInvalidInput.
func invalidConfig(key, value string, err error) error {
	return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid %s %q", key, value), err)
}
