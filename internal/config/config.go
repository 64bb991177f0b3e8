package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mhpenta/imagine"
)

// Environment variables read by Load.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvModel        = "IMAGINE_MODEL"
	EnvAspectRatio  = "IMAGINE_ASPECT_RATIO"
	EnvStateDir     = "IMAGINE_STATE_DIR"
	EnvDatabaseURL  = "IMAGINE_DATABASE_URL"
	EnvExportDir    = "IMAGINE_EXPORT_DIR"
	EnvLogLevel     = "IMAGINE_LOG_LEVEL"
	EnvLogFile      = "IMAGINE_LOG_FILE"
)

// ErrNoProvider is returned when neither provider key is configured.
var ErrNoProvider = errors.New("GEMINI_API_KEY or OPENAI_API_KEY is required")

// Config holds all configuration for the application
type Config struct {
	GeminiAPIKey string
	OpenAIAPIKey string

	// Model overrides the default model; empty uses the first configured provider's default.
	Model imagine.Model

	// AspectRatio preselected for new requests
	AspectRatio imagine.AspectRatio

	// StateDir holds the file-backed history when DatabaseURL is empty
	StateDir string

	// DatabaseURL selects the PostgreSQL history backend
	DatabaseURL string

	// ExportDir is where downloaded images are written
	ExportDir string

	LogLevel slog.Level
	LogFile  string
}

// Load reads configuration from the environment, first applying any .env
// file in the working directory. Variables already set take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey: os.Getenv(EnvGeminiAPIKey),
		OpenAIAPIKey: os.Getenv(EnvOpenAIAPIKey),
		Model:        imagine.Model(os.Getenv(EnvModel)),
		DatabaseURL:  os.Getenv(EnvDatabaseURL),
		LogFile:      os.Getenv(EnvLogFile),
		StateDir:     os.Getenv(EnvStateDir),
		ExportDir:    os.Getenv(EnvExportDir),
		AspectRatio:  imagine.DefaultAspectRatio,
		LogLevel:     slog.LevelInfo,
	}

	if v := os.Getenv(EnvAspectRatio); v != "" {
		ratio, err := imagine.ParseAspectRatio(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvAspectRatio, err)
		}
		cfg.AspectRatio = ratio
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	return cfg, nil
}

// Validate checks that at least one provider can be constructed.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return ErrNoProvider
	}
	return nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "imagine")
	}
	return ".imagine"
}
