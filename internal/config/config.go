package config

import (
	"os"
	"strconv"
	"time"

	"gotrial/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig `validate:"required"`
	Database DatabaseConfig
	Study    StudyConfig `validate:"required"`
	External ExternalConfig
	Render   RenderConfig
	Paths    PathConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string
}

// DatabaseConfig holds the optional run-ledger connection settings.
// An empty URL disables the ledger entirely.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// Enabled reports whether a ledger database is configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// StudyConfig holds simulation defaults
type StudyConfig struct {
	DefaultSeed         int64
	DefaultParticipants int
	OutputDir           string
	CodeVersion         string
}

// ExternalConfig holds settings for the external statistical backends
type ExternalConfig struct {
	RscriptBin    string
	IPMATimeout   time.Duration
	SEMServiceURL string
	SEMTimeout    time.Duration
}

// RenderConfig holds chart rendering settings
type RenderConfig struct {
	Theme       string
	MaxParallel int
	ChartWidth  int
	ChartHeight int
}

// PathConfig holds file system paths
type PathConfig struct {
	ImportFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	config.Server = *loadServerConfig()
	config.Database = *loadDatabaseConfig()

	studyConfig, err := loadStudyConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load study configuration")
	}
	config.Study = *studyConfig

	config.External = *loadExternalConfig()
	config.Render = *loadRenderConfig()
	config.Paths = *loadPathConfig()

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	// DATABASE_URL is optional: without it the run ledger is disabled
	return &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadStudyConfig() (*StudyConfig, error) {
	seed := getEnvIntOrDefault("STUDY_SEED", 42)
	participants := getEnvIntOrDefault("STUDY_PARTICIPANTS", 40)
	if participants <= 0 {
		return nil, errors.ConfigInvalid("STUDY_PARTICIPANTS must be positive")
	}

	return &StudyConfig{
		DefaultSeed:         int64(seed),
		DefaultParticipants: participants,
		OutputDir:           getEnvOrDefault("OUTPUT_DIR", "./output"),
		CodeVersion:         getEnvOrDefault("CODE_VERSION", "dev"),
	}, nil
}

func loadExternalConfig() *ExternalConfig {
	return &ExternalConfig{
		RscriptBin:    getEnvOrDefault("RSCRIPT_BIN", "Rscript"),
		IPMATimeout:   getEnvDurationOrDefault("IPMA_TIMEOUT", 60*time.Second),
		SEMServiceURL: getEnvOrDefault("SEM_SERVICE_URL", ""),
		SEMTimeout:    getEnvDurationOrDefault("SEM_TIMEOUT", 30*time.Second),
	}
}

func loadRenderConfig() *RenderConfig {
	return &RenderConfig{
		Theme:       getEnvOrDefault("CHART_THEME", "neon"),
		MaxParallel: getEnvIntOrDefault("CHART_MAX_PARALLEL", 4),
		ChartWidth:  getEnvIntOrDefault("CHART_WIDTH", 800),
		ChartHeight: getEnvIntOrDefault("CHART_HEIGHT", 600),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		ImportFile: getEnvOrDefault("IMPORT_FILE", ""),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Study.OutputDir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if config.Render.MaxParallel <= 0 {
		return errors.ConfigInvalid("CHART_MAX_PARALLEL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
