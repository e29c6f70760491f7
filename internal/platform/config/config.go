package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	IsProduction bool

	// Recognition
	GeminiAPIKey string
	GeminiModel  string
	StorageRoot  string

	// Pipeline
	RecognitionTimeout   time.Duration
	PipelinePollInterval time.Duration
	PipelineWorkers      int
	VATRate              float64
	CategoryRulesPath    string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("STORAGE_ROOT", "./storage/receipts")
	viper.SetDefault("RECOGNITION_TIMEOUT", "30s")
	viper.SetDefault("PIPELINE_POLL_INTERVAL", "5s")
	viper.SetDefault("PIPELINE_WORKERS", 4)
	viper.SetDefault("VAT_RATE", 0.17)
	viper.SetDefault("CATEGORY_RULES_PATH", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set. Receipt recognition will not function.")
	}
	cfg.GeminiModel = viper.GetString("GEMINI_MODEL")
	cfg.StorageRoot = viper.GetString("STORAGE_ROOT")

	recognitionTimeoutStr := viper.GetString("RECOGNITION_TIMEOUT")
	recognitionTimeout, err := time.ParseDuration(recognitionTimeoutStr)
	if err != nil {
		recognitionTimeout = 30 * time.Second
		log.Printf("Warning: Invalid value for RECOGNITION_TIMEOUT ('%s'). Defaulting to %s.\n", recognitionTimeoutStr, recognitionTimeout)
	}
	cfg.RecognitionTimeout = recognitionTimeout

	pollIntervalStr := viper.GetString("PIPELINE_POLL_INTERVAL")
	pollInterval, err := time.ParseDuration(pollIntervalStr)
	if err != nil {
		pollInterval = 5 * time.Second
		log.Printf("Warning: Invalid value for PIPELINE_POLL_INTERVAL ('%s'). Defaulting to %s.\n", pollIntervalStr, pollInterval)
	}
	cfg.PipelinePollInterval = pollInterval

	cfg.PipelineWorkers = viper.GetInt("PIPELINE_WORKERS")
	if cfg.PipelineWorkers <= 0 {
		cfg.PipelineWorkers = 4
		log.Printf("Warning: PIPELINE_WORKERS must be positive. Defaulting to %d.\n", cfg.PipelineWorkers)
	}

	cfg.VATRate = viper.GetFloat64("VAT_RATE")
	if cfg.VATRate <= 0 || cfg.VATRate >= 1 {
		cfg.VATRate = 0.17
		log.Printf("Warning: VAT_RATE must be a fraction between 0 and 1. Defaulting to %.2f.\n", cfg.VATRate)
	}

	cfg.CategoryRulesPath = viper.GetString("CATEGORY_RULES_PATH")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	return cfg, nil
}
