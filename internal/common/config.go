package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	Template TemplateConfig
	Model    ModelConfig
	Pipeline PipelineConfig
}

// StoreConfig holds result-store configuration
type StoreConfig struct {
	DSN         string
	DialTimeout time.Duration
}

// TemplateConfig holds reference-template configuration
type TemplateConfig struct {
	Dir            string
	MarkRadius     int
	BinThreshold   uint8
	QuestionCount  int
	OptionCount    int
	CroppingRadius int
	SampleSize     int
}

// ModelConfig holds classifier configuration
type ModelConfig struct {
	ArtifactPath string
}

// PipelineConfig holds batch-processing configuration
type PipelineConfig struct {
	Workers        int
	SheetTimeout   time.Duration
	SearchRadius   int
	MatchThreshold float64
	MinMatchPoints int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:         getEnv("MARKSCAN_DB_DSN", "file:markscan.db"),
			DialTimeout: getEnvAsDuration("MARKSCAN_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Template: TemplateConfig{
			Dir:            getEnv("MARKSCAN_TEMPLATE_DIR", "./template"),
			MarkRadius:     getEnvAsInt("MARKSCAN_MARK_RADIUS", 20),
			BinThreshold:   uint8(getEnvAsInt("MARKSCAN_BIN_THRESHOLD", 200)),
			QuestionCount:  getEnvAsInt("MARKSCAN_QUESTIONS", 14),
			OptionCount:    getEnvAsInt("MARKSCAN_OPTIONS", 5),
			CroppingRadius: getEnvAsInt("MARKSCAN_CROP_RADIUS", 30),
			SampleSize:     getEnvAsInt("MARKSCAN_SAMPLE_SIZE", 40),
		},
		Model: ModelConfig{
			ArtifactPath: getEnv("MARKSCAN_MODEL_PATH", "./model/classifier.json"),
		},
		Pipeline: PipelineConfig{
			Workers:        getEnvAsInt("MARKSCAN_WORKERS", 4),
			SheetTimeout:   getEnvAsDuration("MARKSCAN_SHEET_TIMEOUT", 2*time.Minute),
			SearchRadius:   getEnvAsInt("MARKSCAN_SEARCH_RADIUS", 40),
			MatchThreshold: getEnvAsFloat64("MARKSCAN_MATCH_THRESHOLD", 0.80),
			MinMatchPoints: getEnvAsInt("MARKSCAN_MIN_MATCH_POINTS", 3),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("MARKSCAN_TEMPLATE_DIR", c.Template.Dir, Required).
		Field("MARKSCAN_MODEL_PATH", c.Model.ArtifactPath, Required).
		Field("MARKSCAN_QUESTIONS", c.Template.QuestionCount, Positive).
		Field("MARKSCAN_OPTIONS", c.Template.OptionCount, Positive).
		Field("MARKSCAN_CROP_RADIUS", c.Template.CroppingRadius, Positive).
		Field("MARKSCAN_SAMPLE_SIZE", c.Template.SampleSize, Positive).
		Field("MARKSCAN_WORKERS", c.Pipeline.Workers, Positive).
		Field("MARKSCAN_MATCH_THRESHOLD", c.Pipeline.MatchThreshold, UnitInterval)
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
