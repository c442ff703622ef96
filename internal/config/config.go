// Package config loads service configuration from a YAML file with
// environment variable overrides for deploy-time secrets and knobs.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Price    PriceConfig    `yaml:"price"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DetectorConfig struct {
	Mode                string  `yaml:"mode"`                 // "remote" or "onnx"
	BaseURL             string  `yaml:"base_url"`             // remote detector endpoint
	ModelPath           string  `yaml:"model_path"`           // ONNX model file for local inference
	ConfidenceThreshold float32 `yaml:"confidence_threshold"` // minimum score kept
}

type GeminiConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	MaxTokens   int32   `yaml:"max_tokens"`
	// APIKey is normally left empty here and supplied via GEMINI_API_KEY.
	APIKey string `yaml:"api_key"`
}

type PriceConfig struct {
	BaseURL string `yaml:"base_url"`
}

type PipelineConfig struct {
	IoUThreshold           float64 `yaml:"iou_threshold"`
	MinCropSize            int     `yaml:"min_crop_size"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
	MaxWorkers             int     `yaml:"max_workers"`
	StageTimeoutSeconds    int     `yaml:"stage_timeout_seconds"`
}

// StageTimeout returns the per-stage capability timeout.
func (p PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Path string `yaml:"path"` // SQLite file for the enrichment cache; empty disables caching
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, the defaults are used.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Detector: DetectorConfig{
			Mode:                "remote",
			BaseURL:             "http://localhost:8001",
			ConfidenceThreshold: 0.25,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.3,
			TopP:        0.9,
			MaxTokens:   3000,
		},
		Price: PriceConfig{
			BaseURL: "http://localhost:8002",
		},
		Pipeline: PipelineConfig{
			IoUThreshold:           0.5,
			MinCropSize:            32,
			LowConfidenceThreshold: 0.5,
			MaxWorkers:             10,
			StageTimeoutSeconds:    10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Detector.Mode == "" {
		cfg.Detector.Mode = "remote"
	}
	if cfg.Detector.ConfidenceThreshold == 0 {
		cfg.Detector.ConfidenceThreshold = 0.25
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = 0.3
	}
	if cfg.Gemini.TopP == 0 {
		cfg.Gemini.TopP = 0.9
	}
	if cfg.Gemini.MaxTokens == 0 {
		cfg.Gemini.MaxTokens = 3000
	}
	if cfg.Pipeline.IoUThreshold == 0 {
		cfg.Pipeline.IoUThreshold = 0.5
	}
	if cfg.Pipeline.MinCropSize == 0 {
		cfg.Pipeline.MinCropSize = 32
	}
	if cfg.Pipeline.LowConfidenceThreshold == 0 {
		cfg.Pipeline.LowConfidenceThreshold = 0.5
	}
	if cfg.Pipeline.MaxWorkers == 0 {
		cfg.Pipeline.MaxWorkers = 10
	}
	if cfg.Pipeline.StageTimeoutSeconds == 0 {
		cfg.Pipeline.StageTimeoutSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides lets deploy environments override the file: secrets
// never live in YAML, and worker count is a common per-host tweak.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.MaxWorkers = n
		}
	}
	if v := os.Getenv("DETECTOR_URL"); v != "" {
		cfg.Detector.BaseURL = v
	}
	if v := os.Getenv("PRICE_URL"); v != "" {
		cfg.Price.BaseURL = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
