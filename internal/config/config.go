// Package config loads the YAML runtime configuration. Secrets come from
// the environment so they never have to live in the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Canvas struct {
		BaseURL string `yaml:"base_url"`
		// APIKey is overridden by CANVAS_API_KEY when set.
		APIKey string `yaml:"api_key"`
	} `yaml:"canvas"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		// APIKey is overridden by LLM_API_KEY when set.
		APIKey            string  `yaml:"api_key"`
		SolutionModel     string  `yaml:"solution_model"`
		SummaryModel      string  `yaml:"summary_model"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"llm"`

	Transcript struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"transcript"`

	Fetch struct {
		MaxBytes       int64 `yaml:"max_bytes"`
		TimeoutSeconds int   `yaml:"timeout_seconds"`
		Dir            string `yaml:"dir"`
	} `yaml:"fetch"`

	Summary struct {
		MaxWords int `yaml:"max_words"`
	} `yaml:"summary"`

	Aggregate struct {
		// MaxConcurrent caps in-flight items per task; 0 means unbounded.
		MaxConcurrent int `yaml:"max_concurrent"`
	} `yaml:"aggregate"`

	Solver struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"solver"`

	Journal struct {
		// Backend is one of json, sqlite, postgres.
		Backend string `yaml:"backend"`
		DSN     string `yaml:"dsn"`
	} `yaml:"journal"`

	Metrics struct {
		Port int `yaml:"port"`
	} `yaml:"metrics"`
}

// DownloadTimeout returns the per-download budget as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// Load reads path, applies defaults, and pulls secret overrides from the
// environment.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Fetch.MaxBytes <= 0 {
		cfg.Fetch.MaxBytes = 50 << 20
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 30
	}
	if cfg.Fetch.Dir == "" {
		cfg.Fetch.Dir = "downloads"
	}
	if cfg.Summary.MaxWords <= 0 {
		cfg.Summary.MaxWords = 500
	}
	if cfg.Solver.OutputDir == "" {
		cfg.Solver.OutputDir = "outputs"
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = "json"
	}
	if cfg.Journal.Backend == "json" && cfg.Journal.DSN == "" {
		cfg.Journal.DSN = "satchel.jsonl"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CANVAS_API_KEY"); v != "" {
		cfg.Canvas.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
}
