package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engram-oss/engram/internal/errors"
)

// Config represents the main project configuration (engram.yaml).
type Config struct {
	Name      string          `yaml:"name" json:"name"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Dedup     DedupConfig     `yaml:"dedup" json:"dedup"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Hooks     HooksConfig     `yaml:"hooks" json:"hooks"`
}

// StorageConfig configures the SQLite databases.
type StorageConfig struct {
	MemoryPath     string `yaml:"memory_path" json:"memory_path"`
	TranscriptPath string `yaml:"transcript_path" json:"transcript_path"`
}

// EmbeddingConfig configures the embedding adapter.
type EmbeddingConfig struct {
	// Dimension is the fallback encoder's vector size. External providers
	// may emit different dimensions; search zero-pads when comparing.
	Dimension int `yaml:"dimension" json:"dimension"`
}

// SearchConfig configures default ranking weights. Weights need not sum to 1.
type SearchConfig struct {
	SemanticWeight   float64 `yaml:"semantic_weight" json:"semantic_weight"`
	RecencyWeight    float64 `yaml:"recency_weight" json:"recency_weight"`
	ImportanceWeight float64 `yaml:"importance_weight" json:"importance_weight"`
	Limit            int     `yaml:"limit" json:"limit"`
}

// DedupConfig configures the duplicate detector.
type DedupConfig struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MetricsConfig configures optional metrics export.
type MetricsConfig struct {
	ExportPath string `yaml:"export_path,omitempty" json:"export_path,omitempty"` // JSONL file; empty disables export
}

// HooksConfig configures lifecycle event hooks.
type HooksConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Hooks   []HookConfig `yaml:"hooks" json:"hooks"`
}

// HookConfig defines a single hook.
type HookConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`     // shell, webhook, log
	Events   []string `yaml:"events" json:"events"` // event types to match
	Blocking bool     `yaml:"blocking" json:"blocking"`
	Command  string   `yaml:"command,omitempty" json:"command,omitempty"` // for shell hooks
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`         // for webhook hooks
	Level    string   `yaml:"level,omitempty" json:"level,omitempty"`     // for log hooks (debug, info, warn)
}

// Load loads the project configuration from dir/engram.yaml. A missing file
// yields the defaults.
func Load(dir string) (*Config, error) {
	configFile := filepath.Join(dir, "engram.yaml")

	content, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content = []byte(interpolateEnv(string(content)))

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrap(errors.CodeConfigInvalid, "failed to parse config", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks config invariants.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.Embedding.Dimension < 0 {
		problems = append(problems, "embedding.dimension must not be negative")
	}
	for name, w := range map[string]float64{
		"search.semantic_weight":   cfg.Search.SemanticWeight,
		"search.recency_weight":    cfg.Search.RecencyWeight,
		"search.importance_weight": cfg.Search.ImportanceWeight,
	} {
		if w < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}
	if cfg.Dedup.Threshold < 0 || cfg.Dedup.Threshold > 1 {
		problems = append(problems, "dedup.threshold must be in [0,1]")
	}
	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid logging format: %s", cfg.Logging.Format))
	}
	for _, h := range cfg.Hooks.Hooks {
		switch h.Type {
		case "shell", "webhook", "log":
		default:
			problems = append(problems, fmt.Sprintf("hook %q has invalid type: %s", h.Name, h.Type))
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeConfigInvalid,
			"config validation failed: "+strings.Join(problems, "; "))
	}
	return nil
}

func interpolateEnv(content string) string {
	// Match ${env.VAR} pattern
	envPattern := regexp.MustCompile(`\$\{env\.([^}]+)\}`)
	content = envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // keep original if not found
	})

	// Match ${VAR} pattern
	varPattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	content = varPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := varPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return content
}

func defaultConfig() *Config {
	cfg := &Config{Name: "engram"}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "engram"
	}
	if cfg.Storage.MemoryPath == "" {
		cfg.Storage.MemoryPath = ".engram/memories.db"
	}
	if cfg.Storage.TranscriptPath == "" {
		cfg.Storage.TranscriptPath = ".engram/transcript.db"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 512
	}
	if cfg.Search.SemanticWeight == 0 && cfg.Search.RecencyWeight == 0 && cfg.Search.ImportanceWeight == 0 {
		cfg.Search.SemanticWeight = 0.5
		cfg.Search.RecencyWeight = 0.2
		cfg.Search.ImportanceWeight = 0.3
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 20
	}
	if cfg.Dedup.Threshold == 0 {
		cfg.Dedup.Threshold = 0.75
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
