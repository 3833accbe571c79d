// Package config loads the session-insight configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/session-insight/internal/model"
)

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	// SimilarityThreshold is the token-overlap score above which two
	// observations in the same category merge.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// StorageConfig locates the persisted store.
type StorageConfig struct {
	DBPath string `yaml:"db_path,omitempty"`
}

// SessionsConfig locates session transcripts.
type SessionsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Promotion model.PromotionConfig `yaml:"promotion"`
	Analysis  AnalysisConfig        `yaml:"analysis"`
	Storage   StorageConfig         `yaml:"storage,omitempty"`
	Sessions  SessionsConfig        `yaml:"sessions,omitempty"`
}

// DefaultConfig returns the built-in defaults: patterns promote after 3
// recurrences and 7 days, and texts merge at 0.8 similarity.
func DefaultConfig() *Config {
	return &Config{
		Promotion: model.PromotionConfig{
			ObservationCountThreshold: 3,
			LongTermDaysThreshold:     7,
		},
		Analysis: AnalysisConfig{SimilarityThreshold: 0.8},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".session-insight", "config.yaml")
}

// Load reads the config at path, returning defaults when the file is absent.
// Zero-valued fields fall back to their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	def := DefaultConfig()
	if cfg.Promotion.ObservationCountThreshold <= 0 {
		cfg.Promotion.ObservationCountThreshold = def.Promotion.ObservationCountThreshold
	}
	if cfg.Promotion.LongTermDaysThreshold <= 0 {
		cfg.Promotion.LongTermDaysThreshold = def.Promotion.LongTermDaysThreshold
	}
	if cfg.Analysis.SimilarityThreshold <= 0 {
		cfg.Analysis.SimilarityThreshold = def.Analysis.SimilarityThreshold
	}

	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
