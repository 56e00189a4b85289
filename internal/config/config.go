// Package config loads tenet configuration from .tenet/config.yaml with
// environment variable overrides. Every field has a working default; a
// missing config file is not an error.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tenet-io/tenet/internal/types"
	"gopkg.in/yaml.v3"
)

// Config is the full tenet configuration
type Config struct {
	// Database is the SQLite file path. Env override: TENET_DB.
	Database string `yaml:"database"`

	// Actor is the default actor recorded in the audit trail.
	// Env override: TENET_ACTOR.
	Actor string `yaml:"actor"`

	Maturity MaturityConfig `yaml:"maturity"`
	Gate     GateConfig     `yaml:"gate"`
	Judge    JudgeConfig    `yaml:"judge"`
}

// MaturityConfig tunes the completeness scoring
type MaturityConfig struct {
	// BaseWeight is the contribution of one full-confidence spec into an
	// empty category. Default: 25.
	BaseWeight float64 `yaml:"base_weight"`
	// Weights adjusts the overall mean per category. Unlisted categories
	// get weight 1.
	Weights map[types.Category]float64 `yaml:"weights"`
}

// GateConfig controls which conflicts block phase advancement
type GateConfig struct {
	// BlockLowSeverity makes low-severity conflicts blocking too.
	// Default: false (low is advisory).
	BlockLowSeverity bool `yaml:"block_low_severity"`
}

// JudgeConfig configures the semantic enrichment call
type JudgeConfig struct {
	// Disabled skips the API judge entirely; conflicts use rule templates.
	Disabled bool `yaml:"disabled"`
	// Model overrides the enrichment model. Env override: TENET_JUDGE_MODEL.
	Model string `yaml:"model"`
	// TimeoutSeconds bounds one enrichment call. Default: 5.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// MaxRetries within the timeout budget. Default: 2.
	MaxRetries int `yaml:"max_retries"`
	// MaxConcurrent enrichment calls. Default: 3.
	MaxConcurrent int `yaml:"max_concurrent"`
	// RequestsPerSec rate-limits API calls. Default: 2.
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

// Timeout returns the judge timeout as a duration
func (j JudgeConfig) Timeout() time.Duration {
	if j.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// BlockingSeverities returns the severities that hold the gate closed
func (g GateConfig) BlockingSeverities() []types.Severity {
	if g.BlockLowSeverity {
		return []types.Severity{types.SeverityLow, types.SeverityMedium, types.SeverityHigh}
	}
	return []types.Severity{types.SeverityMedium, types.SeverityHigh}
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: ".tenet/tenet.db",
		Actor:    "user",
	}
}

// Load reads the config file at path, falling back to defaults if it does
// not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if db := os.Getenv("TENET_DB"); db != "" {
		cfg.Database = db
	}
	if actor := os.Getenv("TENET_ACTOR"); actor != "" {
		cfg.Actor = actor
	}
	if model := os.Getenv("TENET_JUDGE_MODEL"); model != "" {
		cfg.Judge.Model = model
	}
	if cfg.Database == "" {
		cfg.Database = ".tenet/tenet.db"
	}
	if cfg.Actor == "" {
		cfg.Actor = "user"
	}
	return cfg, nil
}
