package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conveyordev/conveyor/pkg/provider"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = "conveyor.yml"

// Task classes used by the stage runners.
const (
	// TaskClassPrimary covers primary generative work (ideation,
	// planning drafts, development).
	TaskClassPrimary = "primary"

	// TaskClassReview covers independent review and QA evaluation.
	TaskClassReview = "review"
)

// Limits bounds every retry path in the loop. Limits are configuration;
// the loop reads them but never mutates them.
type Limits struct {
	IdeationMaxIterations   int `yaml:"ideation_max_iterations" json:"ideation_max_iterations"`
	PlanningMaxIterations   int `yaml:"planning_max_iterations" json:"planning_max_iterations"`
	DevMaxIterations        int `yaml:"dev_max_iterations" json:"dev_max_iterations"`
	QAMaxIterations         int `yaml:"qa_max_iterations" json:"qa_max_iterations"`
	RateLimitMaxRetries     int `yaml:"rate_limit_max_retries" json:"rate_limit_max_retries"`
	RateLimitMaxWaitSeconds int `yaml:"rate_limit_max_wait_seconds" json:"rate_limit_max_wait_seconds"`
}

// QualityConfig holds the stage-supplied evaluation thresholds.
type QualityConfig struct {
	// RequiredScore is the minimum review score (out of 10) for a plan
	// to advance to development.
	RequiredScore float64 `yaml:"required_score" json:"required_score"`
}

// Config is the per-project configuration.
type Config struct {
	// Command is the llm-style CLI used for provider calls.
	Command   string                          `yaml:"command,omitempty" json:"command,omitempty"`
	Providers map[string]provider.ClassConfig `yaml:"providers" json:"providers"`
	Limits    Limits                          `yaml:"limits" json:"limits"`
	Quality   QualityConfig                   `yaml:"quality" json:"quality"`
}

// DefaultConfig returns the configuration used when a project has no
// conveyor.yml yet.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]provider.ClassConfig{
			TaskClassPrimary: {Default: "claude-sonnet-4-5", Fallback: "gpt-4o"},
			TaskClassReview:  {Default: "gemini-2.5-pro", Fallback: "claude-sonnet-4-5"},
		},
		Limits: Limits{
			IdeationMaxIterations:   2,
			PlanningMaxIterations:   3,
			DevMaxIterations:        5,
			QAMaxIterations:         3,
			RateLimitMaxRetries:     5,
			RateLimitMaxWaitSeconds: 60,
		},
		Quality: QualityConfig{RequiredScore: 7.0},
	}
}

// LoadConfig reads the project configuration, layering the file over
// defaults. A missing file yields the defaults; a malformed file is an
// error.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the project configuration.
func SaveConfig(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	return WriteFileAtomic(filepath.Join(dir, ConfigFileName), data)
}

// ConfigExists reports whether the project has a conveyor.yml.
func ConfigExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// LimitsMap converts the configured limits into the per-budget map
// persisted in state.
func (c *Config) LimitsMap() map[string]int {
	return map[string]int{
		"ideation_max": c.Limits.IdeationMaxIterations,
		"planning_max": c.Limits.PlanningMaxIterations,
		"dev_max":      c.Limits.DevMaxIterations,
		"qa_max":       c.Limits.QAMaxIterations,
	}
}

// MaxWait returns the rate-limit backoff cap as a duration.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Limits.RateLimitMaxWaitSeconds) * time.Second
}
