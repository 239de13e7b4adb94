// Package monconfig loads the monitoring configuration: which agents to
// watch, score thresholds, intervention tiers, and the daemon cadence.
// Values come from a YAML file merged with AGENTWATCH_* environment
// variables; a missing file falls back to defaults so the monitor runs
// unconfigured out of the box.
package monconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root monitoring configuration.
type Config struct {
	Agents               []string              `mapstructure:"agents"`
	MonitoringInterval   time.Duration         `mapstructure:"monitoring_interval"`
	ReviewHour           int                   `mapstructure:"review_hour"`
	StateDir             string                `mapstructure:"state_dir"`
	Idle                 IdleConfig            `mapstructure:"idle"`
	Thresholds           ThresholdsConfig      `mapstructure:"thresholds"`
	InterventionTiers    map[string]TierConfig `mapstructure:"intervention_tiers"`
	SustainedCycles      int                   `mapstructure:"sustained_cycles"`
	NotificationChannels []string              `mapstructure:"notification_channels"`
	Logger               LoggerConfig          `mapstructure:"logger"`
}

// IdleConfig tunes the idle detector.
type IdleConfig struct {
	Threshold     float64       `mapstructure:"threshold"`
	Window        time.Duration `mapstructure:"window"`
	MinProductive int           `mapstructure:"min_productive"`
}

// ThresholdsConfig holds per-metric warning and critical levels.
type ThresholdsConfig struct {
	GoalCompletionRate MetricThreshold `mapstructure:"goal_completion_rate"`
	TaskEfficiency     MetricThreshold `mapstructure:"task_efficiency"`
}

// MetricThreshold is a warning/critical pair for one metric.
type MetricThreshold struct {
	Warning  float64 `mapstructure:"warning"`
	Critical float64 `mapstructure:"critical"`
}

// TierConfig describes one intervention tier: how long it runs and which
// actions it prescribes.
type TierConfig struct {
	Duration string   `mapstructure:"duration"`
	Actions  []string `mapstructure:"actions"`
}

// LoggerConfig tunes the zap logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Load reads the monitoring config, merging file, environment, and
// defaults. path may name a specific YAML file; when empty, config.yaml
// is searched in the working directory and ./configs. A missing file is
// not an error.
func Load(path string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// AGENTWATCH_REVIEW_HOUR=3 overrides review_hour, and so on.
	v.SetEnvPrefix("AGENTWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// An explicit path that does not exist surfaces as os.ErrNotExist,
		// the search-path case as ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		logger.Info("config file not found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize(logger)
	return &cfg, nil
}

// setDefaults mirrors the shipped config.yaml schema.
func setDefaults(v *viper.Viper) {
	v.SetDefault("agents", []string{"loopy-0"})
	v.SetDefault("monitoring_interval", time.Hour)
	v.SetDefault("review_hour", 3)
	v.SetDefault("state_dir", ".agents/aw")
	v.SetDefault("idle.threshold", 0.8)
	v.SetDefault("idle.window", time.Hour)
	v.SetDefault("idle.min_productive", 1)
	v.SetDefault("thresholds.goal_completion_rate.warning", 0.7)
	v.SetDefault("thresholds.goal_completion_rate.critical", 0.5)
	v.SetDefault("thresholds.task_efficiency.warning", 0.65)
	v.SetDefault("thresholds.task_efficiency.critical", 0.4)
	v.SetDefault("sustained_cycles", 3)
	v.SetDefault("intervention_tiers", defaultTiers())
	v.SetDefault("notification_channels", []string{"internal_dashboard", "periodic_report"})
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

func defaultTiers() map[string]any {
	return map[string]any{
		"tier1": map[string]any{
			"duration": "2 weeks",
			"actions":  []string{"performance_review", "skill_assessment"},
		},
		"tier2": map[string]any{
			"duration": "1 month",
			"actions":  []string{"targeted_coaching", "personalized_learning_plan"},
		},
		"tier3": map[string]any{
			"duration": "3 months",
			"actions": []string{
				"comprehensive_performance_rehabilitation",
				"external_skill_development_resources",
			},
		},
	}
}

// normalize repairs malformed values in place, logging each repair. Bad
// config degrades to defaults rather than refusing to start.
func (c *Config) normalize(logger *zap.Logger) {
	if len(c.Agents) == 0 {
		logger.Warn("no agents configured, defaulting to loopy-0")
		c.Agents = []string{"loopy-0"}
	}
	if c.MonitoringInterval <= 0 {
		logger.Warn("invalid monitoring_interval, defaulting to 1h",
			zap.Duration("value", c.MonitoringInterval))
		c.MonitoringInterval = time.Hour
	}
	if c.ReviewHour < 0 || c.ReviewHour > 23 {
		logger.Warn("review_hour out of range, defaulting to 3",
			zap.Int("value", c.ReviewHour))
		c.ReviewHour = 3
	}
	if c.Idle.Threshold < 0 || c.Idle.Threshold > 1 {
		logger.Warn("idle.threshold out of range, defaulting to 0.8",
			zap.Float64("value", c.Idle.Threshold))
		c.Idle.Threshold = 0.8
	}
	if c.Idle.Window <= 0 {
		c.Idle.Window = time.Hour
	}
	if c.SustainedCycles < 1 {
		logger.Warn("sustained_cycles must be at least 1, defaulting to 3",
			zap.Int("value", c.SustainedCycles))
		c.SustainedCycles = 3
	}
	c.Thresholds.GoalCompletionRate = repairMetric(
		"goal_completion_rate", c.Thresholds.GoalCompletionRate,
		MetricThreshold{Warning: 0.7, Critical: 0.5}, logger)
	c.Thresholds.TaskEfficiency = repairMetric(
		"task_efficiency", c.Thresholds.TaskEfficiency,
		MetricThreshold{Warning: 0.65, Critical: 0.4}, logger)
}

func repairMetric(name string, m, fallback MetricThreshold, logger *zap.Logger) MetricThreshold {
	if m.Critical <= 0 || m.Critical >= m.Warning || m.Warning > 1 {
		logger.Warn("invalid threshold pair, using defaults",
			zap.String("metric", name),
			zap.Float64("warning", m.Warning),
			zap.Float64("critical", m.Critical))
		return fallback
	}
	return m
}

// TierActions returns the configured actions for a tier name, or nil when
// the tier is unknown.
func (c *Config) TierActions(tier string) []string {
	t, ok := c.InterventionTiers[tier]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Actions))
	copy(out, t.Actions)
	return out
}
