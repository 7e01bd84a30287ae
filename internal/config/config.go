package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr   string           `yaml:"listen_addr"`
	DatabasePath string           `yaml:"database_path"`
	LogLevel     string           `yaml:"log_level"`
	Moderation   ModerationConfig `yaml:"moderation"`
	Spam         SpamConfig       `yaml:"spam"`
	Weight       WeightConfig     `yaml:"weight"`
	Bridge       BridgeConfig     `yaml:"bridge"`
}

type ModerationConfig struct {
	BadUserThreshold    float64 `yaml:"bad_user_threshold"`
	BadMessageThreshold float64 `yaml:"bad_message_threshold"`
	SumPeriodDays       int     `yaml:"sum_period_days"`
	NewAccountClearDays int     `yaml:"new_account_clear_days"`
}

type SpamConfig struct {
	ProbationDays          int      `yaml:"probation_days"`
	DenylistedGroups       []string `yaml:"denylisted_groups"`
	DuplicateLimit         int      `yaml:"duplicate_limit"`
	DuplicateWindowSeconds int      `yaml:"duplicate_window_seconds"`
}

type WeightConfig struct {
	BaseWeight float64 `yaml:"base_weight"`
}

type BridgeConfig struct {
	BaseURL        string `yaml:"base_url"`
	AuthToken      string `yaml:"auth_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (c ModerationConfig) SumPeriod() time.Duration {
	return time.Duration(c.SumPeriodDays) * 24 * time.Hour
}

func (c ModerationConfig) NewAccountClearWindow() time.Duration {
	return time.Duration(c.NewAccountClearDays) * 24 * time.Hour
}

func (c SpamConfig) ProbationPeriod() time.Duration {
	return time.Duration(c.ProbationDays) * 24 * time.Hour
}

func (c SpamConfig) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowSeconds) * time.Second
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8080",
		DatabasePath: "/data/chatguard.db",
		LogLevel:     "info",
		Moderation: ModerationConfig{
			BadUserThreshold:    5,
			BadMessageThreshold: 2,
			SumPeriodDays:       5,
			NewAccountClearDays: 3,
		},
		Spam: SpamConfig{
			ProbationDays:          14,
			DenylistedGroups:       nil,
			DuplicateLimit:         4,
			DuplicateWindowSeconds: 60,
		},
		Weight: WeightConfig{BaseWeight: 1},
		Bridge: BridgeConfig{TimeoutSeconds: 10},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if cfg.Moderation.BadUserThreshold <= 0 || cfg.Moderation.BadMessageThreshold <= 0 {
		return Config{}, errors.New("moderation thresholds must be positive")
	}
	if cfg.Moderation.SumPeriodDays <= 0 {
		return Config{}, errors.New("sum_period_days must be positive")
	}
	if cfg.Spam.ProbationDays <= 0 {
		return Config{}, errors.New("probation_days must be positive")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Moderation.BadUserThreshold = envFloat("BAD_USER_THRESHOLD", cfg.Moderation.BadUserThreshold)
	cfg.Moderation.BadMessageThreshold = envFloat("BAD_MESSAGE_THRESHOLD", cfg.Moderation.BadMessageThreshold)
	cfg.Moderation.SumPeriodDays = envInt("SUM_PERIOD_DAYS", cfg.Moderation.SumPeriodDays)
	cfg.Moderation.NewAccountClearDays = envInt("NEW_ACCOUNT_CLEAR_DAYS", cfg.Moderation.NewAccountClearDays)
	cfg.Spam.ProbationDays = envInt("PROBATION_DAYS", cfg.Spam.ProbationDays)
	cfg.Spam.DuplicateLimit = envInt("DUPLICATE_LIMIT", cfg.Spam.DuplicateLimit)
	cfg.Spam.DuplicateWindowSeconds = envInt("DUPLICATE_WINDOW_SECONDS", cfg.Spam.DuplicateWindowSeconds)
	if groups := os.Getenv("DENYLISTED_GROUPS"); groups != "" {
		cfg.Spam.DenylistedGroups = splitList(groups)
	}
	cfg.Weight.BaseWeight = envFloat("REPORT_BASE_WEIGHT", cfg.Weight.BaseWeight)
	cfg.Bridge.BaseURL = envString("BRIDGE_BASE_URL", cfg.Bridge.BaseURL)
	cfg.Bridge.AuthToken = envString("BRIDGE_AUTH_TOKEN", cfg.Bridge.AuthToken)
	cfg.Bridge.TimeoutSeconds = envInt("BRIDGE_TIMEOUT_SECONDS", cfg.Bridge.TimeoutSeconds)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
