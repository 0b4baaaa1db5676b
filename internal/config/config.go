// Package config loads the monitor's YAML configuration and the secrets
// that must never live in it. Telegram credentials come exclusively from
// the environment (optionally seeded from a .env file); everything else
// is declarative YAML with conservative defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dstanway/grocermon/internal/detect"
	"github.com/dstanway/grocermon/internal/record"
)

const (
	// EnvBotToken and EnvChatID name the only secrets the monitor needs.
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvChatID   = "TELEGRAM_CHAT_ID"

	defaultSnapshotPath   = "data/prices.json"
	defaultCacheDir       = "data/cache"
	defaultTimeoutSeconds = 20
)

// ThresholdConfig is the YAML shape of the move-qualification rule.
type ThresholdConfig struct {
	Mode  string `yaml:"mode"`
	Value string `yaml:"value"`
}

// StoreConfig carries per-chain branch identity and routing parameters.
type StoreConfig struct {
	StoreID  string `yaml:"store_id"`
	Postcode string `yaml:"postcode"`
	Branch   string `yaml:"branch"`
}

// AldiConfig maps query-keyword fragments to browsable category pages.
type AldiConfig struct {
	Branch     string            `yaml:"branch"`
	Categories map[string]string `yaml:"categories"`
}

// Config is the full declarative configuration for one monitor deployment.
type Config struct {
	Title          string          `yaml:"title"`
	SnapshotPath   string          `yaml:"snapshot_path"`
	CacheDir       string          `yaml:"cache_dir"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	Threshold      ThresholdConfig `yaml:"threshold"`
	Basket         []record.Item   `yaml:"basket"`
	Woolworths     StoreConfig     `yaml:"woolworths"`
	Coles          StoreConfig     `yaml:"coles"`
	Aldi           AldiConfig      `yaml:"aldi"`
}

// Secrets holds credentials resolved from the environment.
type Secrets struct {
	BotToken string
	ChatID   string
}

// HasTelegram reports whether both credentials are present.
func (s Secrets) HasTelegram() bool {
	return s.BotToken != "" && s.ChatID != ""
}

// Load reads, defaults and validates the YAML file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Title) == "" {
		c.Title = "Grocery monitor"
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = defaultSnapshotPath
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Threshold.Mode == "" {
		c.Threshold.Mode = string(detect.ModeRelative)
	}
	if c.Threshold.Value == "" {
		c.Threshold.Value = "0.2"
	}
}

// Validate rejects configurations that would misbehave at runtime rather
// than at load time.
func (c *Config) Validate() error {
	switch detect.Mode(c.Threshold.Mode) {
	case detect.ModeRelative, detect.ModeAbsolute:
	default:
		return fmt.Errorf("threshold mode %q: must be %q or %q", c.Threshold.Mode, detect.ModeRelative, detect.ModeAbsolute)
	}
	v, err := decimal.NewFromString(c.Threshold.Value)
	if err != nil {
		return fmt.Errorf("threshold value %q: %w", c.Threshold.Value, err)
	}
	if v.IsNegative() {
		return fmt.Errorf("threshold value %q: must not be negative", c.Threshold.Value)
	}

	if len(c.Basket) == 0 {
		return fmt.Errorf("basket is empty")
	}
	seen := make(map[string]struct{}, len(c.Basket))
	for _, item := range c.Basket {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, dup := seen[item.Key]; dup {
			return fmt.Errorf("item %q: duplicate key", item.Key)
		}
		seen[item.Key] = struct{}{}
	}
	return nil
}

// DetectThreshold converts the validated YAML threshold into the diff rule.
func (c *Config) DetectThreshold() detect.Threshold {
	return detect.Threshold{
		Mode:  detect.Mode(c.Threshold.Mode),
		Value: decimal.RequireFromString(c.Threshold.Value),
	}
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadSecrets resolves Telegram credentials from the environment, first
// merging a .env file when one exists alongside the working directory.
// Missing credentials are not an error here; callers that need delivery
// decide whether to fail or fall back to a dry run.
func LoadSecrets() Secrets {
	_ = godotenv.Load()
	return Secrets{
		BotToken: strings.TrimSpace(os.Getenv(EnvBotToken)),
		ChatID:   strings.TrimSpace(os.Getenv(EnvChatID)),
	}
}
