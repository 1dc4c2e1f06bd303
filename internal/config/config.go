// Package config loads panel configuration from a JSON file with
// environment-variable overrides. Secrets come only from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Completion CompletionConfig
	Bot        BotConfig
	Answering  AnsweringConfig
	Storage    StorageConfig
	Stores     []StoreConfig `validate:"min=1,dive"`
}

type ServerConfig struct {
	Port     int    `validate:"gt=0,lt=65536"`
	APIToken string // bearer token for the operator API; env only
}

type LogConfig struct {
	Level  string
	Format string
}

type CompletionConfig struct {
	APIKey      string // env only
	BaseURL     string `validate:"required,url"`
	Model       string `validate:"required"`
	Temperature float64
	MaxTokens   int `validate:"gt=0"`
}

type BotConfig struct {
	Token   string // env only
	ChatIDs []string
}

type AnsweringConfig struct {
	MinExamples int `validate:"gte=0"`
	MaxAttempts int `validate:"gte=1"`
	TickSeconds int `validate:"gte=1"`
}

type StorageConfig struct {
	DataDir string `validate:"required"`
}

// StoreConfig is one seller account with its automation flags.
type StoreConfig struct {
	Name          string `validate:"required"`
	SellerID      string `validate:"required"`
	APIKey        string `validate:"required"`
	APISecret     string `validate:"required"`
	ApproveClaims bool
	AutoAnswer    bool
	Notify        bool
	DelayMinutes  int `validate:"gte=0"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4600},
		Log:    LogConfig{Level: "info", Format: "console"},
		Completion: CompletionConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
			MaxTokens:   150,
		},
		Answering: AnsweringConfig{
			MinExamples: 1,
			MaxAttempts: 2,
			TickSeconds: 60,
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
	}
}

// Load reads the config file (default XDG path, overridable via
// SELLERDESK_CONFIG), applies SELLERDESK_* environment overrides, and
// validates the result. Any missing required setting is fatal here so the
// service never starts half-configured.
func Load() (Config, error) {
	return loadFromPath(configFilePath())
}

func loadFromPath(path string) (Config, error) {
	cfg := defaults()

	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Server.APIToken == "" {
		return errors.New("missing required config: operator API token. Set SELLERDESK_API_TOKEN")
	}
	if anyStore(cfg, func(s StoreConfig) bool { return s.AutoAnswer }) && cfg.Completion.APIKey == "" {
		return errors.New("missing required config: completion API key is needed when auto_answer is enabled. Set SELLERDESK_COMPLETION_API_KEY")
	}
	if anyStore(cfg, func(s StoreConfig) bool { return s.Notify }) && cfg.Bot.Token == "" {
		return errors.New("missing required config: bot token is needed when notify is enabled. Set SELLERDESK_BOT_TOKEN")
	}
	if cfg.Bot.Token != "" && len(cfg.Bot.ChatIDs) == 0 {
		return errors.New("missing required config: bot token is set but no authorized chat ids. Set SELLERDESK_BOT_CHAT_IDS or bot.chat_ids")
	}

	seen := make(map[string]bool, len(cfg.Stores))
	for _, s := range cfg.Stores {
		if seen[s.Name] {
			return fmt.Errorf("duplicate store name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func anyStore(cfg Config, pred func(StoreConfig) bool) bool {
	for _, s := range cfg.Stores {
		if pred(s) {
			return true
		}
	}
	return false
}

// Store returns the store with the given name.
func (c Config) Store(name string) (StoreConfig, bool) {
	for _, s := range c.Stores {
		if s.Name == name {
			return s, true
		}
	}
	return StoreConfig{}, false
}
