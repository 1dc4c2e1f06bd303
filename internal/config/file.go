package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "sellerdesk-data"
		}
	}
	return filepath.Join(dir, "sellerdesk")
}

func configFilePath() string {
	if p := os.Getenv("SELLERDESK_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "sellerdesk", "config.json")
}

// fileConfig mirrors the JSON config file shape. Pointer fields distinguish
// "absent" from zero so per-store defaults apply only when a key is missing.
type fileConfig struct {
	Server struct {
		Port *int `json:"port"`
	} `json:"server"`
	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
	Completion struct {
		BaseURL     string   `json:"base_url"`
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"max_tokens"`
	} `json:"completion"`
	Bot struct {
		ChatIDs []string `json:"chat_ids"`
	} `json:"bot"`
	Answering struct {
		MinExamples *int `json:"min_examples"`
		MaxAttempts *int `json:"max_attempts"`
		TickSeconds *int `json:"tick_seconds"`
	} `json:"answering"`
	Storage struct {
		DataDir string `json:"data_dir"`
	} `json:"storage"`
	Stores []fileStore `json:"stores"`
}

type fileStore struct {
	Name          string `json:"name"`
	SellerID      string `json:"seller_id"`
	APIKey        string `json:"api_key"`
	APISecret     string `json:"api_secret"`
	ApproveClaims bool   `json:"approve_claims"`
	AutoAnswer    bool   `json:"auto_answer"`
	Notify        bool   `json:"notify"`
	DelayMinutes  *int   `json:"delay_minutes"`
}

// defaultDelayMinutes is the grace period a human operator gets before the
// automated answer path takes over, when a store does not set its own.
const defaultDelayMinutes = 5

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.Server.Port != nil {
		cfg.Server.Port = *fc.Server.Port
	}
	if fc.Log.Level != "" {
		cfg.Log.Level = fc.Log.Level
	}
	if fc.Log.Format != "" {
		cfg.Log.Format = fc.Log.Format
	}
	if fc.Completion.BaseURL != "" {
		cfg.Completion.BaseURL = fc.Completion.BaseURL
	}
	if fc.Completion.Model != "" {
		cfg.Completion.Model = fc.Completion.Model
	}
	if fc.Completion.Temperature != nil {
		cfg.Completion.Temperature = *fc.Completion.Temperature
	}
	if fc.Completion.MaxTokens != nil {
		cfg.Completion.MaxTokens = *fc.Completion.MaxTokens
	}
	if len(fc.Bot.ChatIDs) > 0 {
		cfg.Bot.ChatIDs = fc.Bot.ChatIDs
	}
	if fc.Answering.MinExamples != nil {
		cfg.Answering.MinExamples = *fc.Answering.MinExamples
	}
	if fc.Answering.MaxAttempts != nil {
		cfg.Answering.MaxAttempts = *fc.Answering.MaxAttempts
	}
	if fc.Answering.TickSeconds != nil {
		cfg.Answering.TickSeconds = *fc.Answering.TickSeconds
	}
	if fc.Storage.DataDir != "" {
		cfg.Storage.DataDir = fc.Storage.DataDir
	}

	for _, fs := range fc.Stores {
		s := StoreConfig{
			Name:          fs.Name,
			SellerID:      fs.SellerID,
			APIKey:        fs.APIKey,
			APISecret:     fs.APISecret,
			ApproveClaims: fs.ApproveClaims,
			AutoAnswer:    fs.AutoAnswer,
			Notify:        fs.Notify,
			DelayMinutes:  defaultDelayMinutes,
		}
		if fs.DelayMinutes != nil {
			s.DelayMinutes = *fs.DelayMinutes
		}
		cfg.Stores = append(cfg.Stores, s)
	}
	return nil
}
