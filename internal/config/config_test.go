package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalStores = `{
  "stores": [
    {"name": "main", "seller_id": "1001", "api_key": "k", "api_secret": "s"}
  ]
}`

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SELLERDESK_API_TOKEN", "test-token")
}

func TestDefaults(t *testing.T) {
	setRequiredEnv(t)
	path := writeTempConfig(t, minimalStores)

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("Server.Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Completion.Model != "gpt-4o-mini" {
		t.Errorf("Completion.Model = %q, want gpt-4o-mini", cfg.Completion.Model)
	}
	if cfg.Completion.Temperature != 0.4 {
		t.Errorf("Completion.Temperature = %v, want 0.4", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxTokens != 150 {
		t.Errorf("Completion.MaxTokens = %d, want 150", cfg.Completion.MaxTokens)
	}
	if cfg.Answering.MinExamples != 1 {
		t.Errorf("Answering.MinExamples = %d, want 1", cfg.Answering.MinExamples)
	}
	if cfg.Answering.TickSeconds != 60 {
		t.Errorf("Answering.TickSeconds = %d, want 60", cfg.Answering.TickSeconds)
	}
	if len(cfg.Stores) != 1 {
		t.Fatalf("len(Stores) = %d, want 1", len(cfg.Stores))
	}
	if cfg.Stores[0].DelayMinutes != 5 {
		t.Errorf("Stores[0].DelayMinutes = %d, want default 5", cfg.Stores[0].DelayMinutes)
	}
}

func TestExplicitZeroDelay(t *testing.T) {
	setRequiredEnv(t)
	path := writeTempConfig(t, `{
  "stores": [
    {"name": "main", "seller_id": "1001", "api_key": "k", "api_secret": "s", "delay_minutes": 0}
  ]
}`)

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Stores[0].DelayMinutes != 0 {
		t.Errorf("DelayMinutes = %d, want 0 (explicit)", cfg.Stores[0].DelayMinutes)
	}
}

func TestEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SELLERDESK_SERVER_PORT", "9999")
	t.Setenv("SELLERDESK_COMPLETION_MODEL", "gpt-4o")
	t.Setenv("SELLERDESK_BOT_CHAT_IDS", "111, 222")
	path := writeTempConfig(t, minimalStores)

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Completion.Model != "gpt-4o" {
		t.Errorf("Completion.Model = %q, want gpt-4o", cfg.Completion.Model)
	}
	if len(cfg.Bot.ChatIDs) != 2 || cfg.Bot.ChatIDs[0] != "111" || cfg.Bot.ChatIDs[1] != "222" {
		t.Errorf("Bot.ChatIDs = %v, want [111 222]", cfg.Bot.ChatIDs)
	}
}

func TestMissingStores(t *testing.T) {
	setRequiredEnv(t)
	path := writeTempConfig(t, `{}`)

	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error for config without stores")
	}
}

func TestMissingStoreCredential(t *testing.T) {
	setRequiredEnv(t)
	path := writeTempConfig(t, `{
  "stores": [
    {"name": "main", "seller_id": "1001", "api_key": "k"}
  ]
}`)

	_, err := loadFromPath(path)
	if err == nil {
		t.Fatal("expected error for store without api_secret")
	}
	if !strings.Contains(err.Error(), "APISecret") {
		t.Errorf("error %q does not name the missing field", err)
	}
}

func TestMissingAPIToken(t *testing.T) {
	t.Setenv("SELLERDESK_API_TOKEN", "")
	path := writeTempConfig(t, minimalStores)

	_, err := loadFromPath(path)
	if err == nil {
		t.Fatal("expected error for missing API token")
	}
	if !strings.Contains(err.Error(), "SELLERDESK_API_TOKEN") {
		t.Errorf("error %q does not mention SELLERDESK_API_TOKEN", err)
	}
}

func TestAutoAnswerNeedsCompletionKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SELLERDESK_COMPLETION_API_KEY", "")
	path := writeTempConfig(t, `{
  "stores": [
    {"name": "main", "seller_id": "1001", "api_key": "k", "api_secret": "s", "auto_answer": true}
  ]
}`)

	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error: auto_answer without completion API key")
	}
}

func TestNotifyNeedsBotToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SELLERDESK_BOT_TOKEN", "")
	path := writeTempConfig(t, `{
  "stores": [
    {"name": "main", "seller_id": "1001", "api_key": "k", "api_secret": "s", "notify": true}
  ]
}`)

	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error: notify without bot token")
	}
}

func TestDuplicateStoreNames(t *testing.T) {
	setRequiredEnv(t)
	path := writeTempConfig(t, `{
  "stores": [
    {"name": "main", "seller_id": "1", "api_key": "k", "api_secret": "s"},
    {"name": "main", "seller_id": "2", "api_key": "k", "api_secret": "s"}
  ]
}`)

	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error for duplicate store names")
	}
}

func TestBotTokenNeedsChatIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SELLERDESK_BOT_TOKEN", "bot-token")
	path := writeTempConfig(t, minimalStores)

	if _, err := loadFromPath(path); err == nil {
		t.Fatal("expected error: bot token without authorized chat ids")
	}
}
