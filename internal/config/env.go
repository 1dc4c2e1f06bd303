package config

import (
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kStrings
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "SELLERDESK_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "SELLERDESK_API_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
	},
	{
		env: "SELLERDESK_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
	{
		env: "SELLERDESK_LOG_FORMAT", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
	},
	{
		env: "SELLERDESK_COMPLETION_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
	},
	{
		env: "SELLERDESK_COMPLETION_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
	},
	{
		env: "SELLERDESK_COMPLETION_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
	},
	{
		env: "SELLERDESK_COMPLETION_TEMPERATURE", typ: kFloat,
		apply: func(cfg *Config, v any) { cfg.Completion.Temperature = v.(float64) },
	},
	{
		env: "SELLERDESK_COMPLETION_MAX_TOKENS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Completion.MaxTokens = v.(int) },
	},
	{
		env: "SELLERDESK_BOT_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Bot.Token = v.(string) },
	},
	{
		env: "SELLERDESK_BOT_CHAT_IDS", typ: kStrings,
		apply: func(cfg *Config, v any) { cfg.Bot.ChatIDs = v.([]string) },
	},
	{
		env: "SELLERDESK_MIN_EXAMPLES", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Answering.MinExamples = v.(int) },
	},
	{
		env: "SELLERDESK_MAX_ATTEMPTS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Answering.MaxAttempts = v.(int) },
	},
	{
		env: "SELLERDESK_TICK_SECONDS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Answering.TickSeconds = v.(int) },
	},
	{
		env: "SELLERDESK_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw, ok := os.LookupEnv(s.env)
		if !ok || raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			}
		case kStrings:
			parts := strings.Split(raw, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			s.apply(cfg, out)
		}
	}
}
