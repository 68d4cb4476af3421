package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	AgentBuiltin = "builtin"
	AgentUSI     = "usi"
	AgentNone    = "none"
)

type AppConfig struct {
	HTTPAddr string
	FeedAddr string

	RedisURL      string
	SessionKey    string
	SessionTTLSec int
	DatabaseURL   string

	Agent          string
	USIEnginePath  string
	USIOptions     map[string]string
	USIMoveTimeMS  int
	USIMultiPV     int
	ResetClearsAI  bool
	RequestTimeout time.Duration

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:       ":8000",
		SessionKey:     "annan:session",
		SessionTTLSec:  7 * 24 * 3600,
		Agent:          AgentBuiltin,
		USIOptions:     map[string]string{"USI_Variant": "annanshogi"},
		USIMoveTimeMS:  1000,
		USIMultiPV:     3,
		RequestTimeout: 30 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.FeedAddr = strings.TrimSpace(os.Getenv("FEED_ADDR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("SESSION_KEY")); v != "" {
		cfg.SessionKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("AI_AGENT")); v != "" {
		cfg.Agent = strings.ToLower(v)
	}
	cfg.USIEnginePath = strings.TrimSpace(os.Getenv("USI_ENGINE_PATH"))
	if v := strings.TrimSpace(os.Getenv("USI_ENGINE_OPTIONS")); v != "" {
		opts, err := parseOptions(v)
		if err != nil {
			return nil, err
		}
		cfg.USIOptions = opts
	}
	if v := strings.TrimSpace(os.Getenv("USI_MOVE_TIME_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.USIMoveTimeMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("USI_MULTIPV")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.USIMultiPV = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AI_RESET_CLEARS_SIDE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResetClearsAI = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	switch cfg.Agent {
	case AgentBuiltin, AgentNone:
	case AgentUSI:
		if cfg.USIEnginePath == "" {
			return nil, errors.New("USI_ENGINE_PATH is required when AI_AGENT=usi")
		}
	default:
		return nil, fmt.Errorf("AI_AGENT must be one of builtin, usi, none: %q", cfg.Agent)
	}
	return cfg, nil
}

// parseOptions reads "Name=value,Other Name=value" pairs for USI setoption.
func parseOptions(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("USI_ENGINE_OPTIONS entry %q must be name=value", part)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}
