package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrMissing is returned when a required environment variable is not set
var ErrMissing = errors.New("required environment variable not set")

// Config holds application configuration
type Config struct {
	APIID             int
	APIHash           string
	MainSession       string
	AuxSession        string
	BotToken          string
	SignalChatID      int64 // chat whose posts announce takedowns
	IndexChatID       int64 // public channel listing one message per template
	TopicGroupID      int64 // forum group for the private message relay, 0 disables it
	DatabasePath      string
	LogLevel          string
	Locale            string
	EchoAttempts      int
	EchoInterval      time.Duration
	KeepAliveSchedule string
	RelayPerMinute    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	apiIDStr, err := require("API_ID")
	if err != nil {
		return nil, err
	}
	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil || apiID <= 0 {
		return nil, fmt.Errorf("invalid API_ID '%s': must be a positive integer", apiIDStr)
	}
	cfg.APIID = apiID

	if cfg.APIHash, err = require("API_HASH"); err != nil {
		return nil, err
	}
	if cfg.MainSession, err = require("MAIN_SESSION_STRING"); err != nil {
		return nil, err
	}
	if cfg.AuxSession, err = require("AUX_SESSION_STRING"); err != nil {
		return nil, err
	}
	if cfg.BotToken, err = require("BOT_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.SignalChatID, err = requireChatID("TELEGRAM_DMCA_CHAT_ID"); err != nil {
		return nil, err
	}
	if cfg.IndexChatID, err = requireChatID("INDEX_GROUP_ID"); err != nil {
		return nil, err
	}

	if cfg.TopicGroupID, err = lookupChatID("TOPIC_GROUP_ID"); err != nil {
		return nil, err
	}

	cfg.DatabasePath = DatabasePath()
	cfg.LogLevel = lookupString("LOG_LEVEL", "INFO")
	cfg.Locale = lookupString("LOCALE", "en")
	cfg.KeepAliveSchedule = lookupString("KEEPALIVE_SCHEDULE", "@every 5m")

	if cfg.EchoAttempts, err = lookupPositiveInt("ECHO_ATTEMPTS", 30); err != nil {
		return nil, err
	}
	if cfg.EchoInterval, err = lookupPositiveDuration("ECHO_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.RelayPerMinute, err = lookupPositiveInt("RELAY_MESSAGES_PER_MINUTE", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns DATABASE_PATH or its default. Commands that only touch
// the database use it instead of Load.
func DatabasePath() string {
	return lookupString("DATABASE_PATH", "./data/unionkeeper.db")
}

func require(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: %w", key, ErrMissing)
	}
	return val, nil
}

// requireChatID parses a Bot API style chat id (e.g. -1001234567890)
func requireChatID(key string) (int64, error) {
	val, err := require(key)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}
