package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// lookupString returns the variable's value, or defaultVal when it is unset or empty
func lookupString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}

	return defaultVal
}

// lookupPositiveInt rejects values that are present but not a positive integer
func lookupPositiveInt(key string, defaultVal int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}

	x, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': must be a valid integer", key, val)
	}
	if x <= 0 {
		return 0, fmt.Errorf("invalid %s '%d': must be positive", key, x)
	}

	return x, nil
}

func lookupPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}

	x, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, val, err)
	}
	if x <= 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be positive", key, val)
	}

	return x, nil
}

// lookupChatID parses an optional Bot API style chat id, 0 when unset
func lookupChatID(key string) (int64, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return id, nil
}
