// Package config reads environment configuration once, into an immutable
// value that gets passed into constructors. Nothing re-reads the
// environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // optional; empty disables the config cache

	// Absence of the key routes every conversation through the rule table.
	OpenAIAPIKey string
	OpenAIModel  string

	// Absence disables the notification channel for all tenants.
	TelegramBotToken string

	DispatchInterval  time.Duration
	ScoreThreshold    int
	DispatchBatchSize int
	DispatchMaxAge    time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       os.Getenv("OPENAI_MODEL"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		DispatchInterval:  30 * time.Second,
		ScoreThreshold:    70,
		DispatchBatchSize: 10,
		DispatchMaxAge:    24 * time.Hour,
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}

	var err error
	if cfg.DispatchInterval, err = duration("DISPATCH_INTERVAL", cfg.DispatchInterval); err != nil {
		return Config{}, err
	}
	if cfg.DispatchMaxAge, err = duration("DISPATCH_MAX_AGE", cfg.DispatchMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.ScoreThreshold, err = integer("DISPATCH_SCORE_THRESHOLD", cfg.ScoreThreshold); err != nil {
		return Config{}, err
	}
	if cfg.DispatchBatchSize, err = integer("DISPATCH_BATCH_SIZE", cfg.DispatchBatchSize); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func integer(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
