package config

import "time"

type Config struct {
	QueryTimeout         time.Duration
	LLMCallTimeout       time.Duration
	ChatSessionTTL       time.Duration
	ProgressPollInterval time.Duration
	BufferMultiplier     float64
	MaxAttemptsPerRound  int
	ExclusionLimit       int
	DefaultModel         string
}

func NewConfig() *Config {
	return &Config{
		QueryTimeout:         5 * time.Second,
		LLMCallTimeout:       60 * time.Second,
		ChatSessionTTL:       24 * time.Hour,
		ProgressPollInterval: 2 * time.Second,
		BufferMultiplier:     1.5,
		MaxAttemptsPerRound:  3,
		ExclusionLimit:       100,
		DefaultModel:         "gemini-1.5-flash-001",
	}
}
