// Package config provides configuration helpers for hirevox commands.
package config

import (
	"fmt"
	"os"
)

// Default service configuration.
const (
	DefaultPort    = "8090"
	DefaultVoice   = "alloy"
	DefaultATSBase = "http://localhost:3000"
)

// OpenAIKey returns the OpenAI API key from OPENAI_API_KEY.
// Exits with a usage message if not set.
func OpenAIKey() string {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: OPENAI_API_KEY=sk-... go run ./cmd/...")
		os.Exit(1)
	}
	return key
}

// Port returns the listen port from PORT env var or the default.
func Port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// ATSBaseURL returns the recruiting backend base URL from ATS_BASE_URL
// or the provided default.
func ATSBaseURL(def string) string {
	if u := os.Getenv("ATS_BASE_URL"); u != "" {
		return u
	}
	if def != "" {
		return def
	}
	return DefaultATSBase
}

// Voice returns the synthetic interviewer voice from INTERVIEW_VOICE
// or the default.
func Voice() string {
	if v := os.Getenv("INTERVIEW_VOICE"); v != "" {
		return v
	}
	return DefaultVoice
}
