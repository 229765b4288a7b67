// Package config loads configuration from the environment, with optional
// .env.local / .env overrides for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env.local then .env if they exist. Variables already
// set in the environment win. Missing files are not an error.
func LoadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// Getenv reads an environment variable or returns a default value.
func Getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// MistralAPIKey returns the required Mistral credential or an error suitable
// for terminating the process before any work begins.
func MistralAPIKey() (string, error) {
	key := os.Getenv("MISTRAL_API_KEY")
	if key == "" {
		return "", fmt.Errorf("MISTRAL_API_KEY environment variable not set")
	}
	return key, nil
}
