package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Defaults used when the corresponding environment variable is unset.
const (
	// DefaultModelName is the Gemini model used for extraction and classification.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultCurrency is applied when no currency can be inferred from a statement.
	DefaultCurrency = "MXN"

	// DefaultPort is the HTTP listen port for cmd/api.
	DefaultPort = "8080"
)

// Config holds process configuration for the ingestion service.
// A missing GeminiAPIKey degrades classification to the offline rule
// classifier and makes document extraction unavailable.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	LedgerAPIURL   string
	LedgerAPIToken string

	DefaultCurrency string
	Port            string
}

// Load reads configuration from .env (if present) and the environment.
func Load() Config {
	// Best effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	return Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getenv("GEMINI_MODEL", DefaultModelName),
		LedgerAPIURL:    os.Getenv("LEDGER_API_URL"),
		LedgerAPIToken:  os.Getenv("LEDGER_API_TOKEN"),
		DefaultCurrency: getenv("DEFAULT_CURRENCY", DefaultCurrency),
		Port:            getenv("PORT", DefaultPort),
	}
}

// HasGeminiCredential reports whether the completion services can be reached.
func (c Config) HasGeminiCredential() bool {
	return c.GeminiAPIKey != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
