package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the helpdesk CLI.
type ClientConfig struct {
	RemoteURL             string
	APIKey                string
	LocalStorePath        string
	RequestTimeoutSeconds int
	FallbackDelayMillis   int
	Logger                LoggerConfig
}

// LoadClient reads CLI configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	return &ClientConfig{
		RemoteURL:             getEnv("HELPDESK_REMOTE_URL", "http://127.0.0.1:8080"),
		APIKey:                os.Getenv("HELPDESK_API_KEY"),
		LocalStorePath:        getEnv("HELPDESK_LOCAL_STORE", defaultLocalStorePath()),
		RequestTimeoutSeconds: getEnvAsInt("HELPDESK_REQUEST_TIMEOUT_SECONDS", 15),
		FallbackDelayMillis:   getEnvAsInt("HELPDESK_FALLBACK_DELAY_MS", 1000),
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "warn"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
		},
	}, nil
}

// RequestTimeout returns the HTTP client timeout.
func (c ClientConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// FallbackDelay returns the think-time before a canned reply is shown.
func (c ClientConfig) FallbackDelay() time.Duration {
	if c.FallbackDelayMillis <= 0 {
		return 0
	}
	return time.Duration(c.FallbackDelayMillis) * time.Millisecond
}

func defaultLocalStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "helpdesk-local.db"
	}
	return filepath.Join(dir, "helpdesk", "local.db")
}
