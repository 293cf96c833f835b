package config

import (
	"fmt"
	"os"
	"strings"
)

// Config aggregates startup configuration for the whole service.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Provider ProviderConfig
	EnvFile  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Redis:    loadRedisConfig(),
		Provider: loadProviderConfig(),
		EnvFile:  getEnvOrDefault("ENV_FILE", ".env"),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8000" or "127.0.0.1:8000" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// RedisConfig describes the optional external session store.
type RedisConfig struct {
	URL string
}

// Enabled reports whether a Redis URL was provided.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{URL: strings.TrimSpace(os.Getenv("REDIS_URL"))}
}

// ProviderConfig holds the voice-assistant provider's API settings.
// The private key authorizes server-side calls; assistant id and
// public key are handed to the browser SDK.
type ProviderConfig struct {
	AssistantID string
	PublicKey   string
	PrivateKey  string
	BaseURL     string
}

// ChatEnabled reports whether server-side provider calls are possible.
func (c ProviderConfig) ChatEnabled() bool {
	return c.PrivateKey != ""
}

func loadProviderConfig() ProviderConfig {
	return ProviderConfig{
		AssistantID: strings.TrimSpace(os.Getenv("ASSISTANT_ID")),
		PublicKey:   strings.TrimSpace(os.Getenv("PUBLIC_KEY")),
		PrivateKey:  strings.TrimSpace(os.Getenv("VAPI_PRIVATE_KEY")),
		BaseURL:     getEnvOrDefault("VAPI_BASE_URL", "https://api.vapi.ai"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
