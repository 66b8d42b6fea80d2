package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSessionSecretLength = 32

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort         int
	PublicBaseURL      string
	APIBaseURL         string
	APITimeout         time.Duration
	SessionSecret      string
	SessionTTL         time.Duration
	IdentityAPIKey     string
	GoogleClientID     string
	GoogleClientSecret string
	QueryCacheTTL      time.Duration
	CORSAllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.Getenv)
}

// FromLookup собирает конфигурацию из произвольного источника ключей.
func FromLookup(getenv func(string) string) (*Config, error) {
	apiBaseURL := getenv("API_BASE_URL")
	if apiBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is not set")
	}
	if u, err := url.Parse(apiBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL must be an absolute url, got %q", apiBaseURL)
	}

	secret := getenv("SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is not set")
	}
	if len(secret) < minSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes long", minSessionSecretLength)
	}

	identityKey := getenv("IDENTITY_API_KEY")
	if identityKey == "" {
		return nil, fmt.Errorf("IDENTITY_API_KEY environment variable is not set")
	}

	// вход через Google включается только парой ключей
	googleID, googleSecret := getenv("GOOGLE_CLIENT_ID"), getenv("GOOGLE_CLIENT_SECRET")
	if (googleID == "") != (googleSecret == "") {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	portStr := getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	publicBaseURL := strings.TrimRight(getenv("PUBLIC_BASE_URL"), "/")
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("http://localhost:%d", port)
	}

	apiTimeout, err := durationOrDefault(getenv, "API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationOrDefault(getenv, "QUERY_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := durationOrDefault(getenv, "SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:         port,
		PublicBaseURL:      publicBaseURL,
		APIBaseURL:         apiBaseURL,
		APITimeout:         apiTimeout,
		SessionSecret:      secret,
		SessionTTL:         sessionTTL,
		IdentityAPIKey:     identityKey,
		GoogleClientID:     googleID,
		GoogleClientSecret: googleSecret,
		QueryCacheTTL:      cacheTTL,
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
		R2AccountID:        getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    getenv("R2_PUBLIC_BASE_URL"),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{publicBaseURL}
	}

	return cfg, nil
}

// GoogleEnabled сообщает, настроен ли вход через Google.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GoogleRedirectURL это callback OAuth, зарегистрированный в Google.
func (c *Config) GoogleRedirectURL() string {
	return c.PublicBaseURL + "/auth/google/callback"
}

func durationOrDefault(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
