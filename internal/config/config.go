package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the process configuration read from the environment.
type Config struct {
	// DatabaseURL is taken from DATABASE_URL, or assembled from
	// DATABASE_HOST, DATABASE_PORT, POSTGRES_DB, POSTGRES_USER and
	// POSTGRES_PASSWORD.
	DatabaseURL string
	DBMaxConns  int32
	DBQueryLog  bool

	Port     string
	LogLevel slog.Level

	RankingMode        string
	RateLimitPerMinute int
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		RankingMode: getEnv("RANKING_MODE", "window"),
	}

	dbURL, err := databaseURL()
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dbURL

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg.DBQueryLog, err = getEnvBool("DB_QUERY_LOG", false)
	if err != nil {
		return nil, err
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: must be positive, got %d", maxConns)
	}
	cfg.DBMaxConns = int32(maxConns)

	cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func databaseURL() (string, error) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}

	host := os.Getenv("DATABASE_HOST")
	name := os.Getenv("POSTGRES_DB")
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")

	var missing []string
	for key, v := range map[string]string{
		"DATABASE_HOST":     host,
		"POSTGRES_DB":       name,
		"POSTGRES_USER":     user,
		"POSTGRES_PASSWORD": password,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("DATABASE_URL not set and missing %s", strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, getEnv("DATABASE_PORT", "5432")),
		Path:   "/" + name,
	}
	return u.String(), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
