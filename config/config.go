package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var developmentEnvs = []string{"development", "test"}

type Config struct {
	Environment string
	Port        int
	HTTPOrigin  string

	DatabaseDbPath       string
	DatabaseCacheAddress string
	DatabaseCachePort    int

	SessionSecret            string
	SessionLifetimeHours     int
	SessionInactivityMinutes int

	AdminOAuthBaseURL      string
	AdminOAuthClientID     string
	AdminOAuthClientSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
}

func InitConfig() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", 3001)
	v.SetDefault("DATABASE_DB_PATH", "data/elections.db")
	v.SetDefault("DATABASE_CACHE_ADDRESS", "")
	v.SetDefault("DATABASE_CACHE_PORT", 6379)
	v.SetDefault("SESSION_LIFETIME_HOURS", 8)
	v.SetDefault("SESSION_INACTIVITY_MINUTES", 60)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_FROM", "ballots@example.com")

	config := Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetInt("PORT"),
		HTTPOrigin:  v.GetString("HTTP_ORIGIN"),

		DatabaseDbPath:       v.GetString("DATABASE_DB_PATH"),
		DatabaseCacheAddress: v.GetString("DATABASE_CACHE_ADDRESS"),
		DatabaseCachePort:    v.GetInt("DATABASE_CACHE_PORT"),

		SessionSecret:            v.GetString("SESSION_SECRET"),
		SessionLifetimeHours:     v.GetInt("SESSION_LIFETIME_HOURS"),
		SessionInactivityMinutes: v.GetInt("SESSION_INACTIVITY_MINUTES"),

		AdminOAuthBaseURL:      v.GetString("ADMIN_OAUTH_BASE_URL"),
		AdminOAuthClientID:     v.GetString("ADMIN_OAUTH_CLIENT_ID"),
		AdminOAuthClientSecret: v.GetString("ADMIN_OAUTH_CLIENT_SECRET"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUser:     v.GetString("SMTP_USER"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		EmailFrom:    v.GetString("EMAIL_FROM"),
	}

	if config.HTTPOrigin == "" {
		if !config.IsDevelopment() {
			return Config{}, fmt.Errorf("HTTP_ORIGIN env var, e.g. https://elections.example.com, is missing")
		}
		config.HTTPOrigin = fmt.Sprintf("http://localhost:%d", config.Port)
	}

	if config.SessionSecret == "" {
		if !config.IsDevelopment() {
			return Config{}, fmt.Errorf("SESSION_SECRET env var for managing sessions is missing")
		}
		// Fixed secret so development sessions survive restarts.
		config.SessionSecret = fmt.Sprintf("%s-session-secret-v1", config.Environment)
	}

	return config, nil
}

// IsDevelopment reports whether the server runs in a non-production
// environment, where required configuration may fall back to defaults.
func (c Config) IsDevelopment() bool {
	for _, env := range developmentEnvs {
		if c.Environment == env {
			return true
		}
	}
	return false
}
