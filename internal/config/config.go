package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables
// and an optional config file.
type Config struct {
	Env                   string
	Port                  int
	JWTSecret             string
	DatabaseURL           string
	RedisURL              string
	WebhookSecret         string
	CheckoutBaseURL       string
	CORSOrigins           []string
	Timezone              string
	Location              *time.Location
	SubmissionTransitions string
	ExpirySweepSpec       string
	MetricsEnabled        bool
	AdminEmail            string
	Mail                  MailConfig
}

// MailConfig configures the SMTP relay used for notifications. An empty Host
// means emails are only logged.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration with sensible defaults. Environment variables win
// over values from the file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("app_env", "production")
	v.SetDefault("port", 4001)
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("app_timezone", "UTC")
	v.SetDefault("submission_transitions", domain.TransitionsOpen)
	v.SetDefault("expiry_sweep_spec", "@every 1h")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("checkout_base_url", "http://localhost:3000/checkout")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("mail_from", "CareerLift <no-reply@careerlift.local>")
	for _, key := range []string{
		"database_url", "redis_url", "jwt_secret", "webhook_secret",
		"admin_email", "smtp_host", "smtp_username", "smtp_password",
	} {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	jwtSecret := v.GetString("jwt_secret")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := v.GetString("database_url")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	tz := v.GetString("app_timezone")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q is not a valid IANA zone: %w", tz, err)
	}

	transitions := v.GetString("submission_transitions")
	if _, err := domain.NewTransitionPolicy(transitions); err != nil {
		return nil, fmt.Errorf("SUBMISSION_TRANSITIONS: %w", err)
	}

	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", port)
	}

	origins := strings.Split(v.GetString("cors_origins"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Env:                   v.GetString("app_env"),
		Port:                  port,
		JWTSecret:             jwtSecret,
		DatabaseURL:           dbURL,
		RedisURL:              v.GetString("redis_url"),
		WebhookSecret:         v.GetString("webhook_secret"),
		CheckoutBaseURL:       v.GetString("checkout_base_url"),
		CORSOrigins:           origins,
		Timezone:              tz,
		Location:              loc,
		SubmissionTransitions: transitions,
		ExpirySweepSpec:       v.GetString("expiry_sweep_spec"),
		MetricsEnabled:        v.GetBool("metrics_enabled"),
		AdminEmail:            v.GetString("admin_email"),
		Mail: MailConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			Username: v.GetString("smtp_username"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("mail_from"),
		},
	}, nil
}
