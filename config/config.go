package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-college/web/email"
)

type Config struct {
	Port string

	// DBDriver is mysql or sqlite for a SQL ledger, file or memory for the
	// embedded ledger. Users always live in SQL; file and memory keep them in
	// a sqlite database at DSN.
	DBDriver   string
	DSN        string
	LedgerFile string

	JWTSecret string
	TokenTTL  time.Duration

	ProviderKeyID           string
	ProviderKeySecret       string
	ProviderWebhookSecret   string
	ProviderBaseURL         string
	ProviderTimeout         time.Duration
	ProviderSignatureHeader string
	DefaultCurrency         string

	FrontendURL string

	RedisAddr  string
	RateLimit  int
	RateWindow time.Duration

	AMQPURL        string
	CallbackURL    string
	CallbackSecret string
	SMTP           email.SMTPConfig

	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_PORT", "8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB", "college.db")
	v.SetDefault("LEDGER_FILE", "payments.json")
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("PROVIDER_TIMEOUT", "5s")
	v.SetDefault("PROVIDER_SIGNATURE_HEADER", "X-Provider-Signature")
	v.SetDefault("DEFAULT_CURRENCY", "INR")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT", 100)
	v.SetDefault("RATE_WINDOW", "15m")
	v.SetDefault("LOG_LEVEL", "info")
}

var keys = []string{
	"GIN_PORT", "DB_DRIVER", "DB", "LEDGER_FILE", "SECRET", "TOKEN_TTL",
	"PROVIDER_KEY_ID", "PROVIDER_KEY_SECRET", "PROVIDER_WEBHOOK_SECRET", "PROVIDER_BASE_URL",
	"PROVIDER_TIMEOUT", "PROVIDER_SIGNATURE_HEADER", "DEFAULT_CURRENCY", "FRONTEND_URL",
	"REDIS_ADDR", "RATE_LIMIT", "RATE_WINDOW", "AMQP_URL", "CALLBACK_URL", "CALLBACK_SECRET",
	"SMTP_SERVER", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "FROM_ADDR", "FROM_NAME",
	"LOG_LEVEL",
}

// Load reads .env when present, then the environment, then CONFIG_FILE.
// Environment variables win over the file.
func Load() (*Config, error) {
	godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	v.BindEnv("CONFIG_FILE")

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:                    v.GetString("GIN_PORT"),
		DBDriver:                strings.ToLower(v.GetString("DB_DRIVER")),
		DSN:                     v.GetString("DB"),
		LedgerFile:              v.GetString("LEDGER_FILE"),
		JWTSecret:               v.GetString("SECRET"),
		TokenTTL:                v.GetDuration("TOKEN_TTL"),
		ProviderKeyID:           v.GetString("PROVIDER_KEY_ID"),
		ProviderKeySecret:       v.GetString("PROVIDER_KEY_SECRET"),
		ProviderWebhookSecret:   v.GetString("PROVIDER_WEBHOOK_SECRET"),
		ProviderBaseURL:         v.GetString("PROVIDER_BASE_URL"),
		ProviderTimeout:         v.GetDuration("PROVIDER_TIMEOUT"),
		ProviderSignatureHeader: v.GetString("PROVIDER_SIGNATURE_HEADER"),
		DefaultCurrency:         strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		FrontendURL:             v.GetString("FRONTEND_URL"),
		RedisAddr:               v.GetString("REDIS_ADDR"),
		RateLimit:               v.GetInt("RATE_LIMIT"),
		RateWindow:              v.GetDuration("RATE_WINDOW"),
		AMQPURL:                 v.GetString("AMQP_URL"),
		CallbackURL:             v.GetString("CALLBACK_URL"),
		CallbackSecret:          v.GetString("CALLBACK_SECRET"),
		SMTP: email.SMTPConfig{
			Server:   v.GetString("SMTP_SERVER"),
			Port:     v.GetString("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Pass:     v.GetString("SMTP_PASS"),
			FromAddr: v.GetString("FROM_ADDR"),
			FromName: v.GetString("FROM_NAME"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "sqlite", "file", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be one of mysql, sqlite, file, memory (got %q)", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("SECRET is required")
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_WINDOW must be positive")
	}
	if c.TokenTTL <= 0 || c.ProviderTimeout <= 0 {
		return fmt.Errorf("TOKEN_TTL and PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

// UsersDriver is the gorm dialect holding the users table.
func (c *Config) UsersDriver() string {
	if c.DBDriver == "mysql" {
		return "mysql"
	}
	return "sqlite"
}

func (c *Config) ProviderConfigured() bool {
	return c.ProviderKeyID != "" && c.ProviderKeySecret != ""
}
