package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SMTP struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string
	FromName  string
	FromEmail string
}

type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Config struct {
	Env           string
	Addr          string
	PublicURL     *url.URL
	DBDSN         string
	LogLevel      string
	SessionSecret string
	SessionTTL    time.Duration

	TokenTTL       time.Duration
	ResendCooldown time.Duration
	ResendMax      int
	RetentionAge   time.Duration

	SMTP SMTP
	S3   S3

	BootstrapEmail    string
	BootstrapName     string
	BootstrapPassword string
}

// Load reads the process environment, honoring a .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:           getenv("APP_ENV"),
		Addr:          getenv("APP_ADDR"),
		DBDSN:         getenv("APP_DB_DSN"),
		LogLevel:      getenv("APP_LOG_LEVEL"),
		SessionSecret: getenv("APP_SESSION_SECRET"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	if cfg.SessionTTL, err = durationEnv(getenv, "APP_SESSION_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = durationEnv(getenv, "APP_TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ResendCooldown, err = durationEnv(getenv, "APP_RESEND_COOLDOWN", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RetentionAge, err = durationEnv(getenv, "APP_RETENTION_AGE", 48*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ResendMax, err = intEnv(getenv, "APP_RESEND_MAX", 5); err != nil {
		return Config{}, err
	}

	cfg.SMTP = SMTP{
		Host:      getenv("APP_SMTP_HOST"),
		Username:  getenv("APP_SMTP_USERNAME"),
		Password:  getenv("APP_SMTP_PASSWORD"),
		TLSMode:   getenv("APP_SMTP_TLS_MODE"),
		FromName:  getenv("APP_SMTP_FROM_NAME"),
		FromEmail: getenv("APP_SMTP_FROM_EMAIL"),
	}
	if cfg.SMTP.Port, err = intEnv(getenv, "APP_SMTP_PORT", 587); err != nil {
		return Config{}, err
	}

	cfg.S3 = S3{
		Endpoint:  getenv("APP_S3_ENDPOINT"),
		Region:    getenv("APP_S3_REGION"),
		Bucket:    getenv("APP_S3_BUCKET"),
		AccessKey: getenv("APP_S3_ACCESS_KEY"),
		SecretKey: getenv("APP_S3_SECRET_KEY"),
	}

	cfg.BootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_SUPERADMIN_EMAIL")))
	cfg.BootstrapName = strings.TrimSpace(getenv("APP_SUPERADMIN_NAME"))
	cfg.BootstrapPassword = getenv("APP_SUPERADMIN_PASSWORD")

	if cfg.BootstrapPassword != "" && cfg.BootstrapEmail == "" {
		return Config{}, errors.New("APP_SUPERADMIN_EMAIL: required when APP_SUPERADMIN_PASSWORD is set")
	}
	if cfg.BootstrapPassword != "" && cfg.BootstrapName == "" {
		cfg.BootstrapName = "Super Admin"
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.SessionSecret) < 32 {
			return Config{}, errors.New("APP_SESSION_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return n, nil
}
