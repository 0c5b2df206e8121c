// config.go

// Environment variable loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrConfigurationMissing is returned when required app credentials are absent.
// There are no built-in fallback credentials; the process must not start without them.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config holds all env configuration vars for obol.
// Built once at startup and never mutated afterwards.
type Config struct {
	// App credentials issued by the platform.
	AppKey    string `validate:"required"`
	AppSecret string `validate:"required"`

	// CallbackURL is where the platform sends the merchant after consent.
	CallbackURL string `validate:"required,url"`

	// PlatformDomain is the store domain; stores live at {handle}.{PlatformDomain}.
	PlatformDomain string `validate:"required,hostname_rfc1123"`

	// Scopes requested on the authorization page, in order.
	Scopes []string `validate:"required,min=1,dive,required"`

	// ExchangeTimeout bounds one outbound token exchange.
	ExchangeTimeout time.Duration `validate:"gt=0"`

	Port     string `validate:"required,numeric"`
	LogLevel slog.Level

	// Optional audit trail backends. Empty DatabaseURL disables the audit trail;
	// empty RedisURL records events synchronously instead of queueing them.
	DatabaseURL   string
	RedisURL      string
	EventQueueMax int64 `validate:"gte=0"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads environment variables and returns a validated Config.
// Returns an error wrapping ErrConfigurationMissing if APP_KEY, APP_SECRET or CALLBACK_URL is unset.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Credentials first -- report every missing one at once.
	cfg.AppKey = os.Getenv("APP_KEY")
	cfg.AppSecret = os.Getenv("APP_SECRET")
	cfg.CallbackURL = os.Getenv("CALLBACK_URL")
	var missing []string
	for _, kv := range [][2]string{
		{"APP_KEY", cfg.AppKey},
		{"APP_SECRET", cfg.AppSecret},
		{"CALLBACK_URL", cfg.CallbackURL},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s required", ErrConfigurationMissing, strings.Join(missing, ", "))
	}

	cfg.PlatformDomain = os.Getenv("PLATFORM_DOMAIN")
	if cfg.PlatformDomain == "" {
		cfg.PlatformDomain = "myshopline.com"
	}

	cfg.Scopes = splitList(os.Getenv("APP_SCOPES"))
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"read_products", "write_products"}
	}

	cfg.ExchangeTimeout = envDuration("EXCHANGE_TIMEOUT", 10*time.Second)

	// Attempt to get port num, default to 3000
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "3000"
	}

	// Parse log level, default to info
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.EventQueueMax = int64(envInt("EVENT_QUEUE_MAX", 1000))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. Safe to call on hand-built configs (tests, CLI).
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// splitList splits a comma list, trimming blanks and dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envInt reads an env var as int, returning def if missing or unparseable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
