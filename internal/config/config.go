package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	qr "ms-invites/internal/tickets/qr_generator"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	QR       QRConfig
	Issuance IssuanceConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN            string
	Host           string
	Port           int
	Username       string
	Password       string
	Database       string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectRetries int
}

type TelegramConfig struct {
	Token         string
	AppURL        string
	WebhookSecret string
	APIURL        string
}

type RedisConfig struct {
	Addr      string
	Enabled   bool
	UpdateTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

type QRConfig struct {
	Version      int
	ModulePx     int
	EmblemPath   string
	EmblemSizePx int
}

// tokenQRVersion is the smallest version that holds a UUID token at the
// highest error correction level.
const tokenQRVersion = 5

// CodeWidthPx is the rendered width of a ticket code, quiet zone included.
func (q QRConfig) CodeWidthPx() int {
	version := q.Version
	if version < 1 {
		version = tokenQRVersion
	}
	return (17 + 4*version + 8) * q.ModulePx
}

type IssuanceConfig struct {
	MaxQuantity int
}

// AdminConfig guards the HTTP admin API. OIDC wins when both an issuer and
// a shared secret are set.
type AdminConfig struct {
	JWTSecret      string
	JWTIssuer      string
	OIDCIssuer     string
	OIDCClientID   string
	AllowedOrigins []string
}

// AuthEnabled reports whether any token verifier is configured.
func (a AdminConfig) AuthEnabled() bool {
	return a.OIDCIssuer != "" || a.JWTSecret != ""
}

// Load reads the process environment. Call Validate before using the result.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8443"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			Host:           os.Getenv("DB_HOST"),
			Port:           getEnvInt("DB_PORT", 5432),
			Username:       os.Getenv("DB_USER"),
			Password:       os.Getenv("DB_PASSWORD"),
			Database:       os.Getenv("DB_NAME"),
			SSLMode:        getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		},
		Telegram: TelegramConfig{
			Token:         os.Getenv("TELEGRAM_TOKEN"),
			AppURL:        strings.TrimRight(os.Getenv("APP_URL"), "/"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			APIURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			UpdateTTL: time.Duration(getEnvInt("UPDATE_DEDUPE_TTL_MINUTES", 60)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		QR: QRConfig{
			Version:      getEnvInt("QR_VERSION", 0),
			ModulePx:     getEnvInt("QR_MODULE_PX", 10),
			EmblemPath:   getEnv("EMBLEM_PATH", "logo.png"),
			EmblemSizePx: getEnvInt("EMBLEM_SIZE_PX", 100),
		},
		Issuance: IssuanceConfig{
			MaxQuantity: getEnvInt("MAX_BATCH_QUANTITY", 10),
		},
		Admin: AdminConfig{
			JWTSecret:      os.Getenv("ADMIN_JWT_SECRET"),
			JWTIssuer:      os.Getenv("ADMIN_JWT_ISSUER"),
			OIDCIssuer:     os.Getenv("OIDC_ISSUER"),
			OIDCClientID:   os.Getenv("OIDC_CLIENT_ID"),
			AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
	}
}

// PostgresDSN returns POSTGRES_DSN when set, otherwise a URL built from the
// individual DB_* settings.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// WebhookURL is the address Telegram posts updates to.
func (t TelegramConfig) WebhookURL() string {
	return t.AppURL + "/" + t.Token
}

// Validate checks only the database settings.
func (d DatabaseConfig) Validate() error {
	var errs []error

	if d.DSN == "" {
		if d.Host == "" {
			errs = append(errs, errors.New("DB_HOST or POSTGRES_DSN is required"))
		}
		if d.Database == "" {
			errs = append(errs, errors.New("DB_NAME or POSTGRES_DSN is required"))
		}
		if d.Username == "" {
			errs = append(errs, errors.New("DB_USER or POSTGRES_DSN is required"))
		}
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT %d is out of range", d.Port))
	}
	if d.ConnectRetries < 1 {
		errs = append(errs, errors.New("DB_CONNECT_RETRIES must be at least 1"))
	}
	return errors.Join(errs...)
}

// Validate reports every missing or out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.Telegram.AppURL == "" {
		errs = append(errs, errors.New("APP_URL is required"))
	} else if u, err := url.Parse(c.Telegram.AppURL); err != nil || u.Scheme != "https" || u.Host == "" {
		errs = append(errs, fmt.Errorf("APP_URL %q must be an absolute https URL", c.Telegram.AppURL))
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not a number", c.Server.Port))
	}
	if c.QR.Version < 0 || c.QR.Version > 40 {
		errs = append(errs, fmt.Errorf("QR_VERSION %d must be between 0 and 40", c.QR.Version))
	}
	if c.QR.ModulePx < 1 {
		errs = append(errs, errors.New("QR_MODULE_PX must be positive"))
	}
	if c.QR.EmblemSizePx < 0 {
		errs = append(errs, errors.New("EMBLEM_SIZE_PX must not be negative"))
	}
	if c.QR.ModulePx >= 1 && c.QR.EmblemPath != "" {
		limit := int(float64(c.QR.CodeWidthPx()) * qr.DefaultMaxEmblemRatio)
		if c.QR.EmblemSizePx > limit {
			errs = append(errs, fmt.Errorf("EMBLEM_SIZE_PX %d exceeds %dpx, the emblem limit for QR_MODULE_PX %d and QR_VERSION %d",
				c.QR.EmblemSizePx, limit, c.QR.ModulePx, c.QR.Version))
		}
	}
	if c.Issuance.MaxQuantity < 1 {
		errs = append(errs, errors.New("MAX_BATCH_QUANTITY must be at least 1"))
	}
	if c.Admin.JWTSecret != "" && len(c.Admin.JWTSecret) < 32 {
		errs = append(errs, errors.New("ADMIN_JWT_SECRET must be at least 32 bytes"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
