package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	// MinSecretLength is the smallest HS256 key accepted, in bytes.
	MinSecretLength = 32

	AlgHS256 = "HS256"
)

var (
	ErrMissingDSN     = errors.New("POSTGRES_DSN is not set")
	ErrMissingSecret  = errors.New("JWT_SECRET is not set")
	ErrShortSecret    = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
	ErrUnsupportedAlg = errors.New("JWT_ALG must be HS256")
)

type AppConfig struct {
	Env          string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AuthRateLimit is the number of /auth posts allowed per IP per minute.
	AuthRateLimit int

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Only
	// enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

type DbConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

type JWTConfig struct {
	Secret []byte
	Alg    string

	// TokenTTL of zero issues tokens without an expiry.
	TokenTTL time.Duration
}

type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

type CORSConfig struct {
	AllowedOrigins []string
}

type Config struct {
	AppConfig    *AppConfig
	DbConfig     *DbConfig
	JWTConfig    *JWTConfig
	CookieConfig *CookieConfig
	CORSConfig   *CORSConfig
}

// LoadConfig reads .env when present and builds the configuration from the
// process environment. Missing required values are errors.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded, using process environment", zap.Error(err))
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	/** app config */
	readTimeout, err := envDuration("APP_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := envDuration("APP_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	idleTimeout, err := envDuration("APP_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	rateLimit, err := envInt("AUTH_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	trustProxy, err := envBool("TRUST_PROXY", false)
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		Env:           envString("APP_ENV", "production"),
		Port:          envString("APP_PORT", "8080"),
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		IdleTimeout:   idleTimeout,
		AuthRateLimit: rateLimit,
		TrustProxy:    trustProxy,
	}

	/** db config */
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 20)
	if err != nil {
		return nil, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	maxConnLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	dbConfig := &DbConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		MaxConnLifetime: maxConnLifetime,
	}

	/** jwt config */
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if len(secret) < MinSecretLength {
		return nil, ErrShortSecret
	}
	alg := envString("JWT_ALG", AlgHS256)
	if alg != AlgHS256 {
		return nil, ErrUnsupportedAlg
	}
	ttl, err := envDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		return nil, fmt.Errorf("TOKEN_TTL must not be negative, got %s", ttl)
	}

	jwtConfig := &JWTConfig{
		Secret:   []byte(secret),
		Alg:      alg,
		TokenTTL: ttl,
	}

	/** cookie config */
	secure, err := envBool("COOKIE_SECURE", true)
	if err != nil {
		return nil, err
	}
	sameSite, err := ParseSameSite(envString("COOKIE_SAMESITE", "lax"))
	if err != nil {
		return nil, err
	}

	cookieConfig := &CookieConfig{
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		Secure:   secure,
		SameSite: sameSite,
	}

	/** cors config */
	corsConfig := &CORSConfig{
		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	return &Config{
		AppConfig:    appConfig,
		DbConfig:     dbConfig,
		JWTConfig:    jwtConfig,
		CookieConfig: cookieConfig,
		CORSConfig:   corsConfig,
	}, nil
}

func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid COOKIE_SAMESITE %q", s)
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
