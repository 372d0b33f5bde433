package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// AuthConfig は JWT セッショントークンの発行・検証に使う設定。
type AuthConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GeocoderConfig defines the forward-geocoding endpoint and its optional redis cache.
type GeocoderConfig struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
	RedisAddr string
	CacheTTL  time.Duration
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Env               string
	Addr              string
	MongoURI          string
	MongoDatabase     string
	ListingCollection string
	ReviewCollection  string
	UserCollection    string
	ImageBucket       string
	Timeout           time.Duration
	ServerLog         *log.Logger
	Auth              AuthConfig
	Geocoder          GeocoderConfig
	AllowedOrigins    []string
	MediaBaseURL      string
	CookieSecure      bool
	OwnershipGuard    bool
}

// Production reports whether error details must be hidden from clients.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads environment variables and returns a fully populated Config.
// 必須の設定が欠けている場合はプロセスを終了する。
func Load() Config {
	cfg, err := FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	cfg.ServerLog.Printf("loaded config: env=%q addr=%q db=%q geocoder=%q redis=%q ownershipGuard=%t",
		cfg.Env, cfg.Addr, cfg.MongoDatabase, cfg.Geocoder.Endpoint, cfg.Geocoder.RedisAddr, cfg.OwnershipGuard)
	return cfg
}

// FromEnv builds a Config from the environment and reports missing or malformed values.
func FromEnv() (Config, error) {
	timeout, err := durationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	tokenTTL, err := durationOrDefault("AUTH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	geocoderTimeout, err := durationOrDefault("GEOCODER_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := durationOrDefault("GEOCODE_CACHE_TTL", 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	secret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if secret == "" {
		return Config{}, errors.New("SESSION_SECRET must be configured")
	}

	env := envOrDefault("APP_ENV", "development")

	addr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if addr == "" {
		addr = ":" + envOrDefault("PORT", "8080")
	}

	mongoURI := firstNonEmpty("MONGO_URI", "MONGODB_URL", "ATLASDB_URL")
	if mongoURI == "" {
		mongoURI = "mongodb://127.0.0.1:27017"
	}

	cookieSecure := strings.EqualFold(env, "production")
	if raw := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); raw != "" {
		cookieSecure = strings.EqualFold(raw, "true")
	}

	return Config{
		Env:               env,
		Addr:              addr,
		MongoURI:          mongoURI,
		MongoDatabase:     envOrDefault("MONGO_DB", "wanderlust"),
		ListingCollection: envOrDefault("LISTING_COLLECTION", "listings"),
		ReviewCollection:  envOrDefault("REVIEW_COLLECTION", "reviews"),
		UserCollection:    envOrDefault("USER_COLLECTION", "users"),
		ImageBucket:       envOrDefault("IMAGE_BUCKET", "images"),
		Timeout:           timeout,
		ServerLog:         log.New(os.Stdout, "[wanderlust-api] ", log.LstdFlags|log.Lshortfile),
		Auth: AuthConfig{
			Secret:   []byte(secret),
			Issuer:   envOrDefault("AUTH_JWT_ISSUER", "wanderlust"),
			Audience: strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
			TTL:      tokenTTL,
		},
		Geocoder: GeocoderConfig{
			Endpoint:  envOrDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: envOrDefault("GEOCODER_USER_AGENT", "wanderlust-api/1.0"),
			Timeout:   geocoderTimeout,
			RedisAddr: strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			CacheTTL:  cacheTTL,
		},
		AllowedOrigins: parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		MediaBaseURL:   strings.TrimSpace(os.Getenv("MEDIA_BASE_URL")),
		CookieSecure:   cookieSecure,
		OwnershipGuard: strings.EqualFold(strings.TrimSpace(os.Getenv("LISTING_OWNER_GUARD")), "true"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return parsed, nil
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
