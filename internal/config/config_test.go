package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "PORT", "MONGO_URI", "MONGODB_URL", "ATLASDB_URL", "MONGO_DB",
		"LISTING_COLLECTION", "REVIEW_COLLECTION", "USER_COLLECTION", "IMAGE_BUCKET",
		"MONGO_CONNECT_TIMEOUT", "SESSION_SECRET", "AUTH_JWT_ISSUER", "AUTH_JWT_AUDIENCE",
		"AUTH_TOKEN_TTL", "GEOCODER_URL", "GEOCODER_USER_AGENT", "GEOCODER_TIMEOUT", "REDIS_ADDR",
		"GEOCODE_CACHE_TTL", "MEDIA_BASE_URL", "API_ALLOWED_ORIGINS", "LISTING_OWNER_GUARD", "COOKIE_SECURE",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.MongoDatabase != "wanderlust" || cfg.ListingCollection != "listings" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.TTL != 7*24*time.Hour || string(cfg.Auth.Secret) != "s3cret" {
		t.Errorf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Production() || cfg.CookieSecure || cfg.OwnershipGuard {
		t.Errorf("development defaults expected, got %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestFromEnv_RequiresSecret(t *testing.T) {
	clearEnv(t)
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error without SESSION_SECRET")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "3000")
	t.Setenv("ATLASDB_URL", "mongodb+srv://atlas.example.net")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LISTING_OWNER_GUARD", "TRUE")
	t.Setenv("GEOCODER_TIMEOUT", "2s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("expected PORT fallback, got %q", cfg.Addr)
	}
	if cfg.MongoURI != "mongodb+srv://atlas.example.net" {
		t.Errorf("expected ATLASDB_URL fallback, got %q", cfg.MongoURI)
	}
	if !cfg.Production() || !cfg.CookieSecure || !cfg.OwnershipGuard {
		t.Errorf("expected production flags, got %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.Geocoder.Timeout != 2*time.Second {
		t.Errorf("unexpected geocoder timeout %s", cfg.Geocoder.Timeout)
	}
}

func TestFromEnv_RejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("AUTH_TOKEN_TTL", "forever")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
