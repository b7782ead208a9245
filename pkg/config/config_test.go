package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "SHOP_TIMEZONE", "BATCH_CRON", "JWT_TTL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Server.Storage != "mongo" {
		t.Errorf("Storage = %q", cfg.Server.Storage)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Batch.LookaheadDays != 1 {
		t.Errorf("LookaheadDays = %d", cfg.Batch.LookaheadDays)
	}
	loc, err := cfg.Shop.Location()
	if err != nil || loc.String() != "Asia/Tokyo" {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("REDIS_ACTIVE_ISSUES_TTL", "5s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	want := []string{"http://a.test", "http://b.test"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Redis.TTL != 5*time.Second {
		t.Errorf("TTL = %v", cfg.Redis.TTL)
	}
}

func TestNewConfig_Rejects(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STORAGE_DRIVER", "sqlite"},
		{"SHOP_TIMEZONE", "Mars/Olympus"},
		{"BATCH_LOOKAHEAD_DAYS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(tt.key, tt.value)
			if _, err := NewConfig(); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}

func TestNewConfig_JWTSecret(t *testing.T) {
	tests := []struct {
		storage, secret string
		wantErr         bool
	}{
		{"mongo", "", true},
		{"mongo", DefaultJWTSecret, true},
		{"mongo", "s3cret-signing-key", false},
		{"memory", DefaultJWTSecret, false},
	}
	for _, tt := range tests {
		t.Run(tt.storage+"/"+tt.secret, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", tt.storage)
			t.Setenv("JWT_SECRET", tt.secret)
			_, err := NewConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("NewConfig err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	// An unset or empty secret falls back to the placeholder
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	if _, err := NewConfig(); err == nil {
		t.Error("default JWT_SECRET accepted with mongo storage")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("COUPON_TEST_KEY", "")
	if got := GetEnv("COUPON_TEST_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	t.Setenv("COUPON_TEST_KEY", "set")
	if got := GetEnv("COUPON_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("got %q", got)
	}
}
