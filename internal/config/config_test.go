package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LIB_API_URL", "LIB_API_TIMEOUT", "LIB_CACHE_REDIS_URL", "REDIS_ADDR", "REDIS_USER", "REDIS_PASSWORD",
		"LIB_CACHE_TTL", "LIB_CACHE_TIMEOUT_MS", "LIB_PAGE_SIZE", "LIB_SANDBOX_SECRET",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LIB_SESSION_DSN", filepath.Join(t.TempDir(), "session.db"))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.APIURL != "http://localhost:9192/api/" || c.APITimeout != 10*time.Second {
		t.Fatalf("api %s %s", c.APIURL, c.APITimeout)
	}
	if c.Redis != nil || c.CacheTTL != 5*time.Minute || c.CacheTimeout != 150*time.Millisecond || c.PageSize != 10 {
		t.Fatalf("config %+v", c)
	}
	if len(c.Warnings()) != 0 {
		t.Fatalf("local defaults warned: %v", c.Warnings())
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		key, val, want string
	}{
		{"LIB_API_URL", "ftp://example.com", "LIB_API_URL"},
		{"LIB_API_TIMEOUT", "soon", "LIB_API_TIMEOUT"},
		{"LIB_CACHE_TTL", "-1s", "LIB_CACHE_TTL"},
		{"LIB_CACHE_TIMEOUT_MS", "0", "LIB_CACHE_TIMEOUT_MS"},
		{"LIB_PAGE_SIZE", "500", "LIB_PAGE_SIZE"},
		{"LIB_SANDBOX_SECRET", "short", "LIB_SANDBOX_SECRET"},
		{"LIB_CACHE_REDIS_URL", "http://nope", "LIB_CACHE_REDIS_URL"},
		{"AWS_ACCESS_KEY_ID", "AKIA", "AWS_"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestRedisAndWarnings(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIB_API_URL", "http://library.example.edu/api/")
	t.Setenv("REDIS_ADDR", "cache.example.edu:6379")
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.Redis == nil || c.Redis.Addr != "cache.example.edu:6379" || c.Redis.TLSConfig == nil {
		t.Fatalf("redis %+v", c.Redis)
	}
	if w := c.Warnings(); len(w) != 2 {
		t.Fatalf("warnings %v", w)
	}

	clearEnv(t)
	t.Setenv("LIB_CACHE_REDIS_URL", "redis://localhost:6379/2")
	c, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.Redis.DB != 2 {
		t.Fatalf("db %d", c.Redis.DB)
	}
	if w := c.Warnings(); len(w) != 1 || !strings.Contains(w[0], "rediss://") {
		t.Fatalf("warnings %v", w)
	}
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIB_PAGE_SIZE", "")
	os.Unsetenv("LIB_PAGE_SIZE")
	p := filepath.Join(t.TempDir(), "libctl.env")
	if err := os.WriteFile(p, []byte("LIB_PAGE_SIZE=25\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotenv(p); err != nil {
		t.Fatal(err)
	}
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.PageSize != 25 {
		t.Fatalf("page size %d", c.PageSize)
	}
}
