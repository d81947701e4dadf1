// Package config reads libctl's environment. Values may come from a .env
// file loaded by the CLI before Load runs.
package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/5w1tchy/library-client/internal/api/client"
	"github.com/5w1tchy/library-client/internal/storage/s3"
)

type Config struct {
	APIURL     string
	APITimeout time.Duration

	SessionDSN string

	// Redis is nil when no shared cache is configured; the query cache then
	// stays in memory.
	Redis        *redis.Options
	CacheTTL     time.Duration
	CacheTimeout time.Duration

	PageSize int

	S3 s3.Config

	SandboxSecret string
}

// LoadDotenv loads the given files, or ./.env when none are given. Missing
// files are ignored; variables already set win.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load %s: %w", strings.Join(files, ", "), err)
	}
	return nil
}

// Load reads and validates the environment.
func Load() (Config, error) {
	var c Config
	var err error

	c.APIURL = env("LIB_API_URL", client.DefaultBaseURL)
	if c.APITimeout, err = envDuration("LIB_API_TIMEOUT", "10s"); err != nil {
		return c, fmt.Errorf("LIB_API_TIMEOUT: %w", err)
	}
	if c.SessionDSN = os.Getenv("LIB_SESSION_DSN"); c.SessionDSN == "" {
		if c.SessionDSN, err = defaultSessionPath(); err != nil {
			return c, err
		}
	}
	if c.CacheTTL, err = envDuration("LIB_CACHE_TTL", "5m"); err != nil {
		return c, fmt.Errorf("LIB_CACHE_TTL: %w", err)
	}
	ms, err := envInt("LIB_CACHE_TIMEOUT_MS", 150, 1)
	if err != nil {
		return c, fmt.Errorf("LIB_CACHE_TIMEOUT_MS: %w", err)
	}
	c.CacheTimeout = time.Duration(ms) * time.Millisecond
	if c.PageSize, err = envInt("LIB_PAGE_SIZE", 10, 1); err != nil {
		return c, fmt.Errorf("LIB_PAGE_SIZE: %w", err)
	}
	if c.PageSize > 100 {
		return c, errors.New("LIB_PAGE_SIZE: must be <= 100")
	}
	if c.Redis, err = redisOptions(); err != nil {
		return c, err
	}
	c.S3 = s3.ConfigFromEnv()
	c.SandboxSecret = os.Getenv("LIB_SANDBOX_SECRET")
	return c, c.Validate()
}

// Validate fails fast on values that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("LIB_API_URL %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.SandboxSecret != "" && len(c.SandboxSecret) < 32 {
		return errors.New("LIB_SANDBOX_SECRET must be at least 32 characters")
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// Warnings returns non-fatal hardening nudges worth logging on startup.
func (c Config) Warnings() []string {
	var warns []string
	if u, err := url.Parse(c.APIURL); err == nil && u.Scheme == "http" && !isLocal(u.Hostname()) {
		warns = append(warns, fmt.Sprintf("LIB_API_URL=%s is plain HTTP; tokens travel unencrypted", c.APIURL))
	}
	if raw := os.Getenv("LIB_CACHE_REDIS_URL"); strings.HasPrefix(raw, "redis://") {
		warns = append(warns, "LIB_CACHE_REDIS_URL uses redis:// (no TLS). Prefer rediss://")
	}
	if c.Redis != nil && c.Redis.Password == "" && !isLocal(hostOnly(c.Redis.Addr)) {
		warns = append(warns, "remote Redis configured without a password")
	}
	if c.CacheTTL > time.Hour {
		warns = append(warns, fmt.Sprintf("LIB_CACHE_TTL=%s is > 1h; lists may look stale", c.CacheTTL))
	}
	return warns
}

// NewRedis builds the client and pings it with a short timeout.
func (c Config) NewRedis(ctx context.Context) (*redis.Client, error) {
	if c.Redis == nil {
		return nil, nil
	}
	rdb := redis.NewClient(c.Redis)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("config: redis ping %s: %w", c.Redis.Addr, err)
	}
	return rdb, nil
}

// redisOptions prefers the URL form, then the split REDIS_* fields.
func redisOptions() (*redis.Options, error) {
	if raw := os.Getenv("LIB_CACHE_REDIS_URL"); raw != "" {
		opt, err := redis.ParseURL(raw) // e.g. rediss://default:<token>@host:port
		if err != nil {
			return nil, fmt.Errorf("LIB_CACHE_REDIS_URL: %w", err)
		}
		opt.DialTimeout = 2 * time.Second
		opt.ReadTimeout = 500 * time.Millisecond
		opt.WriteTimeout = 500 * time.Millisecond
		return opt, nil
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}
	opt := &redis.Options{
		Addr:         addr,
		Username:     os.Getenv("REDIS_USER"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
	if !isLocal(hostOnly(addr)) {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt, nil
}

func defaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("LIB_SESSION_DSN unset and no config dir: %w", err)
	}
	return filepath.Join(dir, "libctl", "session.db"), nil
}

// --- helpers ---

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	s := env(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func envInt(key string, def, min int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("not a number: %v", err)
	}
	if n < min {
		return 0, fmt.Errorf("must be >= %d", min)
	}
	return n, nil
}

func hostOnly(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}

func isLocal(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "[::1]"
}
