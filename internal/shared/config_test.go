package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "HTTP_ADDR", "REDIS_ADDR", "JWT_TTL", "REFRESH_TOKEN_TTL", "INGEST_WORKERS", "QR_SUBMIT_RPS", "CACHE_TTL_SECONDS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.AppEnv != "prod" || c.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.RedisAddr != "" {
		t.Fatalf("redis should default to disabled, got %q", c.RedisAddr)
	}
	if c.JWTTTL != 12*time.Hour || c.CacheTTL != 900*time.Second {
		t.Fatalf("unexpected durations: jwt=%v cache=%v", c.JWTTTL, c.CacheTTL)
	}
	if c.QrSubmitRPS != 0.2 {
		t.Fatalf("unexpected qr rps %v", c.QrSubmitRPS)
	}
	if c.RefreshTTL != 720*time.Hour {
		t.Fatalf("unexpected refresh ttl %v", c.RefreshTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_TTL", "3600")
	t.Setenv("INGEST_WORKERS", "0")
	t.Setenv("PLATFORM_RPS", "nope")
	t.Setenv("QR_SUBMIT_RPS", "2.5")
	c := Load()
	if c.JWTTTL != time.Hour {
		t.Fatalf("seconds form not honored: %v", c.JWTTTL)
	}
	if c.Workers != 1 {
		t.Fatalf("workers must be clamped to 1, got %d", c.Workers)
	}
	if c.PlatformRPS != 5 {
		t.Fatalf("bad number must fall back to default, got %d", c.PlatformRPS)
	}
	if c.QrSubmitRPS != 2.5 {
		t.Fatalf("got %v", c.QrSubmitRPS)
	}

	t.Setenv("JWT_TTL", "90m")
	if got := Load().JWTTTL; got != 90*time.Minute {
		t.Fatalf("duration form not honored: %v", got)
	}
}
