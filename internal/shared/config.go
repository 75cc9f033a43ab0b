package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	RefreshTTL time.Duration
	PolicyFile string

	PlatformBase string
	PlatformKey  string
	PlatformRPS  int
	Workers      int
	ReviewCount  int

	QrSubmitRPS float64
}

// Load reads the process environment, after merging a .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Msg("ignoring non-numeric value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviewhub?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		JWTSecret:  env("JWT_SECRET", ""),
		JWTIssuer:  env("JWT_ISSUER", "reviewhub"),
		JWTTTL:     duration("JWT_TTL", 12*time.Hour),
		RefreshTTL: duration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		PolicyFile: env("ROLE_POLICY_FILE", ""),

		PlatformBase: env("PLATFORM_BASE_URL", "http://localhost:8090"),
		PlatformKey:  env("PLATFORM_API_KEY", ""),
		PlatformRPS:  atoi("PLATFORM_RPS", 5),
		Workers:      atoi("INGEST_WORKERS", 8),
		ReviewCount:  atoi("INGEST_REVIEW_COUNT", 100),

		QrSubmitRPS: float("QR_SUBMIT_RPS", 0.2),
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// duration accepts Go durations ("90m") or plain seconds.
func duration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", k).Msg("ignoring invalid duration")
	return def
}

func float(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
