package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Template sources, queried in this order
	TemplateDir    string
	TemplateDB     string
	TemplateSyntax string // braces or gotemplate

	// Artifact cache
	CacheBackend    string // memory, sqlite, s3, kv or none
	CacheMaxEntries int
	CacheTTL        time.Duration
	CacheDB         string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3Prefix          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	KVURL    string
	KVAPIKey string

	// Generators
	WkhtmltopdfPath string
	EmailFrom       string

	// Worker pool
	WorkerCount         int
	MaxQueueSize        int
	MaxConcurrentRender int

	// Upload limits
	MaxUploadBytes int64

	// Job and stats state
	JobTTL      time.Duration
	StatsWindow time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCMERGE_API_KEY"),

		TemplateDir: envOr("TEMPLATE_DIR", "./templates"),
		TemplateDB:  os.Getenv("TEMPLATE_DB"),

		TemplateSyntax: strings.ToLower(envOr("TEMPLATE_SYNTAX", "braces")),

		CacheBackend:    strings.ToLower(envOr("CACHE_BACKEND", "memory")),
		CacheMaxEntries: envInt("CACHE_MAX_ENTRIES", 1000),
		CacheTTL:        envDuration("CACHE_TTL", 24*time.Hour),
		CacheDB:         envOr("CACHE_DB", "docmerge-cache.db"),

		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          envOr("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Prefix:          envOr("S3_PREFIX", "docmerge/artifacts"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UsePathStyle:    envBool("S3_USE_PATH_STYLE", false),

		KVURL:    envOr("KV_URL", "http://localhost:8080"),
		KVAPIKey: os.Getenv("KV_API_KEY"),

		WkhtmltopdfPath: envOr("WKHTMLTOPDF_PATH", "wkhtmltopdf"),
		EmailFrom:       envOr("EMAIL_FROM", "noreply@docmerge.local"),

		WorkerCount:         envInt("WORKER_COUNT", 4),
		MaxQueueSize:        envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentRender: envInt("MAX_CONCURRENT_RENDER", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		JobTTL:      envDuration("JOB_TTL", 1*time.Hour),
		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),
	}

	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 1000
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentRender <= 0 {
		cfg.MaxConcurrentRender = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCMERGE_API_KEY is required")
	}
	if c.TemplateDir == "" && c.TemplateDB == "" {
		return fmt.Errorf("TEMPLATE_DIR or TEMPLATE_DB is required")
	}
	switch c.TemplateSyntax {
	case "braces", "gotemplate", "":
	default:
		return fmt.Errorf("unknown TEMPLATE_SYNTAX %q", c.TemplateSyntax)
	}
	switch c.CacheBackend {
	case "memory", "none", "":
	case "sqlite":
		if c.CacheDB == "" {
			return fmt.Errorf("CACHE_DB is required for the sqlite cache")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 cache")
		}
	case "kv":
		if c.KVURL == "" {
			return fmt.Errorf("KV_URL is required for the kv cache")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
