package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	StoragePath        string
	WorkDir            string
	PublicBaseURL      string
	GeoIPDBPath        string
	CORSAllowedOrigins []string

	ScriptProvider string
	GeminiAPIKey   string
	GeminiModel    string
	VeoModel       string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string

	VoiceCloneURL     string
	DefaultVoicePath  string
	VoiceCloneTimeout time.Duration
	VeoPollInterval   time.Duration
	VeoMaxWait        time.Duration

	FFmpegPath    string
	FFprobePath   string
	FFmpegTimeout time.Duration
	ExtendMode    string

	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	RunRetention    time.Duration
	CleanupSchedule string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MaxUploadBytes   int64
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		WorkDir:            getEnv("WORK_DIR", "./generated_media"),
		PublicBaseURL:      os.Getenv("PUBLIC_BASE_URL"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ScriptProvider: strings.ToLower(getEnv("SCRIPT_PROVIDER", "gemini")),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		VeoModel:       getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),

		VoiceCloneURL:     os.Getenv("VOICE_CLONE_URL"),
		DefaultVoicePath:  os.Getenv("DEFAULT_VOICE_PATH"),
		VoiceCloneTimeout: getEnvDuration("VOICE_CLONE_TIMEOUT_SECONDS", time.Second, 300),
		VeoPollInterval:   getEnvDuration("VEO_POLL_INTERVAL_SECONDS", time.Second, 30),
		VeoMaxWait:        getEnvDuration("VEO_MAX_WAIT_SECONDS", time.Second, 600),

		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:   getEnv("FFPROBE_PATH", "ffprobe"),
		FFmpegTimeout: getEnvDuration("FFMPEG_TIMEOUT_SECONDS", time.Second, 180),
		ExtendMode:    getEnv("COMBINE_EXTEND_MODE", "loop"),

		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Prefix:          os.Getenv("S3_PREFIX"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),

		RunRetention:    getEnvDuration("RUN_RETENTION_HOURS", time.Hour, 72),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@every 1h"),

		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", time.Second, 60),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", time.Second, 120),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", time.Second, 60),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20,
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	switch cfg.ScriptProvider {
	case "gemini", "openai", "offline":
	default:
		return nil, fmt.Errorf("SCRIPT_PROVIDER %q is not supported", cfg.ScriptProvider)
	}

	return cfg, nil
}

// RequireDatabase validates the settings the api and worker cannot run without.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// S3Enabled reports whether final artifacts should be uploaded to object storage.
func (c *Config) S3Enabled() bool {
	return strings.TrimSpace(c.S3Bucket) != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration reads a bare number in unit, or a Go duration such as
// "90s" for callers that need finer control.
func getEnvDuration(key string, unit time.Duration, fallback int) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return unit * time.Duration(fallback)
	}
	if i, err := strconv.Atoi(v); err == nil {
		return unit * time.Duration(i)
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return unit * time.Duration(fallback)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
