package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("SCRIPT_PROVIDER", "")
	t.Setenv("VEO_POLL_INTERVAL_SECONDS", "")
	t.Setenv("VEO_MAX_WAIT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
	if cfg.ScriptProvider != "gemini" {
		t.Fatalf("ScriptProvider = %q, want gemini", cfg.ScriptProvider)
	}
	if cfg.VeoPollInterval != 30*time.Second || cfg.VeoMaxWait != 600*time.Second {
		t.Fatalf("veo polling = %s/%s, want 30s/10m", cfg.VeoPollInterval, cfg.VeoMaxWait)
	}
	if cfg.VeoModel != "veo-2.0-generate-001" {
		t.Fatalf("VeoModel = %q", cfg.VeoModel)
	}
}

func TestLoadConfigInheritsPortInPublicBaseURL(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:1919" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
}

func TestLoadConfigRejectsUnknownScriptProvider(t *testing.T) {
	t.Setenv("SCRIPT_PROVIDER", "claude")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}

func TestLoadConfigCORSList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,http://localhost:5173 ")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"https://app.example.com", "http://localhost:5173"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}

func TestRequireDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if err := cfg.RequireDatabase(); err == nil {
		t.Fatalf("expected DATABASE_URL error")
	}
	if cfg.S3Enabled() {
		t.Fatalf("S3 should be disabled without a bucket")
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 30 * time.Second},
		{"45", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"soon", 30 * time.Second},
	}
	for _, tc := range tests {
		t.Setenv("NEOMENTOR_TEST_WAIT", tc.raw)
		if got := getEnvDuration("NEOMENTOR_TEST_WAIT", time.Second, 30); got != tc.want {
			t.Fatalf("getEnvDuration(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
