package config

import (
	"os"
	"path/filepath"
	"testing"
)

func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if prev, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, prev) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func TestLoadPrefersLocalFile(t *testing.T) {
	unset(t, "VEO_MODEL", "SCRIPT_PROVIDER")
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	if err := os.WriteFile(local, []byte("VEO_MODEL=veo-local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shared, []byte("VEO_MODEL=veo-shared\nSCRIPT_PROVIDER=offline\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(local, shared)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VeoModel != "veo-local" {
		t.Fatalf("VeoModel = %q, want veo-local", cfg.VeoModel)
	}
	if cfg.ScriptProvider != "offline" {
		t.Fatalf("ScriptProvider = %q, want offline", cfg.ScriptProvider)
	}
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	unset(t, "SCRIPT_PROVIDER")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadRejectsBadProvider(t *testing.T) {
	unset(t, "SCRIPT_PROVIDER")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SCRIPT_PROVIDER=llama\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}
