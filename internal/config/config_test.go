package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load(nil)

	if cfg.WGConfPath != "/etc/wireguard/wg0.conf" {
		t.Errorf("WGConfPath = %q", cfg.WGConfPath)
	}
	if cfg.Device != "wg0" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.VaultMount != "secret" {
		t.Errorf("VaultMount = %q", cfg.VaultMount)
	}
	if cfg.ReconcileSpec != "@every 5m" {
		t.Errorf("ReconcileSpec = %q", cfg.ReconcileSpec)
	}
	if cfg.IsAuthEnabled() {
		t.Error("auth should be disabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WGPROV_DEVICE", "wg1")
	t.Setenv("WGPROV_TOKEN", "sekrit")

	cfg := Load(nil)

	if cfg.Device != "wg1" {
		t.Errorf("Device = %q, want wg1", cfg.Device)
	}
	if !cfg.IsAuthEnabled() {
		t.Error("auth should be enabled when a token is set")
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# wgprov settings
WGPROV_DEVICE=wg2
WGPROV_ENDPOINT="vpn.example.org"

not-a-pair
`
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("WGPROV_DEVICE", "wg-from-env")

	cfg := Load(nil)

	// .env wins over process environment
	if cfg.Device != "wg2" {
		t.Errorf("Device = %q, want wg2", cfg.Device)
	}
	if cfg.Endpoint != "vpn.example.org" {
		t.Errorf("Endpoint = %q (quotes should be stripped)", cfg.Endpoint)
	}
	if cfg.ConfigFile != ".env" {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
}

func TestLoadOptsOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WGPROV_DATA_DIR", "/from-env")

	cfg := Load(&Config{DataDir: "/from-flag", Device: "wg9"})

	if cfg.DataDir != "/from-flag" {
		t.Errorf("DataDir = %q, want the CLI value", cfg.DataDir)
	}
	if cfg.Device != "wg9" {
		t.Errorf("Device = %q, want wg9", cfg.Device)
	}
	// Untouched fields keep their defaults
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
}
