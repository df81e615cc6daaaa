package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Config holds the application configuration
type Config struct {
	WGConfPath    string // Path to the server's wg-quick config
	Device        string // WireGuard device name
	ClientDir     string // Directory for rendered peer configs
	DataDir       string // Directory for the roster database
	ListenAddr    string // Server mode listen address
	BearerToken   string // API/MCP bearer token
	Endpoint      string // Public hostname peers connect to
	VaultAddr     string // Vault endpoint (optional)
	VaultToken    string
	VaultMount    string
	VaultSecret   string
	ReconcileSpec string // Cron spec for roster/device reconcile
	ConfigFile    string // Path to .env file (if loaded)
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Command-line parameters (passed as opts)
// 2. .env file (if exists)
// 3. Environment variables
// 4. Default values
func Load(opts *Config) *Config {
	cfg := &Config{}

	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := loadFromEnvFile(cfg, envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
		} else {
			cfg.ConfigFile = envFile
		}
	}

	cfg.WGConfPath = coalesce(cfg.WGConfPath, os.Getenv("WGPROV_WG_CONF"), "/etc/wireguard/wg0.conf")
	cfg.Device = coalesce(cfg.Device, os.Getenv("WGPROV_DEVICE"), "wg0")
	cfg.ClientDir = coalesce(cfg.ClientDir, os.Getenv("WGPROV_CLIENT_DIR"), "./clients")
	cfg.DataDir = coalesce(cfg.DataDir, os.Getenv("WGPROV_DATA_DIR"), "./data")
	cfg.ListenAddr = coalesce(cfg.ListenAddr, os.Getenv("WGPROV_LISTEN_ADDR"), ":8080")
	cfg.BearerToken = coalesce(cfg.BearerToken, os.Getenv("WGPROV_TOKEN"), "")
	cfg.Endpoint = coalesce(cfg.Endpoint, os.Getenv("WGPROV_ENDPOINT"), "")
	cfg.VaultAddr = coalesce(cfg.VaultAddr, os.Getenv("WGPROV_VAULT_ADDR"), "")
	cfg.VaultToken = coalesce(cfg.VaultToken, os.Getenv("WGPROV_VAULT_TOKEN"), "")
	cfg.VaultMount = coalesce(cfg.VaultMount, os.Getenv("WGPROV_VAULT_MOUNT"), "secret")
	cfg.VaultSecret = coalesce(cfg.VaultSecret, os.Getenv("WGPROV_VAULT_SECRET"), "wgprov")
	cfg.ReconcileSpec = coalesce(cfg.ReconcileSpec, os.Getenv("WGPROV_RECONCILE"), "@every 5m")

	// CLI opts override everything else
	if opts != nil {
		if opts.WGConfPath != "" {
			cfg.WGConfPath = opts.WGConfPath
		}
		if opts.Device != "" {
			cfg.Device = opts.Device
		}
		if opts.ClientDir != "" {
			cfg.ClientDir = opts.ClientDir
		}
		if opts.DataDir != "" {
			cfg.DataDir = opts.DataDir
		}
		if opts.ListenAddr != "" {
			cfg.ListenAddr = opts.ListenAddr
		}
		if opts.BearerToken != "" {
			cfg.BearerToken = opts.BearerToken
		}
		if opts.Endpoint != "" {
			cfg.Endpoint = opts.Endpoint
		}
		if opts.ReconcileSpec != "" {
			cfg.ReconcileSpec = opts.ReconcileSpec
		}
	}

	return cfg
}

// loadFromEnvFile loads configuration from a .env file
func loadFromEnvFile(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE or KEY="VALUE"
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")

		switch key {
		case "WGPROV_WG_CONF":
			cfg.WGConfPath = value
		case "WGPROV_DEVICE":
			cfg.Device = value
		case "WGPROV_CLIENT_DIR":
			cfg.ClientDir = value
		case "WGPROV_DATA_DIR":
			cfg.DataDir = value
		case "WGPROV_LISTEN_ADDR":
			cfg.ListenAddr = value
		case "WGPROV_TOKEN":
			cfg.BearerToken = value
		case "WGPROV_ENDPOINT":
			cfg.Endpoint = value
		case "WGPROV_VAULT_ADDR":
			cfg.VaultAddr = value
		case "WGPROV_VAULT_TOKEN":
			cfg.VaultToken = value
		case "WGPROV_VAULT_MOUNT":
			cfg.VaultMount = value
		case "WGPROV_VAULT_SECRET":
			cfg.VaultSecret = value
		case "WGPROV_RECONCILE":
			cfg.ReconcileSpec = value
		}
	}

	return scanner.Err()
}

// IsAuthEnabled reports whether API/MCP authentication is configured
func (c *Config) IsAuthEnabled() bool {
	return c.BearerToken != ""
}

// String returns a string representation of the config source
func (c *Config) String() string {
	if c.ConfigFile != "" {
		return fmt.Sprintf(".env file (%s)", c.ConfigFile)
	}
	return "environment variables"
}

// coalesce returns the first non-empty string value
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
