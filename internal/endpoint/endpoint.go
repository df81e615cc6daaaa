// Package endpoint resolves the server's externally reachable hostname
// and, when published, its public key. A statically configured domain
// wins; otherwise values come from a Vault KVv2 secret.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig locates the secret holding the published endpoint values.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Secret  string
}

// Resolver answers where peers should reach the server.
type Resolver struct {
	domain string
	vault  VaultConfig

	once    sync.Once
	client  *vault.Client
	initErr error
}

func New(domain string, vaultCfg VaultConfig) *Resolver {
	return &Resolver{domain: domain, vault: vaultCfg}
}

// Domain returns the server's public hostname.
func (r *Resolver) Domain(ctx context.Context) (string, error) {
	if r.domain != "" {
		return r.domain, nil
	}
	if r.vault.Address == "" {
		return "", errors.New("no endpoint domain configured and no Vault endpoint set")
	}

	domain, err := r.lookup(ctx, "endpoint")
	if err != nil {
		return "", err
	}
	if domain == "" {
		return "", fmt.Errorf("secret %s/%s has no endpoint value", r.vault.Mount, r.vault.Secret)
	}
	return domain, nil
}

// ServerPublicKey returns the published server public key, or empty when
// none is published; the caller derives it from the config instead.
func (r *Resolver) ServerPublicKey(ctx context.Context) (string, error) {
	if r.vault.Address == "" {
		return "", nil
	}
	return r.lookup(ctx, "server_public_key")
}

func (r *Resolver) vaultClient() (*vault.Client, error) {
	r.once.Do(func() {
		cfg := vault.DefaultConfig()
		cfg.Address = r.vault.Address
		r.client, r.initErr = vault.NewClient(cfg)
		if r.initErr == nil {
			r.client.SetToken(r.vault.Token)
		}
	})
	return r.client, r.initErr
}

func (r *Resolver) lookup(ctx context.Context, key string) (string, error) {
	client, err := r.vaultClient()
	if err != nil {
		return "", fmt.Errorf("initializing Vault client: %w", err)
	}

	secret, err := client.KVv2(r.vault.Mount).Get(ctx, r.vault.Secret)
	if err != nil {
		return "", fmt.Errorf("reading secret %s/%s: %w", r.vault.Mount, r.vault.Secret, err)
	}

	if val, ok := secret.Data[key]; ok {
		if s, ok := val.(string); ok {
			return s, nil
		}
		return "", fmt.Errorf("secret %s/%s: value for %q is not a string", r.vault.Mount, r.vault.Secret, key)
	}
	return "", nil
}
