// Package wgkeys wraps WireGuard key handling.
package wgkeys

import (
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// KeyPair holds a generated key pair in base64 form.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// Generate creates a fresh Curve25519 key pair.
func Generate() (KeyPair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generating private key: %w", err)
	}
	return KeyPair{
		PrivateKey: priv.String(),
		PublicKey:  priv.PublicKey().String(),
	}, nil
}

// PublicFromPrivate derives the public key for a stored private key.
func PublicFromPrivate(private string) (string, error) {
	key, err := wgtypes.ParseKey(private)
	if err != nil {
		return "", fmt.Errorf("parsing private key: %w", err)
	}
	return key.PublicKey().String(), nil
}
