// Package wgconf reads the server's wg-quick style configuration document
// and renders the documents handed out to newly provisioned peers.
package wgconf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrMissingServerAddress = errors.New("server config has no Interface.Address")

// ServerConfig is the subset of the server's configuration document that
// provisioning needs.
type ServerConfig struct {
	// Address is the server's own CIDR address.
	Address string
	// ListenPort may be empty when the document omits it; it is carried
	// through as-is.
	ListenPort string
	// PrivateKey is used to derive the public key handed to peers.
	PrivateKey string
	// TakenIPs is the union of every AllowedIPs entry across all [Peer]
	// sections. Entries may be bare addresses or carry a CIDR suffix.
	TakenIPs map[string]struct{}
}

// ReadServerConfig scans a sectioned key=value document top to bottom,
// tracking the current section as it goes. Interface.Address and
// Interface.ListenPort are last-wins; AllowedIPs entries accumulate across
// repeated [Peer] sections. Unrecognized keys are ignored. Comment and
// blank lines are skipped; any other line without = is a parse fault.
func ReadServerConfig(r io.Reader) (*ServerConfig, error) {
	cfg := &ServerConfig{TakenIPs: make(map[string]struct{})}
	section := ""

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: %q is not a key=value pair", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch section {
		case "Interface":
			switch key {
			case "Address":
				cfg.Address = value
			case "ListenPort":
				cfg.ListenPort = value
			case "PrivateKey":
				cfg.PrivateKey = value
			}
		case "Peer":
			if key == "AllowedIPs" {
				for _, entry := range strings.Split(value, ",") {
					if entry = strings.TrimSpace(entry); entry != "" {
						cfg.TakenIPs[entry] = struct{}{}
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if cfg.Address == "" {
		return nil, ErrMissingServerAddress
	}
	return cfg, nil
}

// ReadServerConfigFile is a convenience wrapper around ReadServerConfig.
func ReadServerConfigFile(path string) (*ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening server config: %w", err)
	}
	defer f.Close()
	return ReadServerConfig(f)
}
