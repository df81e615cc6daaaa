package model

import "time"

// Peer is a provisioned client of the WireGuard server.
type Peer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PublicKey  string    `json:"public_key"`
	Address    string    `json:"address"` // assigned virtual address, bare dotted form
	AllowedIPs string    `json:"allowed_ips"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PeerFilter holds filter criteria for listing peers
type PeerFilter struct {
	Name string // Filter by name (partial match)
}
