package wgconf

import (
	"fmt"
	"strings"
)

// ClientConfig is the logical content of a generated peer document.
type ClientConfig struct {
	PrivateKey      string
	Address         string // assigned virtual address, bare dotted form
	ServerPublicKey string
	Endpoint        string // host:port
	AllowedIPs      string
}

// Render produces the document text written to the peer's config file.
func (c *ClientConfig) Render() string {
	var b strings.Builder
	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", c.PrivateKey)
	fmt.Fprintf(&b, "Address = %s/32\n", c.Address)
	b.WriteString("\n[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", c.ServerPublicKey)
	fmt.Fprintf(&b, "Endpoint = %s\n", c.Endpoint)
	fmt.Fprintf(&b, "AllowedIPs = %s\n", c.AllowedIPs)
	return b.String()
}
