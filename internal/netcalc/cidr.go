// Package netcalc implements the address arithmetic behind peer
// provisioning: CIDR parsing and free-address enumeration inside a subnet.
package netcalc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidAddressFormat = errors.New("invalid address format")
	ErrPrefixOutOfRange     = errors.New("prefix length out of range")
	ErrSubnetExhausted      = errors.New("subnet exhausted")
)

// CIDR is a parsed A.B.C.D/N address. Octets keep whatever integer values
// the text carried; the parser does not clamp them to 0-255.
type CIDR struct {
	Prefix int
	Octets [4]int
}

// ParseCIDR parses text of the form A.B.C.D/N.
func ParseCIDR(text string) (CIDR, error) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 {
		return CIDR{}, fmt.Errorf("%w: %q must contain exactly one /", ErrInvalidAddressFormat, text)
	}

	prefix, err := strconv.Atoi(parts[1])
	if err != nil {
		return CIDR{}, fmt.Errorf("%w: prefix %q is not an integer", ErrInvalidAddressFormat, parts[1])
	}
	if prefix < 0 || prefix > 32 {
		return CIDR{}, fmt.Errorf("%w: /%d", ErrPrefixOutOfRange, prefix)
	}

	segments := strings.Split(parts[0], ".")
	if len(segments) != 4 {
		return CIDR{}, fmt.Errorf("%w: %q must have exactly 4 octets", ErrInvalidAddressFormat, parts[0])
	}

	c := CIDR{Prefix: prefix}
	for i, segment := range segments {
		n, err := strconv.Atoi(segment)
		if err != nil {
			return CIDR{}, fmt.Errorf("%w: octet %q is not an integer", ErrInvalidAddressFormat, segment)
		}
		c.Octets[i] = n
	}
	return c, nil
}

// Addr packs the octets into the 32-bit network-order form used for
// host-bit enumeration. Out-of-range octets spill into higher bits, the
// same way naive shift-and-or packing always has.
func (c CIDR) Addr() uint32 {
	return uint32(c.Octets[0])<<24 | uint32(c.Octets[1])<<16 | uint32(c.Octets[2])<<8 | uint32(c.Octets[3])
}

func (c CIDR) String() string {
	return fmt.Sprintf("%d.%d.%d.%d/%d", c.Octets[0], c.Octets[1], c.Octets[2], c.Octets[3], c.Prefix)
}

// StripPrefix returns the address portion of a CIDR string: everything
// before the first /, or the input unchanged when there is none.
func StripPrefix(text string) string {
	addr, _, _ := strings.Cut(text, "/")
	return addr
}

func formatAddr(a uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", a>>24&0xff, a>>16&0xff, a>>8&0xff, a&0xff)
}
