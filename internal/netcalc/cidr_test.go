package netcalc

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func TestParseCIDR(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   CIDR
		errIs  error
	}{
		{"typical /24", "10.0.0.1/24", CIDR{Prefix: 24, Octets: [4]int{10, 0, 0, 1}}, nil},
		{"whole space", "0.0.0.0/0", CIDR{Prefix: 0, Octets: [4]int{0, 0, 0, 0}}, nil},
		{"host route", "255.255.255.255/32", CIDR{Prefix: 32, Octets: [4]int{255, 255, 255, 255}}, nil},
		{"octet above 255 accepted", "10.0.0.300/24", CIDR{Prefix: 24, Octets: [4]int{10, 0, 0, 300}}, nil},
		{"no slash", "10.0.0.1", CIDR{}, ErrInvalidAddressFormat},
		{"two slashes", "10.0.0.1/24/8", CIDR{}, ErrInvalidAddressFormat},
		{"empty prefix", "10.0.0.1/", CIDR{}, ErrInvalidAddressFormat},
		{"non-integer prefix", "10.0.0.1/abc", CIDR{}, ErrInvalidAddressFormat},
		{"prefix too large", "10.0.0.1/33", CIDR{}, ErrPrefixOutOfRange},
		{"negative prefix", "10.0.0.1/-1", CIDR{}, ErrPrefixOutOfRange},
		{"three octets", "10.0.1/24", CIDR{}, ErrInvalidAddressFormat},
		{"five octets", "10.0.0.0.1/24", CIDR{}, ErrInvalidAddressFormat},
		{"non-integer octet", "10.0.x.1/24", CIDR{}, ErrInvalidAddressFormat},
		{"empty octet", "10..0.1/24", CIDR{}, ErrInvalidAddressFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCIDR(tt.input)
			if tt.errIs != nil {
				if !errors.Is(err, tt.errIs) {
					t.Fatalf("ParseCIDR(%q) error = %v, want %v", tt.input, err, tt.errIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCIDR(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCIDR(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCIDRRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.IntRange(0, 32).Draw(t, "prefix")
		var octets [4]int
		for i := range octets {
			octets[i] = rapid.IntRange(0, 255).Draw(t, fmt.Sprintf("octet%d", i))
		}

		text := fmt.Sprintf("%d.%d.%d.%d/%d", octets[0], octets[1], octets[2], octets[3], prefix)
		got, err := ParseCIDR(text)
		if err != nil {
			t.Fatalf("ParseCIDR(%q) error = %v", text, err)
		}
		if got.Prefix != prefix || got.Octets != octets {
			t.Fatalf("ParseCIDR(%q) = %+v", text, got)
		}
		if got.String() != text {
			t.Fatalf("round trip: %q != %q", got.String(), text)
		}
	})
}

func TestAddr(t *testing.T) {
	tests := []struct {
		input string
		want  uint32
	}{
		{"0.0.0.0/0", 0},
		{"0.0.0.1/32", 1},
		{"10.0.0.1/24", 0x0a000001},
		{"192.168.1.1/24", 0xc0a80101},
		{"255.255.255.255/32", 0xffffffff},
	}

	for _, tt := range tests {
		c, err := ParseCIDR(tt.input)
		if err != nil {
			t.Fatalf("ParseCIDR(%q) error = %v", tt.input, err)
		}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr(%q) = %#x, want %#x", tt.input, got, tt.want)
		}
	}
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10.0.0.5/32", "10.0.0.5"},
		{"10.0.0.5", "10.0.0.5"},
		{"192.168.1.0/24", "192.168.1.0"},
		{"", ""},
		{"/24", ""},
	}

	for _, tt := range tests {
		if got := StripPrefix(tt.input); got != tt.want {
			t.Errorf("StripPrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
