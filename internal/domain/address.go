package domain

import (
	"strings"

	"github.com/juju/errors"
)

// Address is a lowercase, 0x-prefixed, 20-byte hex account or contract address.
type Address string

// ParseAddress validates and lowercases s.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !isHexAddress(s) {
		return "", errors.NotValidf("address %q", s)
	}
	return Address(s), nil
}

// MustAddress is ParseAddress for literals known to be valid.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return string(a) }

// Short renders the address as 0xabcd…1234.
func (a Address) Short() string {
	if len(a) < 10 {
		return string(a)
	}
	return string(a[:6]) + "…" + string(a[len(a)-4:])
}

// NormalizeAddresses keeps valid addresses only, lowercased and deduplicated in first-seen order.
func NormalizeAddresses(raw []string) []Address {
	out := make([]Address, 0, len(raw))
	seen := make(map[Address]struct{}, len(raw))
	for _, s := range raw {
		a, err := ParseAddress(s)
		if err != nil {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// AddressStrings converts addresses back to plain strings.
func AddressStrings(addrs []Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = string(a)
	}
	return out
}

func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
