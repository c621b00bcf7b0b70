// Package netaddr converts between raw IPv4/IPv6 byte arrays, as stored in
// IPC structures, and netip.Addr values.
//
// Scope identifiers (zones) never take part in equality, hashing or
// formatting: every Addr produced here has its zone stripped.
package netaddr

import (
	"errors"
	"fmt"
	"net/netip"
)

const (
	IPv4Len = 4
	IPv6Len = 16
)

var (
	ErrAddrLength = errors.New("netaddr: invalid address length")
	ErrAddrSyntax = errors.New("netaddr: invalid address")
)

// FromBytes dispatches on the length of b alone: 4 bytes yield an IPv4
// address and 16 bytes an IPv6 address, even when the 16 bytes hold a
// v4-mapped pattern.
func FromBytes(b []byte) (netip.Addr, error) {
	switch len(b) {
	case IPv4Len:
		return FromIPv4Bytes(b)
	case IPv6Len:
		return FromIPv6Bytes(b)
	default:
		return netip.Addr{}, fmt.Errorf("%w: %d", ErrAddrLength, len(b))
	}
}

// FromIPv4Bytes wraps 4 raw bytes.
func FromIPv4Bytes(b []byte) (netip.Addr, error) {
	if len(b) != IPv4Len {
		return netip.Addr{}, fmt.Errorf("%w: %d (want %d)", ErrAddrLength, len(b), IPv4Len)
	}
	return netip.AddrFrom4([4]byte(b)), nil
}

// FromIPv6Bytes wraps 16 raw bytes. A v4-mapped pattern stays an IPv6
// address.
func FromIPv6Bytes(b []byte) (netip.Addr, error) {
	if len(b) != IPv6Len {
		return netip.Addr{}, fmt.Errorf("%w: %d (want %d)", ErrAddrLength, len(b), IPv6Len)
	}
	return netip.AddrFrom16([16]byte(b)), nil
}

// ParseIPv4 parses dotted-decimal text.
func ParseIPv4(s string) (netip.Addr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q is not an IPv4 address", ErrAddrSyntax, s)
	}
	return a, nil
}

// ParseIPv6 parses IPv6 text, with or without a scope identifier, and
// returns the address without its scope.
func ParseIPv6(s string) (netip.Addr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is6() {
		return netip.Addr{}, fmt.Errorf("%w: %q is not an IPv6 address", ErrAddrSyntax, s)
	}
	return a.WithZone(""), nil
}

// Parse accepts either family.
func Parse(s string) (netip.Addr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrAddrSyntax, s)
	}
	return a.WithZone(""), nil
}

// To16 converts an address to its 16-byte IPv6 form. IPv4 addresses are
// v4-mapped.
func To16(a netip.Addr) netip.Addr {
	if a.Is4() {
		return netip.AddrFrom16(a.As16())
	}
	return a.WithZone("")
}

// Format returns the canonical text form. IPv6 uses RFC 5952 zero
// compression: the longest run of two or more zero groups becomes "::",
// the leftmost run winning ties, and v4-mapped addresses print as
// "::ffff:a.b.c.d".
func Format(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.WithZone("").String()
}

// Equal compares two addresses ignoring scope.
func Equal(a, b netip.Addr) bool {
	return a.WithZone("") == b.WithZone("")
}

// Compare orders two addresses ignoring scope. IPv4 sorts before IPv6.
func Compare(a, b netip.Addr) int {
	return a.WithZone("").Compare(b.WithZone(""))
}
