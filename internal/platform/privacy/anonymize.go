// Package privacy keeps client addresses out of logs in identifiable form.
package privacy

import (
	"net/netip"
	"strings"
)

const (
	ipv4PrefixBits = 24
	ipv6PrefixBits = 48
)

// AnonymizeIP masks an address to its network prefix before it is logged:
// IPv4 to /24 ("192.168.1.47" -> "192.168.1.0") and IPv6 to /48
// ("2001:db8:85a3::8a2e:370:7334" -> "2001:db8:85a3::"). IPv4-mapped IPv6
// addresses are treated as IPv4.
//
// Returns "unknown" for empty input and "invalid" for unparseable input.
func AnonymizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := ipv6PrefixBits
	if addr.Is4() {
		bits = ipv4PrefixBits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
