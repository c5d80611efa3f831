// Package privacy masks client identifiers before they reach logs.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP keeps the network portion of an IP address: the /24 for IPv4
// (and IPv4-mapped IPv6) and the /48 for IPv6. Empty input yields "unknown"
// and unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.WithZone("").Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
