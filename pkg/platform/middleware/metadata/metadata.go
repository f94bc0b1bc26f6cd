// Package metadata resolves who is calling: the client IP that rate limits
// are keyed on, the User-Agent, and the time the request arrived.
package metadata

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"phonebook/pkg/requestcontext"
)

// maxForwardedLen bounds the forwarding headers we are willing to parse.
const maxForwardedLen = 512

// UnknownIP is recorded when the peer address cannot be parsed.
const UnknownIP = "unknown"

// ParseTrustedProxies parses a comma separated CIDR list such as
// "10.0.0.0/8, 192.168.0.0/16".
func ParseTrustedProxies(csv string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", part, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

// Resolver stores request metadata in the context. Forwarding headers are
// only believed when the peer is one of the trusted proxies.
type Resolver struct {
	trusted []netip.Prefix
	now     func() time.Time
}

func New(trusted ...netip.Prefix) *Resolver {
	return &Resolver{trusted: trusted, now: time.Now}
}

func (m *Resolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.ClientIP(r), r.Header.Get("User-Agent"))
		ctx = requestcontext.WithTime(ctx, m.now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the address of the caller. Behind trusted proxies it walks
// X-Forwarded-For from the right, skipping proxy hops, so a client cannot
// pick its own identity by prepending entries.
func (m *Resolver) ClientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return UnknownIP
	}
	if !m.isTrusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if len(xff) > maxForwardedLen {
			return peer.String()
		}
		return m.fromForwardedFor(xff, peer).String()
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && len(xri) <= maxForwardedLen {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer.String()
}

func (m *Resolver) fromForwardedFor(xff string, peer netip.Addr) netip.Addr {
	hops := strings.Split(xff, ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return client
		}
		client = addr.Unmap()
		if !m.isTrusted(client) {
			return client
		}
	}
	return client
}

func (m *Resolver) isTrusted(addr netip.Addr) bool {
	for _, prefix := range m.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// peerAddr parses RemoteAddr in host:port, [v6]:port or bare address form.
func peerAddr(remoteAddr string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(remoteAddr, "[]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
