package web

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/justestif/movie-recommender/internal/logging"
)

// proxySet is the set of peers whose forwarding headers are believed.
// Entries are single addresses or CIDR prefixes.
type proxySet []netip.Prefix

func newProxySet(entries []string) proxySet {
	var set proxySet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			set = append(set, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			set = append(set, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		logging.Warn().Str("entry", e).Msg("Ignoring invalid trusted proxy")
	}
	return set
}

func (s proxySet) contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range s {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// clientIP resolves the address a request came from. Forwarding headers are
// honoured only when the direct peer is a trusted proxy.
func clientIP(r *http.Request, trusted proxySet) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if len(trusted) == 0 || !trusted.contains(remote) {
		return remote
	}
	if ip := forwardedFor(r); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	return remote
}

// forwardedFor returns the first valid address in X-Forwarded-For.
func forwardedFor(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}

// realIP rewrites RemoteAddr to the resolved client address so rate limiting
// and request logs key on the caller rather than a spoofable header.
func realIP(trusted proxySet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.RemoteAddr = clientIP(r, trusted)
			next.ServeHTTP(w, r)
		})
	}
}
