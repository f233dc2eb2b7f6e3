package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() resolve the client behind the
// TLS-terminating proxy. Forwarding headers are honoured only when the peer
// address is inside one of prefixes. Invalid prefixes are logged and skipped.
func TrustedProxies(e *echo.Echo, prefixes []string) {
	e.IPExtractor = buildIPExtractor(parsePrefixes(prefixes))
}

func parsePrefixes(prefixes []string) []netip.Prefix {
	var out []netip.Prefix
	for _, s := range prefixes {
		p, err := netip.ParsePrefix(strings.TrimSpace(s))
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy range", slog.String("range", s), slog.Any("error", err))
			continue
		}
		out = append(out, p.Masked())
	}
	return out
}

// buildIPExtractor prefers X-Real-IP, then walks X-Forwarded-For from the
// right and returns the first hop that is not a trusted proxy. Hops left of
// it were supplied by the client and cannot be trusted.
func buildIPExtractor(trusted []netip.Prefix) echo.IPExtractor {
	return func(req *http.Request) string {
		direct := peerIP(req.RemoteAddr)
		if !isTrusted(direct, trusted) {
			return direct
		}

		if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}

		hops := strings.Split(req.Header.Get("X-Forwarded-For"), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) || i == 0 {
				return hop
			}
		}
		return direct
	}
}

// peerIP strips the port from a RemoteAddr.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
