package controller

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-faster/errors"
)

// ParseTrustedProxies parses a list of proxy addresses or CIDR ranges.
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid trusted proxy %q", raw)
			}
			out = append(out, p.Masked())

			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trusted proxy %q", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return out, nil
}

// WithClientIP resolves the client address once per request and stores it
// under ClientIPKey. Forwarding headers are read only when the socket peer is
// one of trusted; X-Forwarded-For is then walked from the right and the first
// hop outside trusted wins. With no trusted proxies the peer address is used.
func WithClientIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIPKey, ip)))
		})
	}
}

// GetClientIP returns the address resolved by WithClientIP, or the socket
// peer address when the middleware did not run. Forwarding headers are never
// read here.
func GetClientIP(r *http.Request) string {
	if ip, _ := r.Context().Value(ClientIPKey).(string); ip != "" {
		return ip
	}

	return peerIP(r)
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func isTrusted(trusted []netip.Prefix, raw string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
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

func resolveClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := peerIP(r)
	if len(trusted) == 0 || !isTrusted(trusted, peer) {
		return peer
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hops = append(hops, h)
			}
		}
	}
	if len(hops) == 0 {
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			if _, err := netip.ParseAddr(xrip); err == nil {
				return xrip
			}
		}

		return peer
	}

	for i := len(hops) - 1; i >= 0; i-- {
		if _, err := netip.ParseAddr(hops[i]); err != nil {
			// an unparsable hop means the chain before it cannot be trusted
			if i == len(hops)-1 {
				return peer
			}

			return hops[i+1]
		}
		if !isTrusted(trusted, hops[i]) {
			return hops[i]
		}
	}

	return hops[0]
}
