package clientip

import (
	"context"
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// Resolver extracts the client address of a request. Forwarding headers are
// only consulted when listed, since any client can set them.
type Resolver struct {
	headers []string
}

// New returns a resolver that checks headers in order before falling back
// to RemoteAddr. Pass the headers set by the proxy in front of the service,
// e.g. "CF-Connecting-IP" or "X-Forwarded-For". No headers means
// RemoteAddr only.
func New(headers ...string) *Resolver {
	canon := make([]string, 0, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			canon = append(canon, textproto.CanonicalMIMEHeaderKey(h))
		}
	}
	return &Resolver{headers: canon}
}

// IP returns the normalized client IP, or "" if none could be parsed.
func (res *Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		value := r.Header.Get(h)
		if value == "" {
			continue
		}
		// X-Forwarded-For style lists carry the original client first.
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// Middleware stores the resolved IP in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.IP(r))))
	})
}

// KeyFunc returns the IP stored by Middleware, resolving it when absent.
// Its signature matches ratelimiter.KeyFunc.
func (res *Resolver) KeyFunc(r *http.Request) string {
	if ip := FromContext(r.Context()); ip != "" {
		return ip
	}
	return res.IP(r)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

// WithContext stores ip in ctx.
func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the IP stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}
