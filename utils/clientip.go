package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ipHeaders is inspected in order; the first non-empty value wins.
var ipHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// ResolveClientIP determines the originating client address of a request.
// A non-empty override (the -ip flag) wins outright. Otherwise the proxy
// headers are consulted before falling back to the transport peer. The
// result must be a valid IPv4 or IPv6 literal.
func ResolveClientIP(r *http.Request, override string) (string, error) {
	remoteIP := override

	if remoteIP == "" {
		for _, header := range ipHeaders {
			remoteIP = r.Header.Get(header)

			if http.CanonicalHeaderKey(header) == "X-Forwarded-For" {
				remoteIP = firstForwardedFor(remoteIP)
			}

			if remoteIP != "" {
				break
			}
		}
	}

	if remoteIP == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "", err
		}
		remoteIP = host
	}

	ip := net.ParseIP(strings.TrimSpace(remoteIP))
	if ip == nil {
		return "", fmt.Errorf("could not parse IP: %s", remoteIP)
	}

	return ip.String(), nil
}

// firstForwardedFor takes the left prefix of an X-Forwarded-For chain,
// the original client by convention.
func firstForwardedFor(v string) string {
	sep := strings.Index(v, ",")
	if sep == -1 {
		return v
	}
	return v[:sep]
}
