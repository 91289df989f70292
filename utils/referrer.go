package utils

import "net/url"

// ReferrerDomain extracts the canonical host from a free-form referrer
// URL. Anything that is empty or does not parse as an absolute URL maps
// to the empty string; the original referrer value is never modified.
func ReferrerDomain(referrer string) string {
	if referrer == "" {
		return ""
	}

	u, err := url.Parse(referrer)
	if err != nil || !u.IsAbs() {
		return ""
	}

	return u.Host
}
