// Package urlnorm validates user-supplied URLs and brings them into the form
// the outbound fetcher expects.
package urlnorm

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"multiapi/pkg/serrors"
)

// DefaultScheme is prefixed to URLs submitted without one.
const DefaultScheme = "https://"

var (
	instagramPattern = regexp.MustCompile(`(?i)^(https?://)?(www\.)?instagram\.com/.+`)
	genericPattern   = regexp.MustCompile(`(?i)^(https?://)?[\w.-]+(:[0-9]+)?(/[\w.~%+@!$&'()*,;=:-]*)*/?(\?[^\s#]*)?(#\S*)?$`)
	schemePattern    = regexp.MustCompile(`(?i)^https?://`)
)

// Instagram validates that raw points at instagram.com and returns it
// normalized. Nothing else is accepted.
func Instagram(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", serrors.With(serrors.ErrBadRequest, "URL is required")
	}
	if !instagramPattern.MatchString(raw) {
		return "", serrors.With(serrors.ErrBadRequest, "not an Instagram URL")
	}

	return Normalize(raw)
}

// Generic validates that raw is a plausible host[:port][/path][?query] URL and
// returns it normalized.
func Generic(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", serrors.With(serrors.ErrBadRequest, "URL is required")
	}
	if !genericPattern.MatchString(raw) {
		return "", serrors.With(serrors.ErrBadRequest, "Invalid URL format")
	}

	return Normalize(raw)
}

// Normalize returns a canonical representation of raw:
//   - DefaultScheme is added when no http(s) scheme is present
//   - scheme and host are lower-cased
//   - default ports (http:80, https:443) are dropped
//   - an empty path becomes "/"
//   - the fragment is removed
//
// Path and query are kept verbatim; shortener services are often case and
// order sensitive.
func Normalize(raw string) (string, error) {
	if !schemePattern.MatchString(raw) {
		raw = DefaultScheme + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, err, "Invalid URL format")
	}
	if u.Host == "" {
		return "", serrors.With(serrors.ErrBadRequest, "Invalid URL format")
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Host)
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			host = h
		}
	}
	u.Host = host

	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}
