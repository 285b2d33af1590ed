package baseline

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var targetURLPattern = regexp.MustCompile(`^https?://.+`)

// InvalidURLMessage is returned to callers that submit a malformed URL.
const InvalidURLMessage = "Invalid URL format. Please include http:// or https://"

// ValidateTargetURL checks that raw is an absolute http(s) URL with a host.
func ValidateTargetURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InvalidInput("URL is required")
	}
	if !targetURLPattern.MatchString(raw) {
		return InvalidInput(InvalidURLMessage)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return InvalidInput(InvalidURLMessage)
	}
	return nil
}

// NormalizeURL standardizes a URL so the crawler's visited set treats
// equivalent spellings as one page. It lowercases the scheme and host, strips
// default ports and the fragment, and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = u.Query().Encode()
	u.ForceQuery = false

	return u.String(), nil
}

// Origin returns scheme://host[:port] with default ports removed.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}
	return originOf(u), nil
}

func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return scheme + "://" + host + ":" + port
	}
	return scheme + "://" + host
}

// IsNavigableHref reports whether href can point at another page. Fragment,
// mailto, tel, javascript and data links never can.
func IsNavigableHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// ResolveSameOrigin resolves href against base and returns the absolute URL
// when it shares origin with base.
func ResolveSameOrigin(base *url.URL, href string) (string, bool) {
	if base == nil || !IsNavigableHref(href) {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if originOf(abs) != originOf(base) {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

// IsInternalHref applies the crawler's link rule to a raw href: navigable and
// same origin as base.
func IsInternalHref(base *url.URL, href string) bool {
	_, ok := ResolveSameOrigin(base, href)
	return ok
}

func schemeOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
