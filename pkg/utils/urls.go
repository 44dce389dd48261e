package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a company name into a stable lowercase-alnum-hyphen
// identifier. Empty or fully non-alphanumeric input yields "company".
func Slugify(name string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "company"
	}
	return slug
}

// NormalizeBaseURL ensures a scheme is present and strips any trailing slash.
// Returns the input unchanged if it is empty.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + strings.TrimLeft(raw, "/")
	}
	return strings.TrimRight(raw, "/")
}

// SameDomain reports whether two URLs share the same host (netloc equality,
// including any port). Unparseable URLs never match.
func SameDomain(u, base string) bool {
	pu, err := url.Parse(u)
	if err != nil {
		return false
	}
	pb, err := url.Parse(base)
	if err != nil {
		return false
	}
	return pu.Host != "" && pu.Host == pb.Host
}

// HostOf extracts the lowercase host (without port) from a URL.
// Returns "" for unparseable input.
func HostOf(raw string) string {
	p, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(p.Hostname())
}

// JoinSlug resolves a short path slug against a base URL the way a browser
// resolves a relative href. A fragment-bearing slug (e.g. "team#careers")
// keeps its fragment.
func JoinSlug(base, slug string) string {
	b, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + slug
	}
	ref, err := url.Parse(slug)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + slug
	}
	return b.ResolveReference(ref).String()
}
