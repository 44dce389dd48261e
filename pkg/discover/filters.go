package discover

import (
	"regexp"
	"strings"
)

// spamPath matches coupon/offer/referral/tracking markers anywhere in a URL.
// URLs matching it are never resolved as section URLs.
var spamPath = regexp.MustCompile(`(?i)(coupon|coupons|offer|deals|ref=|utm_)`)

// blockedHosts are domains permanently excluded from being treated as a
// company's official site: list-page publishers and subscription/paywall
// redirectors that seed data occasionally points at.
var blockedHosts = map[string]struct{}{
	"forbes.com":     {},
	"www.forbes.com": {},
	"buysub.com":     {},
	"w1.buysub.com":  {},
}

// Filters decides which URLs may take part in discovery at all. Extra blocked
// hosts and spam patterns come from configuration; the built-ins always
// apply.
type Filters struct {
	extraHosts    map[string]struct{}
	extraPatterns []*regexp.Regexp
}

// NewFilters builds a Filters with optional config-supplied additions.
// Patterns must already be compiled (config validation does this).
func NewFilters(extraHosts []string, extraPatterns []*regexp.Regexp) *Filters {
	hosts := make(map[string]struct{}, len(extraHosts))
	for _, h := range extraHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}
	return &Filters{extraHosts: hosts, extraPatterns: extraPatterns}
}

// IsBlockedHost reports whether the host (or any parent domain on the list)
// is permanently blocked.
func (f *Filters) IsBlockedHost(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	if f.hostListed(host) {
		return true
	}
	// Subdomains of a blocked host are blocked too.
	for blocked := range blockedHosts {
		if strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	for blocked := range f.extraHosts {
		if strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func (f *Filters) hostListed(host string) bool {
	if _, ok := blockedHosts[host]; ok {
		return true
	}
	_, ok := f.extraHosts[host]
	return ok
}

// IsSpamURL reports whether the URL carries spam-path markers.
func (f *Filters) IsSpamURL(rawURL string) bool {
	if spamPath.MatchString(rawURL) {
		return true
	}
	for _, re := range f.extraPatterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}
