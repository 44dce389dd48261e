package discover

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"company-crawler/pkg/models"
	"company-crawler/pkg/utils"
)

// RobotsPolicy is the subset of the robots gate the discoverer needs.
type RobotsPolicy interface {
	CanFetch(ctx context.Context, rawURL string) bool
}

// Discoverer produces ranked candidate URLs for a company's content sections
// from its homepage. Two sources feed the list, canonical slugs first:
// fixed per-section slug guesses, then same-domain navigation links scored by
// keyword match and path shape.
type Discoverer struct {
	robots  RobotsPolicy
	filters *Filters
	maxNav  int
	log     *logrus.Logger
}

// NewDiscoverer creates a Discoverer. maxNav caps the nav-derived tail of the
// candidate list.
func NewDiscoverer(robots RobotsPolicy, filters *Filters, maxNav int, log *logrus.Logger) *Discoverer {
	if maxNav <= 0 {
		maxNav = 8
	}
	return &Discoverer{robots: robots, filters: filters, maxNav: maxNav, log: log}
}

// Candidates returns the ordered, deduplicated candidate URLs for one
// section. Slug guesses keep their listed order and always precede
// nav-derived candidates: a known-good path beats a higher-scored nav link
// because slugs are cheap to verify and rarely wrong.
func (d *Discoverer) Candidates(ctx context.Context, baseURL, homepageHTML string, section models.Section) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, slug := range CandidateSlugsFor(section) {
		u := utils.JoinSlug(baseURL, slug)
		if _, dup := seen[u]; dup {
			continue
		}
		if d.filters.IsSpamURL(u) || !d.robots.CanFetch(ctx, u) {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, u := range d.fromNav(ctx, baseURL, homepageHTML, section) {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	d.log.WithFields(logrus.Fields{
		"section": section, "base": baseURL, "candidates": len(out),
	}).Debug("Section candidates assembled")
	return out
}

// navCandidate is one same-domain anchor considered for a section.
type navCandidate struct {
	url  string
	text string
}

// fromNav collects candidate links from homepage anchors (same-domain,
// non-spam, robots-allowed), ranks them by keyword/path score, and caps the
// result.
func (d *Discoverer) fromNav(ctx context.Context, baseURL, homepageHTML string, section models.Section) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homepageHTML))
	if err != nil {
		d.log.Warnf("Could not parse homepage HTML for nav discovery: %v", err)
		return nil
	}

	var candidates []navCandidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		abs := utils.JoinSlug(baseURL, href)
		if !utils.SameDomain(abs, baseURL) {
			return
		}
		if d.filters.IsSpamURL(abs) {
			return
		}
		if !d.robots.CanFetch(ctx, abs) {
			return
		}
		candidates = append(candidates, navCandidate{url: abs, text: strings.TrimSpace(a.Text())})
	})

	// Stable sort keeps document order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return scoreNav(section, candidates[i]) > scoreNav(section, candidates[j])
	})

	seen := make(map[string]struct{})
	var out []string
	for _, c := range candidates {
		if _, dup := seen[c.url]; dup {
			continue
		}
		seen[c.url] = struct{}{}
		out = append(out, c.url)
		if len(out) >= d.maxNav {
			break
		}
	}
	return out
}

// scoreNav ranks one anchor for a section:
//
//	+3.0 keyword match on the anchor's visible text
//	+2.0 keyword match on the URL path
//	-1.0 bare root path (weak signal for any specific section)
//	+ up to 1.0, decreasing 0.25 per path segment beyond the first
//	-0.5 query string, -0.2 fragment
func scoreNav(section models.Section, c navCandidate) float64 {
	p, err := url.Parse(c.url)
	if err != nil {
		return 0
	}
	path := p.Path
	if path == "" {
		path = "/"
	}
	text := strings.ToLower(c.text)
	lowerPath := strings.ToLower(path)

	score := 0.0
	if matchSection(section, text) {
		score += 3.0
	}
	if matchSection(section, lowerPath) {
		score += 2.0
	}
	if lowerPath == "/" {
		score -= 1.0
	}
	extraSegments := strings.Count(lowerPath, "/") - 1
	if extraSegments < 0 {
		extraSegments = 0
	}
	depthBonus := 1.0 - 0.25*float64(extraSegments)
	if depthBonus > 0 {
		score += depthBonus
	}
	if p.RawQuery != "" {
		score -= 0.5
	}
	if p.Fragment != "" {
		score -= 0.2
	}
	return score
}
