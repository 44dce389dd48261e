package discover

import (
	"regexp"
	"strings"

	"company-crawler/pkg/models"
)

// sectionPatterns are the per-section keyword regexes matched against anchor
// text and URL paths. They are the primary tunable surface of the discovery
// heuristic and deliberately tolerate plurals, hyphenation and spacing
// variants.
var sectionPatterns = map[models.Section]*regexp.Regexp{
	models.SectionAbout: regexp.MustCompile(
		`(?i)(about(\s*us)?|about-us|company|who\s*we\s*are|our\s*story|mission|team)`),
	models.SectionProduct: regexp.MustCompile(
		`(?i)(product(s)?|platform|solution(s)?|technology|features|capabilit(y|ies))`),
	models.SectionCareers: regexp.MustCompile(
		`(?i)(career(s)?|jobs?|join(\s*us)?|we'?re\s*hiring|open\s*roles|team#careers)`),
	models.SectionBlog: regexp.MustCompile(
		`(?i)(blog|news|press|insights|resources|stories|media|updates)`),
}

// candidateSlugs are the canonical short path segments known to commonly host
// each section. They are tried before any nav-derived candidate: slugs are
// cheap to verify and have a near-zero false-positive rate, so a known-good
// path beats a higher-scored nav link.
var candidateSlugs = map[models.Section][]string{
	models.SectionAbout:   {"about", "about-us", "company", "who-we-are", "our-story"},
	models.SectionProduct: {"product", "products", "platform", "solutions", "technology", "features"},
	models.SectionCareers: {"careers", "career", "jobs", "join-us", "join", "team#careers"},
	models.SectionBlog:    {"blog", "news", "press", "insights", "resources", "stories", "media"},
}

// SectionPattern returns the keyword regex for a section, or nil for unknown
// sections (including homepage, which is never discovered).
func SectionPattern(section models.Section) *regexp.Regexp {
	return sectionPatterns[section]
}

// matchSection reports whether s matches the section's keyword pattern.
// "team#careers" belongs to careers; RE2 has no negative lookahead, so the
// about pattern carries the exclusion as an explicit check.
func matchSection(section models.Section, s string) bool {
	if section == models.SectionAbout && strings.Contains(strings.ToLower(s), "team#careers") {
		return false
	}
	p := sectionPatterns[section]
	return p != nil && p.MatchString(s)
}

// CandidateSlugsFor returns the canonical slug list for a section in priority
// order. The returned slice must not be mutated.
func CandidateSlugsFor(section models.Section) []string {
	return candidateSlugs[section]
}
