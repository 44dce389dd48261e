package models

import "time"

// Section names the fixed content categories the crawler resolves per company.
type Section string

const (
	SectionHomepage Section = "homepage"
	SectionAbout    Section = "about"
	SectionProduct  Section = "product"
	SectionCareers  Section = "careers"
	SectionBlog     Section = "blog"
)

// DiscoverySections lists the sections resolved after the homepage, in the
// fixed order they are attempted.
var DiscoverySections = []Section{SectionAbout, SectionProduct, SectionCareers, SectionBlog}

// CompanyRecord is the normalized identity of one crawl target. Records are
// produced once at the input boundary (pkg/seed) and are immutable during a
// crawl.
type CompanyRecord struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Website     string `json:"website"` // scheme present, no trailing slash
}

// FailureReason is the closed taxonomy of per-company crawl failures.
type FailureReason string

const (
	ReasonMissingWebsite      FailureReason = "missing_website"
	ReasonBlockedHost         FailureReason = "blocked_host"
	ReasonHomepageFetchFailed FailureReason = "homepage_fetch_failed"
	ReasonHomepageHTTPError   FailureReason = "homepage_http_error"
	ReasonBlockedRedirect     FailureReason = "blocked_redirect"
)

// PageMeta is the metadata record written alongside each saved page as
// <section>.meta.json.
type PageMeta struct {
	CompanyName   string `json:"company_name"`
	SourceURL     string `json:"source_url"`
	CrawledAt     string `json:"crawled_at"` // UTC, 2006-01-02T15:04:05Z
	HTTPStatus    int    `json:"http_status"`
	Title         string `json:"title"`
	Canonical     string `json:"canonical"`
	Robots        string `json:"robots"`
	ContentSHA256 string `json:"content_sha256"`
	ContentLength int    `json:"content_length"`
	Parser        string `json:"parser"`
	Version       int    `json:"version"`
}

// PageLogEntry is one line of the per-company pages.jsonl append log.
type PageLogEntry struct {
	CompanyName string  `json:"company_name"`
	Section     Section `json:"section"`
	SourceURL   string  `json:"source_url"`
	CrawledAt   string  `json:"crawled_at"`
	Status      int     `json:"status"`
	Bytes       int     `json:"bytes"`
	Changed     *bool   `json:"changed,omitempty"` // vs previous run; nil when no history
}

// CompanyManifest is the single source of truth for what one company crawl
// actually retrieved. Exactly one manifest exists per company per attempt; it
// is written last so its absence marks an incomplete crawl.
type CompanyManifest struct {
	CompanyID   string              `json:"company_id"`
	CompanyName string              `json:"company_name"`
	CrawledAt   string              `json:"crawled_at"`
	Sections    map[Section]*string `json:"sections,omitempty"` // section -> resolved URL, nil (JSON null) when unresolved
	Status      string              `json:"status,omitempty"`   // "failed" on total failure, empty otherwise
	Reason      FailureReason       `json:"reason,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// Failed reports whether the manifest records a company-level failure.
func (m *CompanyManifest) Failed() bool {
	return m.Status == "failed"
}

// RobotsDecision captures the cached per-domain robots.txt outcome for the
// run-level robots log.
type RobotsDecision struct {
	Domain     string `json:"domain"`
	RobotsURL  string `json:"robots_url"`
	Permissive bool   `json:"permissive"` // true when robots.txt was missing/unreadable (allow all)
	CheckedAt  string `json:"checked_at"`
}

// CompanyResult is the Run Driver's per-company summary row.
type CompanyResult struct {
	CompanyID        string        `json:"company_id"`
	CompanyName      string        `json:"company_name"`
	Status           string        `json:"status"` // "success" or "failed"
	Reason           FailureReason `json:"reason,omitempty"`
	Message          string        `json:"message,omitempty"`
	SectionsResolved int           `json:"sections_resolved"`
	OutputDir        string        `json:"output_dir"`
}

// RunSummary aggregates a multi-company run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Companies  []CompanyResult `json:"companies"`
}

// PageHistoryEntry stores the last known fingerprint of one company section
// in the crawl-history database, keyed by company_id/section.
type PageHistoryEntry struct {
	SourceURL     string    `json:"source_url"`
	ContentSHA256 string    `json:"content_sha256"`
	ContentLength int       `json:"content_length"`
	HTTPStatus    int       `json:"http_status"`
	CrawledAt     time.Time `json:"crawled_at"`
}

// UTCTimestamp formats a time in the fixed format used across manifests,
// metadata and logs.
func UTCTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
