package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"company-crawler/pkg/config"
	"company-crawler/pkg/discover"
	"company-crawler/pkg/fetch"
	"company-crawler/pkg/models"
	"company-crawler/pkg/process"
	"company-crawler/pkg/storage"
	"company-crawler/pkg/utils"
)

// Orchestrator drives one company's full crawl: fetch the homepage, discover
// and fetch each content section, persist page artifacts, and emit the
// manifest plus page log. Failure is local to one company — CrawlCompany
// always returns a manifest, never an error, so a caller iterating many
// companies continues unaffected.
type Orchestrator struct {
	fetcher    *fetch.Fetcher
	discoverer *discover.Discoverer
	normalizer *process.Normalizer
	filters    *discover.Filters
	history    *storage.HistoryStore // optional; nil disables change detection
	cfg        *config.AppConfig
	log        *logrus.Logger
}

// NewOrchestrator creates an Orchestrator. history may be nil.
func NewOrchestrator(
	fetcher *fetch.Fetcher,
	discoverer *discover.Discoverer,
	normalizer *process.Normalizer,
	filters *discover.Filters,
	history *storage.HistoryStore,
	cfg *config.AppConfig,
	log *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		discoverer: discoverer,
		normalizer: normalizer,
		filters:    filters,
		history:    history,
		cfg:        cfg,
		log:        log,
	}
}

// CrawlCompany crawls one company into outDir and returns its manifest.
func (o *Orchestrator) CrawlCompany(ctx context.Context, record models.CompanyRecord, outDir string) *models.CompanyManifest {
	companyLog := o.log.WithField("company", record.CompanyID)

	if record.Website == "" {
		return o.fail(record, outDir, models.ReasonMissingWebsite,
			"cannot crawl without a website URL", companyLog)
	}
	if o.filters.IsBlockedHost(utils.HostOf(record.Website)) {
		return o.fail(record, outDir, models.ReasonBlockedHost,
			fmt.Sprintf("seed website blocked (%s)", record.Website), companyLog)
	}

	homepage, err := o.fetcher.Fetch(ctx, record.Website)
	if err != nil {
		// Robots denials and network failures alike: without a homepage
		// there is nothing to discover from.
		return o.fail(record, outDir, models.ReasonHomepageFetchFailed,
			fmt.Sprintf("homepage fetch failed (%s) -> %v", record.Website, err), companyLog)
	}
	if !homepage.IsHTMLOK() {
		return o.fail(record, outDir, models.ReasonHomepageHTTPError,
			fmt.Sprintf("homepage not HTML/200 (%s) status=%d", record.Website, homepage.StatusCode), companyLog)
	}
	if o.filters.IsBlockedHost(utils.HostOf(homepage.FinalURL)) {
		return o.fail(record, outDir, models.ReasonBlockedRedirect,
			fmt.Sprintf("homepage resolved to blocked host (%s)", homepage.FinalURL), companyLog)
	}

	out, err := OpenOutputDir(outDir, companyLog)
	if err != nil {
		return o.fail(record, outDir, models.ReasonHomepageFetchFailed,
			fmt.Sprintf("could not open output directory: %v", err), companyLog)
	}
	defer out.Close()

	manifest := &models.CompanyManifest{
		CompanyID:   record.CompanyID,
		CompanyName: record.CompanyName,
		CrawledAt:   models.UTCTimestamp(time.Now()),
		Sections:    make(map[models.Section]*string, len(models.DiscoverySections)+1),
	}

	if err := o.savePage(out, record, models.SectionHomepage, homepage, companyLog); err != nil {
		companyLog.Errorf("Persisting homepage: %v", err)
	}
	homepageURL := homepage.FinalURL
	manifest.Sections[models.SectionHomepage] = &homepageURL

	homepageHTML := string(homepage.Body)
	for _, section := range models.DiscoverySections {
		sectionLog := companyLog.WithField("section", section)
		candidates := o.discoverer.Candidates(ctx, homepageURL, homepageHTML, section)

		result, attempts := o.tryCandidates(ctx, candidates, homepageURL)
		for _, a := range attempts {
			sectionLog.WithFields(logrus.Fields{"url": a.URL, "reason": a.Reason}).Debug("Candidate rejected")
		}
		if result == nil {
			// A gap, not a crawl failure: partial section coverage is expected.
			manifest.Sections[section] = nil
			sectionLog.Infof("Section unresolved after %d candidate(s)", len(candidates))
			continue
		}

		if err := o.savePage(out, record, section, result, sectionLog); err != nil {
			sectionLog.Errorf("Persisting section: %v", err)
			manifest.Sections[section] = nil
			continue
		}
		resolved := result.FinalURL
		manifest.Sections[section] = &resolved
	}

	if err := out.WriteManifest(manifest); err != nil {
		companyLog.Errorf("Writing manifest: %v", err)
	}
	return manifest
}

// attempt records one rejected candidate for observability.
type attempt struct {
	URL    string
	Reason string
}

// tryCandidates fetches candidates in order and returns the first that is
// HTML-OK and same-domain as the homepage. Per-candidate failures (robots
// denials, fetch errors, non-HTML responses, cross-domain redirects) never
// abort the section; they are captured and the next candidate is tried.
func (o *Orchestrator) tryCandidates(ctx context.Context, candidates []string, homepageURL string) (*fetch.Result, []attempt) {
	var attempts []attempt
	for _, candidate := range candidates {
		result, err := o.fetcher.Fetch(ctx, candidate)
		if err != nil {
			attempts = append(attempts, attempt{URL: candidate, Reason: utils.CategorizeError(err)})
			continue
		}
		if !result.IsHTMLOK() {
			attempts = append(attempts, attempt{URL: candidate, Reason: fmt.Sprintf("NotHTML(status=%d)", result.StatusCode)})
			continue
		}
		if !utils.SameDomain(result.FinalURL, homepageURL) {
			attempts = append(attempts, attempt{URL: candidate, Reason: "CrossDomain"})
			continue
		}
		return result, attempts
	}
	return nil, attempts
}

// savePage normalizes, fingerprints and persists one fetched page, and
// updates the crawl-history store when one is configured.
func (o *Orchestrator) savePage(out *OutputDir, record models.CompanyRecord, section models.Section, result *fetch.Result, pageLog *logrus.Entry) error {
	now := time.Now()
	meta := o.normalizer.ExtractMeta(result.Body, result.FinalURL, record.CompanyName, result.StatusCode, now)
	cleanText := o.normalizer.CleanText(string(result.Body))

	changed := o.recordHistory(record.CompanyID, section, meta, now, pageLog)
	if err := out.SavePage(section, result.Body, cleanText, meta, changed); err != nil {
		return err
	}
	pageLog.Infof("Saved %s", process.DescribePage(section, meta))
	return nil
}

// recordHistory compares the new fingerprint against the stored one and
// persists the update. Returns nil when no history store is configured or the
// section was never seen before.
func (o *Orchestrator) recordHistory(companyID string, section models.Section, meta models.PageMeta, now time.Time, pageLog *logrus.Entry) *bool {
	if o.history == nil {
		return nil
	}
	var changed *bool
	prev, found, err := o.history.GetPage(companyID, section)
	if err != nil {
		pageLog.Warnf("Reading crawl history: %v", err)
	} else if found {
		c := prev.ContentSHA256 != meta.ContentSHA256
		changed = &c
	}
	err = o.history.PutPage(companyID, section, models.PageHistoryEntry{
		SourceURL:     meta.SourceURL,
		ContentSHA256: meta.ContentSHA256,
		ContentLength: meta.ContentLength,
		HTTPStatus:    meta.HTTPStatus,
		CrawledAt:     now.UTC(),
	})
	if err != nil {
		pageLog.Warnf("Updating crawl history: %v", err)
	}
	return changed
}

// fail records a terminal company-level failure as a manifest.
func (o *Orchestrator) fail(record models.CompanyRecord, outDir string, reason models.FailureReason, message string, companyLog *logrus.Entry) *models.CompanyManifest {
	companyLog.WithField("reason", reason).Warnf("Crawl failed: %s", message)
	manifest := &models.CompanyManifest{
		CompanyID:   record.CompanyID,
		CompanyName: record.CompanyName,
		CrawledAt:   models.UTCTimestamp(time.Now()),
		Status:      "failed",
		Reason:      reason,
		Message:     message,
	}
	writeFailureManifest(outDir, manifest, companyLog)
	return manifest
}
