package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-crawler/pkg/config"
	"company-crawler/pkg/discover"
	"company-crawler/pkg/fetch"
	"company-crawler/pkg/models"
	"company-crawler/pkg/process"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestOrchestrator wires a full pipeline against the given HTTP client,
// with no history store and no rate limiting.
func newTestOrchestrator(client *http.Client) *Orchestrator {
	log := testLogger()
	cfg := &config.AppConfig{
		UserAgent:    "test-crawler/1.0",
		AcceptHeader: config.DefaultAcceptHeader,
	}
	filters := discover.NewFilters(nil, nil)
	gate := fetch.NewRobotsGate(client, cfg.UserAgent, logrus.NewEntry(log))
	limiter := fetch.NewRateLimiter(0, log)
	fetcher := fetch.NewFetcher(client, gate, limiter, cfg, log)
	discoverer := discover.NewDiscoverer(gate, filters, 8, log)
	normalizer := process.NewNormalizer(log)
	return NewOrchestrator(fetcher, discoverer, normalizer, filters, nil, cfg, log)
}

func htmlPage(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><head><title>" + title + "</title></head><body>" + body + "</body></html>"))
	}
}

func readManifest(t *testing.T, dir string) models.CompanyManifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var m models.CompanyManifest
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestCrawlCompany_ResolvesSlugsAndSavesArtifacts(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/{$}", htmlPage("Acme", `<a href="/about">About</a>`))
	mux.Handle("/about", htmlPage("About Acme", "We build robots."))
	mux.Handle("/products", htmlPage("Products", "Robot arms."))
	mux.Handle("/careers", htmlPage("Careers", "Join us."))
	mux.Handle("/blog", htmlPage("Blog", "News."))
	server := httptest.NewServer(mux)
	defer server.Close()

	outDir := t.TempDir()
	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	manifest := orch.CrawlCompany(context.Background(), record, outDir)

	require.NotNil(t, manifest)
	assert.False(t, manifest.Failed())
	require.NotNil(t, manifest.Sections[models.SectionHomepage])
	assert.Equal(t, server.URL, *manifest.Sections[models.SectionHomepage])
	require.NotNil(t, manifest.Sections[models.SectionAbout])
	assert.Equal(t, server.URL+"/about", *manifest.Sections[models.SectionAbout])
	require.NotNil(t, manifest.Sections[models.SectionCareers])
	assert.Equal(t, server.URL+"/careers", *manifest.Sections[models.SectionCareers])

	require.NotNil(t, manifest.Sections[models.SectionProduct])
	assert.Equal(t, server.URL+"/products", *manifest.Sections[models.SectionProduct])

	for _, section := range []models.Section{models.SectionHomepage, models.SectionAbout} {
		for _, ext := range []string{".html", ".txt", ".meta.json"} {
			path := filepath.Join(outDir, string(section)+ext)
			info, err := os.Stat(path)
			require.NoError(t, err, "missing artifact %s", path)
			assert.Greater(t, info.Size(), int64(0))
		}
	}

	// One pages.jsonl line per saved page: homepage + 4 sections.
	data, err := os.ReadFile(filepath.Join(outDir, "pages.jsonl"))
	require.NoError(t, err)
	lines := 0
	for _, line := range splitLines(data) {
		var entry models.PageLogEntry
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, 200, entry.Status)
		assert.Nil(t, entry.Changed, "no history store, changed must be omitted")
		lines++
	}
	assert.Equal(t, 5, lines)

	onDisk := readManifest(t, outDir)
	assert.Equal(t, "acme", onDisk.CompanyID)
}

func TestCrawlCompany_NavLinkResolvesWhenSlugsMiss(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/{$}", htmlPage("Acme", `<a href="/meet-the-team">About our team</a>`))
	mux.Handle("/meet-the-team", htmlPage("Team", "The people."))
	server := httptest.NewServer(mux)
	defer server.Close()

	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	manifest := orch.CrawlCompany(context.Background(), record, t.TempDir())

	require.NotNil(t, manifest.Sections[models.SectionAbout])
	assert.Equal(t, server.URL+"/meet-the-team", *manifest.Sections[models.SectionAbout])
}

func TestCrawlCompany_RobotsDeniedSlugFallsThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /careers\n"))
	})
	mux.Handle("/{$}", htmlPage("Acme", ""))
	careersHits := &atomic.Int32{}
	mux.HandleFunc("/careers", func(w http.ResponseWriter, r *http.Request) {
		careersHits.Add(1)
		htmlPage("Careers", "hidden")(w, r)
	})
	mux.Handle("/jobs", htmlPage("Jobs", "Open roles."))
	server := httptest.NewServer(mux)
	defer server.Close()

	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	manifest := orch.CrawlCompany(context.Background(), record, t.TempDir())

	require.NotNil(t, manifest.Sections[models.SectionCareers])
	assert.Equal(t, server.URL+"/jobs", *manifest.Sections[models.SectionCareers])
	assert.Equal(t, int32(0), careersHits.Load(), "robots-denied path must never be requested")
}

func TestCrawlCompany_AllSectionsMissingIsStillSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/{$}", htmlPage("Acme", "no links"))
	server := httptest.NewServer(mux)
	defer server.Close()

	outDir := t.TempDir()
	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	manifest := orch.CrawlCompany(context.Background(), record, outDir)

	assert.False(t, manifest.Failed())
	require.NotNil(t, manifest.Sections[models.SectionHomepage])
	for _, section := range models.DiscoverySections {
		url, present := manifest.Sections[section]
		assert.True(t, present, "unresolved section %s must still appear", section)
		assert.Nil(t, url, "unresolved section %s must be null", section)
	}

	// Unresolved sections marshal as JSON null in the manifest on disk.
	data, err := os.ReadFile(filepath.Join(outDir, "manifest.json"))
	require.NoError(t, err)
	var raw struct {
		Sections map[string]json.RawMessage `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "null", string(raw.Sections["about"]))
}

func TestCrawlCompany_HomepageHTTPError(t *testing.T) {
	sectionHits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/":
			http.Error(w, "down", http.StatusInternalServerError)
		default:
			sectionHits.Add(1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	outDir := t.TempDir()
	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	manifest := orch.CrawlCompany(context.Background(), record, outDir)

	assert.True(t, manifest.Failed())
	assert.Equal(t, models.ReasonHomepageHTTPError, manifest.Reason)
	assert.Equal(t, int32(0), sectionHits.Load(), "no section fetch may follow a failed homepage")

	onDisk := readManifest(t, outDir)
	assert.Equal(t, models.ReasonHomepageHTTPError, onDisk.Reason)
	// Failure directories keep a uniform shape: empty pages log, no page files.
	data, err := os.ReadFile(filepath.Join(outDir, "pages.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCrawlCompany_TransientFailureKeepsPreviousPageLog(t *testing.T) {
	var homepageDown atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		if homepageDown.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		htmlPage("Acme", "")(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	outDir := t.TempDir()
	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	first := orch.CrawlCompany(context.Background(), record, outDir)
	require.False(t, first.Failed())
	pagesBefore, err := os.ReadFile(filepath.Join(outDir, "pages.jsonl"))
	require.NoError(t, err)
	require.NotEmpty(t, pagesBefore)

	homepageDown.Store(true)
	second := orch.CrawlCompany(context.Background(), record, outDir)
	require.True(t, second.Failed())
	assert.Equal(t, models.ReasonHomepageHTTPError, second.Reason)

	pagesAfter, err := os.ReadFile(filepath.Join(outDir, "pages.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, pagesBefore, pagesAfter, "a failed re-crawl must keep the last successful page log")
	// The previous run's section artifacts survive alongside the failure manifest.
	_, err = os.Stat(filepath.Join(outDir, "homepage.html"))
	assert.NoError(t, err)
}

func TestCrawlCompany_HomepageUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	orch := newTestOrchestrator(&http.Client{})
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: url}

	manifest := orch.CrawlCompany(context.Background(), record, t.TempDir())

	assert.True(t, manifest.Failed())
	assert.Equal(t, models.ReasonHomepageFetchFailed, manifest.Reason)
}

func TestCrawlCompany_MissingWebsite(t *testing.T) {
	orch := newTestOrchestrator(&http.Client{})
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme"}

	manifest := orch.CrawlCompany(context.Background(), record, t.TempDir())

	assert.True(t, manifest.Failed())
	assert.Equal(t, models.ReasonMissingWebsite, manifest.Reason)
}

func TestCrawlCompany_BlockedHostNeverContacted(t *testing.T) {
	orch := newTestOrchestrator(&http.Client{
		Transport: failingTransport{t: t},
	})
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: "https://w1.buysub.com/some/page"}

	manifest := orch.CrawlCompany(context.Background(), record, t.TempDir())

	assert.True(t, manifest.Failed())
	assert.Equal(t, models.ReasonBlockedHost, manifest.Reason)
}

// failingTransport fails the test on any outbound request.
type failingTransport struct{ t *testing.T }

func (ft failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ft.t.Errorf("unexpected HTTP request to %s", r.URL)
	return nil, errors.New("no network in this test")
}

func TestCrawlCompany_CrossDomainCandidateRejected(t *testing.T) {
	// Second server plays the foreign domain the /about candidate redirects to.
	foreign := httptest.NewServer(htmlPage("Elsewhere", "not the company site"))
	defer foreign.Close()

	mux := http.NewServeMux()
	mux.Handle("/{$}", htmlPage("Acme", ""))
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL, http.StatusFound)
	})
	mux.Handle("/about-us", htmlPage("About", "the real page"))
	server := httptest.NewServer(mux)
	defer server.Close()

	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	manifest := orch.CrawlCompany(context.Background(), record, t.TempDir())

	require.NotNil(t, manifest.Sections[models.SectionAbout])
	assert.Equal(t, server.URL+"/about-us", *manifest.Sections[models.SectionAbout])
}

func TestCrawlCompany_RecrawlIsIdempotent(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/{$}", htmlPage("Acme", "stable content"))
	mux.Handle("/about", htmlPage("About", "stable about page"))
	server := httptest.NewServer(mux)
	defer server.Close()

	outDir := t.TempDir()
	orch := newTestOrchestrator(server.Client())
	record := models.CompanyRecord{CompanyID: "acme", CompanyName: "Acme", Website: server.URL}

	orch.CrawlCompany(context.Background(), record, outDir)
	firstMeta := readPageMeta(t, outDir, models.SectionAbout)

	orch.CrawlCompany(context.Background(), record, outDir)
	secondMeta := readPageMeta(t, outDir, models.SectionAbout)

	assert.Equal(t, firstMeta.ContentSHA256, secondMeta.ContentSHA256)
	assert.Equal(t, firstMeta.ContentLength, secondMeta.ContentLength)
}

func readPageMeta(t *testing.T, dir string, section models.Section) models.PageMeta {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, string(section)+".meta.json"))
	require.NoError(t, err)
	var meta models.PageMeta
	require.NoError(t, json.Unmarshal(data, &meta))
	return meta
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
