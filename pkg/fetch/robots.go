package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"company-crawler/pkg/models"
)

// RobotsGate manages fetching, parsing, caching, and checking robots.txt data
// for every host touched during a crawl session. The cache is never
// invalidated within a run.
//
// A nil cache entry means the robots.txt could not be fetched or parsed; per
// robots.txt convention the host is then treated as fully permissive. Failure
// must never become "deny all" — a transient hiccup fetching robots.txt would
// otherwise block an entire company's crawl.
type RobotsGate struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry

	cacheMu   sync.Mutex
	cache     map[string]*robotstxt.RobotsData // hostname -> parsed data (nil = permissive)
	decisions map[string]models.RobotsDecision // hostname -> decision record

	group singleflight.Group // collapses concurrent robots.txt fetches per host
}

// NewRobotsGate creates a RobotsGate bound to one HTTP client and user agent.
func NewRobotsGate(client *http.Client, userAgent string, log *logrus.Entry) *RobotsGate {
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		log:       log,
		cache:     make(map[string]*robotstxt.RobotsData),
		decisions: make(map[string]models.RobotsDecision),
	}
}

// CanFetch reports whether robots.txt policy permits fetching rawURL with the
// gate's user agent. Unparseable URLs are allowed through; the fetch itself
// will surface the real error.
func (rg *RobotsGate) CanFetch(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil || target.Hostname() == "" {
		return true
	}
	data := rg.getData(ctx, target)
	if data == nil {
		return true // permissive on missing/unreadable robots.txt
	}
	return data.TestAgent(target.RequestURI(), rg.userAgent)
}

// getData retrieves robots.txt data for the target's host, using the cache or
// fetching once per host per process. Returns nil on any fetch/parse failure.
func (rg *RobotsGate) getData(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Hostname()

	rg.cacheMu.Lock()
	data, found := rg.cache[host]
	rg.cacheMu.Unlock()
	if found {
		return data // may be nil (cached permissive outcome)
	}

	// Concurrent callers for the same host share one fetch.
	v, _, _ := rg.group.Do(host, func() (interface{}, error) {
		return rg.fetchAndCache(ctx, target, host), nil
	})
	if v == nil {
		return nil
	}
	return v.(*robotstxt.RobotsData)
}

func (rg *RobotsGate) fetchAndCache(ctx context.Context, target *url.URL, host string) *robotstxt.RobotsData {
	scheme := target.Scheme
	if scheme != "http" && scheme != "https" {
		scheme = "https"
	}
	robotsURL := (&url.URL{Scheme: scheme, Host: target.Host, Path: "/robots.txt"}).String()
	robotsLog := rg.log.WithFields(logrus.Fields{"host": host, "robots_url": robotsURL})
	robotsLog.Debug("Fetching robots.txt...")

	data := rg.fetchRobots(ctx, robotsURL, robotsLog)

	rg.cacheMu.Lock()
	rg.cache[host] = data
	rg.decisions[host] = models.RobotsDecision{
		Domain:     host,
		RobotsURL:  robotsURL,
		Permissive: data == nil,
		CheckedAt:  models.UTCTimestamp(time.Now()),
	}
	rg.cacheMu.Unlock()
	return data
}

// fetchRobots performs the single robots.txt GET. No retries and no backoff:
// robots.txt is fetched once per host per process.
func (rg *RobotsGate) fetchRobots(ctx context.Context, robotsURL string, robotsLog *logrus.Entry) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		robotsLog.Warnf("Could not create robots.txt request, treating host as permissive: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", rg.userAgent)

	resp, err := rg.client.Do(req)
	if err != nil {
		robotsLog.Warnf("Could not fetch robots.txt, treating host as permissive: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		robotsLog.Debugf("robots.txt returned status %d, treating host as permissive", resp.StatusCode)
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		robotsLog.Warnf("Could not read robots.txt body, treating host as permissive: %v", err)
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		robotsLog.Warnf("Could not parse robots.txt, treating host as permissive: %v", err)
		return nil
	}
	robotsLog.Debug("Fetched and parsed robots.txt")
	return data
}

// Decisions returns a snapshot of every per-host robots outcome observed so
// far, sorted by domain. Used for the run-level robots log.
func (rg *RobotsGate) Decisions() []models.RobotsDecision {
	rg.cacheMu.Lock()
	defer rg.cacheMu.Unlock()
	out := make([]models.RobotsDecision, 0, len(rg.decisions))
	for _, d := range rg.decisions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}
