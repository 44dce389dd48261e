package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"company-crawler/pkg/config"
	"company-crawler/pkg/utils"
)

// Result is one fetched HTTP response, read fully into memory.
type Result struct {
	FinalURL    string // URL after following redirects, trailing slash trimmed
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsHTMLOK reports whether the response is a 200 with an HTML/XHTML content
// type. Non-HTML 200s (PDFs, login redirect targets) are "not found" to
// callers, not errors.
func (r *Result) IsHTMLOK() bool {
	ctype := strings.ToLower(r.ContentType)
	return r.StatusCode == http.StatusOK &&
		(strings.Contains(ctype, "text/html") || strings.Contains(ctype, "application/xhtml"))
}

// Fetcher performs single-shot, robots-gated GETs with a fixed user agent.
// There is no retry logic: when a candidate URL fails the orchestrator moves
// on to the next candidate instead of hammering the same one.
type Fetcher struct {
	client  *http.Client
	gate    *RobotsGate
	limiter *RateLimiter
	cfg     *config.AppConfig
	log     *logrus.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *http.Client, gate *RobotsGate, limiter *RateLimiter, cfg *config.AppConfig, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		gate:    gate,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// Fetch GETs rawURL after consulting the robots gate. A robots denial returns
// ErrRobotsDisallowed — an expected control-flow outcome for callers, not a
// bug. Any HTTP response, including non-200s, yields a Result with nil error;
// only network-level failures return an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if !f.gate.CanFetch(ctx, rawURL) {
		return nil, fmt.Errorf("%w: %s (user-agent %q)", utils.ErrRobotsDisallowed, rawURL, f.cfg.UserAgent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", utils.ErrRequestCreation, rawURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", f.cfg.AcceptHeader)

	host := req.URL.Hostname()
	f.limiter.ApplyDelay(host, 0)
	resp, err := f.client.Do(req)
	f.limiter.UpdateLastRequestTime(host)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", utils.ErrResponseBodyRead, rawURL, err)
	}

	result := &Result{
		FinalURL:    strings.TrimRight(resp.Request.URL.String(), "/"),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	f.log.WithFields(logrus.Fields{
		"url": rawURL, "final_url": result.FinalURL, "status": result.StatusCode, "bytes": len(body),
	}).Debug("Fetched")
	return result, nil
}
