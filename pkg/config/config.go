package config

import "time"

// AppConfig holds the global application configuration.
type AppConfig struct {
	UserAgent           string           `yaml:"user_agent,omitempty"`
	AcceptHeader        string           `yaml:"accept_header,omitempty"`
	OutputBaseDir       string           `yaml:"output_base_dir"`
	StateDir            string           `yaml:"state_dir"`
	RunMode             string           `yaml:"run_mode,omitempty"` // "initial" or "run"
	CompanyDelay        time.Duration    `yaml:"company_delay,omitempty"`
	DefaultDelayPerHost time.Duration    `yaml:"default_delay_per_host,omitempty"`
	MaxNavCandidates    int              `yaml:"max_nav_candidates,omitempty"`
	BlockedHosts        []string         `yaml:"blocked_hosts,omitempty"`      // extra hosts beyond the built-in block list
	SpamPathPatterns    []string         `yaml:"spam_path_patterns,omitempty"` // extra regexes beyond the built-in spam pattern
	HTTPClientSettings  HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client.
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Run modes for the output directory layout.
const (
	RunModeInitial = "initial" // <out>/<company_id>/initial/
	RunModeRun     = "run"     // <out>/<company_id>/runs/<UTC timestamp>/
)

// DefaultUserAgent is the fixed browser-like agent used for every fetch,
// including robots.txt checks.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// DefaultAcceptHeader advertises HTML since non-HTML responses are treated as
// "not found" by the crawl.
const DefaultAcceptHeader = "text/html,application/xhtml+xml"
