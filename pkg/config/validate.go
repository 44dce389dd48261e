package config

import (
	"fmt"
	"time"

	"company-crawler/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	// AcceptHeader
	if c.AcceptHeader == "" {
		c.AcceptHeader = DefaultAcceptHeader
	}

	// OutputBaseDir
	if c.OutputBaseDir == "" {
		warnings = append(warnings, "output_base_dir is empty, defaulting to './data/raw'")
		c.OutputBaseDir = "./data/raw"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './crawler_state'")
		c.StateDir = "./crawler_state"
	}

	// RunMode
	switch c.RunMode {
	case "":
		c.RunMode = RunModeInitial
	case RunModeInitial, RunModeRun:
	default:
		return warnings, fmt.Errorf("%w: run_mode must be '%s' or '%s', got '%s'",
			utils.ErrConfigValidation, RunModeInitial, RunModeRun, c.RunMode)
	}

	// CompanyDelay (politeness pause between companies)
	if c.CompanyDelay < 0 {
		warnings = append(warnings, "company_delay cannot be negative, defaulting to 1s")
		c.CompanyDelay = time.Second
	}
	if c.CompanyDelay == 0 {
		c.CompanyDelay = time.Second
	}

	// DefaultDelayPerHost
	if c.DefaultDelayPerHost < 0 {
		warnings = append(warnings, "default_delay_per_host cannot be negative, disabling per-host delay")
		c.DefaultDelayPerHost = 0
	}

	// MaxNavCandidates
	if c.MaxNavCandidates <= 0 {
		c.MaxNavCandidates = 8
	}

	// Extra spam patterns must compile
	if _, err := utils.CompileRegexPatterns(c.SpamPathPatterns); err != nil {
		return warnings, err
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 25 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
