package utils

import (
	"errors"
	"fmt"
)

// WrapErrorf wraps a sentinel error with a formatted detail message.
func WrapErrorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// --- Sentinel Errors for Categorization ---
var (
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	ErrBlockedHost      = errors.New("host is on the blocked list")
	ErrClientHTTPError  = errors.New("client HTTP error (4xx)") // Wraps original status
	ErrServerHTTPError  = errors.New("server HTTP error (5xx)") // Wraps original status
	ErrOtherHTTPError   = errors.New("other HTTP error (non-2xx)")
	ErrNotHTML          = errors.New("response is not HTML")
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrParsing          = errors.New("parsing error")    // Wraps HTML/URL/JSON parse errors
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
	ErrMissingWebsite   = errors.New("company record has no website")
)

// CategorizeError maps an error to a short category string for logging and
// per-candidate attempt records.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrRobotsDisallowed):
		return "RobotsDisallowed"
	case errors.Is(err, ErrBlockedHost):
		return "BlockedHost"
	case errors.Is(err, ErrClientHTTPError):
		return "HTTPClient"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTPServer"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTPOther"
	case errors.Is(err, ErrNotHTML):
		return "NotHTML"
	case errors.Is(err, ErrRequestCreation):
		return "RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "BodyRead"
	case errors.Is(err, ErrParsing):
		return "Parsing"
	case errors.Is(err, ErrFilesystem):
		return "Filesystem"
	case errors.Is(err, ErrDatabase):
		return "Database"
	case errors.Is(err, ErrConfigValidation):
		return "ConfigValidation"
	case errors.Is(err, ErrMissingWebsite):
		return "MissingWebsite"
	default:
		return "Network"
	}
}
