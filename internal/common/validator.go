package common

import (
	"fmt"
	"net/url"
	"strings"
)

// IsAllDigits checks if a string contains only digits (0-9)
// This is optimized for speed by checking each byte directly
func IsAllDigits(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// ValidateBaseURL checks the service url and returns it without a trailing
// slash so endpoint paths can be appended directly.
func ValidateBaseURL(baseURL string) (string, error) {
	baseURL = strings.TrimSpace(baseURL)

	if len(baseURL) == 0 {
		return "", fmt.Errorf("service url is empty")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid service url %q: %w", baseURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid service url %q: scheme must be http or https", baseURL)
	}

	if len(parsed.Host) == 0 {
		return "", fmt.Errorf("invalid service url %q: missing host", baseURL)
	}

	return strings.TrimSuffix(baseURL, "/"), nil
}

// GetHostname returns host[:port] of the service url, used to key local state.
func GetHostname(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || len(parsed.Host) == 0 {
		return baseURL
	}
	return parsed.Host
}
