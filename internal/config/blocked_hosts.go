package config

import (
	"net/url"
	"strings"
)

// NormalizeBlockedHosts trims, lowercases, and deduplicates host entries.
// A leading "." (or "*.") is kept as the subdomain marker.
func NormalizeBlockedHosts(entries []string) []string {
	unique := make(map[string]struct{}, len(entries))
	normalized := make([]string, 0, len(entries))

	for _, raw := range entries {
		entry := normalizeBlockedHost(raw)
		if entry == "" {
			continue
		}
		if _, exists := unique[entry]; exists {
			continue
		}
		unique[entry] = struct{}{}
		normalized = append(normalized, entry)
	}

	return normalized
}

func normalizeBlockedHost(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	suffix := false
	switch {
	case strings.HasPrefix(trimmed, "*."):
		suffix = true
		trimmed = trimmed[2:]
	case strings.HasPrefix(trimmed, "."):
		suffix = true
		trimmed = trimmed[1:]
	}

	// Allow full URLs by parsing out the hostname.
	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return ""
		}
		trimmed = parsed.Hostname()
	}

	host := strings.Trim(trimmed, ".")
	if host == "" {
		return ""
	}
	if suffix {
		return "." + host
	}
	return host
}
