// Package sanitize cleans user-submitted event fields before they are stored.
// Event text is plain text: bluemonday's strict policy strips every tag and
// the entities it leaves behind are decoded again, so "Rock & Roll" and a
// typed "&lt;b&gt;" survive while "<script>" does not. Rendering escapes the
// text once more.
package sanitize

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all markup from input and trims surrounding whitespace.
// Entities in input are kept literally, so Text(Text(s)) == Text(s).
func Text(input string) string {
	if input == "" {
		return ""
	}
	// Escape & first; the decode below then only reverses bluemonday's own
	// escaping.
	escaped := strings.ReplaceAll(input, "&", "&amp;")
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(escaped)))
}

// URL returns raw if it is an http(s) URL or a site-relative path, and ""
// otherwise. javascript: and data: URLs never reach the database.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return ""
		}
		return u.String()
	case "":
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return u.String()
		}
	}
	return ""
}
