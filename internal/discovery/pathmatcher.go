package discovery

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns cover site sections that never hold a menu.
var defaultExcludePatterns = []string{
	"/blog/*",
	"/news/*",
	"/press/*",
	"/careers/*",
	"/jobs/*",
	"/account/*",
	"/cart/*",
	"/checkout/*",
	"/wp-admin/*",
	"/wp-login.php",
	"/*.jpg",
	"/*.jpeg",
	"/*.png",
	"/*.webp",
	"/*.zip",
}

// PathMatcher filters URLs based on glob-style path patterns. A pattern
// ending in "/*" also matches deeper paths under that directory, and a
// "/*.ext" pattern matches the extension at any depth.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns such as
// "/blog/*" or "/*.png". No patterns means the defaults.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	return &PathMatcher{patterns: patterns}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL matches any exclude pattern. Unparseable
// URLs are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(strings.ToLower(pattern), p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasPrefix(pattern, "/*.") && strings.HasSuffix(urlPath, pattern[2:]) {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
