// Package pathutil maps request paths to route names and source names.
package pathutil

import (
	"regexp"
	"strings"
)

// FeedSuffix is the extension of feed routes.
const FeedSuffix = ".atom"

// feedPath matches "/{source}.atom" for any name a source may carry.
var feedPath = regexp.MustCompile(`^/([a-z0-9][a-z0-9_-]{0,63})\.atom$`)

// NormalizePath collapses dynamic paths so metrics labels stay bounded.
//
//	NormalizePath("/pixiv.atom")        // "/:source.atom"
//	NormalizePath("/pixiv.atom?token=x") // "/:source.atom"
//	NormalizePath("/health/")           // "/health"
//	NormalizePath("/whatever/else")     // "/other"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if feedPath.MatchString(path) {
		return "/:source" + FeedSuffix
	}
	switch path {
	case "/", "/health", "/health/ready", "/metrics":
		return path
	}
	return "/other"
}

// SourceName extracts the source name from a feed path.
func SourceName(path string) (string, bool) {
	m := feedPath.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}
