// Package repository parses repository locators into structured identities.
package repository

import (
	"net/url"
	"strings"

	"github.com/temirov/repoctx/internal/types"
)

const (
	// HostGitHub is the only source-hosting domain accepted by Parse.
	HostGitHub          = "github.com"
	hostGitHubWWW       = "www." + HostGitHub
	schemeHTTP          = "http"
	schemeHTTPS         = "https"
	cloneSuffix         = ".git"
	pathSegmentSplitter = "/"
)

// Parse decomposes a repository URL such as https://github.com/acme/widget.
// It reports false when the locator is not an absolute http(s) URL, points to a
// host other than github.com, or lacks owner and name path segments.
// The returned branch is a placeholder until the default branch is resolved.
func Parse(locator string) (types.RepositoryIdentity, bool) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return types.RepositoryIdentity{}, false
	}
	parsed, parseErr := url.Parse(trimmed)
	if parseErr != nil {
		return types.RepositoryIdentity{}, false
	}
	if !isSupportedScheme(parsed.Scheme) || parsed.Host == "" {
		return types.RepositoryIdentity{}, false
	}
	if !isSupportedHost(parsed.Hostname()) {
		return types.RepositoryIdentity{}, false
	}
	segments := nonEmptySegments(parsed.Path)
	if len(segments) < 2 {
		return types.RepositoryIdentity{}, false
	}
	name := strings.TrimSuffix(segments[1], cloneSuffix)
	if name == "" {
		return types.RepositoryIdentity{}, false
	}
	return types.RepositoryIdentity{
		Owner:  segments[0],
		Name:   name,
		Branch: types.DefaultBranchPlaceholder,
	}, true
}

func isSupportedScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case schemeHTTP, schemeHTTPS:
		return true
	default:
		return false
	}
}

func isSupportedHost(hostname string) bool {
	normalized := strings.ToLower(hostname)
	return normalized == HostGitHub || normalized == hostGitHubWWW
}

func nonEmptySegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, pathSegmentSplitter) {
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}
