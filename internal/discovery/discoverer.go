// Package discovery resolves a repository's default branch and lists its full file tree.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/temirov/repoctx/internal/progress"
	"github.com/temirov/repoctx/internal/types"
)

const (
	defaultAPITimeout = 30 * time.Second
	defaultUserAgent  = "repoctx-discovery"

	connectingMessageFormat = "Connecting to %s..."
	scanningMessageFormat   = "Scanning file structure on branch '%s'..."
	truncatedTreeMessage    = "tree listing truncated by host; selection is based on a partial tree"
)

var (
	// ErrRepositoryNotFound reports that repository metadata could not be retrieved.
	ErrRepositoryNotFound = errors.New("repository not found or inaccessible")
	// ErrTreeFetchFailed reports that the recursive tree listing could not be retrieved.
	ErrTreeFetchFailed = errors.New("tree fetch failed")
)

// Result is the outcome of a successful discovery.
type Result struct {
	Identity  types.RepositoryIdentity
	Entries   []types.TreeEntry
	Truncated bool
}

// Discoverer talks to the GitHub REST API.
type Discoverer struct {
	httpClient *http.Client
	apiBase    *url.URL
	userAgent  string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewDiscoverer returns a Discoverer backed by client, or by http.DefaultClient when nil.
// Each API call is bounded by a 30s timeout unless WithTimeout says otherwise.
func NewDiscoverer(client *http.Client) Discoverer {
	if client == nil {
		client = http.DefaultClient
	}
	return Discoverer{
		httpClient: client,
		userAgent:  defaultUserAgent,
		timeout:    defaultAPITimeout,
		logger:     zap.NewNop(),
	}
}

// WithAPIBase points the discoverer at an alternative API root, such as a test server.
func (discoverer Discoverer) WithAPIBase(base string) (Discoverer, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return discoverer, nil
	}
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	parsed, parseErr := url.Parse(trimmed)
	if parseErr != nil {
		return discoverer, fmt.Errorf("parse API base %q: %w", base, parseErr)
	}
	discoverer.apiBase = parsed
	return discoverer, nil
}

// WithUserAgent overrides the User-Agent header.
func (discoverer Discoverer) WithUserAgent(agent string) Discoverer {
	if agent == "" {
		return discoverer
	}
	discoverer.userAgent = agent
	return discoverer
}

// WithTimeout bounds each API call. Non-positive durations are ignored.
func (discoverer Discoverer) WithTimeout(duration time.Duration) Discoverer {
	if duration <= 0 {
		return discoverer
	}
	discoverer.timeout = duration
	return discoverer
}

// WithLogger attaches a logger for diagnostics.
func (discoverer Discoverer) WithLogger(logger *zap.Logger) Discoverer {
	if logger == nil {
		return discoverer
	}
	discoverer.logger = logger
	return discoverer
}

// Discover resolves the default branch and returns the recursive tree in host order.
// Progress is reported to sink before each network call.
func (discoverer Discoverer) Discover(ctx context.Context, identity types.RepositoryIdentity, sink progress.Sink) (Result, error) {
	sink = progress.OrDiscard(sink)
	client := discoverer.client()

	sink.Report(fmt.Sprintf(connectingMessageFormat, identity.FullName()))
	repositoryCtx, cancelRepository := context.WithTimeout(ctx, discoverer.timeout)
	repository, _, repositoryErr := client.Repositories.Get(repositoryCtx, identity.Owner, identity.Name)
	cancelRepository()
	if repositoryErr != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrRepositoryNotFound, identity.FullName(), repositoryErr)
	}
	resolved := identity
	if branch := repository.GetDefaultBranch(); branch != "" {
		resolved.Branch = branch
	}

	sink.Report(fmt.Sprintf(scanningMessageFormat, resolved.Branch))
	treeCtx, cancelTree := context.WithTimeout(ctx, discoverer.timeout)
	tree, _, treeErr := client.Git.GetTree(treeCtx, resolved.Owner, resolved.Name, escapeBranch(resolved.Branch), true)
	cancelTree()
	if treeErr != nil {
		return Result{}, fmt.Errorf("%w: %s@%s: %w", ErrTreeFetchFailed, resolved.FullName(), resolved.Branch, treeErr)
	}

	entries := convertEntries(tree.Entries)
	truncated := tree.GetTruncated()
	if truncated {
		discoverer.logger.Warn(truncatedTreeMessage,
			zap.String("repository", resolved.FullName()),
			zap.Int("entries", len(entries)),
		)
	}
	discoverer.logger.Debug("tree discovered",
		zap.String("repository", resolved.FullName()),
		zap.String("branch", resolved.Branch),
		zap.Int("entries", len(entries)),
	)
	return Result{Identity: resolved, Entries: entries, Truncated: truncated}, nil
}

func (discoverer Discoverer) client() *github.Client {
	client := github.NewClient(discoverer.httpClient)
	if discoverer.apiBase != nil {
		client.BaseURL = discoverer.apiBase
	}
	if discoverer.userAgent != "" {
		client.UserAgent = discoverer.userAgent
	}
	return client
}

// escapeBranch percent-encodes each ref segment; go-github interpolates the ref into the path verbatim.
func escapeBranch(branch string) string {
	segments := strings.Split(branch, "/")
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func convertEntries(remoteEntries []*github.TreeEntry) []types.TreeEntry {
	entries := make([]types.TreeEntry, 0, len(remoteEntries))
	for _, remoteEntry := range remoteEntries {
		if remoteEntry == nil {
			continue
		}
		entries = append(entries, types.TreeEntry{
			Path:      remoteEntry.GetPath(),
			Kind:      remoteEntry.GetType(),
			SizeBytes: int64(remoteEntry.GetSize()),
		})
	}
	return entries
}
