// Package fetch retrieves raw file contents for selected candidates in bounded concurrent batches.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/temirov/repoctx/internal/progress"
	"github.com/temirov/repoctx/internal/types"
	"github.com/temirov/repoctx/internal/utils"
)

const (
	// DefaultBatchSize is the number of concurrent requests per batch.
	DefaultBatchSize = 5
	// DefaultMaxFileCharacters excludes files whose decoded text reaches this many characters.
	DefaultMaxFileCharacters = 100000

	defaultRequestTimeout = 30 * time.Second
	defaultRawBaseURL     = "https://raw.githubusercontent.com"
	defaultUserAgent      = "repoctx-content-fetcher"
	errorBodyLimit        = 8 * 1024

	downloadingMessageFormat = "Downloading content for %d key files..."
	downloadedMessageFormat  = "Downloaded %d/%d files..."
	unexpectedStatusFormat   = "unexpected status %d for %s: %s"
	skippedFileMessage       = "skipping file"
)

var errContentTooLarge = errors.New("content exceeds character limit")

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Observer is notified of every outcome, for example to update metrics.
type Observer interface {
	ObserveFetch(status types.FetchStatus)
}

// Fetcher downloads raw file text from the content host.
type Fetcher struct {
	client        httpClient
	rawBase       string
	userAgent     string
	timeout       time.Duration
	batchSize     int
	maxCharacters int
	logger        *zap.Logger
	observer      Observer
}

// NewFetcher returns a Fetcher backed by client, or by a client with a 30s timeout when nil.
func NewFetcher(client httpClient) Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return Fetcher{
		client:        client,
		rawBase:       defaultRawBaseURL,
		userAgent:     defaultUserAgent,
		timeout:       defaultRequestTimeout,
		batchSize:     DefaultBatchSize,
		maxCharacters: DefaultMaxFileCharacters,
		logger:        zap.NewNop(),
	}
}

func (fetcher Fetcher) WithRawBase(base string) Fetcher {
	if base == "" {
		return fetcher
	}
	fetcher.rawBase = strings.TrimRight(base, "/")
	return fetcher
}

func (fetcher Fetcher) WithUserAgent(agent string) Fetcher {
	if agent == "" {
		return fetcher
	}
	fetcher.userAgent = agent
	return fetcher
}

// WithTimeout bounds each request. The timeout is applied per request through the context.
func (fetcher Fetcher) WithTimeout(duration time.Duration) Fetcher {
	if duration <= 0 {
		return fetcher
	}
	fetcher.timeout = duration
	return fetcher
}

func (fetcher Fetcher) WithBatchSize(size int) Fetcher {
	if size <= 0 {
		return fetcher
	}
	fetcher.batchSize = size
	return fetcher
}

func (fetcher Fetcher) WithMaxCharacters(limit int) Fetcher {
	if limit <= 0 {
		return fetcher
	}
	fetcher.maxCharacters = limit
	return fetcher
}

func (fetcher Fetcher) WithLogger(logger *zap.Logger) Fetcher {
	if logger == nil {
		return fetcher
	}
	fetcher.logger = logger
	return fetcher
}

func (fetcher Fetcher) WithObserver(observer Observer) Fetcher {
	fetcher.observer = observer
	return fetcher
}

// FetchAll retrieves every candidate at the identity's branch. Individual failures and
// oversized files are recorded as outcomes and never abort the run.
func (fetcher Fetcher) FetchAll(ctx context.Context, identity types.RepositoryIdentity, candidates []types.CandidateFile, sink progress.Sink) Report {
	sink = progress.OrDiscard(sink)
	total := len(candidates)
	report := Report{Total: total, Outcomes: make([]Outcome, 0, total)}

	sink.Report(fmt.Sprintf(downloadingMessageFormat, total))
	runBatches(ctx, total, fetcher.batchSize,
		func(taskCtx context.Context, index int) Outcome {
			return fetcher.fetchCandidate(taskCtx, identity, candidates[index])
		},
		func(outcome Outcome) {
			fetcher.record(outcome)
			report.Outcomes = append(report.Outcomes, outcome)
		},
		func(done int) {
			sink.Report(fmt.Sprintf(downloadedMessageFormat, done, total))
		},
	)
	return report
}

func (fetcher Fetcher) record(outcome Outcome) {
	if fetcher.observer != nil {
		fetcher.observer.ObserveFetch(outcome.Status)
	}
	switch outcome.Status {
	case types.FetchStatusFetched:
		fetcher.logger.Debug("fetched file",
			zap.String("path", outcome.Path),
			zap.Int("characters", outcome.Characters),
		)
	case types.FetchStatusTooLarge:
		fetcher.logger.Warn(skippedFileMessage,
			zap.String("path", outcome.Path),
			zap.String("status", string(outcome.Status)),
			zap.Int("characters", outcome.Characters),
		)
	default:
		fetcher.logger.Warn(skippedFileMessage,
			zap.String("path", outcome.Path),
			zap.String("status", string(outcome.Status)),
			zap.Error(outcome.Err),
		)
	}
}

func (fetcher Fetcher) fetchCandidate(ctx context.Context, identity types.RepositoryIdentity, candidate types.CandidateFile) Outcome {
	outcome := Outcome{Path: candidate.Path}
	content, fetchErr := fetcher.download(ctx, identity, candidate.Path)
	if errors.Is(fetchErr, errContentTooLarge) {
		outcome.Status = types.FetchStatusTooLarge
		outcome.Characters = fetcher.maxCharacters
		outcome.Err = fetchErr
		return outcome
	}
	if fetchErr != nil {
		outcome.Status = types.FetchStatusFailed
		outcome.Err = fetchErr
		return outcome
	}
	characters := utils.CountCharacters(content)
	outcome.Characters = characters
	if characters >= fetcher.maxCharacters {
		outcome.Status = types.FetchStatusTooLarge
		outcome.Err = fmt.Errorf("%w: %d characters", errContentTooLarge, characters)
		return outcome
	}
	outcome.Status = types.FetchStatusFetched
	outcome.File = types.FetchedFile{
		Path:      candidate.Path,
		Content:   content,
		SizeBytes: candidate.SizeBytes,
	}
	return outcome
}

// download reads at most enough bytes to decide the character limit: any body longer than
// maxCharacters*utf8.UTFMax bytes necessarily holds more than maxCharacters runes.
func (fetcher Fetcher) download(ctx context.Context, identity types.RepositoryIdentity, filePath string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, fetcher.timeout)
	defer cancel()

	rawURL, buildErr := fetcher.buildRawURL(identity, filePath)
	if buildErr != nil {
		return "", buildErr
	}
	request, requestErr := http.NewRequestWithContext(requestCtx, http.MethodGet, rawURL, nil)
	if requestErr != nil {
		return "", requestErr
	}
	if fetcher.userAgent != "" {
		request.Header.Set("User-Agent", fetcher.userAgent)
	}
	response, responseErr := fetcher.client.Do(request)
	if responseErr != nil {
		return "", responseErr
	}
	defer response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
		return "", fmt.Errorf(unexpectedStatusFormat, response.StatusCode, rawURL, strings.TrimSpace(string(body)))
	}
	byteLimit := int64(fetcher.maxCharacters) * utf8.UTFMax
	contentBytes, readErr := io.ReadAll(io.LimitReader(response.Body, byteLimit+1))
	if readErr != nil {
		return "", fmt.Errorf("decode content for %s: %w", filePath, readErr)
	}
	if int64(len(contentBytes)) > byteLimit {
		return "", fmt.Errorf("%w: more than %d bytes", errContentTooLarge, byteLimit)
	}
	if !utf8.Valid(contentBytes) {
		return strings.ToValidUTF8(string(contentBytes), string(utf8.RuneError)), nil
	}
	return string(contentBytes), nil
}

func (fetcher Fetcher) buildRawURL(identity types.RepositoryIdentity, filePath string) (string, error) {
	parsedURL, parseErr := url.Parse(fetcher.rawBase)
	if parseErr != nil {
		return "", parseErr
	}
	var builder strings.Builder
	builder.WriteString(strings.TrimSuffix(parsedURL.Path, "/"))
	for _, part := range []string{identity.Owner, identity.Name, identity.Branch, filePath} {
		for _, segment := range strings.Split(part, "/") {
			if segment == "" {
				continue
			}
			builder.WriteByte('/')
			builder.WriteString(url.PathEscape(segment))
		}
	}
	escapedPath := builder.String()
	unescapedPath, unescapeErr := url.PathUnescape(escapedPath)
	if unescapeErr != nil {
		return "", unescapeErr
	}
	parsedURL.Path = unescapedPath
	parsedURL.RawPath = escapedPath
	return parsedURL.String(), nil
}
