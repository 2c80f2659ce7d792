// Package pipeline composes parsing, discovery, selection, fetching and serialization into one snapshot run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/repoctx/internal/discovery"
	"github.com/temirov/repoctx/internal/fetch"
	"github.com/temirov/repoctx/internal/metrics"
	"github.com/temirov/repoctx/internal/output"
	"github.com/temirov/repoctx/internal/progress"
	"github.com/temirov/repoctx/internal/repository"
	"github.com/temirov/repoctx/internal/selection"
	"github.com/temirov/repoctx/internal/tokenizer"
	"github.com/temirov/repoctx/internal/types"
)

const invalidIdentifierFormat = "%w: %q (expected https://github.com/<owner>/<repo>)"

var (
	// ErrInvalidIdentifier indicates the locator is not a github.com repository URL.
	ErrInvalidIdentifier = errors.New("invalid repository identifier")
	// ErrRepositoryNotFound indicates the metadata lookup failed.
	ErrRepositoryNotFound = discovery.ErrRepositoryNotFound
	// ErrTreeFetchFailed indicates the recursive tree listing failed.
	ErrTreeFetchFailed = discovery.ErrTreeFetchFailed
)

type treeDiscoverer interface {
	Discover(ctx context.Context, identity types.RepositoryIdentity, sink progress.Sink) (discovery.Result, error)
}

type contentFetcher interface {
	FetchAll(ctx context.Context, identity types.RepositoryIdentity, candidates []types.CandidateFile, sink progress.Sink) fetch.Report
}

type runObserver interface {
	ObserveRun(result string, duration time.Duration)
}

// Snapshot is the result of one successful run.
type Snapshot struct {
	RunID      string
	Identity   types.RepositoryIdentity
	Candidates []types.CandidateFile
	Report     fetch.Report
	Document   string
	Tokens     int
	TokenModel string
	FileTokens map[string]int
	Truncated  bool
}

// Files returns the fetched files in completion order.
func (snapshot Snapshot) Files() []types.FetchedFile {
	return snapshot.Report.Files()
}

// Pipeline runs the stages strictly in order. It holds no per-run state and may be shared.
type Pipeline struct {
	discoverer treeDiscoverer
	selector   selection.Selector
	fetcher    contentFetcher
	counter    tokenizer.Counter
	tokenModel string
	observer   runObserver
	logger     *zap.Logger
	newRunID   func() string
}

// New returns a Pipeline over the given stages.
func New(discoverer treeDiscoverer, selector selection.Selector, fetcher contentFetcher) Pipeline {
	return Pipeline{
		discoverer: discoverer,
		selector:   selector,
		fetcher:    fetcher,
		logger:     zap.NewNop(),
		newRunID:   uuid.NewString,
	}
}

// WithTokenCounter enables token estimation of the finished document.
func (pipeline Pipeline) WithTokenCounter(counter tokenizer.Counter, model string) Pipeline {
	pipeline.counter = counter
	pipeline.tokenModel = model
	return pipeline
}

func (pipeline Pipeline) WithObserver(observer runObserver) Pipeline {
	pipeline.observer = observer
	return pipeline
}

func (pipeline Pipeline) WithLogger(logger *zap.Logger) Pipeline {
	if logger == nil {
		return pipeline
	}
	pipeline.logger = logger
	return pipeline
}

// Run produces a snapshot for locator. Only identifier, metadata and tree failures are
// returned as errors; per-file failures surface in Snapshot.Report.
func (pipeline Pipeline) Run(ctx context.Context, locator string, sink progress.Sink) (Snapshot, error) {
	started := time.Now()
	snapshot, runErr := pipeline.run(ctx, locator, progress.OrDiscard(sink))
	if pipeline.observer != nil {
		pipeline.observer.ObserveRun(classify(runErr), time.Since(started))
	}
	if runErr != nil {
		return Snapshot{}, runErr
	}
	pipeline.logger.Info("snapshot complete",
		zap.String("run_id", snapshot.RunID),
		zap.String("repository", snapshot.Identity.FullName()),
		zap.String("branch", snapshot.Identity.Branch),
		zap.Int("candidates", len(snapshot.Candidates)),
		zap.Int("fetched", snapshot.Report.Count(types.FetchStatusFetched)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return snapshot, nil
}

func (pipeline Pipeline) run(ctx context.Context, locator string, sink progress.Sink) (Snapshot, error) {
	identity, ok := repository.Parse(locator)
	if !ok {
		return Snapshot{}, fmt.Errorf(invalidIdentifierFormat, ErrInvalidIdentifier, locator)
	}
	runID := pipeline.newRunID()
	pipeline.logger.Debug("snapshot started", zap.String("run_id", runID), zap.String("repository", identity.FullName()))

	discovered, discoverErr := pipeline.discoverer.Discover(ctx, identity, sink)
	if discoverErr != nil {
		return Snapshot{}, discoverErr
	}
	candidates := pipeline.selector.Select(discovered.Entries)
	report := pipeline.fetcher.FetchAll(ctx, discovered.Identity, candidates, sink)
	files := report.Files()
	document := output.RenderContextDocument(discovered.Identity, candidates, files)

	snapshot := Snapshot{
		RunID:      runID,
		Identity:   discovered.Identity,
		Candidates: candidates,
		Report:     report,
		Document:   document,
		Truncated:  discovered.Truncated,
	}
	if pipeline.counter != nil {
		counted, countErr := tokenizer.CountDocument(pipeline.counter, document, files)
		if countErr != nil {
			pipeline.logger.Warn("token estimate unavailable", zap.Error(countErr))
		} else {
			snapshot.Tokens = counted.Document
			snapshot.FileTokens = counted.Files
			snapshot.TokenModel = pipeline.tokenModel
		}
	}
	return snapshot, nil
}

func classify(runErr error) string {
	switch {
	case runErr == nil:
		return metrics.ResultSuccess
	case errors.Is(runErr, ErrInvalidIdentifier):
		return metrics.ResultInvalidLocator
	case errors.Is(runErr, ErrRepositoryNotFound):
		return metrics.ResultNotFound
	case errors.Is(runErr, ErrTreeFetchFailed):
		return metrics.ResultTreeFetchFailure
	default:
		return metrics.ResultError
	}
}
