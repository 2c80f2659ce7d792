package fetch

import (
	"github.com/temirov/repoctx/internal/types"
)

// Outcome is the tagged result of one content retrieval.
type Outcome struct {
	Path       string
	Status     types.FetchStatus
	File       types.FetchedFile
	Characters int
	Err        error
}

// Report collects every outcome in completion order.
type Report struct {
	Total    int
	Outcomes []Outcome
}

// Files returns the successfully fetched files in completion order.
func (report Report) Files() []types.FetchedFile {
	files := make([]types.FetchedFile, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		if outcome.Status != types.FetchStatusFetched {
			continue
		}
		files = append(files, outcome.File)
	}
	return files
}

// Count returns the number of outcomes with status.
func (report Report) Count(status types.FetchStatus) int {
	count := 0
	for _, outcome := range report.Outcomes {
		if outcome.Status == status {
			count++
		}
	}
	return count
}

// OutcomeFor returns the outcome recorded for path.
func (report Report) OutcomeFor(path string) (Outcome, bool) {
	for _, outcome := range report.Outcomes {
		if outcome.Path == path {
			return outcome, true
		}
	}
	return Outcome{}, false
}
