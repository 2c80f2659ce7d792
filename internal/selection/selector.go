// Package selection filters, ranks, and truncates a repository tree to the files worth reading.
package selection

import (
	"sort"

	"github.com/temirov/repoctx/internal/types"
)

// DefaultMaxFiles bounds the number of selected candidates.
const DefaultMaxFiles = 40

// Selector chooses candidate files from a tree listing.
type Selector struct {
	maxFiles int
}

// NewSelector returns a Selector keeping at most maxFiles candidates.
// Non-positive values fall back to DefaultMaxFiles.
func NewSelector(maxFiles int) Selector {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return Selector{maxFiles: maxFiles}
}

// MaxFiles reports the candidate ceiling.
func (selector Selector) MaxFiles() int {
	return selector.maxFiles
}

// Select keeps eligible blobs, ranks them by score (stable among ties), and truncates the result.
func (selector Selector) Select(entries []types.TreeEntry) []types.CandidateFile {
	candidates := Filter(entries)
	sort.SliceStable(candidates, func(left, right int) bool {
		return candidates[left].RelevanceScore > candidates[right].RelevanceScore
	})
	if len(candidates) > selector.maxFiles {
		candidates = candidates[:selector.maxFiles]
	}
	return candidates
}

// Filter returns scored candidates for every eligible blob in tree order.
func Filter(entries []types.TreeEntry) []types.CandidateFile {
	candidates := make([]types.CandidateFile, 0, len(entries))
	for _, entry := range entries {
		if !isEligible(entry) {
			continue
		}
		candidates = append(candidates, types.CandidateFile{
			Path:           entry.Path,
			SizeBytes:      entry.SizeBytes,
			RelevanceScore: Score(entry.Path),
		})
	}
	return candidates
}

func isEligible(entry types.TreeEntry) bool {
	if entry.Kind != types.TreeEntryKindBlob {
		return false
	}
	if isExcluded(entry.Path) {
		return false
	}
	return hasAllowedExtension(entry.Path)
}
