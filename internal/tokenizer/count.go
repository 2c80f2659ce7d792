package tokenizer

import (
	"errors"

	"github.com/temirov/repoctx/internal/types"
)

// CountResult holds the document estimate together with the per-file breakdown.
type CountResult struct {
	Document int
	Files    map[string]int
}

// CountDocument estimates tokens for the whole document and for each fetched file section.
func CountDocument(counter Counter, document string, files []types.FetchedFile) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errors.New("nil tokenizer counter")
	}
	total, countErr := counter.CountString(document)
	if countErr != nil {
		return CountResult{}, countErr
	}
	result := CountResult{Document: total, Files: make(map[string]int, len(files))}
	for _, file := range files {
		tokens, fileErr := counter.CountString(file.Content)
		if fileErr != nil {
			return CountResult{}, fileErr
		}
		result.Files[file.Path] = tokens
	}
	return result, nil
}
