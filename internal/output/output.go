// Package output renders snapshots as the plain-text context document or as json/xml manifests.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/temirov/repoctx/internal/fetch"
	"github.com/temirov/repoctx/internal/types"
	"github.com/temirov/repoctx/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	repositoryHeaderFormat = "Repository: %s/%s\n\n"
	structureHeader        = "File Structure (Selected):\n"
	structureLineFormat    = "- %s\n"
	contentsHeader         = "\nFile Contents:\n"
	fileSectionFormat      = "\n--- START OF FILE %s ---\n%s\n--- END OF FILE %s ---\n"
)

// RenderContextDocument builds the context document: a header naming the repository, the ranked
// listing of every candidate, then one delimited section per fetched file in the order given.
// Contents are inserted verbatim.
func RenderContextDocument(identity types.RepositoryIdentity, candidates []types.CandidateFile, files []types.FetchedFile) string {
	var buffer bytes.Buffer
	WriteContextDocument(&buffer, identity, candidates, files)
	return buffer.String()
}

// WriteContextDocument writes the context document to writer.
func WriteContextDocument(writer io.Writer, identity types.RepositoryIdentity, candidates []types.CandidateFile, files []types.FetchedFile) {
	fmt.Fprintf(writer, repositoryHeaderFormat, identity.Owner, identity.Name)
	io.WriteString(writer, structureHeader)
	for _, candidate := range candidates {
		fmt.Fprintf(writer, structureLineFormat, candidate.Path)
	}
	io.WriteString(writer, contentsHeader)
	for _, file := range files {
		fmt.Fprintf(writer, fileSectionFormat, file.Path, file.Content, file.Path)
	}
}

// ManifestInput gathers everything a manifest describes.
type ManifestInput struct {
	RunID           string
	Identity        types.RepositoryIdentity
	Candidates      []types.CandidateFile
	Report          fetch.Report
	Document        string
	IncludeDocument bool
	Tokens          int
	Model           string
}

// BuildManifest lists candidates in rank order, each annotated with its fetch outcome.
func BuildManifest(input ManifestInput) types.SnapshotManifest {
	files := make([]types.ManifestFileOutput, 0, len(input.Candidates))
	for _, candidate := range input.Candidates {
		entry := types.ManifestFileOutput{
			Path:  candidate.Path,
			Score: candidate.RelevanceScore,
			Size:  utils.FormatFileSize(candidate.SizeBytes),
		}
		if outcome, found := input.Report.OutcomeFor(candidate.Path); found {
			entry.Status = outcome.Status
			entry.Characters = outcome.Characters
			if outcome.Err != nil {
				entry.Error = outcome.Err.Error()
			}
		}
		files = append(files, entry)
	}
	manifest := types.SnapshotManifest{
		RunID:      input.RunID,
		Repository: input.Identity,
		Files:      files,
		Summary: types.ManifestSummary{
			SelectedFiles: len(input.Candidates),
			FetchedFiles:  input.Report.Count(types.FetchStatusFetched),
			SkippedFiles:  input.Report.Count(types.FetchStatusTooLarge),
			FailedFiles:   input.Report.Count(types.FetchStatusFailed),
			DocumentSize:  utils.FormatFileSize(int64(len(input.Document))),
			Tokens:        input.Tokens,
			Model:         input.Model,
		},
	}
	if input.IncludeDocument {
		manifest.Document = input.Document
	}
	return manifest
}

// RenderJSON marshals the manifest as indented JSON.
func RenderJSON(manifest types.SnapshotManifest) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(manifest, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// RenderXML marshals the manifest as an XML document.
func RenderXML(manifest types.SnapshotManifest) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(manifest, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// FormatSummaryLine formats a manifest summary into a single line for stderr.
func FormatSummaryLine(summary types.ManifestSummary) string {
	label := "files"
	if summary.SelectedFiles == 1 {
		label = "file"
	}
	extra := ""
	if summary.Tokens > 0 {
		extra = fmt.Sprintf(", %d tokens", summary.Tokens)
	}
	modelSuffix := ""
	if summary.Model != "" && summary.Tokens > 0 {
		modelSuffix = fmt.Sprintf(" (model: %s)", summary.Model)
	}
	return fmt.Sprintf("Summary: %d %s selected, %d fetched, %d too large, %d failed, %s%s%s",
		summary.SelectedFiles, label, summary.FetchedFiles, summary.SkippedFiles, summary.FailedFiles,
		summary.DocumentSize, extra, modelSuffix)
}
