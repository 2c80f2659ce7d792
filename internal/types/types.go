// Package types defines every cross‑package data structure used by the repoctx CLI.
package types

import "encoding/xml"

const (
	TreeEntryKindBlob = "blob"
	TreeEntryKindTree = "tree"

	CommandSnapshot = "snapshot"
	CommandReadme   = "readme"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	// DefaultBranchPlaceholder is assigned at parse time until the host reports the real default branch.
	DefaultBranchPlaceholder = "main"
)

// RepositoryIdentity names a remote repository and the branch being read.
type RepositoryIdentity struct {
	Owner  string `json:"owner" xml:"owner,attr"`
	Name   string `json:"repo" xml:"repo,attr"`
	Branch string `json:"branch" xml:"branch,attr"`
}

// FullName returns owner/name.
func (identity RepositoryIdentity) FullName() string {
	return identity.Owner + "/" + identity.Name
}

// TreeEntry is one node of the remote file tree as reported by the host.
type TreeEntry struct {
	Path      string `json:"path"`
	Kind      string `json:"type"`
	SizeBytes int64  `json:"size"`
}

// CandidateFile is a blob chosen for possible content retrieval.
type CandidateFile struct {
	Path           string `json:"path" xml:"path,attr"`
	SizeBytes      int64  `json:"sizeBytes" xml:"sizeBytes,attr"`
	RelevanceScore int    `json:"score" xml:"score,attr"`
}

// FetchedFile holds the decoded text of a successfully retrieved candidate.
type FetchedFile struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	SizeBytes int64  `json:"sizeBytes"`
}

// FetchStatus tags the outcome of a single content retrieval.
type FetchStatus string

const (
	FetchStatusFetched  FetchStatus = "fetched"
	FetchStatusTooLarge FetchStatus = "too_large"
	FetchStatusFailed   FetchStatus = "failed"
)

// SnapshotManifest describes a completed snapshot for the json and xml formats.
type SnapshotManifest struct {
	XMLName    xml.Name             `json:"-" xml:"snapshot"`
	RunID      string               `json:"runId" xml:"runId,attr"`
	Repository RepositoryIdentity   `json:"repository" xml:"repository"`
	Files      []ManifestFileOutput `json:"files" xml:"files>file"`
	Summary    ManifestSummary      `json:"summary" xml:"summary"`
	Document   string               `json:"document,omitempty" xml:"document,omitempty"`
}

// ManifestFileOutput is one ranked candidate together with its fetch outcome.
type ManifestFileOutput struct {
	Path       string      `json:"path" xml:"path,attr"`
	Score      int         `json:"score" xml:"score,attr"`
	Size       string      `json:"size" xml:"size,attr"`
	Status     FetchStatus `json:"status,omitempty" xml:"status,attr,omitempty"`
	Characters int         `json:"characters,omitempty" xml:"characters,attr,omitempty"`
	Error      string      `json:"error,omitempty" xml:"error,omitempty"`
}

// ManifestSummary captures aggregate information about a snapshot.
type ManifestSummary struct {
	SelectedFiles int    `json:"selectedFiles" xml:"selectedFiles,attr"`
	FetchedFiles  int    `json:"fetchedFiles" xml:"fetchedFiles,attr"`
	SkippedFiles  int    `json:"skippedFiles" xml:"skippedFiles,attr"`
	FailedFiles   int    `json:"failedFiles" xml:"failedFiles,attr"`
	DocumentSize  string `json:"documentSize" xml:"documentSize,attr"`
	Tokens        int    `json:"tokens,omitempty" xml:"tokens,attr,omitempty"`
	Model         string `json:"model,omitempty" xml:"model,attr,omitempty"`
}
