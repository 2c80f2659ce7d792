package selection

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/temirov/repoctx/internal/types"
)

func blob(path string, size int64) types.TreeEntry {
	return types.TreeEntry{Path: path, Kind: types.TreeEntryKindBlob, SizeBytes: size}
}

func selectedPaths(candidates []types.CandidateFile) []string {
	paths := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		paths = append(paths, candidate.Path)
	}
	return paths
}

func TestScoreRulesApplyIndependently(t *testing.T) {
	testCases := []struct {
		name          string
		path          string
		expectedScore int
		expectedTerms []string
	}{
		{name: "root readme", path: "README.md", expectedScore: 120, expectedTerms: []string{"readme", "root level"}},
		{name: "nested readme lower case", path: "docs/readme.md", expectedScore: 100, expectedTerms: []string{"readme"}},
		{name: "root package manifest", path: "package.json", expectedScore: 70, expectedTerms: []string{"package manifest", "root level"}},
		{name: "nested package manifest", path: "packages/web/package.json", expectedScore: 50, expectedTerms: []string{"package manifest"}},
		{name: "src readme", path: "src/README.md", expectedScore: 110, expectedTerms: []string{"readme", "source tree"}},
		{name: "deep source file", path: "src/deep/util.go", expectedScore: 10, expectedTerms: []string{"source tree"}},
		{name: "root source file", path: "main.go", expectedScore: 20, expectedTerms: []string{"root level"}},
		{name: "unrelated", path: "lib/helpers/strings.rb", expectedScore: 0, expectedTerms: nil},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if score := Score(testCase.path); score != testCase.expectedScore {
				t.Fatalf("expected score %d for %s, got %d", testCase.expectedScore, testCase.path, score)
			}
			if terms := Breakdown(testCase.path); !reflect.DeepEqual(terms, testCase.expectedTerms) {
				t.Fatalf("expected terms %v for %s, got %v", testCase.expectedTerms, testCase.path, terms)
			}
		})
	}
}

func TestScoreEqualsSumOfRuleWeights(t *testing.T) {
	for _, path := range []string{"README.md", "src/package.json", "a/b/c.ts", "src/readme.md"} {
		expected := 0
		for _, rule := range ScoreRules() {
			if rule.Matches(path) {
				expected += rule.Weight
			}
		}
		if actual := Score(path); actual != expected {
			t.Fatalf("score for %s: expected %d, got %d", path, expected, actual)
		}
	}
}

func TestSelectFiltersExcludedAndUnlistedPaths(t *testing.T) {
	entries := []types.TreeEntry{
		blob("README.md", 500),
		blob("src/index.ts", 2000),
		blob("package-lock.json", 10000),
		blob("yarn.lock", 100),
		blob("node_modules/left-pad/index.js", 100),
		blob("web/node_modules/react/index.js", 100),
		blob(".git/config.json", 10),
		blob("assets/logo.png", 4000),
		blob("Makefile", 300),
		blob("docs/Guide.MD", 300),
		{Path: "src", Kind: types.TreeEntryKindTree},
		{Path: "src/tree.go", Kind: types.TreeEntryKindTree},
	}
	selected := NewSelector(DefaultMaxFiles).Select(entries)
	expected := []string{"README.md", "src/index.ts"}
	if paths := selectedPaths(selected); !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
	if selected[0].RelevanceScore != 120 || selected[1].RelevanceScore != 10 {
		t.Fatalf("unexpected scores: %+v", selected)
	}
	if selected[1].SizeBytes != 2000 {
		t.Fatalf("expected size to be carried over, got %d", selected[1].SizeBytes)
	}
}

func TestSelectRootReadmeOutranksDeepSource(t *testing.T) {
	entries := []types.TreeEntry{blob("src/deep/util.go", 10), blob("README.md", 10)}
	selected := NewSelector(DefaultMaxFiles).Select(entries)
	if selected[0].Path != "README.md" {
		t.Fatalf("expected README.md first, got %v", selectedPaths(selected))
	}
}

func TestSelectIsStableAndScoreMonotonic(t *testing.T) {
	entries := []types.TreeEntry{
		blob("lib/a.go", 1),
		blob("src/b.go", 1),
		blob("lib/c.go", 1),
		blob("index.js", 1),
		blob("src/d.go", 1),
		blob("lib/e.go", 1),
		blob("readme.md", 1),
	}
	selected := NewSelector(DefaultMaxFiles).Select(entries)
	expected := []string{"readme.md", "index.js", "src/b.go", "src/d.go", "lib/a.go", "lib/c.go", "lib/e.go"}
	if paths := selectedPaths(selected); !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
	for index := 1; index < len(selected); index++ {
		if selected[index-1].RelevanceScore < selected[index].RelevanceScore {
			t.Fatalf("ranking not monotonic at %d: %+v", index, selected)
		}
	}
}

func TestSelectNeverExceedsCeiling(t *testing.T) {
	testCases := []struct {
		name     string
		maxFiles int
		total    int
		expected int
	}{
		{name: "default ceiling with large tree", maxFiles: 0, total: 500, expected: DefaultMaxFiles},
		{name: "small tree", maxFiles: 40, total: 7, expected: 7},
		{name: "custom ceiling", maxFiles: 3, total: 10, expected: 3},
		{name: "empty tree", maxFiles: 40, total: 0, expected: 0},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			entries := make([]types.TreeEntry, 0, testCase.total)
			for index := 0; index < testCase.total; index++ {
				entries = append(entries, blob(fmt.Sprintf("pkg/file_%03d.go", index), 1))
			}
			selected := NewSelector(testCase.maxFiles).Select(entries)
			if len(selected) != testCase.expected {
				t.Fatalf("expected %d candidates, got %d", testCase.expected, len(selected))
			}
			if selected == nil {
				t.Fatalf("expected non-nil selection")
			}
		})
	}
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	entries := []types.TreeEntry{blob("lib/a.go", 1), blob("README.md", 1)}
	_ = NewSelector(1).Select(entries)
	if entries[0].Path != "lib/a.go" || entries[1].Path != "README.md" {
		t.Fatalf("input entries were reordered: %+v", entries)
	}
}
