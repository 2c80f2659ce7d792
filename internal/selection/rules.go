package selection

import "strings"

const (
	scoreReadme      = 100
	scorePackageJSON = 50
	scoreRootLevel   = 20
	scoreSourceTree  = 10

	readmeMarker        = "readme"
	packageManifestName = "package.json"
	sourceTreePrefix    = "src/"
	directorySeparator  = "/"
)

var (
	allowedExtensions = []string{
		".js", ".jsx", ".ts", ".tsx", ".py", ".rb", ".go", ".rs", ".java",
		".c", ".cpp", ".h", ".md", ".json", ".html", ".css", ".vue", ".svelte", ".php",
	}
	excludedPathFragments = []string{
		"package-lock.json",
		"yarn.lock",
		"node_modules/",
		".git/",
	}
)

// ScoreRule is one independently summed term of the relevance heuristic.
type ScoreRule struct {
	Name    string
	Weight  int
	Matches func(path string) bool
}

// scoreRules favors project-identity files over deep source files.
var scoreRules = []ScoreRule{
	{
		Name:   "readme",
		Weight: scoreReadme,
		Matches: func(path string) bool {
			return strings.Contains(strings.ToLower(path), readmeMarker)
		},
	},
	{
		Name:   "package manifest",
		Weight: scorePackageJSON,
		Matches: func(path string) bool {
			return strings.Contains(path, packageManifestName)
		},
	},
	{
		Name:   "root level",
		Weight: scoreRootLevel,
		Matches: func(path string) bool {
			return !strings.Contains(path, directorySeparator)
		},
	},
	{
		Name:   "source tree",
		Weight: scoreSourceTree,
		Matches: func(path string) bool {
			return strings.HasPrefix(path, sourceTreePrefix)
		},
	},
}

// ScoreRules returns a copy of the scoring table.
func ScoreRules() []ScoreRule {
	return append([]ScoreRule(nil), scoreRules...)
}

// AllowedExtensions returns the closed list of extensions eligible for selection.
func AllowedExtensions() []string {
	return append([]string(nil), allowedExtensions...)
}

// ExcludedPathFragments returns the substrings that disqualify a path.
func ExcludedPathFragments() []string {
	return append([]string(nil), excludedPathFragments...)
}

// Score sums the weights of every rule matching path.
func Score(path string) int {
	total := 0
	for _, rule := range scoreRules {
		if rule.Matches(path) {
			total += rule.Weight
		}
	}
	return total
}

// Breakdown lists the names of the rules matching path in table order.
func Breakdown(path string) []string {
	var matched []string
	for _, rule := range scoreRules {
		if rule.Matches(path) {
			matched = append(matched, rule.Name)
		}
	}
	return matched
}

func isExcluded(path string) bool {
	for _, fragment := range excludedPathFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func hasAllowedExtension(path string) bool {
	for _, extension := range allowedExtensions {
		if strings.HasSuffix(path, extension) {
			return true
		}
	}
	return false
}
