package generation

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	leadingMarkdownFence = regexp.MustCompile("(?i)^```markdown\\s*")
	leadingFence         = regexp.MustCompile("^```\\s*")
	trailingFence        = regexp.MustCompile("\\s*```\\s*$")
)

// StripMarkdownFence removes a code fence the model wrapped around the whole answer.
// A closing fence is only removed when an opening one was, so a README that ends with
// its own code block keeps it.
func StripMarkdownFence(content string) string {
	stripped := leadingMarkdownFence.ReplaceAllString(content, "")
	stripped = leadingFence.ReplaceAllString(stripped, "")
	if stripped == content {
		return content
	}
	return trailingFence.ReplaceAllString(stripped, "")
}

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts README markdown into an HTML fragment.
func RenderHTML(markdown string) (string, error) {
	var buffer bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &buffer); err != nil {
		return "", err
	}
	return buffer.String(), nil
}
