// Package ingest loads spec documents from disk, converting HTML
// exports to canonical markdown so fingerprinting and parsing always see
// one representation.
package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/c360studio/specsync/spec"
)

// Pre-compiled regexes to avoid runtime compilation on every document.
var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

// Load reads the spec at path. HTML exports are converted to canonical
// markdown first; everything else is read raw. Fingerprints are computed
// over the canonical text, so identical inputs keep identical
// fingerprints across passes.
func Load(path string) (*spec.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return loadHTML(path)
	default:
		return spec.LoadDocument(path)
	}
}

func loadHTML(path string) (*spec.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}

	result, err := NewConverter().Convert(data, path)
	if err != nil {
		return nil, fmt.Errorf("convert spec html: %w", err)
	}

	text := result.Markdown
	if result.Title != "" && !strings.HasPrefix(text, "# ") {
		text = "# " + result.Title + "\n\n" + text
	}

	doc := spec.NewDocument(path, text)
	if info, err := os.Stat(path); err == nil {
		doc.ModTime = info.ModTime()
	}
	return doc, nil
}

// ConvertResult contains the outcome of one HTML conversion.
type ConvertResult struct {
	Title    string
	Markdown string
}

// Converter converts HTML spec exports to GitHub-flavored markdown.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a new HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// Convert transforms HTML content to markdown. The readable article is
// extracted first; documents without an identifiable article are
// converted whole after basic cleanup.
func (c *Converter) Convert(htmlContent []byte, sourcePath string) (*ConvertResult, error) {
	title := extractHTMLTitle(htmlContent)

	content := string(htmlContent)
	article, err := readability.FromReader(bytes.NewReader(htmlContent), fileURL(sourcePath))
	if err == nil && strings.TrimSpace(article.Content) != "" {
		content = article.Content
		if title == "" {
			title = strings.TrimSpace(article.Title)
		}
	} else {
		content = basicHTMLCleanup(content)
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return nil, err
	}
	markdown = cleanMarkdown(markdown)

	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	return &ConvertResult{Title: title, Markdown: markdown}, nil
}

// extractHTMLTitle extracts the document title from HTML.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			extract(c)
		}
	}
	extract(doc)

	return title
}

// basicHTMLCleanup strips script and style blocks when article
// extraction is unavailable.
func basicHTMLCleanup(content string) string {
	content = scriptRe.ReplaceAllString(content, "")
	content = styleRe.ReplaceAllString(content, "")
	return content
}

// cleanMarkdown normalizes converted markdown: trailing whitespace
// trimmed, blank-line runs collapsed.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

// extractMarkdownTitle extracts the first H1 heading from markdown.
func extractMarkdownTitle(content string) string {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// fileURL builds the file URL readability uses for relative-link
// resolution.
func fileURL(path string) *url.URL {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &url.URL{Scheme: "file", Path: abs}
}
