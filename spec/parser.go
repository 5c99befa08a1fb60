package spec

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// maxWorkflowSteps caps the extracted generation workflow.
const maxWorkflowSteps = 10

// Section title candidates per typed section, matched against normalized
// heading keys. Exact matches win over substring matches, in document
// order.
var (
	goalSectionKeys       = []string{"goal", "purpose", "overview"}
	sourcesSectionKeys    = []string{"sources", "data_sources", "source_files"}
	templatesSectionKeys  = []string{"templates", "template_files"}
	fileGenSectionKeys    = []string{"file_generation", "file_generation_rules", "output_structure", "output"}
	workflowSectionKeys   = []string{"workflow", "generation_workflow", "generation_steps"}
	contentSectionKeys    = []string{"content_rules", "content_guidelines", "content"}
	navigationSectionKeys = []string{"navigation_rules", "navigation"}
	validationSectionKeys = []string{"validation_rules", "validation", "quality_checks"}
	reviewSectionKeys     = []string{"editorial_review", "review"}
)

// hostingMarkers identify repository-hosting URLs for docs-repo
// distribution.
var hostingMarkers = []string{"github.com", "gitlab.com", "bitbucket.org"}

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	pairPattern     = regexp.MustCompile(`^\s*(?:[-*+]\s+)?\*{0,2}([A-Za-z][A-Za-z0-9 _/-]*?)\*{0,2}\s*:\s+(.+)$`)
	numberedPattern = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
	bulletPattern   = regexp.MustCompile(`^\s*[-*+]\s+(.+)$`)
)

// Parser turns spec documents into ParsedSpec configurations. Parsing is
// tolerant: missing or malformed sections produce safe defaults. The only
// fatal condition is an unreadable file.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFile reads and parses the spec at path.
func (p *Parser) ParseFile(path string) (*ParsedSpec, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(doc), nil
}

// Parse builds a ParsedSpec from a document. Re-parsing identical text
// yields identical output and the identical fingerprint.
func (p *Parser) Parse(doc *Document) *ParsedSpec {
	secs := scanSections(doc.Body)
	urls := extractURLs(doc.Raw)

	goal := buildGoal(findSection(secs, goalSectionKeys))

	parsed := &ParsedSpec{
		Metadata:        buildMetadata(doc, secs, goal),
		Goal:            goal,
		Sources:         buildSources(findSection(secs, sourcesSectionKeys), urls),
		Templates:       buildTemplates(findSection(secs, templatesSectionKeys)),
		FileGeneration:  buildFileGeneration(findSection(secs, fileGenSectionKeys), findSection(secs, workflowSectionKeys)),
		ContentRules:    buildContentRules(findSection(secs, contentSectionKeys)),
		NavigationRules: buildNavigationRules(findSection(secs, navigationSectionKeys)),
		ValidationRules: buildValidationRules(findSection(secs, validationSectionKeys)),
	}
	if sec := findSection(secs, reviewSectionKeys); sec != nil {
		parsed.EditorialReview = buildEditorialReview(sec)
	}

	p.logger.Debug("Parsed spec",
		slog.String("fingerprint", doc.Fingerprint[:12]),
		slog.Int("sections", len(secs)),
		slog.Int("urls", len(urls)))

	return parsed
}

// rawSection is one heading-delimited region of the document body.
type rawSection struct {
	Key   string // normalized heading title
	Title string // original heading text
	Level int
	Lines []string // content lines, heading excluded
}

// scanSections splits the body into heading-delimited sections. It tracks
// fenced code blocks so fences are opaque to heading detection.
func scanSections(body string) []rawSection {
	lines := strings.Split(body, "\n")
	var sections []rawSection
	var current *rawSection
	inCodeBlock := false

	for _, line := range lines {
		if isCodeFence(line) {
			inCodeBlock = !inCodeBlock
		}

		if !inCodeBlock && isHeading(line) {
			if current != nil {
				sections = append(sections, *current)
			}
			level, title := parseHeading(line)
			current = &rawSection{
				Key:   normalizeSectionKey(title),
				Title: title,
				Level: level,
			}
			continue
		}

		if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}

	if current != nil {
		sections = append(sections, *current)
	}

	return sections
}

// findSection returns the first section matching any candidate key.
// Exact matches win over substring matches.
func findSection(secs []rawSection, candidates []string) *rawSection {
	for _, cand := range candidates {
		for i := range secs {
			if secs[i].Key == cand {
				return &secs[i]
			}
		}
	}
	for _, cand := range candidates {
		for i := range secs {
			if strings.Contains(secs[i].Key, cand) {
				return &secs[i]
			}
		}
	}
	return nil
}

// extractURLs collects every URL in the document once, in first-seen
// order.
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var urls []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// distributeURLs routes extracted URLs into source fields by substring
// markers. Fields already set from explicit pairs keep their values; a
// URL claims at most one field, first seen wins.
func distributeURLs(urls []string, s *Sources) {
	for _, u := range urls {
		lower := strings.ToLower(u)
		switch {
		case s.Commands == "" && strings.Contains(lower, "commands"):
			s.Commands = u
		case s.Tasks == "" && strings.Contains(lower, "tasks"):
			s.Tasks = u
		case s.Settings == "" && strings.Contains(lower, "settings"):
			s.Settings = u
		case s.Hooks == "" && strings.Contains(lower, "hooks"):
			s.Hooks = u
		case s.DocsRepo == "" && isHostedURL(lower) && strings.Contains(lower, "docs"):
			s.DocsRepo = u
		}
	}
}

func isHostedURL(lower string) bool {
	for _, marker := range hostingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// --- Section builders ---

func buildMetadata(doc *Document, secs []rawSection, goal Goal) Metadata {
	md := Metadata{
		Title:        doc.Meta["title"],
		Description:  doc.Meta["description"],
		Version:      doc.Meta["version"],
		Fingerprint:  doc.Fingerprint,
		Length:       len(doc.Raw),
		LastModified: doc.ModTime,
	}

	if md.Title == "" {
		for _, sec := range secs {
			if sec.Level == 1 {
				md.Title = sec.Title
				break
			}
		}
	}
	if md.Title == "" && doc.Path != "" {
		md.Title = filepath.Base(doc.Path)
	}
	if md.Description == "" {
		md.Description = goal.Summary
	}
	if md.LastModified.IsZero() {
		if ts, ok := doc.Meta["last_modified"]; ok {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				md.LastModified = t
			}
		}
	}

	return md
}

// buildGoal takes the first paragraph of the goal section as the summary.
func buildGoal(sec *rawSection) Goal {
	if sec == nil {
		return Goal{}
	}
	var parts []string
	for _, line := range sec.Lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(parts) > 0 {
				break
			}
			continue
		}
		parts = append(parts, trimmed)
	}
	return Goal{Summary: strings.Join(parts, " ")}
}

func buildSources(sec *rawSection, urls []string) Sources {
	s := Sources{Extra: map[string]string{}}
	if sec != nil {
		for _, pr := range parsePairs(sec.Lines) {
			switch pr.Key {
			case "commands":
				s.Commands = pr.Value
			case "tasks":
				s.Tasks = pr.Value
			case "settings":
				s.Settings = pr.Value
			case "hooks":
				s.Hooks = pr.Value
			case "docs-repo", "docs-repository", "documentation-repo":
				s.DocsRepo = pr.Value
			default:
				s.Extra[pr.Key] = pr.Value
			}
		}
	}
	distributeURLs(urls, &s)
	return s
}

func buildTemplates(sec *rawSection) Templates {
	t := Templates{Fragments: map[string]string{}}
	if sec == nil {
		return t
	}
	for _, pr := range parsePairs(sec.Lines) {
		switch pr.Key {
		case "page", "page-template":
			t.Page = pr.Value
		default:
			t.Fragments[pr.Key] = pr.Value
		}
	}
	t.Sections = parseListItems(sec.Lines)
	return t
}

func buildFileGeneration(sec, workflowSec *rawSection) FileGeneration {
	fg := FileGeneration{Generate: map[string]bool{}}
	if sec != nil {
		for _, pr := range parsePairs(sec.Lines) {
			switch pr.Key {
			case "output-dir", "output-directory", "output":
				fg.OutputDir = pr.Value
			case "naming", "file-naming", "naming-pattern":
				fg.Naming = pr.Value
			default:
				if strings.HasPrefix(pr.Key, "generate-") {
					fg.Generate[strings.TrimPrefix(pr.Key, "generate-")] = isEnabled(pr.Value)
				} else if b, ok := parseToggle(pr.Value); ok {
					fg.Generate[pr.Key] = b
				}
			}
		}
		fg.Steps = parseListItems(sec.Lines)
	}
	if len(fg.Steps) == 0 && workflowSec != nil {
		fg.Steps = parseListItems(workflowSec.Lines)
	}
	if len(fg.Steps) > maxWorkflowSteps {
		fg.Steps = fg.Steps[:maxWorkflowSteps]
	}
	return fg
}

func buildContentRules(sec *rawSection) ContentRules {
	c := ContentRules{Rules: map[string]string{}}
	if sec == nil {
		return c
	}
	for _, pr := range parsePairs(sec.Lines) {
		c.Rules[pr.Key] = pr.Value
	}
	return c
}

func buildNavigationRules(sec *rawSection) NavigationRules {
	var n NavigationRules
	if sec == nil {
		return n
	}
	for _, pr := range parsePairs(sec.Lines) {
		switch pr.Key {
		case "order", "ordering":
			n.Order = pr.Value
		case "grouping", "group-by":
			n.Grouping = pr.Value
		case "breadcrumbs":
			n.Breadcrumbs = pr.Value
		}
	}
	return n
}

func buildValidationRules(sec *rawSection) ValidationRules {
	v := ValidationRules{Checks: map[string]string{}}
	if sec == nil {
		return v
	}
	for _, pr := range parsePairs(sec.Lines) {
		v.Checks[pr.Key] = pr.Value
	}
	return v
}

func buildEditorialReview(sec *rawSection) *EditorialReview {
	er := &EditorialReview{}
	for _, pr := range parsePairs(sec.Lines) {
		if pr.Key == "reviewer" {
			er.Reviewer = pr.Value
		}
	}
	er.Checklist = parseListItems(sec.Lines)
	return er
}

// --- Line helpers ---

// pair is one "name: value" configuration line.
type pair struct {
	Key   string
	Value string
}

// parsePairs extracts "name: value" lines, skipping fenced code blocks.
// Keys are slugified so "Example Prompts" and "example_prompts" compare
// equal.
func parsePairs(lines []string) []pair {
	var pairs []pair
	inCodeBlock := false
	for _, line := range lines {
		if isCodeFence(line) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		m := pairPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := slugifyKey(m[1])
		if key == "" {
			continue
		}
		pairs = append(pairs, pair{Key: key, Value: strings.TrimSpace(m[2])})
	}
	return pairs
}

// parseListItems extracts numbered and bulleted prose lines, skipping
// fenced code blocks and "name: value" pairs.
func parseListItems(lines []string) []string {
	var items []string
	inCodeBlock := false
	for _, line := range lines {
		if isCodeFence(line) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock || pairPattern.MatchString(line) {
			continue
		}
		if m := numberedPattern.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
			continue
		}
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	return items
}

// isCodeFence checks if a line is a code fence (``` or ~~~).
func isCodeFence(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// isHeading checks if a line is a markdown heading.
func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	level := 0
	for _, ch := range trimmed {
		if ch != '#' {
			break
		}
		level++
	}
	if level > 6 {
		return false
	}
	rest := trimmed[level:]
	return rest == "" || strings.HasPrefix(rest, " ")
}

// parseHeading extracts the level and text from a heading line.
func parseHeading(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for _, ch := range trimmed {
		if ch != '#' {
			break
		}
		level++
	}
	return level, strings.TrimSpace(trimmed[level:])
}

// normalizeSectionKey lower-cases a heading title, strips punctuation,
// and joins words with underscores.
func normalizeSectionKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}

var (
	nonSlugPattern     = regexp.MustCompile(`[^a-z0-9-]`)
	multiHyphenPattern = regexp.MustCompile(`-+`)
)

// slugifyKey converts a configuration key to lowercase hyphenated form.
func slugifyKey(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = nonSlugPattern.ReplaceAllString(slug, "")
	slug = multiHyphenPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// isEnabled reports whether a toggle value reads as on.
func isEnabled(value string) bool {
	b, ok := parseToggle(value)
	return ok && b
}

// parseToggle interprets common on/off spellings. The second return is
// false when the value is not a toggle at all.
func parseToggle(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "enabled", "on":
		return true, true
	case "false", "no", "disabled", "off":
		return false, true
	default:
		return false, false
	}
}
