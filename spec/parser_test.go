package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `---
title: Docs Pipeline Spec
version: 1.2.0
---
# Documentation Pipeline

## Goal

Keep the generated CLI documentation aligned with the published
command surface.

Anything after the first paragraph is background, not summary.

## Sources

- Commands: https://example.com/api/commands.json
- Tasks: https://example.com/api/tasks.json
- Settings: https://example.com/api/settings.json
- Hooks: https://example.com/api/hooks.json
- Docs Repo: https://github.com/example/docs

## Templates

- Page: command-page
- Header: fragment-header

1. Overview
2. Usage
3. Examples

## File Generation Rules

- Output Dir: docs/commands
- Naming: kebab-case
- Generate Examples: yes
- changelog: no

## Workflow

1. Fetch latest sources
2. Render templates
3. Validate output

## Content Rules

- Tone: imperative
- Example Prompts: include two per command

## Navigation Rules

- Order: alphabetical
- Grouping: by-category
- Breadcrumbs: enabled

## Validation Rules

- Link Check: strict
- Schema Validation: enabled

## Editorial Review

- Reviewer: docs-team

1. Spelling pass
2. Example accuracy
`

func TestParser_Parse_FullSpec(t *testing.T) {
	p := NewParser(nil)
	doc := NewDocument("pipeline.md", sampleSpec)

	parsed := p.Parse(doc)

	assert.Equal(t, "Docs Pipeline Spec", parsed.Metadata.Title)
	assert.Equal(t, "1.2.0", parsed.Metadata.Version)
	assert.Equal(t, doc.Fingerprint, parsed.Metadata.Fingerprint)
	assert.Equal(t, len(sampleSpec), parsed.Metadata.Length)
	assert.Contains(t, parsed.Goal.Summary, "Keep the generated CLI documentation")
	assert.NotContains(t, parsed.Goal.Summary, "background")

	assert.Equal(t, "https://example.com/api/commands.json", parsed.Sources.Commands)
	assert.Equal(t, "https://example.com/api/tasks.json", parsed.Sources.Tasks)
	assert.Equal(t, "https://example.com/api/settings.json", parsed.Sources.Settings)
	assert.Equal(t, "https://example.com/api/hooks.json", parsed.Sources.Hooks)
	assert.Equal(t, "https://github.com/example/docs", parsed.Sources.DocsRepo)

	assert.Equal(t, "command-page", parsed.Templates.Page)
	assert.Equal(t, "fragment-header", parsed.Templates.Fragments["header"])
	assert.Equal(t, []string{"Overview", "Usage", "Examples"}, parsed.Templates.Sections)

	assert.Equal(t, "docs/commands", parsed.FileGeneration.OutputDir)
	assert.Equal(t, "kebab-case", parsed.FileGeneration.Naming)
	assert.True(t, parsed.FileGeneration.Generate["examples"])
	assert.False(t, parsed.FileGeneration.Generate["changelog"])
	assert.Equal(t, []string{"Fetch latest sources", "Render templates", "Validate output"}, parsed.FileGeneration.Steps)

	assert.Equal(t, "imperative", parsed.ContentRules.Rules["tone"])
	assert.Equal(t, "include two per command", parsed.ContentRules.Rules["example-prompts"])

	assert.Equal(t, "alphabetical", parsed.NavigationRules.Order)
	assert.Equal(t, "by-category", parsed.NavigationRules.Grouping)
	assert.Equal(t, "enabled", parsed.NavigationRules.Breadcrumbs)

	assert.Equal(t, "strict", parsed.ValidationRules.Checks["link-check"])
	assert.Equal(t, "enabled", parsed.ValidationRules.Checks["schema-validation"])

	require.NotNil(t, parsed.EditorialReview)
	assert.Equal(t, "docs-team", parsed.EditorialReview.Reviewer)
	assert.Equal(t, []string{"Spelling pass", "Example accuracy"}, parsed.EditorialReview.Checklist)
}

func TestParser_Parse_Deterministic(t *testing.T) {
	p := NewParser(nil)

	first := p.Parse(NewDocument("pipeline.md", sampleSpec))
	second := p.Parse(NewDocument("pipeline.md", sampleSpec))

	assert.Equal(t, first, second)
	assert.Equal(t, first.Metadata.Fingerprint, second.Metadata.Fingerprint)
}

func TestParser_Parse_EmptySpec(t *testing.T) {
	p := NewParser(nil)

	parsed := p.Parse(NewDocument("empty.md", ""))

	// Safe defaults everywhere, never nil maps
	assert.Equal(t, "empty.md", parsed.Metadata.Title)
	assert.Empty(t, parsed.Goal.Summary)
	assert.Empty(t, parsed.Sources.Flatten())
	assert.NotNil(t, parsed.ContentRules.Rules)
	assert.NotNil(t, parsed.ValidationRules.Checks)
	assert.NotNil(t, parsed.FileGeneration.Generate)
	assert.Nil(t, parsed.EditorialReview)
	assert.Empty(t, parsed.EditorialReview.Flatten())
}

func TestParser_Parse_TitleFromHeading(t *testing.T) {
	p := NewParser(nil)

	parsed := p.Parse(NewDocument("x.md", "# My Pipeline\n\nIntro.\n"))

	assert.Equal(t, "My Pipeline", parsed.Metadata.Title)
}

func TestParser_Parse_CodeFencesAreOpaque(t *testing.T) {
	content := `# Spec

## Goal

Real goal text.

` + "```" + `
## Sources

- Commands: https://fenced.example.com/commands
` + "```" + `

## Content Rules

- Tone: neutral
`

	p := NewParser(nil)
	parsed := p.Parse(NewDocument("fenced.md", content))

	// The fenced "## Sources" heading must not become a section, so the
	// pair inside it is never parsed as a source.
	assert.Equal(t, "neutral", parsed.ContentRules.Rules["tone"])

	// URL extraction covers the whole document, so the fenced URL still
	// distributes by its substring marker.
	assert.Equal(t, "https://fenced.example.com/commands", parsed.Sources.Commands)
}

func TestParser_Parse_WorkflowStepsCapped(t *testing.T) {
	content := `# Spec

## Workflow

1. step one
2. step two
3. step three
4. step four
5. step five
6. step six
7. step seven
8. step eight
9. step nine
10. step ten
11. step eleven
12. step twelve
`

	p := NewParser(nil)
	parsed := p.Parse(NewDocument("steps.md", content))

	require.Len(t, parsed.FileGeneration.Steps, 10)
	assert.Equal(t, "step one", parsed.FileGeneration.Steps[0])
	assert.Equal(t, "step ten", parsed.FileGeneration.Steps[9])
}

func TestParser_Parse_URLDistribution(t *testing.T) {
	content := `# Spec

The commands live at https://example.com/v2/commands.json and the
tasks at https://example.com/v2/tasks.json. Settings are documented
at https://example.com/v2/settings.json, hooks at
https://example.com/v2/hooks.json. The docs repository is
https://github.com/example/docs-site. See also
https://example.com/unrelated.
`

	p := NewParser(nil)
	parsed := p.Parse(NewDocument("urls.md", content))

	assert.Equal(t, "https://example.com/v2/commands.json", parsed.Sources.Commands)
	assert.Equal(t, "https://example.com/v2/tasks.json", parsed.Sources.Tasks)
	assert.Equal(t, "https://example.com/v2/settings.json", parsed.Sources.Settings)
	assert.Equal(t, "https://example.com/v2/hooks.json", parsed.Sources.Hooks)
	assert.Equal(t, "https://github.com/example/docs-site", parsed.Sources.DocsRepo)
}

func TestParser_Parse_ExplicitPairBeatsDistribution(t *testing.T) {
	content := `# Spec

## Sources

- Commands: https://pinned.example.com/commands.json

Background: an older mirror sits at https://old.example.com/commands.json.
`

	p := NewParser(nil)
	parsed := p.Parse(NewDocument("pinned.md", content))

	assert.Equal(t, "https://pinned.example.com/commands.json", parsed.Sources.Commands)
}

func TestParser_Parse_FirstURLWins(t *testing.T) {
	content := `# Spec

https://example.com/a/commands.json
https://example.com/b/commands.json
`

	p := NewParser(nil)
	parsed := p.Parse(NewDocument("dup.md", content))

	assert.Equal(t, "https://example.com/a/commands.json", parsed.Sources.Commands)
}

func TestParser_ParseFile_Missing(t *testing.T) {
	p := NewParser(nil)

	_, err := p.ParseFile(filepath.Join(t.TempDir(), "absent.md"))
	require.Error(t, err)
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.md")
	require.NoError(t, os.WriteFile(path, []byte(sampleSpec), 0644))

	p := NewParser(nil)
	parsed, err := p.ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Docs Pipeline Spec", parsed.Metadata.Title)
	assert.False(t, parsed.Metadata.LastModified.IsZero())
}

func TestFindSection_ExactBeforeSubstring(t *testing.T) {
	secs := scanSections(`# Spec

## Output

- something: here

## File Generation

- Output Dir: docs
`)

	sec := findSection(secs, fileGenSectionKeys)
	require.NotNil(t, sec)
	assert.Equal(t, "file_generation", sec.Key)
}

func TestExtractURLs(t *testing.T) {
	text := `See https://example.com/a. Also https://example.com/a and
(https://example.com/b) plus https://example.com/c, done.`

	urls := extractURLs(text)

	assert.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}, urls)
}

func TestNormalizeSectionKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"File Generation Rules", "file_generation_rules"},
		{"  Content   Rules  ", "content_rules"},
		{"Validation & QA", "validation_qa"},
		{"Sources!", "sources"},
		{"already_normal", "already_normal"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSectionKey(tt.input))
		})
	}
}

func TestSlugifyKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Example Prompts", "example-prompts"},
		{"output_dir", "output-dir"},
		{"Docs Repo", "docs-repo"},
		{"A  B", "a-b"},
		{"Weird!!Key", "weirdkey"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, slugifyKey(tt.input))
		})
	}
}

func TestParseToggle(t *testing.T) {
	tests := []struct {
		input  string
		value  bool
		isBool bool
	}{
		{"yes", true, true},
		{"Enabled", true, true},
		{"ON", true, true},
		{"no", false, true},
		{"disabled", false, true},
		{"kebab-case", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			value, isBool := parseToggle(tt.input)
			assert.Equal(t, tt.isBool, isBool)
			if isBool {
				assert.Equal(t, tt.value, value)
			}
		})
	}
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"# Title", true},
		{"###### Deep", true},
		{"####### TooDeep", false},
		{"#NoSpace", false},
		{"#", true},
		{"  ## Indented", true},
		{"plain text", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, isHeading(tt.line))
		})
	}
}

func TestOutputStructure_PrefixesGroups(t *testing.T) {
	parsed := &ParsedSpec{
		Templates:       Templates{Page: "command-page"},
		FileGeneration:  FileGeneration{OutputDir: "docs", Steps: []string{"fetch"}},
		NavigationRules: NavigationRules{Order: "alphabetical"},
	}

	flat := parsed.OutputStructure()

	assert.Equal(t, "docs", flat["output-dir"])
	assert.Equal(t, "fetch", flat["steps.1"])
	assert.Equal(t, "command-page", flat["templates.page"])
	assert.Equal(t, "alphabetical", flat["nav.order"])
}

func TestSources_FlattenOmitsEmpty(t *testing.T) {
	s := Sources{Commands: "https://example.com/commands"}

	flat := s.Flatten()

	assert.Equal(t, map[string]string{"commands": "https://example.com/commands"}, flat)
}
