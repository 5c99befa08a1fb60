package spec

import (
	"strconv"
	"time"
)

// ParsedSpec is the structured configuration produced by one parse of a
// spec document. It is produced fresh on every parse and never mutated in
// place. Sections are typed; each projects to a flat key→value map via
// Flatten for structural comparison.
type ParsedSpec struct {
	// Metadata describes the document itself.
	Metadata Metadata `json:"metadata"`

	// Goal is the stated purpose of the documentation set.
	Goal Goal `json:"goal"`

	// Sources lists the external source references feeding generation.
	Sources Sources `json:"sources"`

	// Templates names the page and fragment templates in use.
	Templates Templates `json:"templates"`

	// FileGeneration controls output layout and the generation workflow.
	FileGeneration FileGeneration `json:"file_generation"`

	// ContentRules holds the named prose rules for generated content.
	ContentRules ContentRules `json:"content_rules"`

	// NavigationRules controls ordering and grouping of generated pages.
	NavigationRules NavigationRules `json:"navigation_rules"`

	// ValidationRules holds the named quality checks.
	ValidationRules ValidationRules `json:"validation_rules"`

	// EditorialReview is present only when the spec defines a review
	// section.
	EditorialReview *EditorialReview `json:"editorial_review,omitempty"`
}

// Metadata describes the parsed document.
type Metadata struct {
	// Title is the document title, from frontmatter or the first heading.
	Title string `json:"title"`

	// Description is a short summary, from frontmatter or the goal.
	Description string `json:"description"`

	// Version is the spec version declared in frontmatter, if any.
	Version string `json:"version"`

	// Fingerprint is the SHA-256 hex digest of the full document.
	Fingerprint string `json:"fingerprint"`

	// Length is the document length in bytes.
	Length int `json:"length"`

	// LastModified is the document modification time when known.
	LastModified time.Time `json:"last_modified"`
}

// Goal is the purpose section of the spec.
type Goal struct {
	// Summary is the first paragraph of the goal section.
	Summary string `json:"summary"`
}

// Flatten projects the goal to comparison keys.
func (g Goal) Flatten() map[string]string {
	m := map[string]string{}
	if g.Summary != "" {
		m["summary"] = g.Summary
	}
	return m
}

// Sources holds the external source references named by the spec. The
// four well-known references have dedicated fields; anything else the
// spec names lands in Extra.
type Sources struct {
	// Commands is the commands source URL.
	Commands string `json:"commands,omitempty"`

	// Tasks is the tasks source URL.
	Tasks string `json:"tasks,omitempty"`

	// Settings is the settings source URL.
	Settings string `json:"settings,omitempty"`

	// Hooks is the hooks source URL.
	Hooks string `json:"hooks,omitempty"`

	// DocsRepo is the documentation repository reference.
	DocsRepo string `json:"docs_repo,omitempty"`

	// Extra holds additional named references.
	Extra map[string]string `json:"extra,omitempty"`
}

// Flatten projects the sources to comparison keys. Only set values are
// emitted, so a reference added to or dropped from the spec reads as
// added/removed rather than an empty-string modification.
func (s Sources) Flatten() map[string]string {
	m := map[string]string{}
	if s.Commands != "" {
		m["commands"] = s.Commands
	}
	if s.Tasks != "" {
		m["tasks"] = s.Tasks
	}
	if s.Settings != "" {
		m["settings"] = s.Settings
	}
	if s.Hooks != "" {
		m["hooks"] = s.Hooks
	}
	if s.DocsRepo != "" {
		m["docs-repo"] = s.DocsRepo
	}
	for k, v := range s.Extra {
		m[k] = v
	}
	return m
}

// Templates names the templates the generator uses.
type Templates struct {
	// Page is the page template name.
	Page string `json:"page,omitempty"`

	// Sections lists the section template names in order.
	Sections []string `json:"sections,omitempty"`

	// Fragments maps shared fragment names to their template files.
	Fragments map[string]string `json:"fragments,omitempty"`
}

// Flatten projects the templates to comparison keys.
func (t Templates) Flatten() map[string]string {
	m := map[string]string{}
	if t.Page != "" {
		m["page"] = t.Page
	}
	for i, s := range t.Sections {
		m["sections."+strconv.Itoa(i+1)] = s
	}
	for k, v := range t.Fragments {
		m["fragments."+k] = v
	}
	return m
}

// FileGeneration controls where and how files are generated.
type FileGeneration struct {
	// OutputDir is the generated-file output directory.
	OutputDir string `json:"output_dir,omitempty"`

	// Naming is the file naming pattern.
	Naming string `json:"naming,omitempty"`

	// Steps is the generation workflow, at most ten entries.
	Steps []string `json:"steps,omitempty"`

	// Generate toggles generation per output kind.
	Generate map[string]bool `json:"generate,omitempty"`
}

// Flatten projects the file-generation rules to comparison keys.
func (f FileGeneration) Flatten() map[string]string {
	m := map[string]string{}
	if f.OutputDir != "" {
		m["output-dir"] = f.OutputDir
	}
	if f.Naming != "" {
		m["naming"] = f.Naming
	}
	for i, s := range f.Steps {
		m["steps."+strconv.Itoa(i+1)] = s
	}
	for k, v := range f.Generate {
		m["generate."+k] = strconv.FormatBool(v)
	}
	return m
}

// ContentRules holds the named prose rules for generated content.
type ContentRules struct {
	// Rules maps rule name to rule text.
	Rules map[string]string `json:"rules,omitempty"`
}

// Flatten projects the content rules to comparison keys.
func (c ContentRules) Flatten() map[string]string {
	m := make(map[string]string, len(c.Rules))
	for k, v := range c.Rules {
		m[k] = v
	}
	return m
}

// NavigationRules controls ordering and grouping of generated pages.
// Values are the spec's prose settings (for example "alphabetical",
// "by-category", "enabled").
type NavigationRules struct {
	// Order is the page ordering rule.
	Order string `json:"order,omitempty"`

	// Grouping is the page grouping rule.
	Grouping string `json:"grouping,omitempty"`

	// Breadcrumbs is the breadcrumb setting.
	Breadcrumbs string `json:"breadcrumbs,omitempty"`
}

// Flatten projects the navigation rules to comparison keys.
func (n NavigationRules) Flatten() map[string]string {
	m := map[string]string{}
	if n.Order != "" {
		m["order"] = n.Order
	}
	if n.Grouping != "" {
		m["grouping"] = n.Grouping
	}
	if n.Breadcrumbs != "" {
		m["breadcrumbs"] = n.Breadcrumbs
	}
	return m
}

// ValidationRules holds the named quality checks.
type ValidationRules struct {
	// Checks maps check name to its expectation text.
	Checks map[string]string `json:"checks,omitempty"`
}

// Flatten projects the validation rules to comparison keys.
func (v ValidationRules) Flatten() map[string]string {
	m := make(map[string]string, len(v.Checks))
	for k, val := range v.Checks {
		m[k] = val
	}
	return m
}

// EditorialReview is the optional review section.
type EditorialReview struct {
	// Reviewer names the responsible reviewer.
	Reviewer string `json:"reviewer,omitempty"`

	// Checklist lists the review checklist items in order.
	Checklist []string `json:"checklist,omitempty"`
}

// Flatten projects the review section to comparison keys. A nil receiver
// flattens to an empty map.
func (e *EditorialReview) Flatten() map[string]string {
	m := map[string]string{}
	if e == nil {
		return m
	}
	if e.Reviewer != "" {
		m["reviewer"] = e.Reviewer
	}
	for i, item := range e.Checklist {
		m["checklist."+strconv.Itoa(i+1)] = item
	}
	return m
}

// OutputStructure projects everything that shapes generated output
// (file generation, templates, navigation) into one comparison map.
// Template and navigation keys are prefixed so the three groups cannot
// collide.
func (p *ParsedSpec) OutputStructure() map[string]string {
	m := p.FileGeneration.Flatten()
	for k, v := range p.Templates.Flatten() {
		m["templates."+k] = v
	}
	for k, v := range p.NavigationRules.Flatten() {
		m["nav."+k] = v
	}
	return m
}
