package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/dispatch"
	"github.com/c360studio/specsync/impact"
)

func sampleSummary() *dispatch.Summary {
	return &dispatch.Summary{
		ID:               "1f1b5b3c-0000-4000-8000-000000000000",
		Timestamp:        time.Date(2026, 3, 15, 9, 30, 45, 0, time.UTC),
		AutomaticUpdates: 1,
		Results: []dispatch.UpdateResult{
			{Type: "data-extractors", Updates: []string{"Updated commands URL"}, Success: true},
		},
		ManualReviewItems: []detect.ChangeItem{},
		Success:           true,
		NextSteps:         []string{"Run the integration validation pass over the generated documentation"},
	}
}

func sampleChanges() []detect.ChangeItem {
	return []detect.ChangeItem{
		{
			Type:         detect.ChangeSources,
			Description:  "Source references changed (1 modified)",
			ImpactTarget: "data-extractors",
			Severity:     detect.SeverityMedium,
			Details: []detect.Difference{
				{
					Key:      "commands",
					Kind:     detect.DiffModified,
					OldValue: "https://example.com/api/commands.json",
					NewValue: "https://example.com/api/v2/commands.json",
				},
			},
		},
	}
}

func TestGetFormatInfo(t *testing.T) {
	info, ok := GetFormatInfo(FormatMarkdown)
	assert.True(t, ok)
	assert.Equal(t, ".md", info.Extension)

	info, ok = GetFormatInfo(FormatText)
	assert.True(t, ok)
	assert.Equal(t, ".txt", info.Extension)

	_, ok = GetFormatInfo(Format("pdf"))
	assert.False(t, ok)
}

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 3, 15, 9, 30, 45, 0, time.UTC)

	assert.Equal(t, "sync-report-20260315-093045.md", Filename(FormatMarkdown, ts))
	assert.Equal(t, "sync-report-20260315-093045.txt", Filename(FormatText, ts))

	// Unknown formats fall back to markdown.
	assert.Equal(t, "sync-report-20260315-093045.md", Filename(Format("pdf"), ts))
}

func TestNewWriter(t *testing.T) {
	assert.IsType(t, &MarkdownWriter{}, NewWriter(FormatMarkdown))
	assert.IsType(t, &TextWriter{}, NewWriter(FormatText))
	assert.IsType(t, &MarkdownWriter{}, NewWriter(Format("pdf")))
}

func TestMarkdownWriter_Write(t *testing.T) {
	summary := sampleSummary()
	changes := sampleChanges()
	analysis := impact.Analyze(changes)

	content := (&MarkdownWriter{}).Write(summary, analysis, changes)

	assert.Contains(t, content, "# Spec Sync Report")
	assert.Contains(t, content, "- ID: `"+summary.ID+"`")
	assert.Contains(t, content, "- Completed: 2026-03-15 09:30:45 UTC")
	assert.Contains(t, content, "- Automatic updates: 1")
	assert.Contains(t, content, "- Outcome: success")

	assert.Contains(t, content, "## Detected changes")
	assert.Contains(t, content, "### sources (medium severity)")
	assert.Contains(t, content, "Source references changed (1 modified)")

	// Modified values render as an inline diff of old against new.
	assert.Contains(t, content, "`commands` modified: https://example.com/api/")
	assert.Contains(t, content, "{+")

	assert.Contains(t, content, "## Impact")
	assert.Contains(t, content, "- Impacted modules: data-extractors")
	assert.Contains(t, content, "- Estimated effort: low")
	assert.Contains(t, content, "- Auto-updateable: true")
	assert.Contains(t, content, "- Update data-extractors: Source references changed (1 modified)")

	assert.Contains(t, content, "## Applied updates")
	assert.Contains(t, content, "### data-extractors (ok)")
	assert.Contains(t, content, "- Updated commands URL")

	assert.Contains(t, content, "## Next steps")
	assert.Contains(t, content, "1. Run the integration validation pass over the generated documentation")

	// Nothing was routed to manual review.
	assert.NotContains(t, content, "## Manual review")
}

func TestMarkdownWriter_Write_ManualReviewAndFailure(t *testing.T) {
	summary := sampleSummary()
	summary.Success = false
	summary.ManualReviewRequired = 1
	summary.ManualReviewItems = []detect.ChangeItem{
		{
			Type:        detect.ChangeContentRules,
			Description: "Content rules changed (1 modified)",
			Severity:    detect.SeverityHigh,
			Error:       "upstream unreachable",
			Details: []detect.Difference{
				{Key: "example-prompts", Kind: detect.DiffRemoved, OldValue: "three per command"},
			},
		},
	}

	content := (&MarkdownWriter{}).Write(summary, nil, nil)

	assert.Contains(t, content, "- Outcome: needs attention")
	assert.Contains(t, content, "## Manual review")
	assert.Contains(t, content, "### content-rules (high severity)")
	assert.Contains(t, content, "Error: upstream unreachable")
	assert.Contains(t, content, "- `example-prompts` removed (was `three per command`)")

	// No analysis and no changes means those sections are absent.
	assert.NotContains(t, content, "## Detected changes")
	assert.NotContains(t, content, "## Impact")
}

func TestTextWriter_Write(t *testing.T) {
	summary := sampleSummary()
	changes := sampleChanges()
	analysis := impact.Analyze(changes)

	content := (&TextWriter{}).Write(summary, analysis, changes)

	assert.Contains(t, content, "Sync pass "+summary.ID+": success")
	assert.Contains(t, content, "changes detected:  1")
	assert.Contains(t, content, "automatic updates: 1")
	assert.Contains(t, content, "manual review:     0")
	assert.Contains(t, content, "estimated effort:  low")
	assert.Contains(t, content, "[data-extractors] Updated commands URL")
	assert.Contains(t, content, "next: Run the integration validation pass over the generated documentation")
}

func TestTextWriter_Write_ReviewItemWithError(t *testing.T) {
	summary := sampleSummary()
	summary.Success = false
	summary.ManualReviewItems = []detect.ChangeItem{
		{
			Type:        detect.ChangeSources,
			Description: "Source references changed (1 modified)",
			Error:       "no strategy registered for change type: sources",
		},
	}

	content := (&TextWriter{}).Write(summary, nil, nil)

	assert.Contains(t, content, "needs attention")
	assert.Contains(t, content, "[review] sources: Source references changed (1 modified) (no strategy registered for change type: sources)")
}

func TestInlineDiff(t *testing.T) {
	// Disjoint values render as one deletion and one insertion.
	assert.Equal(t, "[-foo-]{+bar+}", inlineDiff("foo", "bar"))

	// Identical values pass through untouched.
	assert.Equal(t, "same", inlineDiff("same", "same"))

	// A path segment insertion keeps the shared prefix readable.
	got := inlineDiff("https://example.com/api/commands.json", "https://example.com/api/v2/commands.json")
	assert.True(t, strings.HasPrefix(got, "https://example.com/api/"), got)
	assert.Contains(t, got, "{+")
	assert.Contains(t, got, "v2")
	assert.NotContains(t, got, "[-")
}

func TestRenderDifference(t *testing.T) {
	added := detect.Difference{Key: "hooks", Kind: detect.DiffAdded, NewValue: "https://example.com/hooks.json"}
	assert.Equal(t, "- `hooks` added: `https://example.com/hooks.json`", renderDifference(added))

	removed := detect.Difference{Key: "tasks", Kind: detect.DiffRemoved, OldValue: "https://example.com/tasks.json"}
	assert.Equal(t, "- `tasks` removed (was `https://example.com/tasks.json`)", renderDifference(removed))
}

func TestReporter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	reporter := NewReporter(dir, FormatMarkdown, nil)

	summary := sampleSummary()
	path, err := reporter.Write(summary, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sync-report-20260315-093045.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Spec Sync Report")
}

func TestNewReporter_UnknownFormatFallsBack(t *testing.T) {
	dir := t.TempDir()
	reporter := NewReporter(dir, Format("pdf"), nil)

	path, err := reporter.Write(sampleSummary(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", filepath.Ext(path))
}
