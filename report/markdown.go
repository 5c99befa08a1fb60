package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/dispatch"
	"github.com/c360studio/specsync/impact"
)

// MarkdownWriter renders a full markdown report: counts, detected
// changes with inline value diffs, impact, applied updates, the
// manual-review list, and next steps.
type MarkdownWriter struct {
	sb strings.Builder
}

// Write renders the report and returns it.
func (w *MarkdownWriter) Write(summary *dispatch.Summary, analysis *impact.Analysis, changes []detect.ChangeItem) string {
	w.sb.Reset()

	w.writeHeader(summary)
	w.writeChanges(changes)
	w.writeImpact(analysis)
	w.writeResults(summary)
	w.writeManualReview(summary)
	w.writeNextSteps(summary)

	return w.sb.String()
}

func (w *MarkdownWriter) writeHeader(summary *dispatch.Summary) {
	w.sb.WriteString("# Spec Sync Report\n\n")
	w.sb.WriteString(fmt.Sprintf("- ID: `%s`\n", summary.ID))
	w.sb.WriteString(fmt.Sprintf("- Completed: %s\n", summary.Timestamp.Format("2006-01-02 15:04:05 UTC")))
	w.sb.WriteString(fmt.Sprintf("- Automatic updates: %d\n", summary.AutomaticUpdates))
	w.sb.WriteString(fmt.Sprintf("- Manual review required: %d\n", summary.ManualReviewRequired))
	if summary.Success {
		w.sb.WriteString("- Outcome: success\n\n")
	} else {
		w.sb.WriteString("- Outcome: needs attention\n\n")
	}
}

func (w *MarkdownWriter) writeChanges(changes []detect.ChangeItem) {
	if len(changes) == 0 {
		return
	}
	w.sb.WriteString("## Detected changes\n\n")
	for _, item := range changes {
		w.sb.WriteString(fmt.Sprintf("### %s (%s severity)\n\n", item.Type, item.Severity))
		w.sb.WriteString(item.Description + "\n\n")
		for _, d := range item.Details {
			w.sb.WriteString(renderDifference(d) + "\n")
		}
		w.sb.WriteString("\n")
	}
}

func (w *MarkdownWriter) writeImpact(analysis *impact.Analysis) {
	if analysis == nil {
		return
	}
	w.sb.WriteString("## Impact\n\n")
	if len(analysis.ImpactedModules) > 0 {
		w.sb.WriteString(fmt.Sprintf("- Impacted modules: %s\n", strings.Join(analysis.ImpactedModules, ", ")))
	}
	w.sb.WriteString(fmt.Sprintf("- Estimated effort: %s\n", analysis.EstimatedEffort))
	w.sb.WriteString(fmt.Sprintf("- Auto-updateable: %t\n\n", analysis.AutoUpdateable))
	if len(analysis.UpdateActions) > 0 {
		for _, action := range analysis.UpdateActions {
			w.sb.WriteString("- " + action + "\n")
		}
		w.sb.WriteString("\n")
	}
}

func (w *MarkdownWriter) writeResults(summary *dispatch.Summary) {
	if len(summary.Results) == 0 {
		return
	}
	w.sb.WriteString("## Applied updates\n\n")
	for _, result := range summary.Results {
		status := "ok"
		if !result.Success {
			status = "failed"
		}
		w.sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", result.Type, status))
		if len(result.Updates) == 0 {
			w.sb.WriteString("No configured values matched; nothing rewritten.\n\n")
			continue
		}
		for _, update := range result.Updates {
			w.sb.WriteString("- " + update + "\n")
		}
		w.sb.WriteString("\n")
	}
}

func (w *MarkdownWriter) writeManualReview(summary *dispatch.Summary) {
	if len(summary.ManualReviewItems) == 0 {
		return
	}
	w.sb.WriteString("## Manual review\n\n")
	for _, item := range summary.ManualReviewItems {
		w.sb.WriteString(fmt.Sprintf("### %s (%s severity)\n\n", item.Type, item.Severity))
		w.sb.WriteString(item.Description + "\n\n")
		if item.Error != "" {
			w.sb.WriteString(fmt.Sprintf("Error: %s\n\n", item.Error))
		}
		for _, d := range item.Details {
			w.sb.WriteString(renderDifference(d) + "\n")
		}
		w.sb.WriteString("\n")
	}
}

func (w *MarkdownWriter) writeNextSteps(summary *dispatch.Summary) {
	if len(summary.NextSteps) == 0 {
		return
	}
	w.sb.WriteString("## Next steps\n\n")
	for i, step := range summary.NextSteps {
		w.sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
}

// renderDifference formats one key-level delta. Modified values show a
// compact inline diff so long URLs and rule text reveal exactly what
// changed.
func renderDifference(d detect.Difference) string {
	switch d.Kind {
	case detect.DiffAdded:
		return fmt.Sprintf("- `%s` added: `%s`", d.Key, d.NewValue)
	case detect.DiffRemoved:
		return fmt.Sprintf("- `%s` removed (was `%s`)", d.Key, d.OldValue)
	default:
		return fmt.Sprintf("- `%s` modified: %s", d.Key, inlineDiff(d.OldValue, d.NewValue))
	}
}

// inlineDiff renders old→new as [-deleted-]{+inserted+} spans after
// semantic cleanup.
func inlineDiff(oldValue, newValue string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldValue, newValue, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
